package sshserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"github.com/mdp/qrterminal/v3"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/internal/content"
	"pkt.systems/termfolio/internal/eventbus"
	"pkt.systems/termfolio/internal/termview"
	"pkt.systems/termfolio/schema"
)

// sessionIO is the part of an SSH session the UI needs.
type sessionIO interface {
	io.ReadWriter
	Exit(code int) error
}

type terminalSession struct {
	sess      sessionIO
	service   core.Service
	sessionID schema.SessionID
	variant   schema.VariantName
	screen    *screen
	theme     tuiTheme
	webURL    string
	ctx       context.Context
	events    <-chan eventbus.Event

	width  int
	height int

	profile schema.Profile
	guiPage []string
	qr      []string

	view          schema.ViewMode
	loading       bool
	loaderPercent int
	prompt        string
	blocks        []schema.Block
	lastBlock     int64

	editor    termview.Input
	selected  int
	scroll    int
	guiScroll int
	dirty     bool
}

func newTerminalSession(sess sessionIO, service core.Service, snapshot schema.SessionSnapshot, cfg Config, events <-chan eventbus.Event) *terminalSession {
	t := &terminalSession{
		sess:      sess,
		service:   service,
		sessionID: snapshot.SessionID,
		variant:   snapshot.Variant,
		screen:    newScreen(sess),
		theme:     themeForName(cfg.Theme),
		webURL:    strings.TrimSpace(cfg.WebURL),
		events:    events,
	}
	t.apply(snapshot)
	return t
}

func (t *terminalSession) log() pslog.Logger {
	ctx := t.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return pslog.Ctx(ctx)
}

func (t *terminalSession) SetSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	t.width = width
	t.height = height
}

func (t *terminalSession) Run(ctx context.Context, winCh <-chan gliderssh.Window) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx = ctx
	t.loadProfile()
	t.screen.EnterAltScreen()
	defer t.screen.ExitAltScreen()

	t.refresh()
	t.render()
	t.log().Debug("tui session start", "width", t.width, "height", t.height)

	keys := make(chan key, 16)
	go readKeys(t.sess, keys)

	interval := resyncInterval
	if t.events == nil {
		interval = pollInterval
	}
	stateTicker := time.NewTicker(interval)
	defer stateTicker.Stop()

	events := t.events
	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			if t.handleKey(k) {
				return nil
			}
		case win, ok := <-winCh:
			if ok {
				t.SetSize(win.Width, win.Height)
				t.screen.Invalidate()
				t.dirty = true
				t.log().Debug("tui resize", "width", t.width, "height", t.height)
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				break
			}
			t.applyEvent(ev)
		case <-stateTicker.C:
			t.refresh()
		}

		if t.dirty {
			t.render()
			t.dirty = false
		}
	}
}

const (
	// resyncInterval reloads the snapshot while events keep the view current.
	resyncInterval = 30 * time.Second
	// pollInterval reloads the snapshot when no event bus is attached.
	pollInterval = 2 * time.Second
)

func (t *terminalSession) loadProfile() {
	profile, err := t.service.Profile(t.variant)
	if err != nil {
		t.log().Warn("tui profile unavailable", "err", err)
		return
	}
	t.profile = profile
	t.guiPage = content.New(profile).GUIText()
	t.qr = qrLines(t.webURL)
}

// qrLines renders url as a half-block QR code.
func qrLines(url string) []string {
	if url == "" {
		return nil
	}
	var buf bytes.Buffer
	qrterminal.GenerateHalfBlock(url, qrterminal.L, &buf)
	raw := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		out = append(out, termview.Sanitize(line))
	}
	return out
}

func (t *terminalSession) refresh() {
	resp, err := t.service.GetSnapshot(t.ctx, schema.GetSnapshotRequest{SessionID: t.sessionID})
	if err != nil {
		t.log().Warn("tui snapshot failed", "err", err)
		return
	}
	t.apply(resp.Session)
}

func (t *terminalSession) apply(snapshot schema.SessionSnapshot) {
	if snapshot.View != t.view {
		t.scroll = 0
		t.guiScroll = 0
	}
	changed := snapshot.View != t.view ||
		snapshot.Loading != t.loading ||
		snapshot.LoaderPercent != t.loaderPercent ||
		len(snapshot.Blocks) != len(t.blocks) ||
		(len(snapshot.Blocks) > 0 && snapshot.Blocks[len(snapshot.Blocks)-1].ID != t.blocks[len(t.blocks)-1].ID)
	t.view = snapshot.View
	t.loading = snapshot.Loading
	t.loaderPercent = snapshot.LoaderPercent
	t.prompt = snapshot.Prompt
	t.blocks = append(t.blocks[:0:0], snapshot.Blocks...)
	if n := len(t.blocks); n > 0 && t.blocks[n-1].ID > t.lastBlock {
		t.lastBlock = t.blocks[n-1].ID
	}
	if snapshot.Input != t.editor.String() {
		t.editor.Set(snapshot.Input)
		changed = true
	}
	if changed {
		t.dirty = true
	}
}

// applyEvent folds one bus event into the local view state.
func (t *terminalSession) applyEvent(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.EventOutput:
		t.appendBlocks(ev.Output.Blocks)
	case eventbus.EventClear:
		t.blocks = append(t.blocks[:0:0], ev.Clear.Keep...)
		t.scroll = 0
		t.dirty = true
	case eventbus.EventInput:
		if ev.Input.Input != t.editor.String() {
			t.editor.Set(ev.Input.Input)
			t.dirty = true
		}
	case eventbus.EventView:
		if ev.View.View != t.view {
			t.scroll = 0
			t.guiScroll = 0
		}
		t.view = ev.View.View
		t.loading = ev.View.Loading
		t.dirty = true
	case eventbus.EventLoader:
		t.loaderPercent = ev.Loader.Percent
		t.dirty = true
	}
}

// appendBlocks adds blocks newer than the last one seen. Block ids are
// consecutive, so a gap means events were dropped and the snapshot is
// reloaded instead.
func (t *terminalSession) appendBlocks(blocks []schema.Block) {
	for _, block := range blocks {
		if block.ID <= t.lastBlock {
			continue
		}
		if t.lastBlock != 0 && block.ID != t.lastBlock+1 {
			t.log().Debug("tui event gap", "last", t.lastBlock, "next", block.ID)
			t.refresh()
			return
		}
		t.blocks = append(t.blocks, block)
		t.lastBlock = block.ID
		t.dirty = true
	}
}

func (t *terminalSession) exit(reason string) bool {
	t.log().Info("tui exit", "reason", reason)
	_ = t.sess.Exit(0)
	return true
}

func (t *terminalSession) handleKey(k key) bool {
	t.dirty = true
	if t.loading {
		if k.kind == keyCtrlD {
			return t.exit("ctrl-d")
		}
		return false
	}
	switch t.view {
	case schema.ViewSelector:
		return t.handleSelectorKey(k)
	case schema.ViewGUI:
		return t.handleGUIKey(k)
	default:
		return t.handleTerminalKey(k)
	}
}

func (t *terminalSession) handleSelectorKey(k key) bool {
	count := len(termview.SelectorOptions)
	switch k.kind {
	case keyUp, keyShiftTab, keyLeft:
		t.selected = (t.selected + count - 1) % count
	case keyDown, keyTab, keyRight:
		t.selected = (t.selected + 1) % count
	case keyEnter:
		t.selectView(termview.SelectorOptions[t.selected].View)
	case keyCtrlC, keyCtrlD:
		return t.exit("selector")
	case keyRune:
		if k.r == 'q' || k.r == 'Q' {
			return t.exit("selector")
		}
		for i, option := range termview.SelectorOptions {
			if string(k.r) == option.Key {
				t.selected = i
				t.selectView(option.View)
				break
			}
		}
	}
	return false
}

func (t *terminalSession) handleGUIKey(k key) bool {
	page := t.bodyHeight()
	switch k.kind {
	case keyEnter:
		t.selectView(schema.ViewTerminal)
	case keyUp:
		t.guiScroll--
	case keyDown:
		t.guiScroll++
	case keyPageUp:
		t.guiScroll -= page
	case keyPageDown:
		t.guiScroll += page
	case keyHome:
		t.guiScroll = 0
	case keyEnd:
		t.guiScroll = len(t.guiLines())
	case keyCtrlC, keyCtrlD:
		return t.exit("gui")
	case keyRune:
		switch k.r {
		case 't', 'T':
			t.selectView(schema.ViewTerminal)
		case 'q', 'Q':
			return t.exit("gui")
		}
	}
	return false
}

// lineEdits are the terminal keys that only touch the input line. Those
// that change its text are followed by an input sync.
var lineEdits = map[keyKind]struct {
	apply func(*termview.Input)
	sync  bool
}{
	keyBackspace: {(*termview.Input).Backspace, true},
	keyDelete:    {(*termview.Input).Delete, true},
	keyCtrlW:     {(*termview.Input).KillWord, true},
	keyCtrlU:     {(*termview.Input).KillStart, true},
	keyCtrlK:     {(*termview.Input).KillEnd, true},
	keyLeft:      {func(in *termview.Input) { in.Move(-1) }, false},
	keyRight:     {func(in *termview.Input) { in.Move(1) }, false},
	keyHome:      {func(in *termview.Input) { in.Move(-in.Len()) }, false},
	keyCtrlA:     {func(in *termview.Input) { in.Move(-in.Len()) }, false},
	keyEnd:       {func(in *termview.Input) { in.Move(in.Len()) }, false},
	keyCtrlE:     {func(in *termview.Input) { in.Move(in.Len()) }, false},
	keyAltB:      {func(in *termview.Input) { in.MoveWord(-1) }, false},
	keyAltF:      {func(in *termview.Input) { in.MoveWord(1) }, false},
}

func (t *terminalSession) handleTerminalKey(k key) bool {
	if edit, ok := lineEdits[k.kind]; ok {
		edit.apply(&t.editor)
		if edit.sync {
			t.syncInput()
		}
		return false
	}
	switch k.kind {
	case keyCtrlD:
		if t.editor.Len() == 0 {
			return t.exit("ctrl-d")
		}
		t.editor.Delete()
		t.syncInput()
	case keyCtrlC:
		t.editor.Set("")
		t.syncInput()
	case keyCtrlL:
		t.execute("clear")
	case keyEnter:
		line := t.editor.String()
		t.editor.Set("")
		t.execute(line)
	case keyRune:
		t.editor.Insert(k.r)
		t.syncInput()
	case keyUp:
		t.navigateHistory(schema.HistoryBack)
	case keyDown:
		t.navigateHistory(schema.HistoryForward)
	case keyTab:
		t.complete()
	case keyPageUp:
		t.scroll += t.bodyHeight()
	case keyPageDown:
		t.scroll -= t.bodyHeight()
		if t.scroll < 0 {
			t.scroll = 0
		}
	}
	return false
}

func (t *terminalSession) execute(line string) {
	t.scroll = 0
	resp, err := t.service.Execute(t.ctx, schema.ExecuteRequest{SessionID: t.sessionID, Line: line})
	if err != nil {
		t.log().Warn("tui execute failed", "err", err)
	} else if resp.Switching != "" {
		t.log().Debug("tui view switch", "view", string(resp.Switching))
	}
	t.refresh()
}

func (t *terminalSession) syncInput() {
	if _, err := t.service.SetInput(t.ctx, schema.SetInputRequest{SessionID: t.sessionID, Input: t.editor.String()}); err != nil {
		t.log().Warn("tui input sync failed", "err", err)
	}
}

func (t *terminalSession) navigateHistory(direction schema.HistoryDirection) {
	t.syncInput()
	resp, err := t.service.NavigateHistory(t.ctx, schema.NavigateHistoryRequest{SessionID: t.sessionID, Direction: direction})
	if err != nil {
		t.log().Warn("tui history failed", "err", err)
		return
	}
	t.editor.Set(resp.Input)
}

func (t *terminalSession) complete() {
	resp, err := t.service.Complete(t.ctx, schema.CompleteRequest{SessionID: t.sessionID, Input: t.editor.String()})
	if err != nil {
		t.log().Warn("tui complete failed", "err", err)
		return
	}
	t.editor.Set(resp.Input)
	if resp.Block != nil {
		t.scroll = 0
		t.refresh()
	}
}

func (t *terminalSession) selectView(view schema.ViewMode) {
	_, err := t.service.SelectView(t.ctx, schema.SelectViewRequest{SessionID: t.sessionID, View: view})
	if err != nil && !errors.Is(err, schema.ErrLoading) {
		t.log().Warn("tui select view failed", "view", string(view), "err", err)
	}
	t.refresh()
}

// bodyHeight is the number of rows between the title bar and the bottom line.
func (t *terminalSession) bodyHeight() int {
	if t.height < 3 {
		return 1
	}
	return t.height - 2
}

func (t *terminalSession) guiLines() []termview.Line {
	lines := termview.GUI(t.guiPage, t.width)
	if t.webURL == "" {
		return lines
	}
	lines = append(lines, termview.Line{}, termview.Line{Text: "== Web ==", Role: termview.RoleTitle})
	if len(t.qr) > 0 && termview.StringWidth(t.qr[0]) <= t.width {
		for _, row := range t.qr {
			lines = append(lines, termview.Line{Text: row, Role: termview.RoleArt})
		}
	}
	return append(lines, termview.Line{Text: termview.Truncate(t.webURL, t.width), Role: termview.RoleInfo})
}

func (t *terminalSession) render() {
	if t.width <= 0 || t.height <= 0 {
		t.SetSize(t.width, t.height)
	}
	var lines []string
	cursorRow, cursorCol := t.height, 1
	switch t.view {
	case schema.ViewSelector:
		lines = t.renderSelector()
	case schema.ViewGUI:
		lines = t.renderGUI()
	default:
		lines, cursorCol = t.renderTerminal()
	}
	showCursor := t.view == schema.ViewTerminal && !t.loading
	if err := t.screen.Render(lines, cursorRow, cursorCol, showCursor); err != nil {
		t.log().Debug("tui render failed", "err", err)
	}
}

func (t *terminalSession) bottomLine(fallback termview.Line) string {
	if t.loading {
		return t.theme.loaderLine(termview.LoaderBar(t.loaderPercent, t.width), t.width)
	}
	return t.theme.styleLine(fallback, t.width)
}

func (t *terminalSession) renderSelector() []string {
	body := termview.Selector(t.profile, t.selected, t.width)
	out := make([]string, 0, t.height)
	out = append(out, t.theme.titleBar(" "+t.profile.Handle+"@"+t.profile.Host, t.width))
	for i := 0; i < t.bodyHeight(); i++ {
		var line termview.Line
		if i < len(body) {
			line = body[i]
		}
		out = append(out, t.theme.styleLine(line, t.width))
	}
	return append(out, t.bottomLine(termview.Line{}))
}

func (t *terminalSession) renderGUI() []string {
	body := t.guiLines()
	height := t.bodyHeight()
	maxScroll := len(body) - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if t.guiScroll > maxScroll {
		t.guiScroll = maxScroll
	}
	if t.guiScroll < 0 {
		t.guiScroll = 0
	}
	out := make([]string, 0, t.height)
	out = append(out, t.theme.titleBar(fmt.Sprintf(" %s - %s", t.profile.Handle, t.profile.Title), t.width))
	for i := 0; i < height; i++ {
		var line termview.Line
		if idx := t.guiScroll + i; idx < len(body) {
			line = body[idx]
		}
		out = append(out, t.theme.styleLine(line, t.width))
	}
	return append(out, t.bottomLine(termview.Line{Text: termview.GUIHint, Role: termview.RoleMuted}))
}

func (t *terminalSession) renderTerminal() ([]string, int) {
	transcript := termview.Transcript(t.blocks, t.width)
	var view []termview.Line
	view, t.scroll = termview.Viewport(transcript, t.bodyHeight(), t.scroll)
	out := make([]string, 0, t.height)
	title := " " + t.prompt
	if t.scroll > 0 {
		title += fmt.Sprintf("  [scrolled %d]", t.scroll)
	}
	out = append(out, t.theme.titleBar(title, t.width))
	for _, line := range view {
		out = append(out, t.theme.styleLine(line, t.width))
	}
	input := termview.InputLine(t.prompt, t.editor.String())
	out = append(out, t.bottomLine(input))
	col := termview.StringWidth(t.prompt) + 2 + t.editor.Column()
	if col > t.width {
		col = t.width
	}
	return out, col
}

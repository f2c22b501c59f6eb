// Package localtui renders an interpreter session in the local terminal.
package localtui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/internal/content"
	"pkt.systems/termfolio/internal/eventbus"
	"pkt.systems/termfolio/internal/logx"
	"pkt.systems/termfolio/internal/termview"
	"pkt.systems/termfolio/schema"
)

// Config selects the look of the console.
type Config struct {
	Theme   schema.ThemeName
	Variant schema.VariantName
}

// Console drives one local session on a tcell screen.
type Console struct {
	screen  tcell.Screen
	service core.Service
	styles  styles
	events  <-chan eventbus.Event
	unsub   func()
	ctx     context.Context

	sessionID schema.SessionID
	profile   schema.Profile
	guiPage   []string
	snapshot  schema.SessionSnapshot

	input     termview.Input
	selected  int
	scroll    int
	guiScroll int
}

// Run opens the terminal, runs a console until the visitor quits and restores the terminal.
func Run(ctx context.Context, cfg Config, service core.Service, bus *eventbus.Bus) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()
	console, err := New(ctx, screen, cfg, service, bus)
	if err != nil {
		return err
	}
	defer console.Close()
	return console.Run(ctx)
}

// New opens a local session on an initialised screen.
func New(ctx context.Context, screen tcell.Screen, cfg Config, service core.Service, bus *eventbus.Bus) (*Console, error) {
	if service == nil {
		return nil, errors.New("localtui: missing service")
	}
	ctx = logx.ContextWithTransport(ctx, schema.TransportLocal)
	opened, err := service.OpenSession(ctx, schema.OpenSessionRequest{Variant: cfg.Variant, Transport: schema.TransportLocal})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	sessionID := opened.Session.SessionID
	profile, err := service.Profile(opened.Session.Variant)
	if err != nil {
		return nil, err
	}
	c := &Console{
		screen:    screen,
		service:   service,
		styles:    stylesFor(cfg.Theme),
		ctx:       logx.ContextWithSession(ctx, sessionID),
		sessionID: sessionID,
		profile:   profile,
		guiPage:   content.New(profile).GUIText(),
		unsub:     func() {},
	}
	if bus != nil {
		c.events, c.unsub = bus.Subscribe(sessionID)
	}
	c.apply(opened.Session)
	return c, nil
}

// Close drops the session.
func (c *Console) Close() {
	c.unsub()
	if _, err := c.service.CloseSession(context.Background(), schema.CloseSessionRequest{SessionID: c.sessionID}); err != nil {
		c.log().Debug("local close failed", "err", err)
	}
}

func (c *Console) log() pslog.Logger {
	return pslog.Ctx(c.ctx)
}

// Run processes keys and session events until quit or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	keys := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := c.screen.PollEvent()
			if ev == nil {
				close(keys)
				return
			}
			keys <- ev
		}
	}()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	c.log().Info("local console start")
	c.draw()
	events := c.events
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-keys:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if c.handleKey(keyFromEvent(ev)) {
					c.log().Info("local console quit")
					return nil
				}
			case *tcell.EventResize:
				c.screen.Sync()
			}
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.refresh()
		case <-ticker.C:
			c.refresh()
		}
		c.draw()
	}
}

// key is the part of a tcell key event the console acts on.
type key struct {
	code tcell.Key
	r    rune
}

func keyFromEvent(ev *tcell.EventKey) key {
	return key{code: ev.Key(), r: ev.Rune()}
}

func (c *Console) refresh() {
	resp, err := c.service.GetSnapshot(c.ctx, schema.GetSnapshotRequest{SessionID: c.sessionID})
	if err != nil {
		c.log().Warn("local snapshot failed", "err", err)
		return
	}
	c.apply(resp.Session)
}

func (c *Console) apply(snapshot schema.SessionSnapshot) {
	if snapshot.View != c.snapshot.View {
		c.scroll = 0
		c.guiScroll = 0
	}
	c.snapshot = snapshot
	if snapshot.Input != c.input.String() {
		c.input.Set(snapshot.Input)
	}
}

func (c *Console) handleKey(k key) bool {
	if c.snapshot.Loading {
		return k.code == tcell.KeyCtrlD
	}
	switch c.snapshot.View {
	case schema.ViewSelector:
		return c.selectorKey(k)
	case schema.ViewGUI:
		return c.guiKey(k)
	default:
		return c.terminalKey(k)
	}
}

func (c *Console) selectorKey(k key) bool {
	count := len(termview.SelectorOptions)
	switch k.code {
	case tcell.KeyUp, tcell.KeyLeft, tcell.KeyBacktab:
		c.selected = (c.selected + count - 1) % count
	case tcell.KeyDown, tcell.KeyRight, tcell.KeyTab:
		c.selected = (c.selected + 1) % count
	case tcell.KeyEnter:
		c.selectView(termview.SelectorOptions[c.selected].View)
	case tcell.KeyCtrlC, tcell.KeyCtrlD, tcell.KeyEscape:
		return true
	case tcell.KeyRune:
		if k.r == 'q' || k.r == 'Q' {
			return true
		}
		for i, option := range termview.SelectorOptions {
			if string(k.r) == option.Key {
				c.selected = i
				c.selectView(option.View)
			}
		}
	}
	return false
}

func (c *Console) guiKey(k key) bool {
	width, height := c.screen.Size()
	page := bodyHeight(height)
	switch k.code {
	case tcell.KeyEnter:
		c.selectView(schema.ViewTerminal)
	case tcell.KeyUp:
		c.guiScroll--
	case tcell.KeyDown:
		c.guiScroll++
	case tcell.KeyPgUp:
		c.guiScroll -= page
	case tcell.KeyPgDn:
		c.guiScroll += page
	case tcell.KeyHome:
		c.guiScroll = 0
	case tcell.KeyEnd:
		c.guiScroll = len(termview.GUI(c.guiPage, width))
	case tcell.KeyCtrlC, tcell.KeyCtrlD, tcell.KeyEscape:
		return true
	case tcell.KeyRune:
		switch k.r {
		case 't', 'T':
			c.selectView(schema.ViewTerminal)
		case 'q', 'Q':
			return true
		}
	}
	return false
}

func (c *Console) terminalKey(k key) bool {
	_, height := c.screen.Size()
	switch k.code {
	case tcell.KeyCtrlD:
		if c.input.Len() == 0 {
			return true
		}
		c.input.Delete()
		c.syncInput()
	case tcell.KeyCtrlC:
		c.input.Set("")
		c.syncInput()
	case tcell.KeyCtrlL:
		c.execute("clear")
	case tcell.KeyEnter:
		line := c.input.String()
		c.input.Set("")
		c.execute(line)
	case tcell.KeyRune:
		c.input.Insert(k.r)
		c.syncInput()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		c.input.Backspace()
		c.syncInput()
	case tcell.KeyDelete:
		c.input.Delete()
		c.syncInput()
	case tcell.KeyCtrlU:
		c.input.KillStart()
		c.syncInput()
	case tcell.KeyCtrlK:
		c.input.KillEnd()
		c.syncInput()
	case tcell.KeyCtrlW:
		c.input.KillWord()
		c.syncInput()
	case tcell.KeyLeft:
		c.input.Move(-1)
	case tcell.KeyRight:
		c.input.Move(1)
	case tcell.KeyHome, tcell.KeyCtrlA:
		c.input.Move(-c.input.Len())
	case tcell.KeyEnd, tcell.KeyCtrlE:
		c.input.Move(c.input.Len())
	case tcell.KeyUp:
		c.history(schema.HistoryBack)
	case tcell.KeyDown:
		c.history(schema.HistoryForward)
	case tcell.KeyTab:
		c.complete()
	case tcell.KeyPgUp:
		c.scroll += bodyHeight(height)
	case tcell.KeyPgDn:
		c.scroll -= bodyHeight(height)
		if c.scroll < 0 {
			c.scroll = 0
		}
	}
	return false
}

func (c *Console) execute(line string) {
	c.scroll = 0
	if _, err := c.service.Execute(c.ctx, schema.ExecuteRequest{SessionID: c.sessionID, Line: line}); err != nil {
		c.log().Warn("local execute failed", "err", err)
	}
	c.refresh()
}

func (c *Console) syncInput() {
	if _, err := c.service.SetInput(c.ctx, schema.SetInputRequest{SessionID: c.sessionID, Input: c.input.String()}); err != nil {
		c.log().Warn("local input sync failed", "err", err)
	}
}

func (c *Console) history(direction schema.HistoryDirection) {
	c.syncInput()
	resp, err := c.service.NavigateHistory(c.ctx, schema.NavigateHistoryRequest{SessionID: c.sessionID, Direction: direction})
	if err != nil {
		c.log().Warn("local history failed", "err", err)
		return
	}
	c.input.Set(resp.Input)
}

func (c *Console) complete() {
	resp, err := c.service.Complete(c.ctx, schema.CompleteRequest{SessionID: c.sessionID, Input: c.input.String()})
	if err != nil {
		c.log().Warn("local complete failed", "err", err)
		return
	}
	c.input.Set(resp.Input)
	if resp.Block != nil {
		c.scroll = 0
		c.refresh()
	}
}

func (c *Console) selectView(view schema.ViewMode) {
	if _, err := c.service.SelectView(c.ctx, schema.SelectViewRequest{SessionID: c.sessionID, View: view}); err != nil && !errors.Is(err, schema.ErrLoading) {
		c.log().Warn("local select view failed", "view", string(view), "err", err)
	}
	c.refresh()
}

func bodyHeight(height int) int {
	if height < 3 {
		return 1
	}
	return height - 2
}

func (c *Console) draw() {
	width, height := c.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}
	c.screen.Clear()
	body := bodyHeight(height)
	var (
		title  string
		lines  []termview.Line
		bottom = termview.Line{}
	)
	switch c.snapshot.View {
	case schema.ViewSelector:
		title = " " + c.profile.Handle + "@" + c.profile.Host
		lines = termview.Selector(c.profile, c.selected, width)
	case schema.ViewGUI:
		title = fmt.Sprintf(" %s - %s", c.profile.Handle, c.profile.Title)
		lines = c.guiViewport(termview.GUI(c.guiPage, width), body)
		bottom = termview.Line{Text: termview.GUIHint, Role: termview.RoleMuted}
	default:
		title = " " + c.snapshot.Prompt
		lines, c.scroll = termview.Viewport(termview.Transcript(c.snapshot.Blocks, width), body, c.scroll)
		if c.scroll > 0 {
			title += fmt.Sprintf("  [scrolled %d]", c.scroll)
		}
		bottom = termview.InputLine(c.snapshot.Prompt, c.input.String())
		col := termview.StringWidth(c.snapshot.Prompt) + 1 + c.input.Column()
		if !c.snapshot.Loading && col < width {
			c.screen.ShowCursor(col, height-1)
		}
	}
	if c.snapshot.View != schema.ViewTerminal || c.snapshot.Loading {
		c.screen.HideCursor()
	}

	c.fill(0, width, termview.Line{Text: title}, c.styles.bar)
	for i := 0; i < body && i < len(lines); i++ {
		c.fill(i+1, width, lines[i], c.styles.role(lines[i].Role))
	}
	if c.snapshot.Loading {
		c.fill(height-1, width, termview.Line{Text: termview.LoaderBar(c.snapshot.LoaderPercent, width)}, c.styles.loader)
	} else {
		c.fill(height-1, width, bottom, c.styles.role(bottom.Role))
	}
	c.screen.Show()
}

func (c *Console) guiViewport(lines []termview.Line, height int) []termview.Line {
	maxScroll := len(lines) - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if c.guiScroll > maxScroll {
		c.guiScroll = maxScroll
	}
	if c.guiScroll < 0 {
		c.guiScroll = 0
	}
	return lines[c.guiScroll:]
}

// fill writes one row padded to width.
func (c *Console) fill(y, width int, line termview.Line, style tcell.Style) {
	x := 0
	text := []rune(termview.Truncate(line.Text, width))
	for i := 0; i < len(text); {
		r := text[i]
		i++
		var combining []rune
		for i < len(text) && termview.RuneWidth(text[i]) == 0 {
			combining = append(combining, text[i])
			i++
		}
		w := termview.RuneWidth(r)
		if w == 0 {
			w = 1
		}
		if x+w > width {
			break
		}
		c.screen.SetContent(x, y, r, combining, style)
		x += w
	}
	for ; x < width; x++ {
		c.screen.SetContent(x, y, ' ', nil, style)
	}
}

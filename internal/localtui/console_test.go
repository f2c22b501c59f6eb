package localtui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/internal/eventbus"
	"pkt.systems/termfolio/internal/termview"
	"pkt.systems/termfolio/schema"
)

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestConsole(t *testing.T, view schema.ViewMode, sleep core.SleepFunc) (*Console, tcell.SimulationScreen) {
	t.Helper()
	if sleep == nil {
		sleep = instantSleep
	}
	bus := eventbus.New(nil)
	svc, err := core.NewService(schema.ServiceConfig{
		InitialView: view,
		LoaderSteps: []schema.LoaderStep{{Percent: 40}, {Percent: 100}},
	}, core.ServiceDeps{EventSink: bus, Sleep: sleep})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	console, err := New(context.Background(), screen, Config{Theme: "amber"}, svc, bus)
	if err != nil {
		t.Fatalf("new console: %v", err)
	}
	t.Cleanup(console.Close)
	return console, screen
}

func typeString(c *Console, text string) {
	for _, r := range text {
		c.handleKey(key{code: tcell.KeyRune, r: r})
	}
}

func waitForView(t *testing.T, c *Console, view schema.ViewMode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.refresh()
		if c.snapshot.View == view && !c.snapshot.Loading {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for view %s (view=%s loading=%v)", view, c.snapshot.View, c.snapshot.Loading)
}

func rowText(screen tcell.SimulationScreen, y int) string {
	width, _ := screen.Size()
	var b strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := screen.GetContent(x, y)
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func TestSelectorKeysPickView(t *testing.T) {
	c, _ := newTestConsole(t, schema.ViewSelector, nil)
	c.handleKey(key{code: tcell.KeyDown})
	if c.selected != 1 {
		t.Fatalf("expected second option selected, got %d", c.selected)
	}
	c.handleKey(key{code: tcell.KeyUp})
	if c.selected != 0 {
		t.Fatalf("expected first option selected, got %d", c.selected)
	}
	if quit := c.handleKey(key{code: tcell.KeyRune, r: '1'}); quit {
		t.Fatalf("unexpected quit")
	}
	waitForView(t, c, schema.ViewTerminal)
}

func TestSelectorQuit(t *testing.T) {
	c, _ := newTestConsole(t, schema.ViewSelector, nil)
	if !c.handleKey(key{code: tcell.KeyRune, r: 'q'}) {
		t.Fatalf("expected q to quit")
	}
}

func TestTerminalExecutesAndRenders(t *testing.T) {
	c, screen := newTestConsole(t, schema.ViewTerminal, nil)
	typeString(c, "ls")
	if c.input.String() != "ls" {
		t.Fatalf("expected input ls, got %q", c.input.String())
	}
	c.handleKey(key{code: tcell.KeyEnter})
	if c.input.Len() != 0 {
		t.Fatalf("expected input cleared")
	}
	if len(c.snapshot.Blocks) < 3 {
		t.Fatalf("expected echo and listing blocks, got %d", len(c.snapshot.Blocks))
	}
	c.draw()
	if title := rowText(screen, 0); !strings.Contains(title, c.snapshot.Prompt) {
		t.Fatalf("expected prompt in title bar, got %q", title)
	}
	if bottom := rowText(screen, 23); bottom != c.snapshot.Prompt {
		t.Fatalf("expected empty prompt line, got %q", bottom)
	}
	found := false
	for y := 1; y < 23; y++ {
		if strings.Contains(rowText(screen, y), c.snapshot.Prompt+" ls") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected command echo on screen")
	}
}

func TestTerminalCompletionAndHistory(t *testing.T) {
	c, _ := newTestConsole(t, schema.ViewTerminal, nil)
	typeString(c, "pf -sk")
	c.handleKey(key{code: tcell.KeyTab})
	if c.input.String() != "pf -skills" {
		t.Fatalf("expected completion, got %q", c.input.String())
	}
	c.handleKey(key{code: tcell.KeyEnter})
	c.handleKey(key{code: tcell.KeyUp})
	if c.input.String() != "pf -skills" {
		t.Fatalf("expected history recall, got %q", c.input.String())
	}
	c.handleKey(key{code: tcell.KeyDown})
	if c.input.String() != "" {
		t.Fatalf("expected empty input after forward, got %q", c.input.String())
	}
}

func TestTerminalCtrlKeys(t *testing.T) {
	c, _ := newTestConsole(t, schema.ViewTerminal, nil)
	typeString(c, "ls")
	c.handleKey(key{code: tcell.KeyEnter})
	c.handleKey(key{code: tcell.KeyCtrlL})
	if len(c.snapshot.Blocks) != 1 || c.snapshot.Blocks[0].Kind != schema.BlockBanner {
		t.Fatalf("expected banner only after ctrl-l, got %+v", c.snapshot.Blocks)
	}
	typeString(c, "abc")
	c.handleKey(key{code: tcell.KeyCtrlC})
	if c.input.Len() != 0 {
		t.Fatalf("expected ctrl-c to clear input")
	}
	if !c.handleKey(key{code: tcell.KeyCtrlD}) {
		t.Fatalf("expected ctrl-d on empty input to quit")
	}
}

func TestLoadingIgnoresKeys(t *testing.T) {
	release := make(chan struct{})
	sleep := func(ctx context.Context, _ time.Duration) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c, screen := newTestConsole(t, schema.ViewSelector, sleep)
	c.handleKey(key{code: tcell.KeyEnter})
	if !c.snapshot.Loading {
		t.Fatalf("expected loading after selecting a view")
	}
	if c.handleKey(key{code: tcell.KeyRune, r: 'q'}) {
		t.Fatalf("expected q ignored while loading")
	}
	c.draw()
	if bottom := rowText(screen, 23); !strings.HasPrefix(bottom, "[") || !strings.Contains(bottom, "%") {
		t.Fatalf("expected loader bar, got %q", bottom)
	}
	close(release)
	waitForView(t, c, schema.ViewTerminal)
}

func TestGUIScrollAndSwitch(t *testing.T) {
	c, screen := newTestConsole(t, schema.ViewGUI, nil)
	c.handleKey(key{code: tcell.KeyPgDn})
	c.draw()
	if c.guiScroll == 0 {
		t.Fatalf("expected gui to scroll")
	}
	c.handleKey(key{code: tcell.KeyHome})
	c.draw()
	if c.guiScroll != 0 {
		t.Fatalf("expected gui scroll reset")
	}
	if bottom := rowText(screen, 23); bottom != termview.GUIHint {
		t.Fatalf("expected gui hint, got %q", bottom)
	}
	c.handleKey(key{code: tcell.KeyRune, r: 't'})
	waitForView(t, c, schema.ViewTerminal)
}

func TestStylesFallBackToDefaultTheme(t *testing.T) {
	fallback := stylesFor("nope")
	matrix := stylesFor(schema.DefaultTheme)
	if fallback.bar != matrix.bar {
		t.Fatalf("expected unknown theme to use the default palette")
	}
	if fallback.role(termview.Role(99)) != fallback.role(termview.RolePlain) {
		t.Fatalf("expected unknown role to use plain style")
	}
}

func TestFillAdvancesByColumns(t *testing.T) {
	c, screen := newTestConsole(t, schema.ViewTerminal, nil)
	c.fill(5, 6, termview.Line{Text: "漢字abc"}, tcell.StyleDefault)
	want := map[int]rune{0: '漢', 2: '字', 4: 'a', 5: 'b'}
	for x, r := range want {
		if got, _, _, _ := screen.GetContent(x, 5); got != r {
			t.Fatalf("cell %d: expected %q, got %q", x, r, got)
		}
	}
}

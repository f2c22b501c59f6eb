package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/schema"
)

type recordingSink struct {
	mu      sync.Mutex
	outputs []schema.OutputEvent
	clears  []schema.ClearEvent
	inputs  []schema.InputEvent
	views   []schema.ViewEvent
	loaders []schema.LoaderEvent
}

func (s *recordingSink) OnOutput(event schema.OutputEvent) {
	s.mu.Lock()
	s.outputs = append(s.outputs, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnClear(event schema.ClearEvent) {
	s.mu.Lock()
	s.clears = append(s.clears, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnInput(event schema.InputEvent) {
	s.mu.Lock()
	s.inputs = append(s.inputs, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnView(event schema.ViewEvent) {
	s.mu.Lock()
	s.views = append(s.views, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnLoader(event schema.LoaderEvent) {
	s.mu.Lock()
	s.loaders = append(s.loaders, event)
	s.mu.Unlock()
}

func (s *recordingSink) viewEvents() []schema.ViewEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.ViewEvent(nil), s.views...)
}

type recorderFunc func(ctx context.Context, record schema.CommandRecord) error

func (f recorderFunc) RecordCommand(ctx context.Context, record schema.CommandRecord) error {
	return f(ctx, record)
}

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestService(t *testing.T, sink EventSink, recorder CommandRecorder) Service {
	t.Helper()
	svc, err := NewService(schema.ServiceConfig{InitialView: schema.ViewTerminal}, ServiceDeps{
		EventSink: sink,
		Recorder:  recorder,
		Sleep:     instantSleep,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func openTestSession(t *testing.T, svc Service, id schema.SessionID) schema.SessionSnapshot {
	t.Helper()
	resp, err := svc.OpenSession(context.Background(), schema.OpenSessionRequest{
		SessionID: id,
		Transport: schema.TransportHTTP,
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return resp.Session
}

func waitForView(t *testing.T, svc Service, id schema.SessionID, view schema.ViewMode) schema.SessionSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := svc.GetSnapshot(context.Background(), schema.GetSnapshotRequest{SessionID: id})
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if !resp.Session.Loading && resp.Session.View == view {
			return resp.Session
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for view %s", view)
	return schema.SessionSnapshot{}
}

func waitForViewEvent(t *testing.T, sink *recordingSink, view schema.ViewMode) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		views := sink.viewEvents()
		if n := len(views); n > 0 && views[n-1].View == view && !views[n-1].Loading {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s view event", view)
}

func TestOpenSessionReusesExisting(t *testing.T) {
	svc := newTestService(t, nil, nil)
	first, err := svc.OpenSession(context.Background(), schema.OpenSessionRequest{SessionID: "visitor-1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !first.Created || first.Session.Prompt != "b1swa@portfolio:~$" || len(first.Session.Blocks) != 1 {
		t.Fatalf("unexpected first session %+v", first)
	}
	if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor-1", Line: "ls"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	second, err := svc.OpenSession(context.Background(), schema.OpenSessionRequest{SessionID: "visitor-1"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.Created || len(second.Session.History) != 1 {
		t.Fatalf("expected existing session, got %+v", second)
	}
}

func TestOpenSessionGeneratesID(t *testing.T) {
	svc := newTestService(t, nil, nil)
	snap := openTestSession(t, svc, "")
	if err := schema.ValidateSessionID(snap.SessionID); err != nil {
		t.Fatalf("expected generated id to validate, got %q", snap.SessionID)
	}
	if !strings.HasPrefix(string(snap.SessionID), "http-") {
		t.Fatalf("expected transport tag on generated id, got %q", snap.SessionID)
	}
	if other := openTestSession(t, svc, ""); other.SessionID == snap.SessionID {
		t.Fatalf("expected distinct generated ids")
	}
	if snap.Variant != schema.DefaultVariant {
		t.Fatalf("expected default variant, got %q", snap.Variant)
	}
}

func TestOpenSessionRejectsBadInput(t *testing.T) {
	svc := newTestService(t, nil, nil)
	if _, err := svc.OpenSession(context.Background(), schema.OpenSessionRequest{SessionID: "Bad ID"}); !errors.Is(err, schema.ErrInvalidSession) {
		t.Fatalf("expected invalid session, got %v", err)
	}
	if _, err := svc.OpenSession(context.Background(), schema.OpenSessionRequest{SessionID: "ok", Variant: "nope"}); !errors.Is(err, schema.ErrUnknownVariant) {
		t.Fatalf("expected unknown variant, got %v", err)
	}
}

func TestExecuteEmitsEventsAndRecords(t *testing.T) {
	sink := &recordingSink{}
	var records []schema.CommandRecord
	recorder := recorderFunc(func(_ context.Context, record schema.CommandRecord) error {
		records = append(records, record)
		return nil
	})
	svc := newTestService(t, sink, recorder)
	openTestSession(t, svc, "visitor")

	resp, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "pf -help"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.Outcome != schema.OutcomeMatched || len(resp.Blocks) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "  "}); err != nil {
		t.Fatalf("execute empty: %v", err)
	}
	if len(sink.outputs) != 1 || len(sink.outputs[0].Blocks) != 2 {
		t.Fatalf("expected one output event, got %+v", sink.outputs)
	}
	if len(sink.inputs) != 2 {
		t.Fatalf("expected input reset events, got %d", len(sink.inputs))
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %+v", records)
	}
	if records[0].Command != "pf -help" || records[0].Transport != schema.TransportHTTP || records[0].Outcome != schema.OutcomeMatched {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

func TestExecuteClearEmitsClear(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink, nil)
	openTestSession(t, svc, "visitor")
	if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "ls"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	resp, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "clear"})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !resp.Cleared {
		t.Fatalf("expected cleared response")
	}
	if len(sink.clears) != 1 || len(sink.clears[0].Keep) != 1 || sink.clears[0].Keep[0].Kind != schema.BlockBanner {
		t.Fatalf("unexpected clear events %+v", sink.clears)
	}
}

func TestExecuteRecorderErrorIsLogged(t *testing.T) {
	recorder := recorderFunc(func(context.Context, schema.CommandRecord) error {
		return errors.New("disk full")
	})
	svc := newTestService(t, nil, recorder)
	openTestSession(t, svc, "visitor")
	if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "ls"}); err != nil {
		t.Fatalf("expected recorder failures to stay internal, got %v", err)
	}
}

func TestExecuteUnknownSession(t *testing.T) {
	svc := newTestService(t, nil, nil)
	if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "ghost", Line: "ls"}); !errors.Is(err, schema.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestGUISwitchCompletes(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink, nil)
	openTestSession(t, svc, "visitor")
	resp, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "pf -gui"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.Switching != schema.ViewGUI {
		t.Fatalf("expected switching to gui, got %q", resp.Switching)
	}
	snap := waitForView(t, svc, "visitor", schema.ViewGUI)
	if snap.Blocks[len(snap.Blocks)-1].Text != "[INFO] Switching to GUI mode..." {
		t.Fatalf("expected info block last, got %+v", snap.Blocks)
	}
	waitForViewEvent(t, sink, schema.ViewGUI)
	if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "ls"}); !errors.Is(err, schema.ErrInvalidView) {
		t.Fatalf("expected invalid view outside terminal, got %v", err)
	}
}

func TestLoadingIgnoresExecute(t *testing.T) {
	release := make(chan struct{})
	svc, err := NewService(schema.ServiceConfig{InitialView: schema.ViewTerminal}, ServiceDeps{
		Sleep: func(ctx context.Context, _ time.Duration) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	openTestSession(t, svc, "visitor")
	if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "exit"}); err != nil {
		t.Fatalf("exit: %v", err)
	}
	resp, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: "ls"})
	if err != nil {
		t.Fatalf("execute while loading: %v", err)
	}
	if resp.Outcome != schema.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", resp.Outcome)
	}
	if _, err := svc.WindowControl(context.Background(), schema.WindowControlRequest{SessionID: "visitor", Control: schema.ControlClose}); !errors.Is(err, schema.ErrLoading) {
		t.Fatalf("expected close while loading to fail, got %v", err)
	}
	close(release)
	waitForView(t, svc, "visitor", schema.ViewSelector)
}

func TestSelectViewTransitions(t *testing.T) {
	svc, err := NewService(schema.ServiceConfig{}, ServiceDeps{Sleep: instantSleep})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	snap := openTestSession(t, svc, "visitor")
	if snap.View != schema.ViewSelector {
		t.Fatalf("expected selector start, got %s", snap.View)
	}
	if _, err := svc.SelectView(context.Background(), schema.SelectViewRequest{SessionID: "visitor", View: schema.ViewSelector}); !errors.Is(err, schema.ErrInvalidView) {
		t.Fatalf("expected selector to selector rejected, got %v", err)
	}
	if _, err := svc.SelectView(context.Background(), schema.SelectViewRequest{SessionID: "visitor", View: schema.ViewGUI}); err != nil {
		t.Fatalf("select gui: %v", err)
	}
	waitForView(t, svc, "visitor", schema.ViewGUI)
	if _, err := svc.SelectView(context.Background(), schema.SelectViewRequest{SessionID: "visitor", View: schema.ViewTerminal}); err != nil {
		t.Fatalf("select terminal: %v", err)
	}
	waitForView(t, svc, "visitor", schema.ViewTerminal)
	if _, err := svc.SelectView(context.Background(), schema.SelectViewRequest{SessionID: "visitor", View: schema.ViewGUI}); !errors.Is(err, schema.ErrInvalidView) {
		t.Fatalf("expected terminal to leave only by command, got %v", err)
	}
}

func TestWindowControls(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink, nil)
	openTestSession(t, svc, "visitor")
	resp, err := svc.WindowControl(context.Background(), schema.WindowControlRequest{SessionID: "visitor", Control: schema.ControlMaximize})
	if err != nil {
		t.Fatalf("maximize: %v", err)
	}
	if !resp.Maximized || resp.Block == nil || resp.Block.Text != "[INFO] Terminal maximized." {
		t.Fatalf("unexpected maximize response %+v", resp)
	}
	resp, err = svc.WindowControl(context.Background(), schema.WindowControlRequest{SessionID: "visitor", Control: schema.ControlMinimize})
	if err != nil {
		t.Fatalf("minimize: %v", err)
	}
	if resp.Block == nil || resp.Block.Kind != schema.BlockInfo {
		t.Fatalf("unexpected minimize response %+v", resp)
	}
	if _, err := svc.WindowControl(context.Background(), schema.WindowControlRequest{SessionID: "visitor", Control: "shrink"}); !errors.Is(err, schema.ErrInvalidControl) {
		t.Fatalf("expected invalid control, got %v", err)
	}
	resp, err = svc.WindowControl(context.Background(), schema.WindowControlRequest{SessionID: "visitor", Control: schema.ControlClose})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !resp.Loading || resp.Block != nil {
		t.Fatalf("unexpected close response %+v", resp)
	}
	waitForView(t, svc, "visitor", schema.ViewSelector)
}

func TestCompleteAndHistory(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink, nil)
	openTestSession(t, svc, "visitor")
	resp, err := svc.Complete(context.Background(), schema.CompleteRequest{SessionID: "visitor", Input: "pf -a"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Input != "pf -about" || resp.Block != nil {
		t.Fatalf("unexpected completion %+v", resp)
	}
	resp, err = svc.Complete(context.Background(), schema.CompleteRequest{SessionID: "visitor", Input: "portfolio -"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(resp.Matches) != 6 || resp.Block == nil {
		t.Fatalf("expected listing of 6 matches, got %+v", resp)
	}
	for _, line := range []string{"ls", "pf -about"} {
		if _, err := svc.Execute(context.Background(), schema.ExecuteRequest{SessionID: "visitor", Line: line}); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	nav, err := svc.NavigateHistory(context.Background(), schema.NavigateHistoryRequest{SessionID: "visitor", Direction: schema.HistoryBack})
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if nav.Input != "pf -about" || nav.Cursor != 1 {
		t.Fatalf("unexpected navigation %+v", nav)
	}
	if _, err := svc.NavigateHistory(context.Background(), schema.NavigateHistoryRequest{SessionID: "visitor", Direction: 3}); !errors.Is(err, schema.ErrInvalidRequest) {
		t.Fatalf("expected invalid direction, got %v", err)
	}
	if _, err := svc.SetInput(context.Background(), schema.SetInputRequest{SessionID: "visitor", Input: "pf -sk"}); err != nil {
		t.Fatalf("set input: %v", err)
	}
	snap, err := svc.GetSnapshot(context.Background(), schema.GetSnapshotRequest{SessionID: "visitor", Limit: 2})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Session.Input != "pf -sk" || len(snap.Session.Blocks) != 2 || snap.Session.Blocks[0].Kind != schema.BlockBanner {
		t.Fatalf("unexpected snapshot %+v", snap.Session)
	}
}

func TestVariantProfile(t *testing.T) {
	svc, err := NewService(schema.ServiceConfig{
		Variants: map[schema.VariantName]schema.Variant{
			"recruiter": {EmailJS: &schema.EmailJS{PublicKey: "pk-recruiter"}},
		},
	}, ServiceDeps{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	profile, err := svc.Profile("recruiter")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.EmailJS.PublicKey != "pk-recruiter" {
		t.Fatalf("expected variant email key, got %q", profile.EmailJS.PublicKey)
	}
	base, err := svc.Profile("")
	if err != nil {
		t.Fatalf("default profile: %v", err)
	}
	if base.EmailJS.PublicKey == "pk-recruiter" {
		t.Fatalf("expected default profile untouched")
	}
	if _, err := svc.Profile("missing"); !errors.Is(err, schema.ErrUnknownVariant) {
		t.Fatalf("expected unknown variant, got %v", err)
	}
}

func TestVariantNamesAreCaseInsensitive(t *testing.T) {
	svc, err := NewService(schema.ServiceConfig{
		InitialView: schema.ViewTerminal,
		Variants: map[schema.VariantName]schema.Variant{
			"Alt": {EmailJS: &schema.EmailJS{PublicKey: "pk-alt"}},
		},
	}, ServiceDeps{Sleep: instantSleep})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for _, name := range []schema.VariantName{"Alt", "alt", " ALT "} {
		profile, err := svc.Profile(name)
		if err != nil {
			t.Fatalf("profile %q: %v", name, err)
		}
		if profile.EmailJS.PublicKey != "pk-alt" {
			t.Fatalf("profile %q: expected variant email key, got %q", name, profile.EmailJS.PublicKey)
		}
	}
	resp, err := svc.OpenSession(context.Background(), schema.OpenSessionRequest{
		SessionID: "visitor",
		Variant:   "Alt",
		Transport: schema.TransportSSH,
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if resp.Session.Variant != "alt" {
		t.Fatalf("expected normalized variant on the session, got %q", resp.Session.Variant)
	}
}

func TestCloseAndReap(t *testing.T) {
	svc := newTestService(t, nil, nil)
	openTestSession(t, svc, "one")
	openTestSession(t, svc, "two")
	if _, err := svc.CloseSession(context.Background(), schema.CloseSessionRequest{SessionID: "one"}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.CloseSession(context.Background(), schema.CloseSessionRequest{SessionID: "one"}); !errors.Is(err, schema.ErrSessionNotFound) {
		t.Fatalf("expected second close to fail, got %v", err)
	}

	prev := nowFunc
	defer func() { nowFunc = prev }()
	nowFunc = func() time.Time { return prev().Add(3 * time.Hour) }
	if reaped := svc.ReapIdle(context.Background(), 0); reaped != 1 {
		t.Fatalf("expected one reaped session, got %d", reaped)
	}
	if _, err := svc.GetSnapshot(context.Background(), schema.GetSnapshotRequest{SessionID: "two"}); !errors.Is(err, schema.ErrSessionNotFound) {
		t.Fatalf("expected reaped session gone, got %v", err)
	}
}

func TestExecuteAuditLog(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := pslog.NewWithOptions(lockedWriter{mu: &mu, buf: &buf}, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		VerboseFields: true,
		MinLevel:      pslog.DebugLevel,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	svc, err := NewService(schema.ServiceConfig{InitialView: schema.ViewTerminal}, ServiceDeps{Logger: logger, Sleep: instantSleep})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.OpenSession(ctx, schema.OpenSessionRequest{SessionID: "audited"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Execute(ctx, schema.ExecuteRequest{SessionID: "audited", Line: "whoami"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		entry := map[string]any{}
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry["command"] == "whoami" && entry["outcome"] == string(schema.OutcomeNotFound) && entry["session"] == "audited" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected audit entry, got %s", buf.String())
	}
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

package termfolio

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"testing"
	"time"

	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/httpapi"
	"pkt.systems/termfolio/internal/stats"
	"pkt.systems/termfolio/schema"
)

type recordingSink struct {
	outputs int
	clears  int
	inputs  int
	views   int
	loaders int
}

func (r *recordingSink) OnOutput(schema.OutputEvent) { r.outputs++ }
func (r *recordingSink) OnClear(schema.ClearEvent)   { r.clears++ }
func (r *recordingSink) OnInput(schema.InputEvent)   { r.inputs++ }
func (r *recordingSink) OnView(schema.ViewEvent)     { r.views++ }
func (r *recordingSink) OnLoader(schema.LoaderEvent) { r.loaders++ }

func TestEventFanoutForwardsToAllSinks(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	fanout := eventFanout{sinks: []core.EventSink{a, nil, b}}
	fanout.OnOutput(schema.OutputEvent{})
	fanout.OnClear(schema.ClearEvent{})
	fanout.OnInput(schema.InputEvent{})
	fanout.OnView(schema.ViewEvent{})
	fanout.OnLoader(schema.LoaderEvent{})
	for _, sink := range []*recordingSink{a, b} {
		if sink.outputs != 1 || sink.clears != 1 || sink.inputs != 1 || sink.views != 1 || sink.loaders != 1 {
			t.Fatalf("unexpected sink counts: %+v", sink)
		}
	}
}

func TestNewRequiresAService(t *testing.T) {
	if _, err := New(ServerConfig{}, ServerDeps{}); err == nil {
		t.Fatalf("expected error without enabled services")
	}
}

func TestServerStopCancelsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &compositeServer{
		ctx:     ctx,
		cancel:  cancel,
		started: true,
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("expected server context to be canceled")
	}
}

func TestServerServesHTTPAndRecordsCommands(t *testing.T) {
	store, err := stats.Open(context.Background(), stats.Options{Path: ":memory:", Salt: "pepper"})
	if err != nil {
		t.Fatalf("open stats: %v", err)
	}
	defer store.Close()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv, err := New(ServerConfig{
		Service: schema.ServiceConfig{InitialView: schema.ViewTerminal},
		HTTP:    httpConfigForTest(),
	}, ServerDeps{Stats: store, HTTPListener: listener}, WithHTTP())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop(context.Background())

	base := "http://" + listener.Addr().String()
	client := newCookieClient(t)
	waitForHealthz(t, client, base)

	post(t, client, base+"/api/session", `{}`)
	post(t, client, base+"/api/execute", `{"line":"pf -about"}`)

	top, err := store.TopCommands(context.Background(), 5)
	if err != nil {
		t.Fatalf("top commands: %v", err)
	}
	if len(top) != 1 || top[0].Command != "pf -about" {
		t.Fatalf("expected recorded command, got %+v", top)
	}
	summary, err := store.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Commands != 1 || summary.Sessions != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func httpConfigForTest() httpapi.Config {
	return httpapi.Config{SessionCookie: "termfolio_test", RecordVisits: true}
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func post(t *testing.T, client *http.Client, url, body string) {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("post %s: status %d %s", url, resp.StatusCode, data)
	}
}

func waitForHealthz(t *testing.T, client *http.Client, base string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(base + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("http server did not become ready")
}

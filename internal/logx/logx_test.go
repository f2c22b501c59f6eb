package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/schema"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithSessionAddsField(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	log := WithVariant(WithSession(ctx, "abc123"), "default")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["session"] != "abc123" {
		t.Fatalf("expected session field, got %+v", entry)
	}
	if entry["variant"] != "default" {
		t.Fatalf("expected variant field, got %+v", entry)
	}
}

func TestWithSessionSkipsDuplicate(t *testing.T) {
	capture := &logCapture{}
	logger := newCaptureLogger(capture).With("session", "abc123")
	ctx := ContextWithSessionLogger(context.Background(), logger, "abc123")
	WithSession(ctx, "abc123").Info("hello")

	line := bytes.TrimSpace(capture.buf.Bytes())
	if bytes.Count(line, []byte(`"session"`)) != 1 {
		t.Fatalf("expected a single session field, got %s", line)
	}
}

func TestCopyContextFields(t *testing.T) {
	src := ContextWithTransport(ContextWithSession(context.Background(), "abc123"), schema.TransportSSH)
	dst := CopyContextFields(context.Background(), src)
	if got, _ := dst.Value(sessionKey).(schema.SessionID); got != "abc123" {
		t.Fatalf("expected session copied, got %q", got)
	}
	if got, _ := dst.Value(transportKey).(schema.Transport); got != schema.TransportSSH {
		t.Fatalf("expected transport copied, got %q", got)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}

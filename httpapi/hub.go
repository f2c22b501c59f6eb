package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/termfolio/internal/logx"
	"pkt.systems/termfolio/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64                  `json:"seq"`
	Type      string                  `json:"type"`
	Blocks    []schema.Block          `json:"blocks,omitempty"`
	Input     *string                 `json:"input,omitempty"`
	Cursor    int                     `json:"cursor,omitempty"`
	View      schema.ViewMode         `json:"view,omitempty"`
	Loading   bool                    `json:"loading,omitempty"`
	Maximized bool                    `json:"maximized,omitempty"`
	Percent   int                     `json:"percent,omitempty"`
	Active    bool                    `json:"active,omitempty"`
	Snapshot  *schema.SessionSnapshot `json:"snapshot,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// Hub keeps a bounded event history per session and broadcasts to SSE streams.
type Hub struct {
	mu          sync.Mutex
	sessions    map[schema.SessionID]*sessionHub
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		sessions:    make(map[schema.SessionID]*sessionHub),
		historySize: historySize,
	}
}

// OnOutput implements core.EventSink.
func (h *Hub) OnOutput(event schema.OutputEvent) {
	logx.WithSession(context.Background(), event.SessionID).Trace("hub output event", "blocks", len(event.Blocks))
	h.publish(event.SessionID, StreamEvent{Type: "output", Blocks: event.Blocks, Timestamp: time.Now()})
}

// OnClear implements core.EventSink.
func (h *Hub) OnClear(event schema.ClearEvent) {
	logx.WithSession(context.Background(), event.SessionID).Trace("hub clear event")
	h.publish(event.SessionID, StreamEvent{Type: "clear", Blocks: event.Keep, Timestamp: time.Now()})
}

// OnInput implements core.EventSink.
func (h *Hub) OnInput(event schema.InputEvent) {
	input := event.Input
	h.publish(event.SessionID, StreamEvent{Type: "input", Input: &input, Cursor: event.Cursor, Timestamp: time.Now()})
}

// OnView implements core.EventSink.
func (h *Hub) OnView(event schema.ViewEvent) {
	logx.WithSession(context.Background(), event.SessionID).Trace("hub view event", "view", string(event.View), "loading", event.Loading)
	h.publish(event.SessionID, StreamEvent{
		Type:      "view",
		View:      event.View,
		Loading:   event.Loading,
		Maximized: event.Maximized,
		Timestamp: time.Now(),
	})
}

// OnLoader implements core.EventSink.
func (h *Hub) OnLoader(event schema.LoaderEvent) {
	h.publish(event.SessionID, StreamEvent{Type: "loader", Percent: event.Percent, Active: event.Active, Timestamp: time.Now()})
}

// Subscribe registers a subscriber for a session.
func (h *Hub) Subscribe(sessionID schema.SessionID) (<-chan StreamEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.getOrCreateLocked(sessionID)
	ch := make(chan StreamEvent, 256)
	sh.subs[ch] = struct{}{}
	log := logx.WithSession(context.Background(), sessionID)
	log.Debug("hub subscribe", "subs", len(sh.subs), "history", len(sh.history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(sh.subs, ch)
			close(ch)
			remaining := len(sh.subs)
			h.mu.Unlock()
			log.Debug("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(sessionID schema.SessionID, after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	sh := h.sessions[sessionID]
	if sh == nil {
		return nil
	}
	events := make([]StreamEvent, 0, len(sh.history))
	for _, event := range sh.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	logx.WithSession(context.Background(), sessionID).Debug("hub replay", "after", after, "count", len(events))
	return events
}

// Drop forgets a session's history. Open streams keep their channel.
func (h *Hub) Drop(sessionID schema.SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sh := h.sessions[sessionID]; sh != nil && len(sh.subs) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Prune drops sessions without subscribers whose last event is older than maxAge.
func (h *Hub) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for id, sh := range h.sessions {
		if len(sh.subs) == 0 && sh.lastEvent.Before(cutoff) {
			delete(h.sessions, id)
			removed++
		}
	}
	return removed
}

func (h *Hub) publish(sessionID schema.SessionID, event StreamEvent) {
	h.mu.Lock()
	sh := h.getOrCreateLocked(sessionID)
	sh.seq++
	event.Seq = sh.seq
	sh.lastEvent = event.Timestamp
	sh.history = append(sh.history, event)
	if len(sh.history) > h.historySize {
		sh.history = sh.history[len(sh.history)-h.historySize:]
	}
	dropped := 0
	for sub := range sh.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		logx.WithSession(context.Background(), sessionID).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}

func (h *Hub) getOrCreateLocked(sessionID schema.SessionID) *sessionHub {
	sh := h.sessions[sessionID]
	if sh == nil {
		sh = &sessionHub{
			subs:      make(map[chan StreamEvent]struct{}),
			lastEvent: time.Now(),
		}
		h.sessions[sessionID] = sh
	}
	return sh
}

type sessionHub struct {
	seq       uint64
	history   []StreamEvent
	subs      map[chan StreamEvent]struct{}
	lastEvent time.Time
}

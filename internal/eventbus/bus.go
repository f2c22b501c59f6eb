package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventOutput carries blocks appended to a session.
	EventOutput EventType = "output"
	// EventClear reports a cleared output log.
	EventClear EventType = "clear"
	// EventInput carries input line updates.
	EventInput EventType = "input"
	// EventView carries view and loading changes.
	EventView EventType = "view"
	// EventLoader carries loader progress.
	EventLoader EventType = "loader"
)

// Event represents a UI-facing event emitted by the core service.
type Event struct {
	Type   EventType
	Output schema.OutputEvent
	Clear  schema.ClearEvent
	Input  schema.InputEvent
	View   schema.ViewEvent
	Loader schema.LoaderEvent
}

// SessionID returns the session the event belongs to.
func (e Event) SessionID() schema.SessionID {
	switch e.Type {
	case EventOutput:
		return e.Output.SessionID
	case EventClear:
		return e.Clear.SessionID
	case EventInput:
		return e.Input.SessionID
	case EventView:
		return e.View.SessionID
	case EventLoader:
		return e.Loader.SessionID
	default:
		return ""
	}
}

// Bus fans out events to per-session subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SessionID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SessionID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the session and returns a channel + cancel.
func (b *Bus) Subscribe(sessionID schema.SessionID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	if sessionSubs == nil {
		sessionSubs = make(map[chan Event]struct{})
		b.subs[sessionID] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	b.log.With("session", string(sessionID)).Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[sessionID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, sessionID)
				}
			}
			b.mu.Unlock()
			close(ch)
			b.log.With("session", string(sessionID)).Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers returns the number of subscribers of a session.
func (b *Bus) Subscribers(sessionID schema.SessionID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// OnOutput publishes an output event.
func (b *Bus) OnOutput(event schema.OutputEvent) {
	b.publish(Event{Type: EventOutput, Output: event})
}

// OnClear publishes a clear event.
func (b *Bus) OnClear(event schema.ClearEvent) {
	b.publish(Event{Type: EventClear, Clear: event})
}

// OnInput publishes an input event.
func (b *Bus) OnInput(event schema.InputEvent) {
	b.publish(Event{Type: EventInput, Input: event})
}

// OnView publishes a view event.
func (b *Bus) OnView(event schema.ViewEvent) {
	b.publish(Event{Type: EventView, View: event})
}

// OnLoader publishes a loader event.
func (b *Bus) OnLoader(event schema.LoaderEvent) {
	b.publish(Event{Type: EventLoader, Loader: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	sessionID := event.SessionID()
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	subs := make([]chan Event, 0, len(sessionSubs))
	for sub := range sessionSubs {
		subs = append(subs, sub)
	}
	// Sends happen under the lock so cancel cannot close a channel mid-send.
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("session", string(sessionID)).Warn("eventbus dropped", "count", dropped, "type", string(event.Type))
	}
}

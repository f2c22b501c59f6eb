package termfolio

import (
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/schema"
)

// eventFanout forwards service events to the SSE hub and the SSH event bus.
type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) each(fn func(core.EventSink)) {
	for _, sink := range f.sinks {
		if sink != nil {
			fn(sink)
		}
	}
}

func (f eventFanout) OnOutput(event schema.OutputEvent) {
	f.each(func(s core.EventSink) { s.OnOutput(event) })
}

func (f eventFanout) OnClear(event schema.ClearEvent) {
	f.each(func(s core.EventSink) { s.OnClear(event) })
}

func (f eventFanout) OnInput(event schema.InputEvent) {
	f.each(func(s core.EventSink) { s.OnInput(event) })
}

func (f eventFanout) OnView(event schema.ViewEvent) {
	f.each(func(s core.EventSink) { s.OnView(event) })
}

func (f eventFanout) OnLoader(event schema.LoaderEvent) {
	f.each(func(s core.EventSink) { s.OnLoader(event) })
}

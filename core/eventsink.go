package core

import (
	"context"

	"pkt.systems/termfolio/schema"
)

// EventSink receives session events from the core service.
type EventSink interface {
	OnOutput(event schema.OutputEvent)
	OnClear(event schema.ClearEvent)
	OnInput(event schema.InputEvent)
	OnView(event schema.ViewEvent)
	OnLoader(event schema.LoaderEvent)
}

// CommandRecorder receives one record per executed command.
type CommandRecorder interface {
	RecordCommand(ctx context.Context, record schema.CommandRecord) error
}

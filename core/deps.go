package core

import "pkt.systems/pslog"

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	EventSink EventSink
	Recorder  CommandRecorder
	// Sleep replaces the loader's timer wait, mostly for tests.
	Sleep  SleepFunc
	Logger pslog.Logger
}

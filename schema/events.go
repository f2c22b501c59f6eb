package schema

// OutputEvent carries blocks appended to a session's output log.
type OutputEvent struct {
	SessionID SessionID `json:"session_id"`
	Blocks    []Block   `json:"blocks"`
}

// ClearEvent reports that the output log was cleared down to its banner.
type ClearEvent struct {
	SessionID SessionID `json:"session_id"`
	Keep      []Block   `json:"keep"`
}

// InputEvent reports a change of the current input line made by the session
// (history recall, completion, reset after execute).
type InputEvent struct {
	SessionID SessionID `json:"session_id"`
	Input     string    `json:"input"`
	Cursor    int       `json:"cursor"`
}

// ViewEvent reports a change of the visible view or of the loading state.
type ViewEvent struct {
	SessionID SessionID `json:"session_id"`
	View      ViewMode  `json:"view"`
	Loading   bool      `json:"loading"`
	Maximized bool      `json:"maximized"`
}

// LoaderEvent reports progress of the loader overlay.
type LoaderEvent struct {
	SessionID SessionID `json:"session_id"`
	Percent   int       `json:"percent"`
	Active    bool      `json:"active"`
}

package schema

// SessionSnapshot is the full visible state of a session.
type SessionSnapshot struct {
	SessionID     SessionID   `json:"session_id"`
	Variant       VariantName `json:"variant"`
	Prompt        string      `json:"prompt"`
	Blocks        []Block     `json:"blocks"`
	Input         string      `json:"input"`
	History       []string    `json:"history"`
	Cursor        int         `json:"cursor"`
	View          ViewMode    `json:"view"`
	Loading       bool        `json:"loading"`
	LoaderPercent int         `json:"loader_percent"`
	Maximized     bool        `json:"maximized"`
}

// OpenSessionRequest creates a session, or returns the existing one when the id is known.
type OpenSessionRequest struct {
	SessionID SessionID
	Variant   VariantName
	Transport Transport
	View      ViewMode
}

// OpenSessionResponse returns the opened session.
type OpenSessionResponse struct {
	Session SessionSnapshot
	Created bool
}

// CloseSessionRequest drops a session.
type CloseSessionRequest struct {
	SessionID SessionID
}

// CloseSessionResponse acknowledges a closed session.
type CloseSessionResponse struct{}

// ExecuteRequest submits one input line to the interpreter.
type ExecuteRequest struct {
	SessionID SessionID
	Line      string
}

// ExecuteResponse returns the blocks the line produced.
type ExecuteResponse struct {
	Outcome CommandOutcome
	Blocks  []Block
	Cleared bool
	// Switching is set when the command started an asynchronous view switch.
	Switching ViewMode
	Input     string
	Cursor    int
}

// CompleteRequest autocompletes the given input.
type CompleteRequest struct {
	SessionID SessionID
	Input     string
}

// CompleteResponse returns the completed input and the candidate list.
type CompleteResponse struct {
	Input   string
	Matches []string
	Block   *Block
}

// HistoryDirection moves the history cursor.
type HistoryDirection int

const (
	// HistoryBack moves toward older entries.
	HistoryBack HistoryDirection = -1
	// HistoryForward moves toward newer entries and the empty input.
	HistoryForward HistoryDirection = 1
)

// NavigateHistoryRequest moves the history cursor one step.
type NavigateHistoryRequest struct {
	SessionID SessionID
	Direction HistoryDirection
}

// NavigateHistoryResponse returns the recalled input.
type NavigateHistoryResponse struct {
	Input  string
	Cursor int
}

// SetInputRequest replaces the current input line.
type SetInputRequest struct {
	SessionID SessionID
	Input     string
}

// SetInputResponse acknowledges an input update.
type SetInputResponse struct{}

// GetSnapshotRequest fetches a session snapshot.
type GetSnapshotRequest struct {
	SessionID SessionID
	// Limit caps the number of most recent blocks returned; the banner is always included.
	Limit int
}

// GetSnapshotResponse returns a session snapshot.
type GetSnapshotResponse struct {
	Session SessionSnapshot
}

// SelectViewRequest asks for a view change from the selector or the GUI.
type SelectViewRequest struct {
	SessionID SessionID
	View      ViewMode
}

// SelectViewResponse acknowledges a started view switch.
type SelectViewResponse struct {
	View    ViewMode
	Loading bool
}

// WindowControlRequest presses a terminal window button.
type WindowControlRequest struct {
	SessionID SessionID
	Control   WindowControl
}

// WindowControlResponse returns the block the control appended, if any.
type WindowControlResponse struct {
	Block     *Block
	Maximized bool
	Loading   bool
}

// CommandRecord describes one executed command for statistics.
type CommandRecord struct {
	SessionID SessionID
	Variant   VariantName
	Transport Transport
	Command   string
	Outcome   CommandOutcome
}

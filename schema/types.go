package schema

import "strings"

// SessionID identifies a visitor's interpreter session.
type SessionID string

// VariantName identifies a page variant of the profile.
type VariantName string

// ThemeName identifies a UI theme.
type ThemeName string

// ViewMode is the top-level view shown to a visitor.
type ViewMode string

const (
	// ViewSelector is the mode selection screen.
	ViewSelector ViewMode = "selector"
	// ViewTerminal is the terminal emulation.
	ViewTerminal ViewMode = "terminal"
	// ViewGUI is the conventional graphical page.
	ViewGUI ViewMode = "gui"
)

// ParseViewMode returns the view mode for a user supplied name.
func ParseViewMode(value string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(value))) {
	case ViewSelector:
		return ViewSelector, nil
	case ViewTerminal:
		return ViewTerminal, nil
	case ViewGUI:
		return ViewGUI, nil
	default:
		return "", ErrInvalidView
	}
}

// BlockKind classifies an output block.
type BlockKind string

const (
	// BlockBanner is the first block of a session; clear never removes it.
	BlockBanner BlockKind = "banner"
	// BlockOutput is regular command output.
	BlockOutput BlockKind = "output"
	// BlockCommand echoes the prompt and the submitted command.
	BlockCommand BlockKind = "command"
	// BlockError holds the not found and permission denied messages.
	BlockError BlockKind = "error"
	// BlockInfo holds [INFO] lines.
	BlockInfo BlockKind = "info"
)

// Block is one rendered entry of the output log.
type Block struct {
	ID       int64     `json:"id"`
	Kind     BlockKind `json:"kind"`
	Text     string    `json:"text"`
	ASCIIArt bool      `json:"ascii_art,omitempty"`
}

// IsASCIIArt reports whether text should be rendered in the ascii-art style.
func IsASCIIArt(text string) bool {
	return strings.Contains(text, "██") || strings.Contains(text, "➤")
}

// WindowControl is one of the terminal window buttons.
type WindowControl string

const (
	// ControlMinimize is the minimize button.
	ControlMinimize WindowControl = "minimize"
	// ControlMaximize is the maximize button.
	ControlMaximize WindowControl = "maximize"
	// ControlClose is the close button.
	ControlClose WindowControl = "close"
)

// ParseWindowControl returns the control for a user supplied name.
func ParseWindowControl(value string) (WindowControl, error) {
	switch WindowControl(strings.ToLower(strings.TrimSpace(value))) {
	case ControlMinimize:
		return ControlMinimize, nil
	case ControlMaximize:
		return ControlMaximize, nil
	case ControlClose:
		return ControlClose, nil
	default:
		return "", ErrInvalidControl
	}
}

// Transport names the surface a session is served through.
type Transport string

const (
	// TransportSSH is an interactive SSH session.
	TransportSSH Transport = "ssh"
	// TransportHTTP is the web page.
	TransportHTTP Transport = "http"
	// TransportLocal is the local console.
	TransportLocal Transport = "local"
)

// CommandOutcome classifies how the interpreter handled a submitted line.
type CommandOutcome string

const (
	// OutcomeMatched means the line matched the command table.
	OutcomeMatched CommandOutcome = "matched"
	// OutcomeDenied means the line was a cd invocation.
	OutcomeDenied CommandOutcome = "denied"
	// OutcomeNotFound means the line matched nothing.
	OutcomeNotFound CommandOutcome = "not_found"
	// OutcomeEmpty means the line was blank.
	OutcomeEmpty CommandOutcome = "empty"
	// OutcomeIgnored means the line arrived while a view switch was loading.
	OutcomeIgnored CommandOutcome = "ignored"
)

// ValidateSessionID ensures a session id matches [a-z0-9_-] and is not empty.
func ValidateSessionID(id SessionID) error {
	raw := string(id)
	if raw == "" || len(raw) > 64 {
		return ErrInvalidSession
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '_' || r == '-' {
			continue
		}
		return ErrInvalidSession
	}
	return nil
}

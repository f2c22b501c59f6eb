package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidSession indicates an invalid session identifier.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionNotFound indicates the session does not exist or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidView indicates an unknown view mode or a view change that is not allowed.
	ErrInvalidView = errors.New("invalid view")
	// ErrInvalidControl indicates an unknown window control.
	ErrInvalidControl = errors.New("invalid window control")
	// ErrUnknownVariant indicates the requested page variant is not configured.
	ErrUnknownVariant = errors.New("unknown variant")
	// ErrLoading indicates a view switch is in progress.
	ErrLoading = errors.New("view switch in progress")
)

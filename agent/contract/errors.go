package contract

import "errors"

var (
	ErrGraph            = errors.New("task graph is invalid")
	ErrValidation       = errors.New("validation failed")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrArgumentMismatch = errors.New("argument lengths do not match")
	ErrStoreUnavailable = errors.New("memory store unavailable")
	ErrSessionState     = errors.New("operation not allowed in session state")
)

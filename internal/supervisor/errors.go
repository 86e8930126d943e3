package supervisor

import "errors"

// Typed failures surfaced to the presentation layer. Every rejected
// operation names the precondition that failed; callers match with
// errors.Is and render their own text.
var (
	ErrEulaNotAccepted = errors.New("eula not accepted")
	ErrAlreadyRunning  = errors.New("server is already running")
	ErrPortConflict    = errors.New("port already in use")
	ErrStopTimedOut    = errors.New("server did not stop within the wait bound")
	ErrKillAuthFailed  = errors.New("admin credential rejected")
	ErrNotRunning      = errors.New("server is not running")
)

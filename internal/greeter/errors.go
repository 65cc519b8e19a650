package greeter

import "errors"

var (
	ErrUnknownUser    = errors.New("unknown user")
	ErrUnknownSession = errors.New("unknown session")
	ErrNoUserSelected = errors.New("no user selected")
	ErrNoSession      = errors.New("no session available")
	ErrSessionStart   = errors.New("failed to start session")
	ErrLoopStopped    = errors.New("event loop stopped")
)

// ErrSessionStarting rejects UI intents while the daemon is starting the
// session.
var ErrSessionStarting = errors.New("session is starting")

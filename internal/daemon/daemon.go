// Package daemon defines the greeter's view of the login-manager daemon:
// the calls the greeter issues and the callbacks the daemon answers with.
//
// Calls are fire-and-forget. A returned error only reports that the request
// could not be sent; the outcome always arrives later through a Listener
// method, never from inside the call that caused it.
package daemon

import "errors"

var (
	ErrNotConnected     = errors.New("not connected to the login-manager daemon")
	ErrNoAuthentication = errors.New("no authentication in progress")
)

// PromptKind is the structured type the daemon attaches to a prompt.
type PromptKind int

const (
	// PromptUnknown means the transport carried no usable type; callers fall
	// back to classifying the prompt text.
	PromptUnknown PromptKind = iota
	// PromptSecret is an echo-off prompt (passwords, one-time codes).
	PromptSecret
	// PromptQuestion is an echo-on prompt (usernames, questions).
	PromptQuestion
)

func (k PromptKind) String() string {
	switch k {
	case PromptSecret:
		return "secret"
	case PromptQuestion:
		return "question"
	default:
		return "unknown"
	}
}

type MessageKind int

const (
	MessageInfo MessageKind = iota
	MessageError
)

func (k MessageKind) String() string {
	if k == MessageError {
		return "error"
	}
	return "info"
}

// Client is the greeter-to-daemon half of the protocol.
type Client interface {
	// Authenticate starts authentication for username. The daemon answers
	// with prompts, messages and finally AuthenticationComplete.
	Authenticate(username string) error
	// Respond answers the outstanding prompt.
	Respond(text string) error
	// CancelAuthentication aborts the current authentication. The cancelled
	// attempt produces no further callbacks.
	CancelAuthentication() error
	// IsAuthenticated reports the outcome of the last completed attempt.
	IsAuthenticated() bool
	// InAuthentication reports whether an attempt is waiting on the daemon.
	InAuthentication() bool
	// StartSession asks the daemon to launch sessionID for the authenticated
	// user. The result arrives through Listener.OnSessionResult.
	StartSession(sessionID string) error
}

// Listener receives daemon callbacks. Implementations are invoked on the
// greeter's event loop, one call at a time.
type Listener interface {
	OnShowPrompt(text string, kind PromptKind)
	OnShowMessage(text string, kind MessageKind)
	OnAuthenticationComplete()
	// OnSessionResult reports the daemon's answer to StartSession; nil
	// means the session is starting and the greeter is about to be stopped.
	OnSessionResult(err error)
}

// Poster runs fn on the goroutine that owns the Listener and reports false
// once that goroutine has stopped. Clients hand every decoded daemon event
// to it, so staleness checks and Listener calls happen in the same step.
type Poster func(fn func()) bool

// ErrSessionFailed is passed to OnSessionResult when the daemon refuses
// to start a session.
var ErrSessionFailed = errors.New("daemon failed to start session")

// Package greeter is the authentication and session-selection core.
//
// A Controller owns at most one authentication attempt. UI intents
// (SelectUser, SubmitLogin, Cancel) and daemon callbacks (OnShowPrompt,
// OnShowMessage, OnAuthenticationComplete, OnSessionResult) are all run
// on one Loop, so Controller methods never race each other and hold no
// locks. Starting a new attempt always cancels the previous one first.
//
// There is no timeout on an attempt: it stays InProgress until the daemon
// completes it or the user starts another one.
package greeter

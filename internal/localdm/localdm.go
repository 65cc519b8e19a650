// Package localdm is the daemon behind --test: it authenticates against the
// local account database and pretends to start sessions, so the greeter can
// run on a developer's desktop without LightDM.
package localdm

import (
	"fmt"

	"github.com/hnrobert/lumgreet/internal/auth"
	"github.com/hnrobert/lumgreet/internal/daemon"
	"github.com/hnrobert/lumgreet/internal/logger"
)

const PasswordPrompt = "Password:"

// Checker is the credential backend.
type Checker interface {
	PasswordRequired(username string) (bool, error)
	VerifyPassword(username, password string) error
}

type hostChecker struct{}

func (hostChecker) PasswordRequired(u string) (bool, error) { return auth.PasswordRequired(u) }
func (hostChecker) VerifyPassword(u, p string) error        { return auth.VerifyPassword(u, p) }

// HostChecker checks against the host shadow file, falling back to su.
func HostChecker() Checker { return hostChecker{} }

// Daemon answers every request from a goroutine and posts the result back,
// so callbacks never run inside the call that caused them.
type Daemon struct {
	checker  Checker
	post     daemon.Poster
	listener daemon.Listener

	// Touched only on the poster's goroutine.
	seq           int
	user          string
	inAuth        bool
	prompting     bool
	authenticated bool
}

var _ daemon.Client = (*Daemon)(nil)

func New(checker Checker, post daemon.Poster) *Daemon {
	return &Daemon{checker: checker, post: post}
}

func (d *Daemon) Listen(l daemon.Listener) { d.listener = l }

func (d *Daemon) Authenticate(username string) error {
	d.seq++
	d.user = username
	d.inAuth = true
	d.prompting = false
	d.authenticated = false

	seq := d.seq
	go func() {
		required, err := d.checker.PasswordRequired(username)
		d.deliver(seq, func() {
			switch {
			case err != nil:
				d.finish(err)
			case !required:
				d.finish(nil)
			default:
				d.prompting = true
				d.listener.OnShowPrompt(PasswordPrompt, daemon.PromptSecret)
			}
		})
	}()
	return nil
}

func (d *Daemon) Respond(text string) error {
	if !d.inAuth || !d.prompting {
		return daemon.ErrNoAuthentication
	}
	d.prompting = false

	seq, user := d.seq, d.user
	go func() {
		err := d.checker.VerifyPassword(user, text)
		d.deliver(seq, func() { d.finish(err) })
	}()
	return nil
}

func (d *Daemon) CancelAuthentication() error {
	d.seq++
	d.inAuth = false
	d.prompting = false
	return nil
}

func (d *Daemon) IsAuthenticated() bool { return d.authenticated }

func (d *Daemon) InAuthentication() bool { return d.inAuth }

// StartSession only logs; nothing is launched.
func (d *Daemon) StartSession(sessionID string) error {
	var err error
	if !d.authenticated {
		err = fmt.Errorf("%w: %s is not authenticated", daemon.ErrSessionFailed, d.user)
	} else {
		logger.Info("test mode: would start session %q for %s", sessionID, d.user)
	}
	go d.post(func() { d.listener.OnSessionResult(err) })
	return nil
}

// deliver runs fn on the poster's goroutine unless the attempt it belongs
// to has since been cancelled or replaced.
func (d *Daemon) deliver(seq int, fn func()) {
	d.post(func() {
		if seq != d.seq || !d.inAuth {
			logger.Debug("test daemon: dropping result of stale attempt %d", seq)
			return
		}
		fn()
	})
}

func (d *Daemon) finish(err error) {
	if err != nil {
		logger.Info("test daemon: %s failed: %v", d.user, err)
		d.listener.OnShowMessage(auth.HumanAuthError(err), daemon.MessageError)
	}
	d.inAuth = false
	d.authenticated = err == nil
	d.listener.OnAuthenticationComplete()
}

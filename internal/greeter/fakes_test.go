package greeter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hnrobert/lumgreet/internal/catalog"
	"github.com/hnrobert/lumgreet/internal/i18n"
	"github.com/hnrobert/lumgreet/internal/prefs"
)

type fakeDaemon struct {
	calls         []string
	authenticated bool
	inAuth        bool

	authErr    error
	respondErr error
	startErr   error
}

func (d *fakeDaemon) Authenticate(username string) error {
	d.calls = append(d.calls, "authenticate:"+username)
	if d.authErr != nil {
		return d.authErr
	}
	d.inAuth = true
	d.authenticated = false
	return nil
}

func (d *fakeDaemon) Respond(text string) error {
	d.calls = append(d.calls, "respond:"+text)
	return d.respondErr
}

func (d *fakeDaemon) CancelAuthentication() error {
	d.calls = append(d.calls, "cancel")
	d.inAuth = false
	return nil
}

func (d *fakeDaemon) IsAuthenticated() bool { return d.authenticated }

func (d *fakeDaemon) InAuthentication() bool { return d.inAuth }

func (d *fakeDaemon) StartSession(sessionID string) error {
	d.calls = append(d.calls, "start:"+sessionID)
	return d.startErr
}

// complete models the daemon ending the current attempt.
func (d *fakeDaemon) complete(ok bool) {
	d.inAuth = false
	d.authenticated = ok
}

func (d *fakeDaemon) count(prefix string) int {
	n := 0
	for _, c := range d.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeView struct {
	passwordVisible bool
	password        string
	message         string
	user            string
	session         string
	clears          int
}

func (v *fakeView) ShowPassword(visible bool) { v.passwordVisible = visible }
func (v *fakeView) ClearPassword()            { v.password = ""; v.clears++ }
func (v *fakeView) Password() string          { return v.password }
func (v *fakeView) ShowMessage(text string)   { v.message = text }
func (v *fakeView) SelectUser(username string) {
	v.user = username
}
func (v *fakeView) SelectSession(id string) { v.session = id }

type fakePrefs struct {
	saved []prefs.Preference
	err   error
}

func (p *fakePrefs) Save(pref prefs.Preference) error {
	p.saved = append(p.saved, pref)
	return p.err
}

func (p *fakePrefs) last() string {
	if len(p.saved) == 0 {
		return ""
	}
	return p.saved[len(p.saved)-1].LastUsername
}

type fixture struct {
	daemon  *fakeDaemon
	view    *fakeView
	prefs   *fakePrefs
	ctrl    *Controller
	started int
}

func newFixture(users []catalog.User, sessions []catalog.Session) *fixture {
	f := &fixture{daemon: &fakeDaemon{}, view: &fakeView{}, prefs: &fakePrefs{}}
	f.ctrl = NewController(Options{
		Daemon:           f.daemon,
		View:             f.view,
		Prefs:            f.prefs,
		Launcher:         NewLauncher(f.daemon, f.prefs, "sway"),
		Users:            users,
		Sessions:         sessions,
		Vocabulary:       i18n.Load("", ""),
		OnSessionStarted: func() { f.started++ },
	})
	return f
}

func defaultFixture() *fixture {
	return newFixture(
		[]catalog.User{
			{Name: "alice", PreferredSession: "plasma"},
			{Name: "bob"},
			{Name: "carol", PreferredSession: "gone"},
		},
		[]catalog.Session{
			{ID: "sway", Label: "Sway"},
			{ID: "plasma", Label: "Plasma"},
		},
	)
}

var errBroken = errors.New("broken pipe")

func callsString(calls []string) string { return fmt.Sprint(calls) }

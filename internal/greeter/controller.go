package greeter

import (
	"fmt"

	"github.com/hnrobert/lumgreet/internal/catalog"
	"github.com/hnrobert/lumgreet/internal/daemon"
	"github.com/hnrobert/lumgreet/internal/i18n"
	"github.com/hnrobert/lumgreet/internal/logger"
	"github.com/hnrobert/lumgreet/internal/prefs"
)

type Options struct {
	Daemon   daemon.Client
	View     View
	Prefs    PreferenceSaver
	Launcher *Launcher

	Users      []catalog.User
	Sessions   []catalog.Session
	Preference prefs.Preference
	Vocabulary i18n.Vocabulary

	// OnSessionStarted runs once the daemon confirms the session launch.
	OnSessionStarted func()
}

// Controller is the authentication state machine. All methods must be
// called from the event loop.
type Controller struct {
	daemon    daemon.Client
	view      View
	prefs     PreferenceSaver
	launcher  *Launcher
	voc       i18n.Vocabulary
	users     []catalog.User
	sessions  []catalog.Session
	onStarted func()

	attempt  Attempt
	session  string
	pref     prefs.Preference
	message  string
	launched bool
	// starting is set from a sent StartSession until the daemon answers.
	starting bool
}

var _ daemon.Listener = (*Controller)(nil)

func NewController(opts Options) *Controller {
	voc := opts.Vocabulary
	if voc == nil {
		voc = i18n.Load("", "")
	}
	return &Controller{
		daemon:    opts.Daemon,
		view:      opts.View,
		prefs:     opts.Prefs,
		launcher:  opts.Launcher,
		voc:       voc,
		users:     opts.Users,
		sessions:  opts.Sessions,
		onStarted: opts.OnSessionStarted,
		pref:      opts.Preference,
	}
}

// Start shows the optional welcome text and selects the initial user: the
// remembered one if it is still in the catalog, else the first user.
func (c *Controller) Start(welcome string) {
	if len(c.sessions) > 0 {
		c.session = c.sessions[0].ID
		c.view.SelectSession(c.session)
	}
	if welcome != "" {
		c.setMessage(welcome)
	}
	name := c.InitialUser()
	if name == "" {
		logger.Warn("no users to select")
		return
	}
	if err := c.SelectUser(name); err != nil {
		logger.Error("selecting initial user %s: %v", name, err)
	}
}

// InitialUser is the user the greeter preselects on startup.
func (c *Controller) InitialUser() string {
	if _, ok := c.lookupUser(c.pref.LastUsername); ok {
		return c.pref.LastUsername
	}
	if len(c.users) > 0 {
		return c.users[0].Name
	}
	return ""
}

// SelectUser cancels any attempt in flight and starts a new, not
// user-initiated attempt for username.
func (c *Controller) SelectUser(username string) error {
	if c.starting {
		return ErrSessionStarting
	}
	u, ok := c.lookupUser(username)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUser, username)
	}
	c.cancelInFlight()

	c.attempt = Attempt{Username: username, Status: StatusInProgress}
	c.launched = false
	if err := c.daemon.Authenticate(username); err != nil {
		c.authError(err)
	}

	c.view.SelectUser(username)
	c.autoSelectSession(u)
	c.view.ShowPassword(true)
	c.view.ClearPassword()

	c.pref.LastUsername = username
	if c.prefs != nil {
		if err := c.prefs.Save(c.pref); err != nil {
			logger.Warn("saving last user: %v", err)
		}
	}
	return nil
}

// SelectSession records the session the user picked in the session list.
func (c *Controller) SelectSession(id string) error {
	if c.starting {
		return ErrSessionStarting
	}
	if !c.hasSession(id) {
		return fmt.Errorf("%w: %q", ErrUnknownSession, id)
	}
	c.session = id
	c.view.SelectSession(id)
	return nil
}

// SubmitLogin is the login button / password-field activate action.
func (c *Controller) SubmitLogin() error {
	if c.attempt.Username == "" {
		return ErrNoUserSelected
	}
	if c.starting {
		return ErrSessionStarting
	}
	c.attempt.UserInitiated = true

	if c.attempt.Status == StatusAuthenticated {
		// The account needed no password and the daemon already said so.
		c.launch()
		return nil
	}

	// Restart so the daemon issues a fresh prompt that we now answer.
	c.cancelInFlight()
	c.attempt.Status = StatusInProgress
	c.launched = false
	if err := c.daemon.Authenticate(c.attempt.Username); err != nil {
		c.authError(err)
	}
	return nil
}

// Cancel aborts an in-progress attempt. It is a no-op otherwise.
func (c *Controller) Cancel() {
	if c.attempt.Status != StatusInProgress {
		return
	}
	if err := c.daemon.CancelAuthentication(); err != nil {
		logger.Warn("cancel authentication: %v", err)
	}
	c.attempt.Status = StatusIdle
	c.attempt.UserInitiated = false
}

func (c *Controller) OnShowPrompt(text string, kind daemon.PromptKind) {
	logger.Debug("prompt (%s) for %s: %q", kind, c.attempt.Username, text)
	if c.attempt.Status != StatusInProgress {
		logger.Warn("ignoring prompt %q: no authentication in progress", text)
		return
	}
	if c.attempt.UserInitiated {
		if err := c.daemon.Respond(c.view.Password()); err != nil {
			c.authError(err)
			return
		}
		c.view.ClearPassword()
	}
	if !IsPasswordPrompt(text, kind, c.voc.Get(i18n.KeyPassword)) {
		logger.Info("daemon requested prompt: %s", text)
		c.setMessage(text)
	}
}

func (c *Controller) OnShowMessage(text string, kind daemon.MessageKind) {
	if kind == daemon.MessageError {
		logger.Warn("message from daemon: %s", text)
	} else {
		logger.Info("message from daemon: %s", text)
	}
	c.setMessage(text)
}

func (c *Controller) OnAuthenticationComplete() {
	if c.attempt.Status != StatusInProgress {
		logger.Warn("authentication complete with no attempt in progress (status %s)", c.attempt.Status)
		c.resetIdle(c.voc.Get(i18n.KeyAuthError))
		return
	}
	authenticated := c.daemon.IsAuthenticated()

	if !c.attempt.UserInitiated {
		// Completed before anyone pressed login: the account has no password.
		c.view.ShowPassword(false)
		if authenticated {
			c.attempt.Status = StatusAuthenticated
			c.launched = false
		} else {
			c.attempt.Status = StatusIdle
		}
		logger.Info("%s completed authentication without a prompt (authenticated=%t)", c.attempt.Username, authenticated)
		return
	}

	if authenticated {
		logger.Info("%s authenticated", c.attempt.Username)
		c.attempt.Status = StatusAuthenticated
		c.launched = false
		c.launch()
		return
	}

	logger.Info("login failed for %s", c.attempt.Username)
	c.attempt.Status = StatusFailed
	c.setMessage(c.voc.Get(i18n.KeyLoginFailed))
	c.view.ShowPassword(true)
}

func (c *Controller) OnSessionResult(err error) {
	if !c.starting {
		logger.Warn("session result without a start request: %v", err)
		return
	}
	c.starting = false
	if err != nil {
		logger.Error("session %s failed to start: %v", c.session, err)
		c.sessionFailed()
		return
	}
	logger.Info("session %s started for %s", c.session, c.attempt.Username)
	if c.onStarted != nil {
		c.onStarted()
	}
}

// Snapshot returns the state the UI renders.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{Attempt: c.attempt, Session: c.session, Message: c.message}
}

func (c *Controller) Users() []catalog.User { return c.users }

func (c *Controller) Sessions() []catalog.Session { return c.sessions }

// launch issues at most one StartSession per Authenticated transition.
func (c *Controller) launch() {
	if c.launched {
		logger.Warn("session start already requested for %s", c.attempt.Username)
		return
	}
	c.launched = true
	if err := c.launcher.Start(c.session, c.pref); err != nil {
		logger.Error("%v", err)
		c.sessionFailed()
		return
	}
	c.starting = true
}

func (c *Controller) sessionFailed() {
	c.starting = false
	c.resetIdle(c.voc.Get(i18n.KeySessionFailed))
}

// authError handles a daemon request that could not even be sent.
func (c *Controller) authError(err error) {
	logger.Error("authentication request for %s: %v", c.attempt.Username, err)
	c.resetIdle(c.voc.Get(i18n.KeyAuthError))
}

func (c *Controller) resetIdle(message string) {
	c.attempt.Status = StatusIdle
	c.attempt.UserInitiated = false
	c.setMessage(message)
}

func (c *Controller) cancelInFlight() {
	if c.attempt.Status != StatusInProgress && !c.daemon.InAuthentication() {
		return
	}
	if err := c.daemon.CancelAuthentication(); err != nil {
		logger.Warn("cancel authentication: %v", err)
	}
}

func (c *Controller) autoSelectSession(u catalog.User) {
	id := ""
	switch {
	case u.PreferredSession != "" && c.hasSession(u.PreferredSession):
		id = u.PreferredSession
	case len(c.sessions) > 0:
		id = c.sessions[0].ID
	}
	c.session = id
	c.view.SelectSession(id)
}

func (c *Controller) setMessage(text string) {
	c.message = text
	c.view.ShowMessage(text)
}

func (c *Controller) lookupUser(name string) (catalog.User, bool) {
	if name == "" {
		return catalog.User{}, false
	}
	for _, u := range c.users {
		if u.Name == name {
			return u, true
		}
	}
	return catalog.User{}, false
}

func (c *Controller) hasSession(id string) bool {
	for _, s := range c.sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}

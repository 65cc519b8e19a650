package greeter

import (
	"fmt"

	"github.com/hnrobert/lumgreet/internal/daemon"
	"github.com/hnrobert/lumgreet/internal/logger"
	"github.com/hnrobert/lumgreet/internal/prefs"
)

// PreferenceSaver persists the greeter preference.
type PreferenceSaver interface {
	Save(p prefs.Preference) error
}

// Launcher asks the daemon to start the chosen session.
type Launcher struct {
	daemon         daemon.Client
	prefs          PreferenceSaver
	defaultSession string
}

func NewLauncher(d daemon.Client, p PreferenceSaver, defaultSession string) *Launcher {
	return &Launcher{daemon: d, prefs: p, defaultSession: defaultSession}
}

// Start requests sessionID, or the default session when sessionID is empty.
// The preference is saved first: LightDM stops the greeter once the session
// is up. A nil error only means the request was sent; the daemon's verdict
// arrives as OnSessionResult.
func (l *Launcher) Start(sessionID string, pref prefs.Preference) error {
	if sessionID == "" {
		sessionID = l.defaultSession
	}
	if sessionID == "" {
		return ErrNoSession
	}
	if l.prefs != nil {
		if err := l.prefs.Save(pref); err != nil {
			logger.Warn("saving preferences before session start: %v", err)
		}
	}
	logger.Info("starting session %s for %s", sessionID, pref.LastUsername)
	if err := l.daemon.StartSession(sessionID); err != nil {
		return fmt.Errorf("%w %s: %v", ErrSessionStart, sessionID, err)
	}
	return nil
}

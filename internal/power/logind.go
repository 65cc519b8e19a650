package power

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	logindDest    = "org.freedesktop.login1"
	logindPath    = dbus.ObjectPath("/org/freedesktop/login1")
	logindManager = "org.freedesktop.login1.Manager"
)

// Logind is the systemd-logind backend.
type Logind struct {
	conn *dbus.Conn
}

func NewLogind(conn *dbus.Conn) *Logind {
	return &Logind{conn: conn}
}

func logindMethod(a Action) (string, error) {
	switch a {
	case ActionSuspend:
		return "Suspend", nil
	case ActionRestart:
		return "Reboot", nil
	case ActionShutdown:
		return "PowerOff", nil
	}
	return "", fmt.Errorf("unknown power action %q", a)
}

// Can treats "challenge" as allowed: polkit may still let the greeter user
// through once asked.
func (l *Logind) Can(a Action) (bool, error) {
	m, err := logindMethod(a)
	if err != nil {
		return false, err
	}
	var answer string
	if err := l.conn.Object(logindDest, logindPath).Call(logindManager+".Can"+m, 0).Store(&answer); err != nil {
		return false, fmt.Errorf("Can%s: %w", m, err)
	}
	return answerAllowed(answer), nil
}

func (l *Logind) Do(a Action) error {
	m, err := logindMethod(a)
	if err != nil {
		return err
	}
	call := l.conn.Object(logindDest, logindPath).Call(logindManager+"."+m, 0, false)
	if call.Err != nil {
		return fmt.Errorf("%s: %w", m, call.Err)
	}
	return nil
}

func answerAllowed(s string) bool {
	return s == "yes" || s == "challenge"
}

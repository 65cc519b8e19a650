package catalog

import (
	"fmt"
	"path/filepath"

	"github.com/godbus/dbus/v5"

	"github.com/hnrobert/lumgreet/internal/hostfs"
	"github.com/hnrobert/lumgreet/internal/logger"
)

// SessionHinter looks up the session an account used last. An empty result
// means no hint.
type SessionHinter interface {
	PreferredSession(u User) string
}

// Hinters asks each hinter in turn and returns the first non-empty answer.
type Hinters []SessionHinter

func (hs Hinters) PreferredSession(u User) string {
	for _, h := range hs {
		if h == nil {
			continue
		}
		if s := h.PreferredSession(u); s != "" {
			return s
		}
	}
	return ""
}

// DmrcHinter reads [Desktop] Session= from ~/.dmrc.
type DmrcHinter struct{}

func (DmrcHinter) PreferredSession(u User) string {
	if u.Home == "" {
		return ""
	}
	p, err := hostfs.Abs(filepath.Join(u.Home, hostfs.DmrcName))
	if err != nil {
		return ""
	}
	b, err := hostfs.ReadFileOptional(p)
	if err != nil {
		logger.Debug("reading %s: %v", p, err)
		return ""
	}
	return parseDmrcSession(b)
}

const (
	accountsDest  = "org.freedesktop.Accounts"
	accountsPath  = dbus.ObjectPath("/org/freedesktop/Accounts")
	accountsIface = "org.freedesktop.Accounts"
	userIface     = "org.freedesktop.Accounts.User"
)

// AccountsServiceHinter asks AccountsService for the XSession property.
type AccountsServiceHinter struct {
	conn *dbus.Conn
}

func NewAccountsServiceHinter(conn *dbus.Conn) *AccountsServiceHinter {
	return &AccountsServiceHinter{conn: conn}
}

func (h *AccountsServiceHinter) PreferredSession(u User) string {
	s, err := h.lookup(u.Name)
	if err != nil {
		logger.Debug("accountsservice session for %s: %v", u.Name, err)
		return ""
	}
	return s
}

func (h *AccountsServiceHinter) lookup(name string) (string, error) {
	var path dbus.ObjectPath
	err := h.conn.Object(accountsDest, accountsPath).
		Call(accountsIface+".FindUserByName", 0, name).Store(&path)
	if err != nil {
		return "", fmt.Errorf("find user %s: %w", name, err)
	}
	v, err := h.conn.Object(accountsDest, path).GetProperty(userIface + ".XSession")
	if err != nil {
		return "", fmt.Errorf("read XSession: %w", err)
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("XSession has type %s", v.Signature())
	}
	return s, nil
}

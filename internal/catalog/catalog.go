package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hnrobert/lumgreet/internal/accounts"
	"github.com/hnrobert/lumgreet/internal/config"
	"github.com/hnrobert/lumgreet/internal/hostfs"
	"github.com/hnrobert/lumgreet/internal/logger"
)

const (
	SessionTypeWayland = "wayland"
	SessionTypeX       = "x"
)

type Options struct {
	MinimumUID   int
	MaximumUID   int
	HiddenUsers  []string
	HiddenShells []string
	// SessionDirs are absolute host paths, searched in order.
	SessionDirs []string
	// Hinter supplies each user's preferred session. Nil means none.
	Hinter SessionHinter
}

func OptionsFromConfig(cfg config.Config, hinter SessionHinter) Options {
	return Options{
		MinimumUID:   cfg.Users.MinimumUID,
		MaximumUID:   cfg.Users.MaximumUID,
		HiddenUsers:  cfg.Users.HiddenUsers,
		HiddenShells: cfg.Users.HiddenShells,
		SessionDirs:  cfg.Sessions.Dirs,
		Hinter:       hinter,
	}
}

// Catalog lists the users and sessions offered on the login screen. It is
// queried once at startup.
type Catalog struct {
	opts Options
}

func New(opts Options) *Catalog {
	return &Catalog{opts: opts}
}

// ListUsers returns the selectable accounts in passwd order.
func (c *Catalog) ListUsers() ([]User, error) {
	p, err := hostfs.Path(hostfs.EtcPasswdRel)
	if err != nil {
		return nil, err
	}
	pf, err := accounts.LoadPasswd(p)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0)
	for _, e := range pf.List() {
		if !c.visible(e) {
			continue
		}
		u := User{Name: e.Name, RealName: e.RealName(), Home: e.Home}
		if c.opts.Hinter != nil {
			u.PreferredSession = c.opts.Hinter.PreferredSession(u)
		}
		users = append(users, u)
	}
	return users, nil
}

func (c *Catalog) visible(e accounts.PasswdEntry) bool {
	if e.UID < c.opts.MinimumUID || (c.opts.MaximumUID > 0 && e.UID > c.opts.MaximumUID) {
		return false
	}
	for _, h := range c.opts.HiddenUsers {
		if e.Name == h {
			return false
		}
	}
	for _, sh := range c.opts.HiddenShells {
		if e.Shell == sh {
			return false
		}
	}
	return true
}

// ListSessions returns installed sessions. Within a directory sessions are
// sorted by id; the first directory to define an id wins.
func (c *Catalog) ListSessions() ([]Session, error) {
	seen := map[string]bool{}
	sessions := make([]Session, 0)
	for _, dir := range c.opts.SessionDirs {
		found, err := readSessionDir(dir)
		if err != nil {
			return nil, err
		}
		for _, s := range found {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func readSessionDir(dir string) ([]Session, error) {
	p, err := hostfs.Abs(dir)
	if err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	typ := SessionTypeX
	if strings.Contains(filepath.Base(dir), "wayland") {
		typ = SessionTypeWayland
	}

	out := make([]Session, 0, len(ents))
	for _, ent := range ents {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".desktop") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(p, name))
		if err != nil {
			logger.Warn("skipping session %s: %v", name, err)
			continue
		}
		de := parseDesktopEntry(b)
		if de.Hidden || de.NoDisplay {
			continue
		}
		id := strings.TrimSuffix(name, ".desktop")
		label := de.Name
		if label == "" {
			label = id
		}
		out = append(out, Session{ID: id, Label: label, Type: typ})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

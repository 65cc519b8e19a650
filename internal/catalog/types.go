package catalog

// User is one selectable account. Snapshots are immutable per query.
type User struct {
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
	Home     string `json:"-"`
	// PreferredSession is the session id the account last used, if known.
	PreferredSession string `json:"preferred_session,omitempty"`
}

// DisplayName is the real name when known, else the login name.
func (u User) DisplayName() string {
	if u.RealName != "" {
		return u.RealName
	}
	return u.Name
}

// Session is one installed session type, identified by its .desktop file
// name without the extension.
type Session struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Type is "wayland" or "x" depending on the directory it came from.
	Type string `json:"type,omitempty"`
}

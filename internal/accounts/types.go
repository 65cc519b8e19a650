package accounts

import "strings"

type PasswdEntry struct {
	Name   string
	Passwd string
	UID    int
	GID    int
	Gecos  string
	Home   string
	Shell  string
}

// RealName is the first comma-separated GECOS field.
func (e PasswdEntry) RealName() string {
	name, _, _ := strings.Cut(e.Gecos, ",")
	return strings.TrimSpace(name)
}

type ShadowEntry struct {
	Name       string
	Hash       string
	LastChange string
	Min        string
	Max        string
	Warn       string
	Inactive   string
	Expire     string
	Reserved   string
}

// Locked reports whether the hash field disables password logins.
func (e ShadowEntry) Locked() bool {
	return strings.HasPrefix(e.Hash, "!") || strings.HasPrefix(e.Hash, "*")
}

// Passwordless reports an empty hash: PAM's nullok lets such accounts in
// without a prompt.
func (e ShadowEntry) Passwordless() bool {
	return e.Hash == ""
}

// Package accounts reads the host user database.
//
// Files are resolved through hostfs.Root:
//
//	/etc/passwd  local accounts listed by the greeter
//	/etc/shadow  password hashes, read only by the local test daemon
//
// Parsing is lenient: malformed or comment lines are kept as raw lines and
// never reported as accounts.
package accounts

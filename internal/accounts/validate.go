package accounts

import "regexp"

var usernameRe = regexp.MustCompile(`^[a-z_][a-z0-9_.-]{0,31}\$?$`)

// ValidUsername accepts POSIX-ish login names: lowercase letters, digits,
// underscore, dot and dash, starting with a letter or underscore. A trailing
// '$' is allowed for machine accounts.
func ValidUsername(u string) bool {
	return usernameRe.MatchString(u)
}

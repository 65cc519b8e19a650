package greeter

import (
	"strings"

	"github.com/hnrobert/lumgreet/internal/daemon"
)

// IsPasswordPrompt decides whether a daemon prompt asks for the password
// typed into the password field. Echo-on questions never do. Echo-off and
// untyped prompts are matched on their text: "password" or any of the
// localized words given.
func IsPasswordPrompt(text string, kind daemon.PromptKind, words ...string) bool {
	if kind == daemon.PromptQuestion {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "password") {
		return true
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

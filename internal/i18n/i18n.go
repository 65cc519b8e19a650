// Package i18n loads the greeter vocabulary: a flat key -> phrase map,
// en_US first, then the selected locale merged over it.
package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/hnrobert/lumgreet/internal/logger"
)

const BaseLocale = "en_US"

// Vocabulary keys used by the greeter core and the UI shell.
const (
	KeyPassword      = "password"
	KeySession       = "session"
	KeyUser          = "user"
	KeyLogin         = "login"
	KeySleep         = "sleep"
	KeyReboot        = "reboot"
	KeyPowerOff      = "power-off"
	KeyWelcome       = "welcome"
	KeyLoginFailed   = "login-failed"
	KeySessionFailed = "session-failed"
	KeyAuthError     = "auth-error"
)

type Vocabulary map[string]string

func builtin() Vocabulary {
	return Vocabulary{
		KeyPassword:      "Password",
		KeySession:       "Session",
		KeyUser:          "User",
		KeyLogin:         "Login",
		KeySleep:         "Sleep",
		KeyReboot:        "Reboot",
		KeyPowerOff:      "Power off",
		KeyWelcome:       "Welcome",
		KeyLoginFailed:   "Login failed",
		KeySessionFailed: "Failed to start session",
		KeyAuthError:     "Authentication failed",
	}
}

// Get returns the phrase for key, or the key itself if nothing defines it.
func (v Vocabulary) Get(key string) string {
	if s, ok := v[key]; ok && s != "" {
		return s
	}
	return key
}

// Load builds the vocabulary for locale from dir. Missing files are not an
// error: the built-in English phrases cover every key. Only keys already
// known from en_US are taken from a translation.
func Load(dir, locale string) Vocabulary {
	voc := builtin()
	if dir == "" {
		return voc
	}
	if base, err := readFile(filepath.Join(dir, BaseLocale)); err == nil {
		for k, v := range base {
			voc[k] = v
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("vocabulary %s: %v", BaseLocale, err)
	}

	if locale == "" || locale == BaseLocale {
		return voc
	}
	loc, err := readFile(filepath.Join(dir, locale))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("vocabulary %s: %v", locale, err)
		}
		return voc
	}
	for k := range voc {
		if v, ok := loc[k]; ok {
			voc[k] = v
		}
	}
	return voc
}

func readFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(jsonc.ToJSON(b), &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// DetectLocale picks the override if given, else the usual environment
// variables, with any ".UTF-8"-style suffix and "@modifier" removed.
func DetectLocale(override string) string {
	if override != "" {
		return normalize(override)
	}
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(k); v != "" {
			return normalize(v)
		}
	}
	return BaseLocale
}

func normalize(l string) string {
	l, _, _ = strings.Cut(l, ".")
	l, _, _ = strings.Cut(l, "@")
	if l == "C" || l == "POSIX" || l == "" {
		return BaseLocale
	}
	return l
}

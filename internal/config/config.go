package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hnrobert/lumgreet/internal/hostfs"
)

const (
	defaultSession    = "sway"
	defaultMinimumUID = 1000
	defaultMaximumUID = 60000
	defaultTimeFormat = "15:04"
	defaultDateFormat = "Monday, 02. January"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// DefaultSession is started when the session list is empty or nothing
	// is selected.
	DefaultSession string `yaml:"default_session"`
	LangDir        string `yaml:"lang_dir"`
	// CacheDir holds the preference file. Empty means $HOME/.cache/lumgreet.
	CacheDir string `yaml:"cache_dir"`
	LogDir   string `yaml:"log_dir"`
	// Notice is markdown shown by the UI shell under the login form.
	Notice string `yaml:"notice"`

	Users    UsersConfig    `yaml:"users"`
	Sessions SessionsConfig `yaml:"sessions"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	UI       UIConfig       `yaml:"ui"`
	Clock    ClockConfig    `yaml:"clock"`

	// Appearance is handed to the UI shell untouched (background, icons...).
	Appearance map[string]string `yaml:"appearance"`
}

type UsersConfig struct {
	MinimumUID   int      `yaml:"minimum_uid"`
	MaximumUID   int      `yaml:"maximum_uid"`
	HiddenUsers  []string `yaml:"hidden_users"`
	HiddenShells []string `yaml:"hidden_shells"`
}

type SessionsConfig struct {
	// Dirs are searched in order; the first directory wins on duplicate ids.
	Dirs []string `yaml:"dirs"`
}

type BridgeConfig struct {
	Socket string `yaml:"socket"`
	// TokenTTL limits the UI token's lifetime. Zero, the default, keeps it
	// valid until the greeter exits: nothing renews it.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type UIConfig struct {
	// Command is the UI shell argv. Empty means an externally managed UI.
	Command []string `yaml:"command"`
}

type ClockConfig struct {
	TimeFormat string `yaml:"time_format"`
	DateFormat string `yaml:"date_format"`
}

func DefaultConfig() Config {
	return Config{
		DefaultSession: defaultSession,
		LangDir:        hostfs.DefaultLangDir,
		Users: UsersConfig{
			MinimumUID:   defaultMinimumUID,
			MaximumUID:   defaultMaximumUID,
			HiddenUsers:  []string{"nobody", "nobody4", "noaccess"},
			HiddenShells: []string{"/bin/false", "/usr/sbin/nologin", "/sbin/nologin"},
		},
		Sessions: SessionsConfig{
			Dirs: []string{"/" + hostfs.WaylandSessionsRel, "/" + hostfs.XSessionsRel},
		},
		Bridge: BridgeConfig{
			Socket: hostfs.DefaultSocketPath,
		},
		Clock: ClockConfig{
			TimeFormat: defaultTimeFormat,
			DateFormat: defaultDateFormat,
		},
	}
}

// WithDefaults fills every zero field from DefaultConfig. Explicitly empty
// lists in the file stay empty.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.DefaultSession == "" {
		c.DefaultSession = d.DefaultSession
	}
	if c.LangDir == "" {
		c.LangDir = d.LangDir
	}
	if c.Users.MinimumUID <= 0 {
		c.Users.MinimumUID = d.Users.MinimumUID
	}
	if c.Users.MaximumUID <= 0 {
		c.Users.MaximumUID = d.Users.MaximumUID
	}
	if c.Users.HiddenUsers == nil {
		c.Users.HiddenUsers = d.Users.HiddenUsers
	}
	if c.Users.HiddenShells == nil {
		c.Users.HiddenShells = d.Users.HiddenShells
	}
	if c.Sessions.Dirs == nil {
		c.Sessions.Dirs = d.Sessions.Dirs
	}
	if c.Bridge.Socket == "" {
		c.Bridge.Socket = d.Bridge.Socket
	}
	if c.Clock.TimeFormat == "" {
		c.Clock.TimeFormat = d.Clock.TimeFormat
	}
	if c.Clock.DateFormat == "" {
		c.Clock.DateFormat = d.Clock.DateFormat
	}
	return c
}

func (c Config) Validate() error {
	if c.Users.MaximumUID < c.Users.MinimumUID {
		return fmt.Errorf("%w: users.maximum_uid %d below minimum_uid %d", ErrInvalidConfig, c.Users.MaximumUID, c.Users.MinimumUID)
	}
	if c.Bridge.TokenTTL < 0 {
		return fmt.Errorf("%w: bridge.token_ttl %s is negative", ErrInvalidConfig, c.Bridge.TokenTTL)
	}
	return nil
}

// Load reads the YAML file at path. A missing or empty file yields the
// defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

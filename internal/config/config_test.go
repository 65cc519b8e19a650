package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "sway", cfg.DefaultSession)
	assert.Equal(t, 1000, cfg.Users.MinimumUID)
	assert.Zero(t, cfg.Bridge.TokenTTL, "bridge token must not expire by default")
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumgreet.yaml")
	content := `
default_session: plasma
notice: "**Authorised use only**"
users:
  minimum_uid: 500
  hidden_users: []
sessions:
  dirs: [/opt/sessions]
bridge:
  token_ttl: 30m
ui:
  command: [/usr/bin/lumgreet-gtk, --fullscreen]
appearance:
  background: /usr/share/backgrounds/login.jpg
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "plasma", cfg.DefaultSession)
	assert.Equal(t, "**Authorised use only**", cfg.Notice)
	assert.Equal(t, 500, cfg.Users.MinimumUID)
	assert.Equal(t, 60000, cfg.Users.MaximumUID)
	assert.Empty(t, cfg.Users.HiddenUsers, "explicit empty list must survive defaults")
	assert.NotEmpty(t, cfg.Users.HiddenShells)
	assert.Equal(t, []string{"/opt/sessions"}, cfg.Sessions.Dirs)
	assert.Equal(t, 30*time.Minute, cfg.Bridge.TokenTTL)
	assert.Equal(t, "/run/lumgreet/ui.sock", cfg.Bridge.Socket)
	assert.Equal(t, []string{"/usr/bin/lumgreet-gtk", "--fullscreen"}, cfg.UI.Command)
	assert.Equal(t, "/usr/share/backgrounds/login.jpg", cfg.Appearance["background"])
	assert.Equal(t, "15:04", cfg.Clock.TimeFormat)
}

func TestParseRejectsNegativeTokenTTL(t *testing.T) {
	_, err := Parse([]byte("bridge:\n  token_ttl: -1h\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte("users: [oops"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Parse([]byte("users:\n  minimum_uid: 5000\n  maximum_uid: 100\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

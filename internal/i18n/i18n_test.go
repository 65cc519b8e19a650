package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLang(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadBuiltinWhenDirMissing(t *testing.T) {
	voc := Load(filepath.Join(t.TempDir(), "missing"), "pl_PL")
	assert.Equal(t, "Login failed", voc.Get(KeyLoginFailed))
	assert.Equal(t, "Password", voc.Get(KeyPassword))
}

func TestLoadMergesTranslation(t *testing.T) {
	dir := t.TempDir()
	writeLang(t, dir, "en_US", `{
		// comments are allowed
		"welcome": "Hello there",
		"extra": "only in en_US",
	}`)
	writeLang(t, dir, "pl_PL", `{"password": "Hasło", "unknown-key": "ignored"}`)

	voc := Load(dir, "pl_PL")
	assert.Equal(t, "Hasło", voc.Get(KeyPassword))
	assert.Equal(t, "Hello there", voc.Get(KeyWelcome))
	assert.Equal(t, "only in en_US", voc.Get("extra"))
	_, ok := voc["unknown-key"]
	assert.False(t, ok)
}

func TestLoadIgnoresBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeLang(t, dir, "de_DE", `{not json`)
	voc := Load(dir, "de_DE")
	assert.Equal(t, "Password", voc.Get(KeyPassword))
}

func TestGetFallsBackToKey(t *testing.T) {
	assert.Equal(t, "nope", Vocabulary{}.Get("nope"))
}

func TestDetectLocale(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "de_DE.UTF-8")
	assert.Equal(t, "de_DE", DetectLocale(""))
	assert.Equal(t, "pl_PL", DetectLocale("pl_PL.UTF-8"))
	assert.Equal(t, "sr_RS", DetectLocale("sr_RS@latin"))

	t.Setenv("LANG", "C")
	assert.Equal(t, BaseLocale, DetectLocale(""))
}

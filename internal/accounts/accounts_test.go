package accounts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePasswd = `root:x:0:0:root:/root:/bin/bash
# comment line
nobody:x:65534:65534:nobody:/nonexistent:/usr/sbin/nologin
alice:x:1000:1000:Alice Liddell,,,:/home/alice:/bin/bash
broken line
bob:x:1001:1001::/home/bob:/bin/zsh
`

func TestParsePasswd(t *testing.T) {
	pw, err := ParsePasswd([]byte(samplePasswd))
	require.NoError(t, err)

	list := pw.List()
	require.Len(t, list, 4)
	assert.Equal(t, []string{"root", "nobody", "alice", "bob"}, names(list))

	alice := pw.Find("alice")
	require.NotNil(t, alice)
	assert.Equal(t, 1000, alice.UID)
	assert.Equal(t, "/home/alice", alice.Home)
	assert.Equal(t, "Alice Liddell", alice.RealName())

	assert.Equal(t, "", pw.Find("bob").RealName())
	assert.Nil(t, pw.Find("carol"))
}

func TestParsePasswdBadUID(t *testing.T) {
	_, err := ParsePasswd([]byte("alice:x:abc:1000::/home/alice:/bin/sh\n"))
	assert.Error(t, err)
}

func TestLoadShadow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadow")
	content := "alice:$6$salt$hash:19000:0:99999:7:::\ncarol::19000\nlocked:!:19000\nstar:*:19000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	sh, err := LoadShadow(path)
	require.NoError(t, err)

	alice := sh.Find("alice")
	require.NotNil(t, alice)
	assert.Equal(t, "$6$salt$hash", alice.Hash)
	assert.False(t, alice.Locked())
	assert.False(t, alice.Passwordless())

	carol := sh.Find("carol")
	require.NotNil(t, carol)
	assert.True(t, carol.Passwordless())
	assert.Equal(t, "", carol.Reserved)

	assert.True(t, sh.Find("locked").Locked())
	assert.True(t, sh.Find("star").Locked())
}

func TestValidUsername(t *testing.T) {
	for _, ok := range []string{"alice", "_svc", "bob-2", "first.last", "host$"} {
		assert.True(t, ValidUsername(ok), ok)
	}
	for _, bad := range []string{"", "Alice", "1abc", "a b", "../x"} {
		assert.False(t, ValidUsername(bad), bad)
	}
}

func names(list []PasswdEntry) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Name)
	}
	return out
}

package uishell

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func waitDone(t *testing.T, p *Process) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("ui shell did not exit")
	}
}

func TestStartPassesBridgeEnv(t *testing.T) {
	requireSh(t)
	r := New([]string{"sh", "-c", `echo "$LUMGREET_SOCKET $LUMGREET_TOKEN" >&2; exit 3`})
	p, err := r.Start(context.Background(), "/run/lumgreet/ui.sock", "tok")
	require.NoError(t, err)
	waitDone(t, p)

	err = p.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/run/lumgreet/ui.sock tok")
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
}

func TestCleanExitIsStillAnError(t *testing.T) {
	requireSh(t)
	p, err := New([]string{"sh", "-c", "exit 0"}).Start(context.Background(), "s", "t")
	require.NoError(t, err)
	waitDone(t, p)
	assert.ErrorContains(t, p.Err(), "exited")
}

func TestCancelTerminates(t *testing.T) {
	requireSh(t)
	ctx, cancel := context.WithCancel(context.Background())
	p, err := New([]string{"sh", "-c", "sleep 30"}).Start(ctx, "s", "t")
	require.NoError(t, err)
	assert.Positive(t, p.Pid())
	cancel()
	waitDone(t, p)
}

func TestCancelTerminatesWrapperChildren(t *testing.T) {
	requireSh(t)
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	ctx, cancel := context.WithCancel(context.Background())
	script := `sleep 30 & echo $! > "$0"; wait`
	p, err := New([]string{"sh", "-c", script, pidFile}).Start(ctx, "s", "t")
	require.NoError(t, err)

	var child int
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		child, err = strconv.Atoi(strings.TrimSpace(string(b)))
		return err == nil && child > 0
	}, 5*time.Second, 10*time.Millisecond)

	start := time.Now()
	cancel()
	waitDone(t, p)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Eventually(t, func() bool { return !alive(child) },
		5*time.Second, 20*time.Millisecond, "background child must not outlive the shell")
}

// alive reports whether pid runs; a zombie nobody reaped yet counts as dead.
func alive(pid int) bool {
	if errors.Is(syscall.Kill(pid, 0), syscall.ESRCH) {
		return false
	}
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return true
	}
	// Fields after the parenthesised command: "<state> <ppid> ...".
	rest := string(b)
	if i := strings.LastIndexByte(rest, ')'); i >= 0 {
		rest = strings.TrimSpace(rest[i+1:])
	}
	return !strings.HasPrefix(rest, "Z")
}

func TestNoCommand(t *testing.T) {
	_, err := New(nil).Start(context.Background(), "s", "t")
	assert.ErrorIs(t, err, ErrNoCommand)

	_, err = New([]string{"/nonexistent/ui-shell"}).Start(context.Background(), "s", "t")
	assert.Error(t, err)
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 8}
	_, _ = tb.Write([]byte("0123456789"))
	_, _ = tb.Write([]byte("ab"))
	assert.Equal(t, "456789ab", tb.String())
	assert.Equal(t, "c", lastLine(strings.Join([]string{"a", "b", "c"}, "\n")))
}

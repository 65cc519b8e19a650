package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hnrobert/lumgreet/internal/auth"
	"github.com/hnrobert/lumgreet/internal/catalog"
	"github.com/hnrobert/lumgreet/internal/clock"
	"github.com/hnrobert/lumgreet/internal/config"
	"github.com/hnrobert/lumgreet/internal/daemon"
	"github.com/hnrobert/lumgreet/internal/hostfs"
	"github.com/hnrobert/lumgreet/internal/localdm"
	"github.com/hnrobert/lumgreet/internal/prefs"
	"github.com/hnrobert/lumgreet/internal/server"
)

type fakeChecker struct{ passwords map[string]string }

func (c fakeChecker) PasswordRequired(u string) (bool, error) {
	return c.passwords[u] != "", nil
}

func (c fakeChecker) VerifyPassword(u, p string) error {
	if c.passwords[u] != p {
		return auth.ErrInvalidCredentials
	}
	return nil
}

// closingDaemon drops its connection right after answering StartSession,
// the way LightDM tears the greeter down.
type closingDaemon struct {
	*localdm.Daemon
	post     daemon.Poster
	listener daemon.Listener
	done     chan struct{}
}

func (d *closingDaemon) Listen(l daemon.Listener) {
	d.listener = l
	d.Daemon.Listen(l)
}

func (d *closingDaemon) StartSession(string) error {
	d.post(func() { d.listener.OnSessionResult(nil) })
	close(d.done)
	return nil
}

func (d *closingDaemon) Done() <-chan struct{} { return d.done }
func (d *closingDaemon) Err() error            { return io.EOF }

type fakeCatalog struct {
	users    []catalog.User
	sessions []catalog.Session
}

func (c fakeCatalog) ListUsers() ([]catalog.User, error)       { return c.users, nil }
func (c fakeCatalog) ListSessions() ([]catalog.Session, error) { return c.sessions, nil }

type harness struct {
	cfg    config.Config
	deps   Deps
	client *http.Client
	token  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir, err := os.MkdirTemp("", "lg")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	cfg := config.DefaultConfig()
	cfg.LangDir = filepath.Join(dir, "lang")
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.Bridge.Socket = filepath.Join(dir, "run", "ui.sock")
	cfg.DefaultSession = "sway"

	h := &harness{cfg: cfg}
	h.deps = Deps{
		NewDaemon: func(_ context.Context, post daemon.Poster) (Daemon, error) {
			return localdm.New(fakeChecker{passwords: map[string]string{"alice": "hunter2"}}, post), nil
		},
		Catalog: fakeCatalog{
			users:    []catalog.User{{Name: "alice"}, {Name: "bob"}},
			sessions: []catalog.Session{{ID: "sway", Label: "Sway"}},
		},
		Clock: clock.Fake(time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)),
	}
	h.client = &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", cfg.Bridge.Socket)
			},
		},
	}
	return h
}

func (h *harness) start(t *testing.T, ctx context.Context) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Options{Config: h.cfg, Test: true}, h.deps) }()

	tokenPath := filepath.Join(filepath.Dir(h.cfg.Bridge.Socket), hostfs.BridgeTokenFileName)
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(tokenPath)
		if err != nil || len(b) == 0 {
			return false
		}
		h.token = strings.TrimSpace(string(b))
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return done
}

func (h *harness) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, "http://lumgreet"+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) state(t *testing.T) server.StateResponse {
	t.Helper()
	resp := h.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st server.StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestRunLogsInThroughBridge(t *testing.T) {
	h := newHarness(t)
	done := h.start(t, context.Background())

	require.Eventually(t, func() bool {
		return h.state(t).State.Username == "alice"
	}, 5*time.Second, 20*time.Millisecond)

	st := h.state(t)
	assert.Len(t, st.Info.Users, 2)
	assert.Equal(t, "sway", st.State.Session)

	pw := "hunter2"
	resp := h.do(t, http.MethodPost, "/api/login", map[string]any{"password": pw})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("greeter did not exit after the session started")
	}

	pref, err := prefs.NewStore(prefs.DefaultPath(h.cfg.CacheDir)).Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", pref.LastUsername)

	_, err = os.Stat(h.cfg.Bridge.Socket)
	assert.True(t, errors.Is(err, os.ErrNotExist), "socket should be removed on exit")
}

func TestRunSessionStartBeatsDisconnect(t *testing.T) {
	h := newHarness(t)
	h.deps.NewDaemon = func(_ context.Context, post daemon.Poster) (Daemon, error) {
		inner := localdm.New(fakeChecker{passwords: map[string]string{"alice": "hunter2"}}, post)
		return &closingDaemon{Daemon: inner, post: post, done: make(chan struct{})}, nil
	}
	done := h.start(t, context.Background())

	require.Eventually(t, func() bool {
		return h.state(t).State.Username == "alice"
	}, 5*time.Second, 20*time.Millisecond)

	resp := h.do(t, http.MethodPost, "/api/login", map[string]any{"password": "hunter2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("greeter did not exit after the session started")
	}
}

func TestRunDaemonDisconnectIsFatal(t *testing.T) {
	h := newHarness(t)
	gone := make(chan struct{})
	h.deps.NewDaemon = func(_ context.Context, post daemon.Poster) (Daemon, error) {
		inner := localdm.New(fakeChecker{}, post)
		return &closingDaemon{Daemon: inner, post: post, done: gone}, nil
	}
	done := h.start(t, context.Background())
	close(gone)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDaemonUnavailable)
	case <-time.After(5 * time.Second):
		t.Fatal("greeter did not stop when the daemon went away")
	}
}

func TestRunWrongPasswordStaysUp(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := h.start(t, ctx)

	require.Eventually(t, func() bool {
		return h.state(t).State.Username == "alice"
	}, 5*time.Second, 20*time.Millisecond)

	resp := h.do(t, http.MethodPost, "/api/login", map[string]any{"password": "nope"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		st := h.state(t).State
		return st.Status.String() == "failed" && st.PasswordVisible
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("greeter did not stop on cancel")
	}
}

func TestRunRejectsMissingToken(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := h.start(t, ctx)

	h.token = "garbage"
	resp := h.do(t, http.MethodGet, "/api/state", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	<-done
}

func TestRunNeedsASession(t *testing.T) {
	h := newHarness(t)
	h.cfg.DefaultSession = ""
	h.deps.Catalog = fakeCatalog{users: []catalog.User{{Name: "alice"}}}

	err := Run(context.Background(), Options{Config: h.cfg, Test: true}, h.deps)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRunDaemonUnavailable(t *testing.T) {
	h := newHarness(t)
	h.deps.NewDaemon = func(context.Context, daemon.Poster) (Daemon, error) {
		return nil, errors.New("no fds")
	}

	err := Run(context.Background(), Options{Config: h.cfg, Test: true}, h.deps)
	assert.ErrorIs(t, err, ErrDaemonUnavailable)
}

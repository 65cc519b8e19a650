package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hnrobert/lumgreet/internal/hostfs"
)

const socketMode = 0o660

type Server struct {
	h       http.Handler
	httpSrv *http.Server
}

func New(opts Options) *Server {
	app := newApp(opts)
	h := app.routes()
	return &Server{
		h: h,
		httpSrv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler is exposed for tests.
func (s *Server) Handler() http.Handler { return s.h }

// Listen binds the unix socket at path, replacing a stale socket left by a
// previous run.
func Listen(path string) (net.Listener, error) {
	if err := hostfs.EnsureDir(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	if fi, err := os.Lstat(path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("%s exists and is not a socket", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, socketMode); err != nil {
		_ = ln.Close()
		return nil, err
	}
	return ln, nil
}

// Serve blocks until Shutdown. A clean shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	err := s.httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

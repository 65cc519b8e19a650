// Package uishell starts the process that draws the login screen and talks
// to the greeter through the UI bridge.
package uishell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	EnvSocket = "LUMGREET_SOCKET"
	EnvToken  = "LUMGREET_TOKEN"

	stderrTail = 4 << 10
)

var ErrNoCommand = errors.New("no ui command configured")

type Runner struct {
	Command []string
	// StopTimeout is how long the shell gets after SIGTERM before it is killed.
	StopTimeout time.Duration
}

func New(command []string) *Runner {
	return &Runner{Command: command, StopTimeout: 3 * time.Second}
}

// Process is a running UI shell.
type Process struct {
	name   string
	cmd    *exec.Cmd
	stderr *tailBuffer
	done   chan struct{}
	err    error
}

// Start launches the shell with the bridge socket and token in its
// environment. Cancelling ctx terminates it.
func (r *Runner) Start(ctx context.Context, socket, token string) (*Process, error) {
	if len(r.Command) == 0 {
		return nil, ErrNoCommand
	}
	name := r.Command[0]
	cmd := exec.CommandContext(ctx, name, r.Command[1:]...)
	cmd.Env = append(os.Environ(), EnvSocket+"="+socket, EnvToken+"="+token)
	cmd.Stdout = os.Stderr
	// Own process group, so a wrapper script's children go down with it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM) }
	cmd.WaitDelay = r.StopTimeout

	tail := &tailBuffer{max: stderrTail}
	cmd.Stderr = teeWriter{os.Stderr, tail}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	p := &Process{name: name, cmd: cmd, stderr: tail, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

func (p *Process) wait() {
	defer close(p.done)
	if err := p.cmd.Wait(); err != nil {
		s := strings.TrimSpace(p.stderr.String())
		if s == "" {
			p.err = fmt.Errorf("%s: %w", p.name, err)
		} else {
			p.err = fmt.Errorf("%s: %w: %s", p.name, err, lastLine(s))
		}
		return
	}
	p.err = fmt.Errorf("%s exited", p.name)
}

// Done is closed when the shell exits. Any exit is unexpected while the
// greeter runs, so Err is never nil after Done.
func (p *Process) Done() <-chan struct{} { return p.done }

func (p *Process) Err() error {
	<-p.done
	return p.err
}

func (p *Process) Pid() int { return p.cmd.Process.Pid }

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

type teeWriter struct {
	a, b interface{ Write([]byte) (int, error) }
}

func (t teeWriter) Write(p []byte) (int, error) {
	_, _ = t.a.Write(p)
	return t.b.Write(p)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

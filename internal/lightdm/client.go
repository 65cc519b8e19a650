package lightdm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/hnrobert/lumgreet/internal/daemon"
	"github.com/hnrobert/lumgreet/internal/logger"
)

const (
	EnvToServerFD   = "LIGHTDM_TO_SERVER_FD"
	EnvFromServerFD = "LIGHTDM_FROM_SERVER_FD"

	greeterVersion = "lumgreet"
	apiVersion     = 1
)

var (
	ErrNoDaemon     = errors.New("not started by lightdm: " + EnvToServerFD + "/" + EnvFromServerFD + " unset")
	ErrDisconnected = errors.New("lightdm closed the connection")
)

// Client speaks the LightDM greeter protocol. Calls are made from the
// event loop; the reader goroutine only decodes frames and posts them.
type Client struct {
	r      io.Reader
	w      io.Writer
	closer io.Closer
	post   daemon.Poster

	mu            sync.Mutex
	listener      daemon.Listener
	seq           uint32
	inAuth        bool
	authenticated bool
	prompts       int
	responses     []string
	closed        bool
	err           error

	hints   map[string]string
	version string

	done      chan struct{}
	closeOnce sync.Once
}

var _ daemon.Client = (*Client)(nil)

func New(r io.Reader, w io.Writer, closer io.Closer, post daemon.Poster) *Client {
	return &Client{
		r:      r,
		w:      w,
		closer: closer,
		post:   post,
		hints:  map[string]string{},
		done:   make(chan struct{}),
	}
}

// FromEnv opens the pipes LightDM passes to the greeter process.
func FromEnv(post daemon.Poster) (*Client, error) {
	to, from := os.Getenv(EnvToServerFD), os.Getenv(EnvFromServerFD)
	if to == "" || from == "" {
		return nil, ErrNoDaemon
	}
	toFD, err := strconv.Atoi(to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvToServerFD, err)
	}
	fromFD, err := strconv.Atoi(from)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvFromServerFD, err)
	}
	w := os.NewFile(uintptr(toFD), "lightdm-to-server")
	r := os.NewFile(uintptr(fromFD), "lightdm-from-server")
	if w == nil || r == nil {
		return nil, fmt.Errorf("invalid lightdm descriptors %d/%d", toFD, fromFD)
	}
	return New(r, w, multiCloser{w, r}, post), nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Connect performs the handshake. It must finish before Listen.
func (c *Client) Connect(ctx context.Context) error {
	payload := (&encoder{}).string(greeterVersion).bool(false).int(apiVersion).bytes()
	if err := c.send(msgConnect, payload); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	result := make(chan error, 1)
	go func() {
		f, err := readFrame(c.r)
		if err != nil {
			result <- err
			return
		}
		result <- c.handleConnected(f)
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		logger.Info("connected to lightdm %s", c.version)
		return nil
	case <-ctx.Done():
		_ = c.Close()
		return ctx.Err()
	}
}

func (c *Client) handleConnected(f frame) error {
	d := newDecoder(f.payload)
	hints := map[string]string{}
	var version string

	switch f.id {
	case msgConnected:
		version = d.string()
		for d.more() {
			k, v := d.string(), d.string()
			hints[k] = v
		}
	case msgConnectedV2:
		_ = d.int() // daemon api version
		version = d.string()
		n := d.int()
		for i := uint32(0); i < n && d.err == nil; i++ {
			k, v := d.string(), d.string()
			hints[k] = v
		}
	default:
		return fmt.Errorf("%w: expected CONNECTED, got message %d", ErrMalformed, f.id)
	}
	if d.err != nil {
		return d.err
	}

	c.mu.Lock()
	c.version = version
	c.hints = hints
	c.mu.Unlock()
	return nil
}

// Hints are the greeter hints from seat configuration
// (default-session, hide-users, ...).
func (c *Client) Hints() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.hints))
	for k, v := range c.hints {
		out[k] = v
	}
	return out
}

// Listen starts delivering daemon events to l through the poster.
func (c *Client) Listen(l daemon.Listener) {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
	go c.readLoop()
}

// Done is closed when the connection ends; Err then tells why.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		f, err := readFrame(c.r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				err = ErrDisconnected
			}
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		if !c.post(func() { c.handle(f) }) {
			return
		}
	}
}

func (c *Client) handle(f frame) {
	switch f.id {
	case msgPromptAuthentication:
		c.handlePrompt(f.payload)
	case msgEndAuthentication:
		c.handleEnd(f.payload)
	case msgSessionResult:
		c.handleSessionResult(f.payload)
	case msgIdle:
		logger.Info("lightdm asked the greeter to go idle")
	case msgReset:
		logger.Debug("ignoring lightdm reset: greeter is not resettable")
	default:
		logger.Debug("ignoring lightdm message %d (%d bytes)", f.id, len(f.payload))
	}
}

type pamMessage struct {
	style uint32
	text  string
}

func (c *Client) handlePrompt(payload []byte) {
	d := newDecoder(payload)
	seq := d.int()
	username := d.string()
	n := d.int()
	msgs := make([]pamMessage, 0, n)
	for i := uint32(0); i < n && d.err == nil; i++ {
		style := d.int()
		msgs = append(msgs, pamMessage{style: style, text: d.string()})
	}
	if d.err != nil {
		logger.Warn("dropping prompt: %v", d.err)
		return
	}

	c.mu.Lock()
	if c.staleLocked(seq) {
		c.mu.Unlock()
		logger.Debug("dropping prompt for %s with stale sequence %d", username, seq)
		return
	}
	prompts := 0
	for _, m := range msgs {
		if m.style == stylePromptEchoOff || m.style == stylePromptEchoOn {
			prompts++
		}
	}
	c.prompts = prompts
	c.responses = nil
	l := c.listener
	c.mu.Unlock()

	for _, m := range msgs {
		switch m.style {
		case stylePromptEchoOff:
			l.OnShowPrompt(m.text, daemon.PromptSecret)
		case stylePromptEchoOn:
			l.OnShowPrompt(m.text, daemon.PromptQuestion)
		case styleErrorMsg:
			l.OnShowMessage(m.text, daemon.MessageError)
		case styleTextInfo:
			l.OnShowMessage(m.text, daemon.MessageInfo)
		default:
			logger.Warn("unknown pam message style %d: %q", m.style, m.text)
		}
	}
}

func (c *Client) handleEnd(payload []byte) {
	d := newDecoder(payload)
	seq := d.int()
	username := d.string()
	result := d.int()
	if d.err != nil {
		logger.Warn("dropping end of authentication: %v", d.err)
		return
	}

	c.mu.Lock()
	if c.staleLocked(seq) {
		c.mu.Unlock()
		logger.Debug("dropping end of authentication for %s with stale sequence %d", username, seq)
		return
	}
	c.inAuth = false
	c.authenticated = result == 0
	c.prompts = 0
	c.responses = nil
	l := c.listener
	c.mu.Unlock()

	logger.Debug("authentication for %s ended with pam result %d", username, result)
	l.OnAuthenticationComplete()
}

func (c *Client) handleSessionResult(payload []byte) {
	d := newDecoder(payload)
	code := d.int()
	if d.err != nil {
		logger.Warn("dropping session result: %v", d.err)
		return
	}
	var err error
	if code != 0 {
		err = fmt.Errorf("%w (code %d)", daemon.ErrSessionFailed, code)
	}
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	l.OnSessionResult(err)
}

// staleLocked reports whether seq belongs to an attempt that was cancelled,
// replaced or already finished.
func (c *Client) staleLocked(seq uint32) bool {
	return !c.inAuth || seq != c.seq
}

func (c *Client) Authenticate(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.inAuth = true
	c.authenticated = false
	c.prompts = 0
	c.responses = nil
	return c.sendLocked(msgAuthenticate, (&encoder{}).int(c.seq).string(username).bytes())
}

// Respond answers one prompt. LightDM wants every prompt of a batch
// answered in one message, so responses are held until the batch is full.
func (c *Client) Respond(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inAuth || c.prompts == 0 {
		return daemon.ErrNoAuthentication
	}
	c.responses = append(c.responses, text)
	if len(c.responses) < c.prompts {
		return nil
	}
	e := (&encoder{}).int(uint32(len(c.responses)))
	for _, r := range c.responses {
		e.string(r)
	}
	c.prompts = 0
	c.responses = nil
	return c.sendLocked(msgContinueAuthentication, e.bytes())
}

func (c *Client) CancelAuthentication() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inAuth = false
	c.prompts = 0
	c.responses = nil
	return c.sendLocked(msgCancelAuthentication, nil)
}

func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *Client) InAuthentication() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inAuth
}

// StartSession asks for sessionID; an empty id means the seat default.
func (c *Client) StartSession(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(msgStartSession, (&encoder{}).string(sessionID).bytes())
}

func (c *Client) send(id uint32, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(id, payload)
}

func (c *Client) sendLocked(id uint32, payload []byte) error {
	if c.closed || c.err != nil {
		return daemon.ErrNotConnected
	}
	if err := writeFrame(c.w, id, payload); err != nil {
		return fmt.Errorf("%w: %v", daemon.ErrNotConnected, err)
	}
	return nil
}

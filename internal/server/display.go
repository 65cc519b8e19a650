package server

import (
	"sync"

	"github.com/hnrobert/lumgreet/internal/clock"
	"github.com/hnrobert/lumgreet/internal/greeter"
)

const (
	FocusPassword = "password"
	FocusUser     = "user"
)

// State is what the UI shell renders. The typed password never leaves the
// process.
type State struct {
	Status          greeter.Status `json:"status"`
	Username        string         `json:"username"`
	UserInitiated   bool           `json:"user_initiated"`
	Session         string         `json:"session"`
	Message         string         `json:"message"`
	PasswordVisible bool           `json:"password_visible"`
	// Focus is the widget the UI should focus: the password field when it
	// is visible, else the user picker.
	Focus string     `json:"focus"`
	Clock clock.Face `json:"clock"`
}

// Display is the greeter.View behind the bridge. View methods are called on
// the event loop; HTTP handlers and the clock touch it from other
// goroutines, hence the mutex.
type Display struct {
	mu       sync.Mutex
	state    State
	password string
	subs     map[chan State]struct{}
}

var _ greeter.View = (*Display)(nil)

func NewDisplay() *Display {
	return &Display{
		state: State{Focus: FocusUser},
		subs:  map[chan State]struct{}{},
	}
}

func (d *Display) ShowPassword(visible bool) {
	d.update(func(s *State) {
		s.PasswordVisible = visible
		if visible {
			s.Focus = FocusPassword
		} else {
			s.Focus = FocusUser
		}
	})
}

func (d *Display) ClearPassword() {
	d.mu.Lock()
	d.password = ""
	d.mu.Unlock()
}

func (d *Display) Password() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.password
}

// SetPassword records what the user typed into the password field.
func (d *Display) SetPassword(text string) {
	d.mu.Lock()
	d.password = text
	d.mu.Unlock()
}

func (d *Display) ShowMessage(text string) {
	d.update(func(s *State) { s.Message = text })
}

func (d *Display) SelectUser(username string) {
	d.update(func(s *State) { s.Username = username })
}

func (d *Display) SelectSession(id string) {
	d.update(func(s *State) { s.Session = id })
}

func (d *Display) SetClock(f clock.Face) {
	d.update(func(s *State) { s.Clock = f })
}

// SetStatus mirrors the Controller snapshot. The app calls it on the loop
// after every handler.
func (d *Display) SetStatus(snap greeter.Snapshot) {
	d.update(func(s *State) {
		s.Status = snap.Attempt.Status
		s.Username = snap.Attempt.Username
		s.UserInitiated = snap.Attempt.UserInitiated
		s.Session = snap.Session
		s.Message = snap.Message
	})
}

func (d *Display) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subscribe returns a channel of state changes, primed with the current
// state. A slow subscriber only ever sees the latest state.
func (d *Display) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	d.mu.Lock()
	d.subs[ch] = struct{}{}
	ch <- d.state
	d.mu.Unlock()

	return ch, func() {
		d.mu.Lock()
		delete(d.subs, ch)
		d.mu.Unlock()
	}
}

func (d *Display) update(fn func(*State)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	before := d.state
	fn(&d.state)
	if d.state == before {
		return
	}
	for ch := range d.subs {
		select {
		case <-ch:
		default:
		}
		ch <- d.state
	}
}

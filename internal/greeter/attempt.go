package greeter

import "fmt"

type Status int

const (
	StatusIdle Status = iota
	StatusInProgress
	StatusAuthenticated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInProgress:
		return "in-progress"
	case StatusAuthenticated:
		return "authenticated"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{StatusIdle, StatusInProgress, StatusAuthenticated, StatusFailed} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Attempt is the single live authentication attempt.
//
// UserInitiated is set only by an explicit login action for Username. While
// it is false a completion means "no password needed" and must never send a
// password or start a session.
type Attempt struct {
	Username      string `json:"username"`
	UserInitiated bool   `json:"user_initiated"`
	Status        Status `json:"status"`
}

// Snapshot is the Controller state the UI bridge renders.
type Snapshot struct {
	Attempt Attempt `json:"attempt"`
	Session string  `json:"session"`
	Message string  `json:"message"`
}

// Package power runs suspend, restart and shutdown for the login screen.
//
// Every action is gated by its capability check. A missing capability, or a
// check that fails, turns the action into a silent no-op. Power actions are
// independent of authentication and never touch the Controller.
package power

import (
	"github.com/hnrobert/lumgreet/internal/logger"
)

type Action string

const (
	ActionSuspend  Action = "suspend"
	ActionRestart  Action = "restart"
	ActionShutdown Action = "shutdown"
)

// Backend talks to the component that actually powers the machine.
type Backend interface {
	Can(a Action) (bool, error)
	Do(a Action) error
}

// Capabilities tells the UI which controls to enable.
type Capabilities struct {
	Suspend  bool `json:"suspend"`
	Restart  bool `json:"restart"`
	Shutdown bool `json:"shutdown"`
}

type Gateway struct {
	backend Backend
}

func NewGateway(b Backend) *Gateway {
	return &Gateway{backend: b}
}

// Capabilities reports which actions the backend currently allows.
func (g *Gateway) Capabilities() Capabilities {
	return Capabilities{
		Suspend:  g.can(ActionSuspend),
		Restart:  g.can(ActionRestart),
		Shutdown: g.can(ActionShutdown),
	}
}

// Run performs a by name; unknown actions are ignored.
func (g *Gateway) Run(a Action) bool {
	switch a {
	case ActionSuspend, ActionRestart, ActionShutdown:
		return g.run(a)
	}
	logger.Warn("unknown power action %q", a)
	return false
}

func (g *Gateway) can(a Action) bool {
	if g.backend == nil {
		return false
	}
	ok, err := g.backend.Can(a)
	if err != nil {
		logger.Warn("power capability %s: %v", a, err)
		return false
	}
	return ok
}

func (g *Gateway) run(a Action) bool {
	if !g.can(a) {
		logger.Info("power action %s not available, skipping", a)
		return false
	}
	logger.Info("power action %s", a)
	if err := g.backend.Do(a); err != nil {
		logger.Error("power action %s: %v", a, err)
		return false
	}
	return true
}

package server

import (
	"context"
	"html/template"
	"net/http"

	"github.com/hnrobert/lumgreet/internal/catalog"
	"github.com/hnrobert/lumgreet/internal/greeter"
	"github.com/hnrobert/lumgreet/internal/i18n"
	"github.com/hnrobert/lumgreet/internal/power"
)

// Greeter is the Controller surface the bridge drives. Every call is made
// on the event loop.
type Greeter interface {
	SelectUser(username string) error
	SelectSession(id string) error
	SubmitLogin() error
	Cancel()
	Users() []catalog.User
	Sessions() []catalog.Session
}

// Power is the subset of power.Gateway the bridge needs.
type Power interface {
	Capabilities() power.Capabilities
	Run(a power.Action) bool
}

type Options struct {
	Loop    *greeter.Loop
	Greeter Greeter
	Display *Display
	Power   Power
	// Secret verifies bearer tokens.
	Secret []byte

	Notice     string
	Appearance map[string]string
	Strings    i18n.Vocabulary
}

type App struct {
	secret     []byte
	loop       *greeter.Loop
	greeter    Greeter
	display    *Display
	power      Power
	notice     template.HTML
	appearance map[string]string
	strings    i18n.Vocabulary
}

// Info is the part of the screen that does not change while the greeter
// runs.
type Info struct {
	Users      []catalog.User     `json:"users"`
	Sessions   []catalog.Session  `json:"sessions"`
	Power      power.Capabilities `json:"power"`
	Appearance map[string]string  `json:"appearance"`
	Strings    i18n.Vocabulary    `json:"strings"`
}

type StateResponse struct {
	State State `json:"state"`
	Info  Info  `json:"info"`
}

func newApp(opts Options) *App {
	return &App{
		secret:     opts.Secret,
		loop:       opts.Loop,
		greeter:    opts.Greeter,
		display:    opts.Display,
		power:      opts.Power,
		notice:     RenderMarkdown(opts.Notice),
		appearance: opts.Appearance,
		strings:    opts.Strings,
	}
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", a.requireAuth(a.handleState))
	mux.HandleFunc("/api/events", a.requireAuth(a.handleEvents))
	mux.HandleFunc("/api/notice", a.requireAuth(a.handleNotice))

	mux.HandleFunc("/api/user", a.requireAuth(a.handleSelectUser))
	mux.HandleFunc("/api/session", a.requireAuth(a.handleSelectSession))
	mux.HandleFunc("/api/password", a.requireAuth(a.handlePassword))
	mux.HandleFunc("/api/login", a.requireAuth(a.handleLogin))
	mux.HandleFunc("/api/cancel", a.requireAuth(a.handleCancel))

	mux.HandleFunc("/api/power/suspend", a.requireAuth(a.handlePower(power.ActionSuspend)))
	mux.HandleFunc("/api/power/restart", a.requireAuth(a.handlePower(power.ActionRestart)))
	mux.HandleFunc("/api/power/shutdown", a.requireAuth(a.handlePower(power.ActionShutdown)))

	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})

	return a.withAuthContext(mux)
}

// onLoop runs fn on the event loop and returns its error.
func (a *App) onLoop(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if err := a.loop.Call(ctx, func() { res <- fn() }); err != nil {
		return err
	}
	return <-res
}

func (a *App) info(ctx context.Context) (Info, error) {
	var info Info
	err := a.onLoop(ctx, func() error {
		info.Users = a.greeter.Users()
		info.Sessions = a.greeter.Sessions()
		return nil
	})
	if err != nil {
		return Info{}, err
	}
	if a.power != nil {
		info.Power = a.power.Capabilities()
	}
	info.Appearance = a.appearance
	info.Strings = a.strings
	return info, nil
}

// Package app wires the greeter together: config, daemon connection,
// catalog, Controller, UI bridge, clock and UI shell.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/hnrobert/lumgreet/internal/auth"
	"github.com/hnrobert/lumgreet/internal/catalog"
	"github.com/hnrobert/lumgreet/internal/clock"
	"github.com/hnrobert/lumgreet/internal/config"
	"github.com/hnrobert/lumgreet/internal/daemon"
	"github.com/hnrobert/lumgreet/internal/greeter"
	"github.com/hnrobert/lumgreet/internal/hostfs"
	"github.com/hnrobert/lumgreet/internal/i18n"
	"github.com/hnrobert/lumgreet/internal/lightdm"
	"github.com/hnrobert/lumgreet/internal/localdm"
	"github.com/hnrobert/lumgreet/internal/logger"
	"github.com/hnrobert/lumgreet/internal/power"
	"github.com/hnrobert/lumgreet/internal/prefs"
	"github.com/hnrobert/lumgreet/internal/server"
	"github.com/hnrobert/lumgreet/internal/uishell"
)

const (
	// WelcomeEnv being set means the greeter runs inside a graphical
	// session, so the welcome line is shown.
	WelcomeEnv = "XDG_SESSION_TYPE"

	connectTimeout  = 10 * time.Second
	drainTimeout    = time.Second
	shutdownTimeout = 3 * time.Second
	secretBytes     = 32
)

var (
	ErrDaemonUnavailable = errors.New("login-manager daemon unavailable")
	ErrNoSession         = errors.New("no session available and no default session configured")
)

// Daemon is a daemon.Client that delivers its callbacks to a Listener.
type Daemon interface {
	daemon.Client
	Listen(l daemon.Listener)
}

// Disconnector is implemented by daemons whose connection can drop, like
// *lightdm.Client.
type Disconnector interface {
	Done() <-chan struct{}
	Err() error
}

// Catalog is satisfied by *catalog.Catalog.
type Catalog interface {
	ListUsers() ([]catalog.User, error)
	ListSessions() ([]catalog.Session, error)
}

type Options struct {
	Config config.Config
	// Test runs against the local test daemon instead of LightDM.
	Test bool
	// Lang overrides the locale taken from the environment.
	Lang string
}

// Deps replaces host integrations. Nil fields are built from Options.
type Deps struct {
	NewDaemon func(ctx context.Context, post daemon.Poster) (Daemon, error)
	Catalog   Catalog
	Power     power.Backend
	Clock     clock.Clock
}

type runtime struct {
	cfg     config.Config
	voc     i18n.Vocabulary
	loop    *greeter.Loop
	dm      Daemon
	bus     *dbus.Conn
	display *server.Display
	ctrl    *greeter.Controller
	srv     *server.Server
	ln      net.Listener
	token   string

	// started is set on the loop, read by run.
	started atomic.Bool
	cleanup []func()
}

// Run starts the greeter and blocks until a session has been started (nil),
// ctx is cancelled (nil) or something fatal happens.
func Run(ctx context.Context, opts Options, deps Deps) error {
	rt := &runtime{cfg: opts.Config, loop: greeter.NewLoop()}
	defer rt.close()

	if err := rt.setup(ctx, opts, deps); err != nil {
		return err
	}
	return rt.run(ctx, deps)
}

func (rt *runtime) setup(ctx context.Context, opts Options, deps Deps) error {
	cfg := rt.cfg
	locale := i18n.DetectLocale(opts.Lang)
	rt.voc = i18n.Load(cfg.LangDir, locale)
	logger.Info("locale %s", locale)

	if deps.Catalog == nil || (deps.Power == nil && !opts.Test) {
		rt.connectBus()
	}

	dm, err := rt.connectDaemon(ctx, opts, deps)
	if err != nil {
		return err
	}
	rt.dm = dm

	cat := deps.Catalog
	if cat == nil {
		hinters := catalog.Hinters{}
		if rt.bus != nil {
			hinters = append(hinters, catalog.NewAccountsServiceHinter(rt.bus))
		}
		hinters = append(hinters, catalog.DmrcHinter{})
		cat = catalog.New(catalog.OptionsFromConfig(cfg, hinters))
	}
	users, err := cat.ListUsers()
	if err != nil {
		logger.Warn("listing users: %v", err)
	}
	sessions, err := cat.ListSessions()
	if err != nil {
		logger.Warn("listing sessions: %v", err)
	}
	if len(sessions) == 0 && cfg.DefaultSession == "" {
		return ErrNoSession
	}
	logger.Info("%d users, %d sessions", len(users), len(sessions))

	store := prefs.NewStore(prefs.DefaultPath(cfg.CacheDir))
	if err := store.Ensure(); err != nil {
		logger.Warn("preference file %s: %v", store.Path(), err)
	}
	pref, err := store.Load()
	if err != nil {
		logger.Warn("loading preferences: %v", err)
	}

	rt.display = server.NewDisplay()
	rt.ctrl = greeter.NewController(greeter.Options{
		Daemon:     dm,
		View:       rt.display,
		Prefs:      store,
		Launcher:   greeter.NewLauncher(dm, store, cfg.DefaultSession),
		Users:      users,
		Sessions:   sessions,
		Preference: pref,
		Vocabulary: rt.voc,
		OnSessionStarted: func() {
			rt.started.Store(true)
			rt.loop.Stop()
		},
	})
	rt.loop.SetAfterEach(func() { rt.display.SetStatus(rt.ctrl.Snapshot()) })
	dm.Listen(rt.ctrl)

	backend := deps.Power
	if backend == nil && rt.bus != nil && !opts.Test {
		backend = power.NewLogind(rt.bus)
	}
	return rt.startBridge(backend)
}

func (rt *runtime) connectBus() {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		logger.Warn("system bus unavailable, power actions and AccountsService disabled: %v", err)
		return
	}
	rt.bus = conn
	rt.cleanup = append(rt.cleanup, func() { _ = conn.Close() })
}

func (rt *runtime) connectDaemon(ctx context.Context, opts Options, deps Deps) (Daemon, error) {
	if deps.NewDaemon != nil {
		dm, err := deps.NewDaemon(ctx, rt.loop.Post)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
		}
		return dm, nil
	}
	if opts.Test {
		logger.Info("test mode: using the local test daemon")
		return localdm.New(localdm.HostChecker(), rt.loop.Post), nil
	}

	c, err := lightdm.FromEnv(rt.loop.Post)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	rt.cleanup = append(rt.cleanup, func() { _ = c.Close() })

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := c.Connect(cctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	logger.Debug("lightdm hints: %v", c.Hints())
	return c, nil
}

func (rt *runtime) startBridge(backend power.Backend) error {
	secret, err := auth.NewSecret(secretBytes)
	if err != nil {
		return err
	}
	rt.token, err = auth.SignHS256(secret, rt.cfg.Bridge.TokenTTL)
	if err != nil {
		return err
	}

	socket := rt.cfg.Bridge.Socket
	ln, err := server.Listen(socket)
	if err != nil {
		return fmt.Errorf("bridge socket %s: %w", socket, err)
	}
	rt.ln = ln
	rt.cleanup = append(rt.cleanup, func() {
		_ = ln.Close()
		_ = os.Remove(socket)
	})

	tokenPath := filepath.Join(filepath.Dir(socket), hostfs.BridgeTokenFileName)
	if err := hostfs.WriteFileAtomic(tokenPath, []byte(rt.token+"\n"), 0o600); err != nil {
		return fmt.Errorf("bridge token: %w", err)
	}
	rt.cleanup = append(rt.cleanup, func() { _ = os.Remove(tokenPath) })

	rt.srv = server.New(server.Options{
		Loop:       rt.loop,
		Greeter:    rt.ctrl,
		Display:    rt.display,
		Power:      power.NewGateway(backend),
		Secret:     secret,
		Notice:     rt.cfg.Notice,
		Appearance: rt.cfg.Appearance,
		Strings:    rt.voc,
	})
	return nil
}

func (rt *runtime) run(ctx context.Context, deps Deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- rt.srv.Serve(rt.ln) }()
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		_ = rt.srv.Shutdown(sctx)
	}()
	logger.Info("ui bridge listening on %s", rt.cfg.Bridge.Socket)

	welcome := ""
	if os.Getenv(WelcomeEnv) != "" {
		welcome = rt.voc.Get(i18n.KeyWelcome)
	}
	rt.loop.Post(func() { rt.ctrl.Start(welcome) })

	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	go clock.Run(ctx, clk, rt.cfg.Clock.TimeFormat, rt.cfg.Clock.DateFormat, rt.display.SetClock)

	var shellDone <-chan struct{}
	var shell *uishell.Process
	if len(rt.cfg.UI.Command) > 0 {
		p, err := uishell.New(rt.cfg.UI.Command).Start(ctx, rt.cfg.Bridge.Socket, rt.token)
		if err != nil {
			return err
		}
		shell, shellDone = p, p.Done()
		logger.Info("ui shell %s started (pid %d)", rt.cfg.UI.Command[0], p.Pid())
	} else {
		logger.Info("no ui.command configured, waiting for an external ui")
	}

	var daemonDone <-chan struct{}
	conn, watch := rt.dm.(Disconnector)
	if watch {
		daemonDone = conn.Done()
	}

	loopErr := make(chan error, 1)
	go func() { loopErr <- rt.loop.Run(ctx) }()

	select {
	case <-loopErr:
		if rt.started.Load() {
			logger.Info("session started, greeter exiting")
		}
		return nil
	case <-ctx.Done():
		rt.loop.Stop()
		return nil
	case <-shellDone:
		rt.loop.Stop()
		return fmt.Errorf("ui shell stopped: %w", shell.Err())
	case <-daemonDone:
		// LightDM closes the pipes right after a successful SESSION_RESULT;
		// let the loop handle what the reader posted before the close.
		dctx, dcancel := context.WithTimeout(ctx, drainTimeout)
		_ = rt.loop.Call(dctx, func() {})
		dcancel()
		rt.loop.Stop()
		if rt.started.Load() {
			logger.Info("session started, greeter exiting")
			return nil
		}
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, conn.Err())
	case err := <-serveErr:
		rt.loop.Stop()
		return fmt.Errorf("ui bridge: %w", err)
	}
}

func (rt *runtime) close() {
	rt.loop.Stop()
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		rt.cleanup[i]()
	}
}

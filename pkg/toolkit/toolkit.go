// Package toolkit wires the window registry, lifecycle manager, IPC router,
// and message bus into the single facade an embedding application
// constructs once at startup.
package toolkit

import (
	"log/slog"

	"github.com/deskkit/deskkit/pkg/bus"
	"github.com/deskkit/deskkit/pkg/ipcrouter"
	"github.com/deskkit/deskkit/pkg/lifecycle"
	"github.com/deskkit/deskkit/pkg/toolkit/config"
	"github.com/deskkit/deskkit/pkg/windowreg"
)

// Toolkit composes every subsystem behind one entry point.
type Toolkit struct {
	Config    *config.Config
	Store     *windowreg.Store
	Keeper    *windowreg.StateKeeper
	Lifecycle *lifecycle.Lifecycle
	Router    *ipcrouter.Router
	Bus       *bus.MessageBus

	debugConsole *debugConsole
	logger       *slog.Logger
}

// Displays resolves the current display set; the embedder provides this
// since enumerating physical monitors is a host-runtime concern.
type Displays func() []windowreg.Display

// New builds a Toolkit per cfg, with factory constructing the concrete host
// window for each validated WindowConfig.
func New(cfg *config.Config, displays Displays, factory lifecycle.WindowFactory, logger *slog.Logger) (*Toolkit, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if displays == nil {
		displays = func() []windowreg.Display { return nil }
	}

	store, keeper := buildWindowSubsystem(cfg, displays, logger)

	lc := lifecycle.New(store, keeper, displays, factory, logger)

	transport := bus.NewTransport(logger)
	messageBus := bus.New(transport, bus.Config{
		GetTimeout:    cfg.Bus.GetTimeout,
		Logger:        logger,
		GroupResolver: store.Registry.GroupIDs,
	})

	router := ipcrouter.New(ipcrouter.Config{
		DefaultRate: &ipcrouter.RateRule{Limit: cfg.RateLimit.Limit, Interval: cfg.RateLimit.Interval},
		Logger:      logger,
		API: ipcrouter.APIRecord{
			"bus":       messageBus,
			"store":     store,
			"lifecycle": lc,
		},
	})

	tk := &Toolkit{
		Config:    cfg,
		Store:     store,
		Keeper:    keeper,
		Lifecycle: lc,
		Router:    router,
		Bus:       messageBus,
		logger:    logger.With("component", "toolkit"),
	}

	wireBusToLifecycle(tk)

	if cfg.Development && cfg.DebugConsole.Enabled {
		tk.debugConsole = newDebugConsole(tk, cfg.DebugConsole.Addr, logger)
	}

	return tk, nil
}

func buildWindowSubsystem(cfg *config.Config, displays Displays, logger *slog.Logger) (*windowreg.Store, *windowreg.StateKeeper) {
	var keeper *windowreg.StateKeeper
	if cfg.Persistence.Enabled {
		path := cfg.Persistence.Path
		if path == "" {
			path = defaultStatePath()
		}
		store := windowreg.NewLocalStore(path)
		keeper = windowreg.NewStateKeeper(store, cfg.StateKeeperConfig(), logger)
	}

	opts := []windowreg.Option{}
	if cfg.MaxWindows > 0 {
		opts = append(opts, windowreg.WithMaxWindows(cfg.MaxWindows))
	}
	store := windowreg.NewStore(keeper, windowreg.DisplayLister(displays), logger, opts...)
	return store, keeper
}

// wireBusToLifecycle auto-registers a window with the bus when it's
// created, and auto-unregisters it (rolling back transactions, dropping
// subscriptions) before it's torn down.
func wireBusToLifecycle(tk *Toolkit) {
	tk.Lifecycle.OnWindowCreated(func(id, name string, w windowreg.Window) {
		if err := tk.Bus.RegisterWindow(id, w); err != nil {
			tk.logger.Error("bus registration failed", "window", id, "error", err)
		}
	})
	tk.Lifecycle.OnWillBeDestroyed(func(id string) {
		tk.Bus.UnregisterWindow(id)
	})
}

func defaultStatePath() string {
	return "deskkit-window-state.json"
}

// Shutdown reverses the startup order: bus first, then the window
// subsystem, then the router. Any step's best effort continues even if an
// earlier one fails, so a shutdown is never partially stuck.
func (tk *Toolkit) Shutdown() {
	if tk.debugConsole != nil {
		tk.debugConsole.Stop()
	}
	tk.Bus.Dispose()
	if tk.Keeper != nil {
		tk.Keeper.FlushSync()
	}
	tk.Router.Dispose()
}

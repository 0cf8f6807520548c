package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskkit/deskkit/pkg/windowreg"
)

// slowCreateThreshold is the duration above which a window's creation time
// is logged as a warning.
const slowCreateThreshold = 2 * time.Second

// crashReloadDelay is how long Lifecycle waits before reloading a window
// whose renderer reported a crash or out-of-memory exit.
const crashReloadDelay = 1 * time.Second

// WindowFactory constructs the host window for a validated config. deskkit
// never constructs a concrete window itself — the host desktop runtime's
// window primitive is out of scope and supplied by the embedder.
type WindowFactory func(cfg *WindowConfig) (windowreg.Window, error)

// CrashInfo describes a renderer crash reported by the host runtime.
type CrashInfo struct {
	ID       string
	Reason   string // "crashed", "oom", etc.
	ExitCode *int
}

// Lifecycle orchestrates window creation and destruction: schema validation,
// plugin hooks, idempotent-by-name resolution, content loading, and crash
// recovery. It is the sole caller of WindowFactory.
type Lifecycle struct {
	store    *windowreg.Store
	executor *Executor
	factory  WindowFactory
	logger   *slog.Logger

	globalLoader func(w windowreg.Window, cfg *WindowConfig) error

	displays func() []windowreg.Display
	keeper   *windowreg.StateKeeper

	mu             sync.Mutex
	onCreated      []func(id, name string, w windowreg.Window)
	onWillDestroy  []func(id string)
	onDestroyed    []func(id string)
	onCrash        []func(CrashInfo)
	onUnresponsive []func(id string)
	onError        []func(error)

	reload func(id string) // injected: tells the host runtime to reload a window
}

// New constructs a Lifecycle.
func New(store *windowreg.Store, keeper *windowreg.StateKeeper, displays func() []windowreg.Display, factory WindowFactory, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		store:    store,
		executor: NewExecutor(logger),
		factory:  factory,
		keeper:   keeper,
		displays: displays,
		logger:   logger.With("component", "window_lifecycle"),
	}
}

// Use registers a plugin.
func (l *Lifecycle) Use(p Plugin) error { return l.executor.Use(p) }

// SetHooks installs the bare hook bundle.
func (l *Lifecycle) SetHooks(h Hooks) { l.executor.SetHooks(h) }

// SetGlobalLoader installs the fallback content loader used when a config
// has no per-window LoadContent.
func (l *Lifecycle) SetGlobalLoader(fn func(w windowreg.Window, cfg *WindowConfig) error) {
	l.globalLoader = fn
}

// SetReloadFunc installs the host callback used to reload a window after a
// crash.
func (l *Lifecycle) SetReloadFunc(fn func(id string)) { l.reload = fn }

// OnWindowCreated registers a callback fired after a new window is
// registered (not fired when Create resolves an existing window).
func (l *Lifecycle) OnWindowCreated(fn func(id, name string, w windowreg.Window)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onCreated = append(l.onCreated, fn)
}

// OnWillBeDestroyed registers a callback fired before registry/bus cleanup.
func (l *Lifecycle) OnWillBeDestroyed(fn func(id string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onWillDestroy = append(l.onWillDestroy, fn)
}

// OnDestroyed registers a callback fired after registry/bus cleanup.
func (l *Lifecycle) OnDestroyed(fn func(id string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onDestroyed = append(l.onDestroyed, fn)
}

// OnCrash registers a callback fired when a renderer crash is reported.
func (l *Lifecycle) OnCrash(fn func(CrashInfo)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onCrash = append(l.onCrash, fn)
}

// OnUnresponsive registers a callback fired when a window becomes unresponsive.
func (l *Lifecycle) OnUnresponsive(fn func(id string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUnresponsive = append(l.onUnresponsive, fn)
}

// OnError registers a callback fired on lifecycle-internal errors.
func (l *Lifecycle) OnError(fn func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onError = append(l.onError, fn)
}

// Create runs the full creation algorithm and returns the window id. A
// cancelled will-create hook returns ("", nil) — an empty id, not an error,
// matching the spec's cancellation contract.
func (l *Lifecycle) Create(cfg *WindowConfig) (string, error) {
	started := time.Now()

	if err := cfg.Validate(); err != nil {
		return "", err
	}

	resolved, cancelled := l.executor.RunWillCreate(cfg)
	if cancelled {
		return "", nil
	}
	cfg = resolved

	if id, ok := l.resolveExisting(cfg); ok {
		return id, nil
	}

	var restoreMax, restoreFull bool
	if cfg.Persistent && cfg.Name != "" && l.keeper != nil {
		saved := l.keeper.GetWindowState(cfg.Name, cfg.Width, cfg.Height)
		restored := windowreg.RestoreGeometry(saved, l.currentDisplays(), cfg.Width, cfg.Height)
		cfg.Width, cfg.Height = restored.Width, restored.Height
		cfg.X, cfg.Y = restored.X, restored.Y
		restoreMax, restoreFull = restored.IsMaximized, restored.IsFullScreen
		// Maximize/full-screen are applied post-create via the Operator,
		// never through the construction config.
	}

	w, err := l.factory(cfg)
	if err != nil {
		l.emitError(err)
		return "", err
	}

	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}

	if err := l.store.Register(id, cfg.Name, w); err != nil {
		return "", err
	}

	if cfg.Persistent && cfg.Name != "" {
		for _, g := range cfg.Groups {
			l.store.Registry.AddToGroup(id, g)
		}
	}

	if restoreMax {
		l.store.Operator.Maximize(id)
	}
	if restoreFull && !w.IsFullScreen() {
		l.store.Operator.ToggleFullScreen(id)
	}

	if cfg.Development {
		l.store.Operator.OpenDevTools(id)
	}

	l.loadContent(w, cfg)

	l.executor.RunDidCreate(id, cfg)

	if d := time.Since(started); d > slowCreateThreshold {
		l.logger.Warn("window creation slow", "id", id, "name", cfg.Name, "duration", d)
	}

	l.mu.Lock()
	callbacks := append([]func(id, name string, w windowreg.Window){}, l.onCreated...)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(id, cfg.Name, w)
	}

	return id, nil
}

// resolveExisting returns (id, true) if cfg names an existing, non-destroyed
// window: Create is then idempotent — it focuses and returns the same id
// rather than constructing a new instance.
func (l *Lifecycle) resolveExisting(cfg *WindowConfig) (string, bool) {
	var entry *windowreg.Entry
	if cfg.ID != "" {
		entry = l.store.Registry.GetByID(cfg.ID)
	} else if cfg.Name != "" {
		entry = l.store.Registry.GetByName(cfg.Name)
	}
	if entry == nil || entry.Window.Destroyed() {
		return "", false
	}

	l.store.Operator.Focus(entry.ID)
	l.store.PushFocus(entry.ID)
	return entry.ID, true
}

func (l *Lifecycle) loadContent(w windowreg.Window, cfg *WindowConfig) {
	var err error
	switch {
	case cfg.LoadContent != nil:
		err = cfg.LoadContent(w, cfg)
	case l.globalLoader != nil:
		err = l.globalLoader(w, cfg)
	case cfg.LoadURL != "":
		w.Send("load-url", cfg.LoadURL)
	case cfg.LoadFile != "":
		w.Send("load-file", cfg.LoadFile)
	}
	if err != nil {
		l.logger.Error("content load failed", "error", err)
	}
}

func (l *Lifecycle) currentDisplays() []windowreg.Display {
	if l.displays == nil {
		return nil
	}
	return l.displays()
}

// Destroy runs the full teardown algorithm for id.
func (l *Lifecycle) Destroy(id string) error {
	entry := l.store.Registry.GetByID(id)
	if entry == nil {
		return ErrUnknownWindow
	}

	l.executor.RunWillDestroy(id)

	l.mu.Lock()
	willDestroy := append([]func(string){}, l.onWillDestroy...)
	l.mu.Unlock()
	for _, fn := range willDestroy {
		fn(id)
	}

	l.store.Operator.Close(id)
	if !entry.Window.Destroyed() {
		l.store.Operator.Destroy(id)
	}

	l.store.Unregister(id)

	l.executor.RunDidDestroy(id)

	l.mu.Lock()
	destroyed := append([]func(string){}, l.onDestroyed...)
	l.mu.Unlock()
	for _, fn := range destroyed {
		fn(id)
	}

	return nil
}

// NotifyFocus records a host focus event for id on the store's focus stack.
func (l *Lifecycle) NotifyFocus(id string) {
	l.store.PushFocus(id)
}

// NotifyUnresponsive is called by the host runtime when a window's renderer
// stops responding. It is logged, not acted upon automatically.
func (l *Lifecycle) NotifyUnresponsive(id string) {
	l.logger.Warn("window unresponsive", "id", id)

	l.mu.Lock()
	callbacks := append([]func(string){}, l.onUnresponsive...)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(id)
	}
}

// NotifyCrash is called by the host runtime when a window's renderer exits
// for reasons "crashed" or "oom". It logs, waits crashReloadDelay, and
// reloads the same window in place — the registry entry and id are
// unchanged, so no duplicate window appears.
func (l *Lifecycle) NotifyCrash(info CrashInfo) {
	l.logger.Error("window renderer crashed", "id", info.ID, "reason", info.Reason)

	l.mu.Lock()
	callbacks := append([]func(CrashInfo){}, l.onCrash...)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(info)
	}

	if info.Reason != "crashed" && info.Reason != "oom" {
		return
	}
	if l.reload == nil {
		return
	}

	time.AfterFunc(crashReloadDelay, func() {
		l.reload(info.ID)
	})
}

func (l *Lifecycle) emitError(err error) {
	l.mu.Lock()
	callbacks := append([]func(error){}, l.onError...)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(err)
	}
}

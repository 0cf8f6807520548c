package toolkit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LifecycleManager drives the toolkit's process-wide startup and shutdown
// sequencing: router, then bus, then window manager (awaiting readiness),
// then wiring the bus to the window manager, then, if development mode is
// on, the debug console. Shutdown reverses that order. Any step failing
// during Start triggers a best-effort Shutdown of whatever already came up
// before the error is returned.
type LifecycleManager struct {
	tk      *Toolkit
	ready   chan struct{}
	logger  *slog.Logger
	started bool
}

// NewLifecycleManager wraps tk with explicit startup/shutdown ordering.
func NewLifecycleManager(tk *Toolkit, logger *slog.Logger) *LifecycleManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleManager{
		tk:     tk,
		ready:  make(chan struct{}),
		logger: logger.With("component", "lifecycle_manager"),
	}
}

// Start brings the toolkit's subsystems up in dependency order and blocks
// until the window manager reports ready (or ctx is cancelled).
func (lm *LifecycleManager) Start(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			lm.logger.Error("startup failed, rolling back", "error", err)
			lm.Stop()
		}
	}()

	// 1. router — already constructed by toolkit.New; nothing to start.
	// 2. bus — already constructed; transport.Init() already ran in bus.New.
	// 3. window manager: wait for it to be ready to accept Create calls. The
	//    registry itself has no async startup, so "ready" is immediate, but
	//    the ghost sweeper must be running before any window can be created.
	lm.tk.Store.Registry.StartCleanup(lm.tk.Config.CleanupInterval)

	select {
	case <-ctx.Done():
		return fmt.Errorf("toolkit: startup cancelled: %w", ctx.Err())
	default:
	}

	// 4. bus <-> window manager wiring already installed in toolkit.New.

	// 5. debug console, development only — already started in toolkit.New if
	//    cfg.Development and cfg.DebugConsole.Enabled are both set.

	close(lm.ready)
	lm.started = true
	lm.logger.Info("toolkit started")
	return nil
}

// Ready returns a channel closed once Start has completed successfully.
func (lm *LifecycleManager) Ready() <-chan struct{} { return lm.ready }

// Stop reverses startup order: bus, then window manager, then router. It is
// safe to call even if Start never completed or partially failed.
func (lm *LifecycleManager) Stop() {
	lm.tk.Bus.Dispose()
	lm.tk.Store.Registry.StopCleanup()
	if lm.tk.Keeper != nil {
		lm.tk.Keeper.FlushSync()
	}
	lm.tk.Router.Dispose()
	if lm.tk.debugConsole != nil {
		lm.tk.debugConsole.Stop()
	}
	lm.started = false
}

// StopWithTimeout calls Stop but bounds how long it waits on components that
// might block (currently none do; kept for forward-compatible callers that
// want a deadline on shutdown).
func (lm *LifecycleManager) StopWithTimeout(d time.Duration) {
	done := make(chan struct{})
	go func() {
		lm.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		lm.logger.Warn("shutdown did not complete within deadline", "deadline", d)
	}
}

package lifecycle

import "log/slog"

// WillCreateFunc inspects or replaces the window config before construction.
// Returning ErrCancelled as the error cancels creation; any other error is
// logged and ignored (it does not cancel, per the spec's "never propagated"
// rule for hook errors — only the explicit sentinel cancels). Returning a
// non-nil *WindowConfig replaces the config visible to subsequent plugins.
type WillCreateFunc func(cfg *WindowConfig) (*WindowConfig, error)

// DidCreateFunc runs after a window is constructed and registered.
type DidCreateFunc func(id string, cfg *WindowConfig) error

// WillDestroyFunc runs before registry/bus cleanup for id.
type WillDestroyFunc func(id string) error

// DidDestroyFunc runs after registry/bus cleanup for id.
type DidDestroyFunc func(id string) error

// InitFunc runs once when the plugin is installed.
type InitFunc func() error

// Plugin is one named bundle of lifecycle hooks.
type Plugin struct {
	Name          string
	OnInit        InitFunc
	OnWillCreate  WillCreateFunc
	OnDidCreate   DidCreateFunc
	OnWillDestroy WillDestroyFunc
	OnDidDestroy  DidDestroyFunc
}

// Hooks is a single extra hook bundle invoked after every plugin in its
// respective phase, the same shape as Plugin but unnamed and singular.
type Hooks struct {
	OnWillCreate  WillCreateFunc
	OnDidCreate   DidCreateFunc
	OnWillDestroy WillDestroyFunc
	OnDidDestroy  DidDestroyFunc
}

// Executor runs plugin and hook callbacks in a fixed order around lifecycle
// transitions: plugins first (registration order), then the bare Hooks
// bundle.
type Executor struct {
	plugins []Plugin
	hooks   Hooks
	logger  *slog.Logger
}

// NewExecutor constructs an Executor with no plugins registered.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger.With("component", "plugin_executor")}
}

// Use appends a plugin, running its OnInit immediately.
func (e *Executor) Use(p Plugin) error {
	if p.OnInit != nil {
		if err := p.OnInit(); err != nil {
			return err
		}
	}
	e.plugins = append(e.plugins, p)
	return nil
}

// SetHooks installs the single extra hook bundle, replacing any previous one.
func (e *Executor) SetHooks(h Hooks) {
	e.hooks = h
}

// RunWillCreate runs each plugin's OnWillCreate then the hook's, threading
// config replacement through in order. If any step returns ErrCancelled,
// RunWillCreate returns (nil, true) — creation is cancelled. Non-cancelling
// errors are logged and otherwise ignored.
func (e *Executor) RunWillCreate(cfg *WindowConfig) (result *WindowConfig, cancelled bool) {
	current := cfg

	step := func(name string, fn WillCreateFunc) bool {
		if fn == nil {
			return false
		}
		next, err := fn(current)
		if err != nil {
			if err == ErrCancelled {
				e.logger.Info("window creation cancelled", "by", name)
				return true
			}
			e.logger.Warn("will-create hook error", "by", name, "error", err)
			return false
		}
		if next != nil {
			current = next
		}
		return false
	}

	for _, p := range e.plugins {
		if step(p.Name, p.OnWillCreate) {
			return nil, true
		}
	}
	if step("hooks", e.hooks.OnWillCreate) {
		return nil, true
	}

	return current, false
}

// RunDidCreate awaits each plugin's OnDidCreate then the hook's, in order.
// Errors are caught and logged; they never propagate and never block
// subsequent steps.
func (e *Executor) RunDidCreate(id string, cfg *WindowConfig) {
	for _, p := range e.plugins {
		if p.OnDidCreate == nil {
			continue
		}
		if err := p.OnDidCreate(id, cfg); err != nil {
			e.logger.Warn("did-create hook error", "by", p.Name, "error", err)
		}
	}
	if e.hooks.OnDidCreate != nil {
		if err := e.hooks.OnDidCreate(id, cfg); err != nil {
			e.logger.Warn("did-create hook error", "by", "hooks", "error", err)
		}
	}
}

// RunWillDestroy runs before registry/bus cleanup.
func (e *Executor) RunWillDestroy(id string) {
	for _, p := range e.plugins {
		if p.OnWillDestroy == nil {
			continue
		}
		if err := p.OnWillDestroy(id); err != nil {
			e.logger.Warn("will-destroy hook error", "by", p.Name, "error", err)
		}
	}
	if e.hooks.OnWillDestroy != nil {
		if err := e.hooks.OnWillDestroy(id); err != nil {
			e.logger.Warn("will-destroy hook error", "by", "hooks", "error", err)
		}
	}
}

// RunDidDestroy runs after registry/bus cleanup.
func (e *Executor) RunDidDestroy(id string) {
	for _, p := range e.plugins {
		if p.OnDidDestroy == nil {
			continue
		}
		if err := p.OnDidDestroy(id); err != nil {
			e.logger.Warn("did-destroy hook error", "by", p.Name, "error", err)
		}
	}
	if e.hooks.OnDidDestroy != nil {
		if err := e.hooks.OnDidDestroy(id); err != nil {
			e.logger.Warn("did-destroy hook error", "by", "hooks", "error", err)
		}
	}
}

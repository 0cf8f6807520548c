package windowreg

import (
	"context"
	"log/slog"
	"sync"
)

// ContextStore is the opaque per-window context-persistence collaborator:
// save/load/clear of caller-defined per-window data, independent of window
// geometry.
type ContextStore interface {
	Save(ctx context.Context, id string, data any) error
	Load(ctx context.Context, id string) (any, error)
	Clear(ctx context.Context, id string) error
}

// Store is the facade over Registry, Operator, and StateManager: the single
// entry point the rest of the kit uses to interact with windows. It enforces
// maxWindows and owns the focus stack.
type Store struct {
	Registry *Registry
	Operator *Operator
	State    *StateManager
	Context  ContextStore

	maxWindows int
	logger     *slog.Logger

	mu    sync.Mutex
	focus []string // most-recent-last, each id appears at most once

	scheduler func(func()) // used by CloseGroup to yield between destroys
}

// Option configures a Store.
type Option func(*Store)

// WithMaxWindows bounds the number of concurrently registered windows.
// Zero means unbounded.
func WithMaxWindows(n int) Option {
	return func(s *Store) { s.maxWindows = n }
}

// WithContextStore installs the per-window context-persistence collaborator.
func WithContextStore(cs ContextStore) Option {
	return func(s *Store) { s.Context = cs }
}

// WithScheduler installs the function CloseGroup uses to yield between
// destroys. Defaults to direct, synchronous invocation.
func WithScheduler(fn func(func())) Option {
	return func(s *Store) { s.scheduler = fn }
}

// NewStore constructs a Store composing a fresh Registry/Operator/StateManager.
func NewStore(keeper *StateKeeper, displays DisplayLister, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewRegistry(logger)
	operator := NewOperator(registry)
	groupsByName := func(name string) []string {
		return registry.WindowGroups(registry.GetIDByName(name))
	}
	state := NewStateManager(keeper, groupsByName, displays, logger)

	s := &Store{
		Registry:  registry,
		Operator:  operator,
		State:     state,
		logger:    logger.With("component", "window_store"),
		scheduler: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanCreate reports whether another window may be registered under
// maxWindows.
func (s *Store) CanCreate() bool {
	if s.maxWindows <= 0 {
		return true
	}
	return s.Registry.Count() < s.maxWindows
}

// Register registers id/name/w, enforcing maxWindows.
func (s *Store) Register(id, name string, w Window) error {
	if !s.CanCreate() {
		return NewRegistryError(id, "register", ErrMaxWindowsReached)
	}
	if err := s.Registry.Register(id, name, w); err != nil {
		return err
	}
	s.State.Manage(name, w)
	return nil
}

// Unregister tears down id, detaching state tracking and the focus stack
// entry along with the registry entry.
func (s *Store) Unregister(id string) {
	entry := s.Registry.GetByID(id)
	if entry != nil {
		s.State.Detach(entry.Name)
	}
	s.Registry.Unregister(id)
	s.removeFocus(id)
}

// PushFocus records id as the most recently focused window.
func (s *Store) PushFocus(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.focus {
		if existing == id {
			s.focus = append(s.focus[:i], s.focus[i+1:]...)
			break
		}
	}
	s.focus = append(s.focus, id)
}

func (s *Store) removeFocus(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.focus {
		if existing == id {
			s.focus = append(s.focus[:i], s.focus[i+1:]...)
			break
		}
	}
}

// FocusedWindow returns the top of the focus stack, or "" if empty.
func (s *Store) FocusedWindow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.focus) == 0 {
		return ""
	}
	return s.focus[len(s.focus)-1]
}

// PreviousFocusedWindow returns the second-from-top of the focus stack
// (the top being the currently active window), or "" if there are at most
// one entries.
func (s *Store) PreviousFocusedWindow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.focus) < 2 {
		return ""
	}
	return s.focus[len(s.focus)-2]
}

// ShowGroup, HideGroup, FocusGroup iterate GroupIDs(group) through Operator.
func (s *Store) ShowGroup(group string) {
	for _, id := range s.Registry.GroupIDs(group) {
		s.Operator.Show(id)
	}
}

func (s *Store) HideGroup(group string) {
	for _, id := range s.Registry.GroupIDs(group) {
		s.Operator.Hide(id)
	}
}

func (s *Store) FocusGroup(group string) {
	for _, id := range s.Registry.GroupIDs(group) {
		s.Operator.Focus(id)
	}
}

// CloseGroup schedules each destroy through the store's scheduler, so the
// host gets a UI tick between closes instead of tearing an entire group
// down in one synchronous burst.
func (s *Store) CloseGroup(group string) {
	for _, id := range s.Registry.GroupIDs(group) {
		id := id
		s.scheduler(func() { s.Operator.Destroy(id) })
	}
}

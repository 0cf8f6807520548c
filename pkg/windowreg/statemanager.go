package windowreg

import "log/slog"

// WindowEvent is one of the host lifecycle events StateManager listens for.
type WindowEvent int

const (
	EventResize WindowEvent = iota
	EventMove
	EventClose
	EventMaximize
	EventUnmaximize
	EventEnterFullScreen
	EventLeaveFullScreen
)

// GroupGetter reads the current groups for a window name, injected so
// StateManager does not need direct registry access.
type GroupGetter func(name string) []string

// DisplayLister returns the current display set, injected so StateManager
// does not depend on a concrete host runtime package.
type DisplayLister func() []Display

// StateManager binds registry entries to a StateKeeper: for each managed
// window it listens for resize/move/close/maximize/unmaximize/full-screen
// transitions and calls StateKeeper.SaveState with the resulting geometry.
type StateManager struct {
	keeper   *StateKeeper
	groups   GroupGetter
	displays DisplayLister
	logger   *slog.Logger

	managed map[string]func(WindowEvent) // name -> detach-aware listener
}

// NewStateManager constructs a StateManager.
func NewStateManager(keeper *StateKeeper, groups GroupGetter, displays DisplayLister, logger *slog.Logger) *StateManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateManager{
		keeper:   keeper,
		groups:   groups,
		displays: displays,
		logger:   logger.With("component", "window_state_manager"),
		managed:  make(map[string]func(WindowEvent)),
	}
}

// Manage attaches geometry-tracking listeners to w, known under name.
// Re-managing the same name first detaches the previous listener.
func (sm *StateManager) Manage(name string, w Window) {
	sm.Detach(name)

	sm.managed[name] = func(ev WindowEvent) {
		if ev == EventClose {
			sm.record(name, w)
			sm.Detach(name)
			return
		}
		sm.record(name, w)
	}
}

// Detach stops tracking name.
func (sm *StateManager) Detach(name string) {
	delete(sm.managed, name)
}

// Notify is called by the host lifecycle glue whenever one of the tracked
// events fires for name.
func (sm *StateManager) Notify(name string, ev WindowEvent) {
	if fn, ok := sm.managed[name]; ok {
		fn(ev)
	}
}

func (sm *StateManager) record(name string, w Window) {
	b := w.Bounds()
	x, y := b.X, b.Y

	state := State{
		X:            &x,
		Y:            &y,
		Width:        b.Width,
		Height:       b.Height,
		IsMaximized:  w.IsMaximized(),
		IsFullScreen: w.IsFullScreen(),
	}

	for _, d := range sm.displays() {
		if d.Matches(b) {
			state.DisplayID = d.ID
			break
		}
	}

	if sm.groups != nil {
		state.Groups = sm.groups(name)
	}

	sm.keeper.SaveState(name, state)
}

package windowreg

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FlushStrategy selects how StateKeeper schedules disk writes after a dirty
// save.
type FlushStrategy int

const (
	// FlushDebounce waits for a quiet period (default 500ms) of no further
	// saves before flushing. This is the default strategy.
	FlushDebounce FlushStrategy = iota
	// FlushThrottle flushes at most once per delay window regardless of how
	// many saves arrive, using golang.org/x/time/rate as the gate.
	FlushThrottle
)

// StateKeeperConfig configures persistence timing.
type StateKeeperConfig struct {
	Strategy FlushStrategy
	Delay    time.Duration
}

// DefaultStateKeeperConfig returns the spec's defaults: debounce, 500ms.
func DefaultStateKeeperConfig() StateKeeperConfig {
	return StateKeeperConfig{Strategy: FlushDebounce, Delay: 500 * time.Millisecond}
}

// StateKeeper provides atomic, dirty-checked JSON persistence of per-window
// geometry. It is the sole owner of the in-memory state map; StateStore only
// ever sees serialized bytes.
type StateKeeper struct {
	mu    sync.Mutex
	state map[string]State

	store  StateStore
	cfg    StateKeeperConfig
	logger *slog.Logger

	lastFlushHash [16]byte
	timer         *time.Timer
	pendingWrite  bool
	flushing      bool
	limiter       *rate.Limiter
}

// NewStateKeeper constructs a StateKeeper backed by store. Any previously
// persisted state is loaded immediately.
func NewStateKeeper(store StateStore, cfg StateKeeperConfig, logger *slog.Logger) *StateKeeper {
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	sk := &StateKeeper{
		state:  make(map[string]State),
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "state_keeper"),
	}
	if cfg.Strategy == FlushThrottle {
		sk.limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	if data, err := store.Load(context.Background()); err == nil && data != nil {
		var loaded map[string]State
		if err := json.Unmarshal(data, &loaded); err == nil {
			sk.state = loaded
		} else {
			sk.logger.Warn("discarding corrupt window-state file", "error", err)
		}
	}

	return sk
}

// SaveState records geometry for name. A no-op if the new state deep-equals
// the cached state. Otherwise it updates the in-memory map and schedules a
// flush per the configured strategy.
func (sk *StateKeeper) SaveState(name string, state State) {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	if existing, ok := sk.state[name]; ok && existing.equal(state) {
		return
	}

	sk.state[name] = state
	sk.scheduleFlushLocked()
}

// GetWindowState returns the persisted state for name, falling back to the
// given default width/height if none is recorded. defaultW/defaultH are
// returned as the Width/Height fields of the zero-value State.
func (sk *StateKeeper) GetWindowState(name string, defaultW, defaultH int) State {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	if s, ok := sk.state[name]; ok {
		return s
	}
	return State{Width: defaultW, Height: defaultH}
}

// RestoreGeometry validates a persisted state against the current display
// set: the state is kept if its rectangle intersects any current display, or
// if its DisplayID names a current display whose bounds equal the rectangle.
// The bounds of the display a window was saved on are not recorded, so
// validity is judged from the window rectangle alone. Otherwise the default
// geometry (width/height only, maximize/fullscreen cleared) is returned. It
// does not mutate the stored state.
func RestoreGeometry(s State, displays []Display, defaultW, defaultH int) State {
	if s.Width == 0 && s.Height == 0 {
		return State{Width: defaultW, Height: defaultH}
	}

	bounds := Bounds{Width: s.Width, Height: s.Height}
	if s.X != nil {
		bounds.X = *s.X
	}
	if s.Y != nil {
		bounds.Y = *s.Y
	}

	valid := false
	for _, d := range displays {
		if s.DisplayID != "" && d.ID == s.DisplayID && d.Matches(bounds) {
			valid = true
			break
		}
		if d.Intersects(bounds) {
			valid = true
			break
		}
	}

	if !valid {
		return State{Width: defaultW, Height: defaultH}
	}
	return s
}

// scheduleFlushLocked must be called with sk.mu held.
func (sk *StateKeeper) scheduleFlushLocked() {
	switch sk.cfg.Strategy {
	case FlushThrottle:
		if sk.limiter.Allow() {
			go sk.flush()
		} else {
			sk.pendingWrite = true
		}
	default: // FlushDebounce
		if sk.timer != nil {
			sk.timer.Stop()
		}
		sk.timer = time.AfterFunc(sk.cfg.Delay, sk.flush)
	}
}

// flush serializes the entire map, skips the disk write if its hash matches
// the last flushed hash, and otherwise writes through the store. Re-entrant
// flush requests set pendingWrite, which the in-flight flush consumes before
// returning so no dirty write is ever dropped.
func (sk *StateKeeper) flush() {
	sk.mu.Lock()
	if sk.flushing {
		sk.pendingWrite = true
		sk.mu.Unlock()
		return
	}
	sk.flushing = true
	snapshot := make(map[string]State, len(sk.state))
	for k, v := range sk.state {
		snapshot[k] = v
	}
	sk.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		sk.logger.Error("failed to serialize window state", "error", err)
		sk.mu.Lock()
		sk.flushing = false
		sk.mu.Unlock()
		return
	}

	hash := md5.Sum(data)
	sk.mu.Lock()
	unchanged := hash == sk.lastFlushHash
	sk.mu.Unlock()

	if !unchanged {
		if err := sk.store.Save(context.Background(), data); err != nil {
			sk.logger.Error("failed to flush window state", "error", err)
		} else {
			sk.mu.Lock()
			sk.lastFlushHash = hash
			sk.mu.Unlock()
		}
	}

	sk.mu.Lock()
	sk.flushing = false
	again := sk.pendingWrite
	sk.pendingWrite = false
	sk.mu.Unlock()

	if again {
		go sk.flush()
	}
}

// FlushSync performs a synchronous flush bypassing debounce/throttle,
// intended for the host's "before-quit" shutdown hook.
func (sk *StateKeeper) FlushSync() {
	if sk.timer != nil {
		sk.timer.Stop()
	}
	sk.flush()
}


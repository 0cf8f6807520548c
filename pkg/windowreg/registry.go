package windowreg

import (
	"log/slog"
	"sync"
	"time"
)

// cleanupChunkSize bounds how many entries the ghost sweeper inspects per
// scheduler tick, so a large registry never starves the loop in one pass.
const cleanupChunkSize = 50

// Registry is the sole mutator of window identity state: the bidirectional
// id<->name<->window map and the group index. Every other component reaches
// window state only through it.
//
// Not safe to share across processes; it assumes single-threaded cooperative
// scheduling the way the rest of the kit does, but its internal map access is
// still mutex-guarded so handler callbacks invoked from other goroutines
// cannot corrupt it.
type Registry struct {
	mu sync.RWMutex

	byID    map[string]*Entry
	byName  map[string]string // name -> id
	byHost  map[int64]string  // host window id -> id
	groups  map[string]map[string]struct{}
	rgroups map[string]map[string]struct{} // id -> groups

	logger *slog.Logger

	cleanupMu     sync.Mutex
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	done          chan struct{}
	sweepCursor   []string
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byID:    make(map[string]*Entry),
		byName:  make(map[string]string),
		byHost:  make(map[int64]string),
		groups:  make(map[string]map[string]struct{}),
		rgroups: make(map[string]map[string]struct{}),
		logger:  logger.With("component", "window_registry"),
	}
}

// Register records a new entry. Returns ErrNameTaken if name collides with a
// live entry; callers that want rename-with-suffix semantics must compute the
// final name themselves before calling Register.
func (r *Registry) Register(id, name string, w Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return NewRegistryError(id, "register", ErrNameTaken)
	}

	r.byID[id] = &Entry{
		ID:           id,
		Name:         name,
		Window:       w,
		Groups:       make(map[string]struct{}),
		CreationTime: time.Now(),
	}
	r.byName[name] = id
	r.byHost[w.ID()] = id

	r.logger.Info("window registered", "id", id, "name", name)
	return nil
}

// Unregister removes an entry and sweeps it out of every group index.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregisterLocked(id)
}

func (r *Registry) unregisterLocked(id string) {
	entry, ok := r.byID[id]
	if !ok {
		return
	}

	delete(r.byID, id)
	delete(r.byName, entry.Name)
	delete(r.byHost, entry.Window.ID())

	for g := range r.rgroups[id] {
		if set := r.groups[g]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(r.groups, g)
			}
		}
	}
	delete(r.rgroups, id)

	r.logger.Info("window unregistered", "id", id, "name", entry.Name)
}

// GetByID returns the entry for id, or nil.
func (r *Registry) GetByID(id string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// GetByName returns the entry registered under name, or nil.
func (r *Registry) GetByName(name string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return nil
	}
	return r.byID[id]
}

// GetIDByName returns the id registered under name, or "".
func (r *Registry) GetIDByName(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// GetIDByWindow resolves a host window id back to a registry id, or "".
func (r *Registry) GetIDByWindow(hostID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byHost[hostID]
}

// AddToGroup adds id to group, updating both the forward and reverse index.
func (r *Registry) AddToGroup(id, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return
	}
	if r.groups[group] == nil {
		r.groups[group] = make(map[string]struct{})
	}
	r.groups[group][id] = struct{}{}

	if r.rgroups[id] == nil {
		r.rgroups[id] = make(map[string]struct{})
	}
	r.rgroups[id][group] = struct{}{}
}

// RemoveFromGroup removes id from group in both indices.
func (r *Registry) RemoveFromGroup(id, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set := r.groups[group]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(r.groups, group)
		}
	}
	if set := r.rgroups[id]; set != nil {
		delete(set, group)
		if len(set) == 0 {
			delete(r.rgroups, id)
		}
	}
}

// GroupIDs returns the ids currently in group.
func (r *Registry) GroupIDs(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.groups[group]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// WindowGroups returns the groups id belongs to.
func (r *Registry) WindowGroups(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.rgroups[id]
	names := make([]string, 0, len(set))
	for g := range set {
		names = append(names, g)
	}
	return names
}

// AllIDs returns every currently registered id.
func (r *Registry) AllIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of registered entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// StartCleanup begins the periodic ghost sweeper. Entries whose host window
// reports Destroyed() are unregistered. For registries holding more than
// cleanupChunkSize entries, each tick only inspects one chunk so the
// scheduler is never starved by a single large sweep.
func (r *Registry) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	r.cleanupMu.Lock()
	if r.cleanupTicker != nil {
		r.cleanupMu.Unlock()
		return
	}
	r.cleanupTicker = time.NewTicker(interval)
	r.done = make(chan struct{})
	r.cleanupDone = make(chan struct{})
	ticker := r.cleanupTicker
	done := r.done
	cleanupDone := r.cleanupDone
	r.cleanupMu.Unlock()

	go func() {
		defer close(cleanupDone)
		for {
			select {
			case <-ticker.C:
				r.sweepChunk()
			case <-done:
				return
			}
		}
	}()
}

// StopCleanup halts the sweeper, waiting for its goroutine to exit.
func (r *Registry) StopCleanup() {
	r.cleanupMu.Lock()
	if r.cleanupTicker == nil {
		r.cleanupMu.Unlock()
		return
	}
	r.cleanupTicker.Stop()
	r.cleanupTicker = nil
	done := r.done
	cleanupDone := r.cleanupDone
	r.cleanupMu.Unlock()

	close(done)
	<-cleanupDone
}

// sweepChunk scans up to cleanupChunkSize ids per call. When the registry
// holds fewer than cleanupChunkSize entries this degenerates to a full sweep
// every tick, matching the spec's "default 30s" behavior for small window
// counts.
func (r *Registry) sweepChunk() {
	r.mu.Lock()
	if len(r.sweepCursor) == 0 {
		for id := range r.byID {
			r.sweepCursor = append(r.sweepCursor, id)
		}
	}

	chunk := r.sweepCursor
	if len(chunk) > cleanupChunkSize {
		chunk = chunk[:cleanupChunkSize]
	}
	r.sweepCursor = r.sweepCursor[len(chunk):]

	var ghosts []string
	for _, id := range chunk {
		entry, ok := r.byID[id]
		if !ok {
			continue
		}
		if entry.Window.Destroyed() {
			ghosts = append(ghosts, id)
		}
	}
	for _, id := range ghosts {
		r.unregisterLocked(id)
	}
	r.mu.Unlock()

	if len(ghosts) > 0 {
		r.logger.Info("ghost sweep removed windows", "count", len(ghosts))
	}
}

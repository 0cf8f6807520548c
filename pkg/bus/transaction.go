package bus

import (
	"log/slog"
	"sync"
)

// deleted is a sentinel stored in a transaction buffer to record a buffered
// delete, distinguishing "not yet touched" from "deleted, not yet committed".
type deletedMarker struct{}

var deleted = deletedMarker{}

type txFrame struct {
	buffer map[string]any  // key -> value, or `deleted`
	order  []string        // insertion order, for commit replay
}

// TransactionManager buffers writes per window until Commit or Rollback,
// giving callers read-your-writes semantics via GetBufferedValue.
type TransactionManager struct {
	mu     sync.Mutex
	active map[string]*txFrame // windowID -> frame
	logger *slog.Logger
}

// NewTransactionManager constructs an empty manager.
func NewTransactionManager(logger *slog.Logger) *TransactionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionManager{
		active: make(map[string]*txFrame),
		logger: logger.With("component", "bus_transactions"),
	}
}

// Start opens a transaction for windowID. Starting over an already-active
// transaction logs a warning and discards the prior buffer.
func (t *TransactionManager) Start(windowID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.active[windowID]; exists {
		t.logger.Warn("transaction restarted while one was already active", "window", windowID)
	}
	t.active[windowID] = &txFrame{buffer: make(map[string]any)}
}

// Active reports whether windowID has an open transaction.
func (t *TransactionManager) Active(windowID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[windowID]
	return ok
}

// AddSet buffers a set op. Returns false (caller should fall through to the
// non-transactional path) if windowID has no active transaction.
func (t *TransactionManager) AddSet(windowID, key string, value any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.active[windowID]
	if !ok {
		return false
	}
	if _, seen := f.buffer[key]; !seen {
		f.order = append(f.order, key)
	}
	f.buffer[key] = value
	return true
}

// AddDelete buffers a delete op. Returns false if windowID has no active
// transaction.
func (t *TransactionManager) AddDelete(windowID, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.active[windowID]
	if !ok {
		return false
	}
	if _, seen := f.buffer[key]; !seen {
		f.order = append(f.order, key)
	}
	f.buffer[key] = deleted
	return true
}

// GetBufferedValue implements read-your-writes: has is true if key was
// touched by the active transaction, in which case value is either the
// buffered value or nil (deleted, reported as "has=true, value=nil" per the
// buffered-delete contract).
func (t *TransactionManager) GetBufferedValue(windowID, key string) (value any, has bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.active[windowID]
	if !ok {
		return nil, false
	}
	v, touched := f.buffer[key]
	if !touched {
		return nil, false
	}
	if _, isDelete := v.(deletedMarker); isDelete {
		return nil, true
	}
	return v, true
}

// Commit closes the transaction and returns its buffered operations in
// insertion order for replay against the live store.
func (t *TransactionManager) Commit(windowID string) []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.active[windowID]
	if !ok {
		return nil
	}
	delete(t.active, windowID)

	ops := make([]Operation, 0, len(f.order))
	for _, k := range f.order {
		v := f.buffer[k]
		if _, isDelete := v.(deletedMarker); isDelete {
			ops = append(ops, Operation{Kind: "delete", Key: k})
		} else {
			ops = append(ops, Operation{Kind: "set", Key: k, Value: v})
		}
	}
	return ops
}

// Rollback discards windowID's buffered transaction without applying it.
func (t *TransactionManager) Rollback(windowID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, windowID)
}

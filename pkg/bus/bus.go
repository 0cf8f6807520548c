package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskkit/deskkit/pkg/windowreg"
)

// DefaultGetTimeout is how long a cross-window GET waits for a
// GET_RESPONSE before failing with ErrGetTimeout — resolves the spec's open
// question of whether this timeout is hardcoded or configurable by
// exposing it on Config with this default.
const DefaultGetTimeout = 5 * time.Second

// Config configures a MessageBus.
type Config struct {
	GetTimeout time.Duration
	Logger     *slog.Logger

	// GroupResolver resolves a SEND_TO_GROUP message's GroupID to the window
	// ids currently in that group. Typically windowreg.Registry.GroupIDs.
	// SEND_TO_GROUP messages are logged and dropped if this is nil.
	GroupResolver func(groupID string) []string
}

// watcher is an in-process subscription registered via MessageBus.Watch.
type watcher struct {
	id       int
	key      string
	windowID string // "" for a non-window-scoped watch
	cb       func(key string, value any)
}

// MessageBus composes the data store, subscription index, transaction
// buffers, and transport into the single external surface windows and the
// host use to share state.
type MessageBus struct {
	data      *DataStoreManager
	subs      *SubscriptionManager
	tx        *TransactionManager
	transport Transport

	mu            sync.Mutex
	windows       map[string]windowreg.Window
	watchers      map[int]*watcher
	watchersByKey map[string][]int
	nextWatcherID int
	pending       map[string]chan Message

	getTimeout    time.Duration
	groupResolver func(groupID string) []string
	logger        *slog.Logger
}

// New constructs a MessageBus and installs its inbound dispatcher as
// transport's onMessage callback. If transport.Init fails (the host runtime
// does not support the preferred strategy), it falls back to a
// ChannelTransport.
func New(transport Transport, cfg Config) *MessageBus {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GetTimeout <= 0 {
		cfg.GetTimeout = DefaultGetTimeout
	}
	logger := cfg.Logger.With("component", "message_bus")
	b := &MessageBus{
		data:          NewDataStoreManager(),
		subs:          NewSubscriptionManager(logger),
		tx:            NewTransactionManager(logger),
		windows:       make(map[string]windowreg.Window),
		watchers:      make(map[int]*watcher),
		watchersByKey: make(map[string][]int),
		pending:       make(map[string]chan Message),
		getTimeout:    cfg.GetTimeout,
		groupResolver: cfg.GroupResolver,
		logger:        logger,
	}

	if err := transport.Init(b.dispatch); err != nil {
		logger.Warn("transport init failed, falling back to channel transport", "error", err)
		transport = NewChannelTransport(logger)
		_ = transport.Init(b.dispatch)
	}
	b.transport = transport
	return b
}

// RegisterWindow wires a newly created window into the bus's transport.
func (b *MessageBus) RegisterWindow(id string, w windowreg.Window) error {
	b.mu.Lock()
	b.windows[id] = w
	b.mu.Unlock()
	return b.transport.RegisterWindow(id, w)
}

// UnregisterWindow tears down a destroyed window's bus state: any active
// transaction is rolled back, every key subscription is removed, and every
// Watch bound to the window is cancelled.
func (b *MessageBus) UnregisterWindow(id string) {
	b.mu.Lock()
	delete(b.windows, id)
	for wid, w := range b.watchers {
		if id == "" || w.windowID != id {
			continue
		}
		delete(b.watchers, wid)
		ids := b.watchersByKey[w.key]
		for i, x := range ids {
			if x == wid {
				b.watchersByKey[w.key] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	b.mu.Unlock()

	b.tx.Rollback(id)
	b.subs.RemoveWindow(id)
	b.transport.UnregisterWindow(id)
}

// GetData reads key with read-your-writes semantics: a value buffered by
// windowID's active transaction is returned before falling through to the
// committed store.
func (b *MessageBus) GetData(key, windowID string) (any, bool) {
	if windowID != "" {
		if v, has := b.tx.GetBufferedValue(windowID, key); has {
			return v, true
		}
	}
	return b.data.Get(key)
}

// GetAllData returns the full committed store (transaction buffers are not
// merged in, matching per-window isolation of uncommitted writes).
func (b *MessageBus) GetAllData() map[string]any {
	return b.data.GetAll()
}

// SetData checks windowID's permission to modify key first (a denied write
// is rejected before it ever reaches the transaction buffer); if allowed and
// windowID has an active transaction, the write is buffered and no
// broadcast happens until Commit.
func (b *MessageBus) SetData(key string, value any, windowID string) error {
	if err := b.data.CheckPermission(key, windowID, "modify"); err != nil {
		return err
	}
	if b.tx.AddSet(windowID, key, value) {
		return nil
	}
	old, _ := b.data.Get(key)
	if err := b.data.Set(key, value, windowID); err != nil {
		return err
	}
	b.notify(key, value)
	b.broadcast(Message{Type: MsgSet, Key: key, Value: value, OldValue: old, WindowID: windowID, Timestamp: nowMillis()}, windowID)
	return nil
}

// DeleteData is symmetric with SetData: permission is checked before
// transaction buffering.
func (b *MessageBus) DeleteData(key, windowID string) error {
	if err := b.data.CheckPermission(key, windowID, "delete"); err != nil {
		return err
	}
	if b.tx.AddDelete(windowID, key) {
		return nil
	}
	old, _ := b.data.Get(key)
	if err := b.data.Delete(key, windowID); err != nil {
		return err
	}
	b.notify(key, nil)
	b.broadcast(Message{Type: MsgDelete, Key: key, OldValue: old, WindowID: windowID, Timestamp: nowMillis()}, windowID)
	return nil
}

// UpdateData reads key's current value — consulting windowID's transaction
// buffer first so a pending write is visible to updater (read-your-writes)
// — applies updater, and writes the result back via SetData.
func (b *MessageBus) UpdateData(key string, updater func(old any) any, windowID string) error {
	old, _ := b.GetData(key, windowID)
	return b.SetData(key, updater(old), windowID)
}

// SetPermission restricts future writes to key.
func (b *MessageBus) SetPermission(key string, kind Permission, allowedWindows []string) {
	b.data.SetPermission(key, kind, allowedWindows)
}

// Subscribe registers windowID as a watcher of key over the transport.
func (b *MessageBus) Subscribe(key, windowID string) {
	b.subs.Subscribe(key, windowID)
}

// Unsubscribe removes windowID as a watcher of key.
func (b *MessageBus) Unsubscribe(key, windowID string) {
	b.subs.Unsubscribe(key, windowID)
}

// StartTransaction opens a write-buffering transaction for windowID.
func (b *MessageBus) StartTransaction(windowID string) {
	b.tx.Start(windowID)
}

// Commit applies windowID's buffered operations to the live store, in
// insertion order, producing exactly one broadcast per operation — matching
// the non-transactional path's per-write notification contract.
func (b *MessageBus) Commit(windowID string) error {
	ops := b.tx.Commit(windowID)
	for _, op := range ops {
		old, _ := b.data.Get(op.Key)
		switch op.Kind {
		case "set":
			if err := b.data.Set(op.Key, op.Value, windowID); err != nil {
				b.logger.Warn("transaction commit: set denied", "window", windowID, "key", op.Key, "error", err)
				continue
			}
			b.notify(op.Key, op.Value)
			b.broadcast(Message{Type: MsgSet, Key: op.Key, Value: op.Value, OldValue: old, WindowID: windowID, Timestamp: nowMillis()}, windowID)
		case "delete":
			if err := b.data.Delete(op.Key, windowID); err != nil {
				b.logger.Warn("transaction commit: delete denied", "window", windowID, "key", op.Key, "error", err)
				continue
			}
			b.notify(op.Key, nil)
			b.broadcast(Message{Type: MsgDelete, Key: op.Key, OldValue: old, WindowID: windowID, Timestamp: nowMillis()}, windowID)
		}
	}
	return nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// Rollback discards windowID's buffered transaction.
func (b *MessageBus) Rollback(windowID string) {
	b.tx.Rollback(windowID)
}

// SendToWindow delivers msg to a single window via the transport.
func (b *MessageBus) SendToWindow(id string, msg Message) error {
	return b.transport.Send(id, msg)
}

// SendToGroup delivers msg to every window in ids via the transport,
// returning the number that succeeded.
func (b *MessageBus) SendToGroup(ids []string, msg Message) int {
	return b.transport.Broadcast(msg, ids)
}

// broadcast routes an update: if key has subscribers, only they receive it;
// otherwise every registered window does. excludeID is never skipped —
// updates are also echoed back to the writer so its own Watch callbacks
// fire consistently with everyone else's.
func (b *MessageBus) broadcast(msg Message, excludeID string) {
	targets := b.subs.SubscribersOf(msg.Key)
	if len(targets) == 0 {
		b.mu.Lock()
		targets = make([]string, 0, len(b.windows))
		for id := range b.windows {
			targets = append(targets, id)
		}
		b.mu.Unlock()
	}
	sent := b.transport.Broadcast(msg, targets)
	if sent < len(targets) {
		b.logger.Debug("broadcast delivered partially", "key", msg.Key, "sent", sent, "targets", len(targets))
	}
}

// Watch registers an in-process subscription (used by the host/toolkit
// rather than a window) that fires cb whenever key changes. If windowID is
// non-empty the watch is automatically removed when that window is
// unregistered.
func (b *MessageBus) Watch(key string, cb func(key string, value any), windowID string) (cancel func()) {
	b.mu.Lock()
	id := b.nextWatcherID
	b.nextWatcherID++
	w := &watcher{id: id, key: key, windowID: windowID, cb: cb}
	b.watchers[id] = w
	b.watchersByKey[key] = append(b.watchersByKey[key], id)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers, id)
		ids := b.watchersByKey[key]
		for i, wid := range ids {
			if wid == id {
				b.watchersByKey[key] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

func (b *MessageBus) notify(key string, value any) {
	b.mu.Lock()
	ids := append([]int{}, b.watchersByKey[key]...)
	callbacks := make([]func(string, any), 0, len(ids))
	for _, id := range ids {
		if w, ok := b.watchers[id]; ok {
			callbacks = append(callbacks, w.cb)
		}
	}
	b.mu.Unlock()

	for _, cb := range callbacks {
		cb(key, value)
	}
}

// AwaitGet performs a correlated GET over the transport, sending a GET to
// windowID and waiting up to GetTimeout for its GET_RESPONSE. Unlike
// GetData (a synchronous read of the bus's own authoritative store), this
// asks windowID directly — useful for the host to query state a window
// only holds locally. The request id is generated here and echoed back by
// the window's GET_RESPONSE so concurrent AwaitGet calls never cross wires.
func (b *MessageBus) AwaitGet(ctx context.Context, windowID, key string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, b.getTimeout)
	defer cancel()

	reqID := uuid.New().String()
	reply := make(chan Message, 1)
	b.mu.Lock()
	b.pending[reqID] = reply
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, reqID)
		b.mu.Unlock()
	}()

	if err := b.transport.Send(windowID, Message{Type: MsgGet, Key: key, RequestID: reqID}); err != nil {
		return nil, err
	}

	select {
	case msg := <-reply:
		if msg.Error != "" {
			return nil, errors.New(msg.Error)
		}
		return msg.Value, nil
	case <-ctx.Done():
		return nil, ErrGetTimeout
	}
}

// Dispose tears down the bus's transport.
func (b *MessageBus) Dispose() {
	b.transport.Dispose()
}

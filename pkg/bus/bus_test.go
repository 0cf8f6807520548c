package bus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskkit/deskkit/pkg/windowreg"
)

type fakeWindow struct {
	id   string
	mu   sync.Mutex
	sent []any
}

func (w *fakeWindow) sentMessages() []any {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]any, len(w.sent))
	copy(out, w.sent)
	return out
}

func (w *fakeWindow) ID() int64                  { return 0 }
func (w *fakeWindow) Destroyed() bool            { return false }
func (w *fakeWindow) Show()                      {}
func (w *fakeWindow) Hide()                      {}
func (w *fakeWindow) Minimize()                  {}
func (w *fakeWindow) Restore()                   {}
func (w *fakeWindow) Maximize()                  {}
func (w *fakeWindow) Unmaximize()                {}
func (w *fakeWindow) IsMaximized() bool          { return false }
func (w *fakeWindow) SetFullScreen(bool)         {}
func (w *fakeWindow) IsFullScreen() bool         { return false }
func (w *fakeWindow) Focus()                     {}
func (w *fakeWindow) Close()                     {}
func (w *fakeWindow) Destroy()                   {}
func (w *fakeWindow) SetSkipTaskbar(bool)        {}
func (w *fakeWindow) Send(channel string, data any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, data)
}
func (w *fakeWindow) OpenDevTools()               {}
func (w *fakeWindow) CloseDevTools()              {}
func (w *fakeWindow) IsDevToolsOpened() bool      { return false }
func (w *fakeWindow) Bounds() windowreg.Bounds    { return windowreg.Bounds{} }
func (w *fakeWindow) SetBounds(windowreg.Bounds)  {}

func newTestBus(t *testing.T) (*MessageBus, map[string]*fakeWindow) {
	t.Helper()
	transport := NewPortTransport(nil)
	b := New(transport, Config{})

	windows := map[string]*fakeWindow{"w1": {id: "w1"}, "w2": {id: "w2"}, "w3": {id: "w3"}}
	for id, w := range windows {
		require.NoError(t, b.RegisterWindow(id, w))
	}
	return b, windows
}

// TestPermissionEnforcement covers the spec's concrete permission scenario:
// a readonly key always denies writes, and an allowedWindows key denies
// every window outside the configured set.
func TestPermissionEnforcement(t *testing.T) {
	b, _ := newTestBus(t)

	b.SetPermission("locked", PermissionReadOnly, nil)
	err := b.SetData("locked", "nope", "w1")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	b.SetPermission("restricted", PermissionAllowed, []string{"w1"})
	assert.NoError(t, b.SetData("restricted", "ok", "w1"))
	err = b.SetData("restricted", "nope", "w2")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, b.SetData("open", "anyone", "w3"))
}

// TestTransactionalAtomicity covers the spec's concrete transaction
// scenario: w1/w2/w3 subscribe to "a" and "b"; w1 runs
// START; SET a=1; SET b=2; COMMIT, and w2/w3 each receive exactly one
// message for "a" then one for "b", in that order.
func TestTransactionalAtomicity(t *testing.T) {
	b, windows := newTestBus(t)
	b.Subscribe("a", "w1")
	b.Subscribe("a", "w2")
	b.Subscribe("a", "w3")
	b.Subscribe("b", "w1")
	b.Subscribe("b", "w2")
	b.Subscribe("b", "w3")

	b.StartTransaction("w1")
	require.NoError(t, b.SetData("a", 1, "w1"))
	require.NoError(t, b.SetData("b", 2, "w1"))

	// Nothing has been applied or broadcast yet — buffered.
	assert.Empty(t, windows["w2"].sent)
	v, has := b.GetData("a", "w1")
	assert.True(t, has)
	assert.Equal(t, 1, v)
	_, hasUncommitted := b.GetData("a", "w2")
	assert.False(t, hasUncommitted)

	require.NoError(t, b.Commit("w1"))

	require.Len(t, windows["w2"].sent, 2)
	first := windows["w2"].sent[0].(Message)
	second := windows["w2"].sent[1].(Message)
	assert.Equal(t, "a", first.Key)
	assert.Equal(t, "b", second.Key)

	require.Len(t, windows["w3"].sent, 2)

	av, _ := b.GetData("a", "")
	assert.Equal(t, 1, av)
}

func TestRollbackDiscardsBufferedWrites(t *testing.T) {
	b, _ := newTestBus(t)
	b.StartTransaction("w1")
	require.NoError(t, b.SetData("k", "v", "w1"))
	b.Rollback("w1")

	_, has := b.GetData("k", "")
	assert.False(t, has)
}

func TestUnregisterWindowRollsBackAndRemovesSubscriptions(t *testing.T) {
	b, _ := newTestBus(t)
	b.Subscribe("k", "w1")
	b.StartTransaction("w1")
	require.NoError(t, b.SetData("k", "v", "w1"))

	b.UnregisterWindow("w1")

	assert.False(t, b.subs.HasSubscribers("k"))
	// The rolled-back transaction must not apply on a later, unrelated commit.
	require.NoError(t, b.Commit("w1"))
	_, has := b.GetData("k", "")
	assert.False(t, has)
}

func TestWatchFiresOnUpdateAndCancels(t *testing.T) {
	b, _ := newTestBus(t)
	var got any
	cancel := b.Watch("k", func(key string, value any) { got = value }, "")

	require.NoError(t, b.SetData("k", "hello", "w1"))
	assert.Equal(t, "hello", got)

	cancel()
	require.NoError(t, b.SetData("k", "world", "w1"))
	assert.Equal(t, "hello", got) // unchanged after cancel
}

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskkit/deskkit/pkg/windowreg"
)

type fakeWindow struct {
	id        int64
	destroyed bool
	bounds    windowreg.Bounds
	maximized bool
	fullScrn  bool
	sent      map[string]any
}

func newFakeWindow(id int64) *fakeWindow {
	return &fakeWindow{id: id, sent: make(map[string]any)}
}

func (w *fakeWindow) ID() int64                 { return w.id }
func (w *fakeWindow) Destroyed() bool           { return w.destroyed }
func (w *fakeWindow) Show()                     {}
func (w *fakeWindow) Hide()                     {}
func (w *fakeWindow) Minimize()                 {}
func (w *fakeWindow) Restore()                  {}
func (w *fakeWindow) Maximize()                 { w.maximized = true }
func (w *fakeWindow) Unmaximize()               { w.maximized = false }
func (w *fakeWindow) IsMaximized() bool         { return w.maximized }
func (w *fakeWindow) SetFullScreen(v bool)      { w.fullScrn = v }
func (w *fakeWindow) IsFullScreen() bool        { return w.fullScrn }
func (w *fakeWindow) Focus()                    {}
func (w *fakeWindow) Close()                    { w.destroyed = true }
func (w *fakeWindow) Destroy()                  { w.destroyed = true }
func (w *fakeWindow) SetSkipTaskbar(bool)       {}
func (w *fakeWindow) Send(channel string, data any) { w.sent[channel] = data }
func (w *fakeWindow) OpenDevTools()             {}
func (w *fakeWindow) CloseDevTools()            {}
func (w *fakeWindow) IsDevToolsOpened() bool    { return false }
func (w *fakeWindow) Bounds() windowreg.Bounds  { return w.bounds }
func (w *fakeWindow) SetBounds(b windowreg.Bounds) { w.bounds = b }

func newTestLifecycle(t *testing.T) (*Lifecycle, *windowreg.Store) {
	t.Helper()
	store := windowreg.NewStore(nil, func() []windowreg.Display { return nil }, nil)
	var nextHostID int64
	factory := func(cfg *WindowConfig) (windowreg.Window, error) {
		nextHostID++
		return newFakeWindow(nextHostID), nil
	}
	return New(store, nil, nil, factory, nil), store
}

func TestCreateIsIdempotentByName(t *testing.T) {
	lc, _ := newTestLifecycle(t)

	id1, err := lc.Create(&WindowConfig{Name: "main", Width: 800, Height: 600})
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := lc.Create(&WindowConfig{Name: "main", Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestCreateCancelledByPlugin(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	require.NoError(t, lc.Use(Plugin{
		Name: "blocker",
		OnWillCreate: func(cfg *WindowConfig) (*WindowConfig, error) {
			return nil, ErrCancelled
		},
	}))

	id, err := lc.Create(&WindowConfig{Name: "main", Width: 800, Height: 600})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestDestroyRunsHooksInOrder(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	var order []string
	lc.OnWillBeDestroyed(func(id string) { order = append(order, "will") })
	lc.OnDestroyed(func(id string) { order = append(order, "did") })

	id, err := lc.Create(&WindowConfig{Name: "main", Width: 800, Height: 600})
	require.NoError(t, err)

	require.NoError(t, lc.Destroy(id))
	assert.Equal(t, []string{"will", "did"}, order)
}

func TestNotifyCrashReloadsAfterDelay(t *testing.T) {
	lc, _ := newTestLifecycle(t)
	id, err := lc.Create(&WindowConfig{Name: "main", Width: 800, Height: 600})
	require.NoError(t, err)

	reloaded := make(chan string, 1)
	lc.SetReloadFunc(func(id string) { reloaded <- id })

	lc.NotifyCrash(CrashInfo{ID: id, Reason: "crashed"})

	select {
	case got := <-reloaded:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("expected reload after crash")
	}
}

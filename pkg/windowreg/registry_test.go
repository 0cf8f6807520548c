package windowreg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	id        int64
	destroyed bool
	bounds    Bounds
	maximized bool
	fullScrn  bool
	skipTB    bool
}

func (w *fakeWindow) ID() int64         { return w.id }
func (w *fakeWindow) Destroyed() bool   { return w.destroyed }
func (w *fakeWindow) Show()             {}
func (w *fakeWindow) Hide()             {}
func (w *fakeWindow) Minimize()         {}
func (w *fakeWindow) Restore()          {}
func (w *fakeWindow) Maximize()         { w.maximized = true }
func (w *fakeWindow) Unmaximize()       { w.maximized = false }
func (w *fakeWindow) IsMaximized() bool { return w.maximized }
func (w *fakeWindow) SetFullScreen(v bool) { w.fullScrn = v }
func (w *fakeWindow) IsFullScreen() bool   { return w.fullScrn }
func (w *fakeWindow) Focus()               {}
func (w *fakeWindow) Close()               {}
func (w *fakeWindow) Destroy()             { w.destroyed = true }
func (w *fakeWindow) SetSkipTaskbar(v bool) { w.skipTB = v }
func (w *fakeWindow) Send(string, any)      {}
func (w *fakeWindow) OpenDevTools()         {}
func (w *fakeWindow) CloseDevTools()        {}
func (w *fakeWindow) IsDevToolsOpened() bool { return false }
func (w *fakeWindow) Bounds() Bounds         { return w.bounds }
func (w *fakeWindow) SetBounds(b Bounds)     { w.bounds = b }

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry(nil)
	w := &fakeWindow{id: 1}

	require.NoError(t, r.Register("id1", "main", w))

	assert.Equal(t, "id1", r.GetIDByName("main"))
	assert.Equal(t, w, r.GetByID("id1").Window)
	assert.Equal(t, "id1", r.GetIDByWindow(1))
}

func TestRegistryNameCollision(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("id1", "main", &fakeWindow{id: 1}))

	err := r.Register("id2", "main", &fakeWindow{id: 2})
	require.ErrorIs(t, err, ErrNameTaken)
}

func TestRegistryUnregisterClearsEverything(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("id1", "main", &fakeWindow{id: 1}))
	r.AddToGroup("id1", "grp")

	r.Unregister("id1")

	assert.Nil(t, r.GetByID("id1"))
	assert.Equal(t, "", r.GetIDByName("main"))
	assert.Empty(t, r.GroupIDs("grp"))
	assert.Empty(t, r.WindowGroups("id1"))
}

func TestRegistryGroupIndexSymmetric(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register("id1", "main", &fakeWindow{id: 1}))

	r.AddToGroup("id1", "grp")
	assert.Contains(t, r.GroupIDs("grp"), "id1")
	assert.Contains(t, r.WindowGroups("id1"), "grp")

	r.RemoveFromGroup("id1", "grp")
	assert.Empty(t, r.GroupIDs("grp"))
	assert.Empty(t, r.WindowGroups("id1"))
}

func TestRegistryGhostSweep(t *testing.T) {
	r := NewRegistry(nil)
	w := &fakeWindow{id: 1}
	require.NoError(t, r.Register("id1", "main", w))

	w.destroyed = true
	r.StartCleanup(10 * time.Millisecond)
	defer r.StopCleanup()

	require.Eventually(t, func() bool {
		return r.GetByID("id1") == nil
	}, time.Second, 5*time.Millisecond)
}

package windowreg

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateKeeperSaveAndFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window-state.json")
	store := NewLocalStore(path)
	defer store.Close()

	cfg := StateKeeperConfig{Strategy: FlushDebounce, Delay: 20 * time.Millisecond}
	keeper := NewStateKeeper(store, cfg, nil)

	x, y := 100, 100
	keeper.SaveState("main", State{X: &x, Y: &y, Width: 800, Height: 600, IsMaximized: true})

	require.Eventually(t, func() bool {
		data, err := store.Load(context.Background())
		return err == nil && data != nil
	}, time.Second, 10*time.Millisecond)

	reopened := NewStateKeeper(store, cfg, nil)
	got := reopened.GetWindowState("main", 640, 480)
	assert.Equal(t, 800, got.Width)
	assert.True(t, got.IsMaximized)
}

func TestStateKeeperNoOpOnEqualState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window-state.json")
	store := NewLocalStore(path)
	defer store.Close()

	keeper := NewStateKeeper(store, DefaultStateKeeperConfig(), nil)
	state := State{Width: 800, Height: 600}

	keeper.SaveState("main", state)
	keeper.SaveState("main", state)

	assert.Equal(t, state, keeper.GetWindowState("main", 0, 0))
}

func TestRestoreGeometryDropsDisconnectedDisplay(t *testing.T) {
	x, y := 5000, 5000
	s := State{X: &x, Y: &y, Width: 800, Height: 600}
	displays := []Display{{ID: "d1", Bounds: Bounds{Width: 1920, Height: 1080}}}

	restored := RestoreGeometry(s, displays, 640, 480)
	assert.Equal(t, 640, restored.Width)
	assert.False(t, restored.IsMaximized)
}

func TestRestoreGeometryKeepsIntersectingDisplay(t *testing.T) {
	x, y := 100, 100
	s := State{X: &x, Y: &y, Width: 800, Height: 600}
	displays := []Display{{ID: "d1", Bounds: Bounds{Width: 1920, Height: 1080}}}

	restored := RestoreGeometry(s, displays, 640, 480)
	assert.Equal(t, 800, restored.Width)
}

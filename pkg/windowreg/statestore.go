package windowreg

import "context"

// StateStore is the pluggable persistence backend for the window state file.
// Implementations must be safe for concurrent use. The default is LocalStore,
// an atomic temp-and-rename JSON file under the host user-data directory; an
// optional build-tag-gated backend mirrors the same blob to object storage
// for geometry backup across a user's machines.
type StateStore interface {
	// Save persists the full serialized state map. Called from a scheduled
	// flush (debounce/throttle) or synchronously on process exit.
	Save(ctx context.Context, data []byte) error

	// Load retrieves the last persisted state map. Returns (nil, nil) if
	// nothing has ever been saved; reads tolerate missing/corrupt backing
	// storage by returning (nil, nil) rather than an error where reasonably
	// detectable (e.g. file-not-exists), matching the spec's "start empty"
	// tolerance.
	Load(ctx context.Context) ([]byte, error)

	// Close releases resources held by the store.
	Close() error
}

package windowreg

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry and store error conditions.
var (
	// ErrWindowNotFound is returned when an id/name/host window has no entry.
	ErrWindowNotFound = errors.New("windowreg: window not found")

	// ErrNameTaken is returned on create when a name collides with a live
	// entry and the caller's policy is to fail rather than rename.
	ErrNameTaken = errors.New("windowreg: name already registered")

	// ErrMaxWindowsReached is returned when WindowStore.maxWindows is hit.
	ErrMaxWindowsReached = errors.New("windowreg: max windows reached")

	// ErrRegistryClosed reports a torn-down registry. Registry itself never
	// returns it: StopCleanup only halts the sweeper, and the registry stays
	// usable afterwards.
	ErrRegistryClosed = errors.New("windowreg: registry closed")

	// ErrStoreClosed is returned when a StateStore is used after Close.
	ErrStoreClosed = errors.New("windowreg: state store closed")
)

// RegistryError wraps an error with window-id context for debugging.
type RegistryError struct {
	ID  string
	Op  string
	Err error
}

func (e *RegistryError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("windowreg: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("windowreg: window %s: %s: %v", e.ID, e.Op, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// NewRegistryError creates a new RegistryError.
func NewRegistryError(id, op string, err error) *RegistryError {
	return &RegistryError{ID: id, Op: op, Err: err}
}

// PersistenceError represents a failure writing or reading window state.
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("windowreg: persistence error at %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(path, op string, err error) *PersistenceError {
	return &PersistenceError{Path: path, Op: op, Err: err}
}

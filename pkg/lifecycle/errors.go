package lifecycle

import "errors"

// Sentinel errors for lifecycle error conditions.
var (
	// ErrCancelled is the distinguished sentinel a hook returns as its error
	// to cancel window creation. It is never propagated to the caller as a
	// failure; Create returns an empty id instead. This resolves the
	// spec's open question on plugin-cancellation signaling in favor of a
	// single explicit sentinel rather than a "return false"/exception mix.
	ErrCancelled = errors.New("lifecycle: creation cancelled by plugin")

	// ErrInvalidConfig is returned when a window config fails schema
	// validation before any host window is constructed.
	ErrInvalidConfig = errors.New("lifecycle: invalid window config")

	// ErrUnknownWindow is returned when destroy is called with an id the
	// registry does not recognize.
	ErrUnknownWindow = errors.New("lifecycle: unknown window id")
)

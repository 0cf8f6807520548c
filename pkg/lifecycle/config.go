package lifecycle

import "github.com/deskkit/deskkit/pkg/windowreg"

// WindowConfig describes a window to create. Width/Height are required;
// everything else is optional and may be filled in from persisted geometry
// or plugin will-create hooks.
type WindowConfig struct {
	ID   string // explicit id to resolve an existing window by, if set
	Name string

	X, Y          *int
	Width, Height int

	Persistent bool // if true, merge saved geometry by Name
	Groups     []string

	Development bool // opens dev tools, enables crash-reload diagnostics

	LoadURL     string
	LoadFile    string
	LoadContent func(w windowreg.Window, cfg *WindowConfig) error // per-window override

	StrictNameCollision bool // fail instead of the caller-supplied rename policy
}

// Validate checks the minimal shape creation requires.
func (c *WindowConfig) Validate() error {
	if c.Name == "" && c.ID == "" {
		return ErrInvalidConfig
	}
	if c.Width <= 0 || c.Height <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Clone returns a shallow copy, used when a will-create hook wants to hand
// a mutated config to the next plugin without affecting the caller's value.
func (c *WindowConfig) Clone() *WindowConfig {
	cp := *c
	return &cp
}

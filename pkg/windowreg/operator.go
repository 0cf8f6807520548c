package windowreg

// Operator exposes guarded wrappers over host window operations. Every
// operation first verifies the target is non-nil and not destroyed;
// otherwise it silently returns. Operator holds no state of its own.
type Operator struct {
	registry *Registry
}

// NewOperator constructs an Operator bound to registry.
func NewOperator(registry *Registry) *Operator {
	return &Operator{registry: registry}
}

func (o *Operator) live(id string) Window {
	entry := o.registry.GetByID(id)
	if entry == nil || entry.Window == nil || entry.Window.Destroyed() {
		return nil
	}
	return entry.Window
}

// Show shows the window and clears skip-taskbar.
func (o *Operator) Show(id string) {
	if w := o.live(id); w != nil {
		w.SetSkipTaskbar(false)
		w.Show()
	}
}

// Hide hides the window and sets skip-taskbar.
func (o *Operator) Hide(id string) {
	if w := o.live(id); w != nil {
		w.Hide()
		w.SetSkipTaskbar(true)
	}
}

// Minimize minimizes the window.
func (o *Operator) Minimize(id string) {
	if w := o.live(id); w != nil {
		w.Minimize()
	}
}

// Restore restores a minimized window.
func (o *Operator) Restore(id string) {
	if w := o.live(id); w != nil {
		w.Restore()
	}
}

// Maximize maximizes the window.
func (o *Operator) Maximize(id string) {
	if w := o.live(id); w != nil {
		w.Maximize()
	}
}

// Unmaximize un-maximizes the window.
func (o *Operator) Unmaximize(id string) {
	if w := o.live(id); w != nil {
		w.Unmaximize()
	}
}

// ToggleFullScreen flips the full-screen flag.
func (o *Operator) ToggleFullScreen(id string) {
	if w := o.live(id); w != nil {
		w.SetFullScreen(!w.IsFullScreen())
	}
}

// Focus focuses the window.
func (o *Operator) Focus(id string) {
	if w := o.live(id); w != nil {
		w.Focus()
	}
}

// Close requests a graceful close.
func (o *Operator) Close(id string) {
	if w := o.live(id); w != nil {
		w.Close()
	}
}

// Destroy forces destruction.
func (o *Operator) Destroy(id string) {
	if w := o.live(id); w != nil {
		w.Destroy()
	}
}

// Send posts data to the window on channel.
func (o *Operator) Send(id, channel string, data any) {
	if w := o.live(id); w != nil {
		w.Send(channel, data)
	}
}

// OpenDevTools opens devtools for the window.
func (o *Operator) OpenDevTools(id string) {
	if w := o.live(id); w != nil {
		w.OpenDevTools()
	}
}

// CloseDevTools closes devtools for the window.
func (o *Operator) CloseDevTools(id string) {
	if w := o.live(id); w != nil {
		w.CloseDevTools()
	}
}

// IsDevToolsOpened reports whether devtools are open; false if the window
// is gone.
func (o *Operator) IsDevToolsOpened(id string) bool {
	if w := o.live(id); w != nil {
		return w.IsDevToolsOpened()
	}
	return false
}

package toolkit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// debugConsole is a read-only, loopback-only introspection endpoint: it
// exposes registered windows, bus keys, and focus state over HTTP/WS for a
// developer-facing inspector, never accepting a write back into the kit.
type debugConsole struct {
	tk       *Toolkit
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newDebugConsole(tk *Toolkit, addr string, logger *slog.Logger) *debugConsole {
	if logger == nil {
		logger = slog.Default()
	}
	dc := &debugConsole{
		tk:     tk,
		logger: logger.With("component", "debug_console"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // loopback-bound listener; no cross-origin exposure
		},
	}

	r := chi.NewRouter()
	r.Get("/windows", dc.handleWindows)
	r.Get("/bus", dc.handleBus)
	r.Get("/ws", dc.handleWebSocket)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		dc.logger.Error("debug console failed to bind, disabling", "addr", addr, "error", err)
		return dc
	}
	dc.listener = ln
	dc.server = &http.Server{Handler: r}

	go func() {
		if err := dc.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			dc.logger.Error("debug console server stopped", "error", err)
		}
	}()
	dc.logger.Info("debug console listening", "addr", ln.Addr().String())

	return dc
}

func (dc *debugConsole) handleWindows(w http.ResponseWriter, r *http.Request) {
	ids := dc.tk.Store.Registry.AllIDs()
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		entry := dc.tk.Store.Registry.GetByID(id)
		if entry == nil {
			continue
		}
		out = append(out, map[string]any{
			"id":      entry.ID,
			"name":    entry.Name,
			"created": entry.CreationTime,
			"groups":  dc.tk.Store.Registry.WindowGroups(id),
		})
	}
	writeJSON(w, map[string]any{
		"windows": out,
		"focused": dc.tk.Store.FocusedWindow(),
	})
}

func (dc *debugConsole) handleBus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, dc.tk.Bus.GetAllData())
}

func (dc *debugConsole) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := dc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		dc.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		snapshot := map[string]any{
			"windowCount": dc.tk.Store.Registry.Count(),
			"focused":     dc.tk.Store.FocusedWindow(),
		}
		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Stop shuts the debug console's HTTP server down, if it's running.
func (dc *debugConsole) Stop() {
	if dc.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = dc.server.Shutdown(ctx)
}

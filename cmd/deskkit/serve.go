package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deskkit/deskkit/pkg/lifecycle"
	"github.com/deskkit/deskkit/pkg/toolkit"
	"github.com/deskkit/deskkit/pkg/toolkit/config"
	"github.com/deskkit/deskkit/pkg/windowreg"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the deskkit toolkit against a headless reference window runtime",
		Long: `serve wires the full toolkit (window registry, lifecycle manager, IPC
router, message bus) against a minimal in-process window stand-in. The real
host desktop window primitive is supplied by the embedding application —
this command exists to exercise and smoke-test the kit standalone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a deskkit TOML config file")
	return cmd
}

func runServe(configPath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("serve: loading config: %w", err)
	}

	tk, err := toolkit.New(cfg, nil, headlessWindowFactory(), logger)
	if err != nil {
		return fmt.Errorf("serve: constructing toolkit: %w", err)
	}

	lm := toolkit.NewLifecycleManager(tk, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := lm.Start(ctx); err != nil {
		return fmt.Errorf("serve: starting toolkit: %w", err)
	}
	defer lm.Stop()

	printBanner()
	logger.Info("deskkit toolkit running", "development", cfg.Development)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// headlessWindow is a minimal windowreg.Window stand-in with no host UI
// backing it — it exists so `serve` can exercise window creation/destruction
// without a real desktop runtime attached.
type headlessWindow struct {
	id        int64
	destroyed atomic.Bool
	bounds    windowreg.Bounds
	maximized atomic.Bool
	fullScrn  atomic.Bool
}

func (w *headlessWindow) ID() int64            { return w.id }
func (w *headlessWindow) Destroyed() bool      { return w.destroyed.Load() }
func (w *headlessWindow) Show()                {}
func (w *headlessWindow) Hide()                {}
func (w *headlessWindow) Minimize()            {}
func (w *headlessWindow) Restore()             {}
func (w *headlessWindow) Maximize()            { w.maximized.Store(true) }
func (w *headlessWindow) Unmaximize()          { w.maximized.Store(false) }
func (w *headlessWindow) IsMaximized() bool    { return w.maximized.Load() }
func (w *headlessWindow) SetFullScreen(v bool) { w.fullScrn.Store(v) }
func (w *headlessWindow) IsFullScreen() bool   { return w.fullScrn.Load() }
func (w *headlessWindow) Focus()               {}
func (w *headlessWindow) Close()               { w.destroyed.Store(true) }
func (w *headlessWindow) Destroy()             { w.destroyed.Store(true) }
func (w *headlessWindow) SetSkipTaskbar(bool)  {}
func (w *headlessWindow) Send(channel string, data any) {}
func (w *headlessWindow) OpenDevTools()            {}
func (w *headlessWindow) CloseDevTools()           {}
func (w *headlessWindow) IsDevToolsOpened() bool   { return false }
func (w *headlessWindow) Bounds() windowreg.Bounds { return w.bounds }
func (w *headlessWindow) SetBounds(b windowreg.Bounds) { w.bounds = b }

func headlessWindowFactory() lifecycle.WindowFactory {
	var nextID atomic.Int64
	return func(cfg *lifecycle.WindowConfig) (windowreg.Window, error) {
		w := &headlessWindow{id: nextID.Add(1)}
		w.SetBounds(windowreg.Bounds{Width: cfg.Width, Height: cfg.Height})
		return w, nil
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/daemon"
	"github.com/1broseidon/evepreview/internal/hotkeys"
	"github.com/1broseidon/evepreview/internal/logging"
	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/profile"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the preview daemon",
	Long: "Run the preview daemon in the foreground. It connects to the X display, " +
		"tracks EVE client windows, draws thumbnails, grabs the configured hotkeys " +
		"and serves the control socket. SIGHUP reloads the config file.",
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().String("display", "", "X display to connect to (default: $DISPLAY)")
	daemonCmd.Flags().String("log-level", "", "Override global.log_level (debug, info, warn, error)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	display, _ := cmd.Flags().GetString("display")
	levelOverride, _ := cmd.Flags().GetString("log-level")

	path, err := configPath()
	if err != nil {
		return err
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	settings := res.Config.Global

	level := settings.LogLevel
	if levelOverride != "" {
		level = levelOverride
	}
	log, err := logging.New(logging.Options{Level: level, File: settings.LogFile})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer log.Close()
	logger := log.Logger
	logger.Info("configuration loaded", "path", path, "files", len(res.Files), "profile", res.Config.Selected().Name)

	store, err := profile.NewStore(res.Config)
	if err != nil {
		return err
	}

	backend, err := platform.NewLinuxBackendFromDisplay(display, logger.With("component", "x11"))
	if err != nil {
		return fmt.Errorf("failed to connect to display: %w", err)
	}
	defer backend.Disconnect()

	source := hotkeySource(settings, backend, logger)

	d, err := daemon.New(daemon.Options{
		Backend:    backend,
		Hotkeys:    source,
		Store:      store,
		ConfigPath: path,
		SocketPath: flagSocket,
		Log:        log,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				if err := d.Reload(); err != nil {
					logger.Warn("config reload failed", "error", err)
				}
			}
		}
	}()

	go backend.EventLoop()
	defer backend.Quit()

	return d.Run(ctx)
}

// hotkeySource picks the global input backend. Changing it takes a restart.
func hotkeySource(settings profile.Settings, backend *platform.LinuxBackend, logger *slog.Logger) hotkeys.Source {
	switch settings.HotkeyBackend {
	case "evdev":
		return hotkeys.NewEvdevSource(hotkeys.DefaultInputDir, settings.InputDevice, logger.With("component", "evdev"))
	default:
		return hotkeys.NewX11Source(backend.XUtil(), backend.RootWindow(), logger.With("component", "hotkeys"))
	}
}

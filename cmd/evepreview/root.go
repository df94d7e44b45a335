package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/ipc"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "evepreview",
	Short: "Live EVE client thumbnails and hotkey focus cycling for X11",
	Long: "evepreview shows a live thumbnail for every EVE Online client window and " +
		"cycles focus between characters with global hotkeys. Run 'evepreview daemon' " +
		"in your session; every other command talks to the running daemon.",
	SilenceUsage: true,
}

var (
	flagConfig string
	flagSocket string
	flagFormat string
)

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/evepreview/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "", "Daemon socket path (default: $XDG_RUNTIME_DIR/evepreview.sock)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "Output format: table, yaml or json (default: table on a terminal, json when piped)")
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultConfigPath()
}

func newClient() *ipc.Client {
	if flagSocket != "" {
		return ipc.NewClientAt(flagSocket)
	}
	return ipc.NewClient()
}

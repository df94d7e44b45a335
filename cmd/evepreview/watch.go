package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/evepreview/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of characters, thumbnails and the focus cycle",
	Long: "Interactive view of the running daemon.\n\n" +
		"Keybindings:\n" +
		"  ↑/↓, j/k   Select a character\n" +
		"  enter      Focus the selected character\n" +
		"  n / p      Cycle forward / backward\n" +
		"  t          Toggle thumbnails\n" +
		"  P          Switch to the next profile\n" +
		"  r          Reload the daemon's config\n" +
		"  q, ctrl+c  Quit",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		return tui.Run(newClient(), interval)
	},
}

func init() {
	watchCmd.Flags().Duration("interval", tui.DefaultRefreshInterval, "How often to poll the daemon")
	rootCmd.AddCommand(watchCmd)
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/evepreview/internal/ipc"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List managed client windows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		windows, err := newClient().Windows()
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), ipc.WindowsData{Windows: windows}, func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "ID\tCHARACTER\tSTATUS\tFOCUSED\tLOGGED OFF\tMINIMIZED")
			for _, w := range windows {
				fmt.Fprintf(tw, "0x%x\t%s\t%s\t%s\t%s\t%s\n",
					w.ID, orDash(w.Character), w.Status, yesNo(w.Active), yesNo(w.LoggedOff), yesNo(w.Minimized))
			}
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the focus cycle position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newClient().CycleState()
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), st, func(tw *tabwriter.Writer) {
			current := "-"
			if st.Active {
				current = fmt.Sprintf("%s (%d)", st.Current, st.Index)
			}
			fmt.Fprintf(tw, "profile:\t%s\n", st.Profile)
			fmt.Fprintf(tw, "group:\t%s\n", orDash(st.Group))
			fmt.Fprintf(tw, "current:\t%s\n", current)
			fmt.Fprintf(tw, "members:\t%s\n", orDash(strings.Join(st.Members, ", ")))
			fmt.Fprintf(tw, "skipped:\t%s\n", orDash(strings.Join(st.Skipped, ", ")))
			fmt.Fprintf(tw, "groups:\t%s\n", orDash(strings.Join(st.Groups, ", ")))
		})
	},
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show thumbnail positions and stacking order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := newClient().Layout()
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), layout, func(tw *tabwriter.Writer) {
			if !layout.Enabled {
				fmt.Fprintln(tw, "thumbnails are off")
				return
			}
			fmt.Fprintln(tw, "Z\tCHARACTER\tX\tY\tWIDTH\tHEIGHT\tFOCUSED\tVISIBLE")
			for _, t := range layout.Thumbnails {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					t.Z, t.Character, t.X, t.Y, t.Width, t.Height, yesNo(t.Active), yesNo(t.Visible))
			}
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().GetStatus()
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), status, func(tw *tabwriter.Writer) {
			thumbs := "off"
			if status.ThumbnailsEnabled {
				thumbs = "on"
			}
			fmt.Fprintf(tw, "profile:\t%s\n", status.Profile)
			fmt.Fprintf(tw, "profiles:\t%s\n", strings.Join(status.Profiles, ", "))
			fmt.Fprintf(tw, "thumbnails:\t%s\n", thumbs)
			fmt.Fprintf(tw, "windows:\t%d\n", status.WindowCount)
			fmt.Fprintf(tw, "hotkeys:\t%s (%d bindings)\n", status.HotkeyBackend, status.BindingCount)
			if status.DroppedActions > 0 {
				fmt.Fprintf(tw, "dropped actions:\t%d\n", status.DroppedActions)
			}
			fmt.Fprintf(tw, "config:\t%s\n", orDash(status.ConfigPath))
			fmt.Fprintf(tw, "uptime:\t%s\n", time.Duration(status.UptimeSeconds)*time.Second)
		})
	},
}

func init() {
	rootCmd.AddCommand(windowsCmd, stateCmd, layoutCmd, statusCmd)
}

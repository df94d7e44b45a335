package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/1broseidon/evepreview/internal/ipc"
)

var nextCmd = &cobra.Command{
	Use:   "next [group]",
	Short: "Focus the next character in a cycle group",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newClient().CycleNext(firstArg(args))
		if err != nil {
			return err
		}
		return printFocus(cmd, f)
	},
}

var prevCmd = &cobra.Command{
	Use:   "prev [group]",
	Short: "Focus the previous character in a cycle group",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newClient().CyclePrev(firstArg(args))
		if err != nil {
			return err
		}
		return printFocus(cmd, f)
	},
}

var jumpCmd = &cobra.Command{
	Use:   "jump <character>",
	Short: "Focus one character's client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newClient().JumpTo(args[0])
		if err != nil {
			return err
		}
		return printFocus(cmd, f)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <name>",
	Short: "Switch to another profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().SwitchProfile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "profile: %s\n", args[0])
		return nil
	},
}

var thumbnailsCmd = &cobra.Command{
	Use:       "thumbnails on|off|toggle",
	Short:     "Show or hide every thumbnail",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()
		var on bool
		switch strings.ToLower(args[0]) {
		case "on":
			on = true
		case "off":
			on = false
		case "toggle":
			status, err := client.GetStatus()
			if err != nil {
				return err
			}
			on = !status.ThumbnailsEnabled
		default:
			return fmt.Errorf("expected on, off or toggle, got %q", args[0])
		}
		if err := client.SetThumbnailsEnabled(on); err != nil {
			return err
		}
		state := "off"
		if on {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "thumbnails: %s\n", state)
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Make the daemon re-read its config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Reload(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "config reloaded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nextCmd, prevCmd, jumpCmd, profileCmd, thumbnailsCmd, reloadCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printFocus(cmd *cobra.Command, f ipc.FocusData) error {
	return render(cmd.OutOrStdout(), f, func(tw *tabwriter.Writer) {
		switch {
		case f.Focused:
			fmt.Fprintf(tw, "focused\t%s\t0x%x\n", f.Character, f.WindowID)
		case f.Reason != "":
			fmt.Fprintf(tw, "unchanged\t%s\n", f.Reason)
		default:
			fmt.Fprintln(tw, "unchanged")
		}
	})
}

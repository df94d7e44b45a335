package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/profile"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the config file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config file, hotkeys included",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		// Every profile's bindings must build a table, not just the selected one.
		for _, name := range res.Config.ProfileNames() {
			if _, err := res.Config.Table(name); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, _ := cmd.Flags().GetBool("defaults")
		var cfg *profile.Config
		if defaults {
			cfg = profile.DefaultConfig()
		} else {
			res, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = res.Config
		}
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configExplainCmd = &cobra.Command{
	Use:   "explain <yaml.path>",
	Short: "Show a config value and where it was set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		value, src, err := config.Explain(res, args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "path: %s\n", args[0])
		fmt.Fprintf(w, "source: %s\n", formatSource(src))
		fmt.Fprintf(w, "value:\n%s", string(out))
		return nil
	},
}

func init() {
	configPrintCmd.Flags().Bool("defaults", false, "Print built-in defaults instead of the loaded file")
	configCmd.AddCommand(configPathCmd, configValidateCmd, configInitCmd, configPrintCmd, configExplainCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (*config.LoadResult, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return config.LoadFromPath(path)
}

func formatSource(src profile.Source) string {
	if src.File == "" {
		return "default"
	}
	if src.Line > 0 {
		return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
	}
	return "file:" + src.File
}

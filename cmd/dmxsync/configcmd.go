package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetHostCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
	Long: `Inspect and edit dmxsync's settings file.

Values resolve in this order: command-line flags, DMXSYNC_* environment
variables, the settings file, built-in defaults.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		fmt.Printf("# %s\n%s", settingsPath, data)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Println(settingsPath)
	},
}

var configSetHostCmd = &cobra.Command{
	Use:     "set-host <host>",
	Short:   "Remember the device host",
	Example: `  dmxsync config set-host 192.168.1.50`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings.Device.Host = args[0]
		if err := settings.Save(settingsPath); err != nil {
			return err
		}
		fmt.Printf("Device host set to %s in %s\n", args[0], settingsPath)
		return nil
	},
}

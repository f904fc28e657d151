// Dmxsync keeps a terminal in sync with an ESP32 DMX/Art-Net controller.
//
// It follows the controller's push channel, polls its REST API, and lets
// you edit the network, Art-Net, pixel and access point settings with
// optimistic updates and rollback. It can also mirror the device onto MQTT
// and run a simulated controller for testing.
//
// Usage:
//
//	dmxsync [command] [flags]
//
// Running without arguments opens the dashboard.
// See 'dmxsync --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dmxsync/internal/config"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/version"
)

// Global flags
var (
	flagHost     string
	flagConfig   string
	flagLogLevel string
	flagRetries  int
	flagTimeout  time.Duration
)

// settings is resolved once per invocation: flags > env > file > defaults.
var (
	settings     *config.Settings
	settingsPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dmxsync",
	Short: "DMX/Art-Net controller sync and configuration",
	Long: `A terminal client for ESP32 DMX/Art-Net controllers.

Keeps a live view of the controller's settings and status over its
websocket push channel, edits settings with optimistic updates and
rollback, and mirrors the device onto MQTT.

If no command is specified, the dashboard opens automatically.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	RunE:              runUI,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "Device host or IP, optionally with port (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Settings file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (logs go to stderr)")
	rootCmd.PersistentFlags().IntVar(&flagRetries, "retries", 2, "Retries for failed device requests")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", config.DefaultRequestTimeout, "Device request timeout")

	rootCmd.AddCommand(versionCmd)
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	path := flagConfig
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return err
		}
	}

	s, err := config.Load(path)
	if err != nil {
		return err
	}
	if flagHost != "" {
		s.Device.Host = flagHost
	}
	if cmd.Flags().Changed("timeout") {
		s.Sync.RequestTimeout = flagTimeout
	}

	level := flagLogLevel
	if level == "" {
		level = s.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	settings = s
	settingsPath = path
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dmxsync %s\n", version.Full())
	},
}

package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dmxsync/internal/devicesim"
	"github.com/muurk/dmxsync/internal/discovery"
	"github.com/muurk/dmxsync/internal/logging"
	"github.com/muurk/dmxsync/internal/version"
	"go.uber.org/zap"
)

var (
	simListen         string
	simCaptureDir     string
	simAdvertise      bool
	simName           string
	simStatusInterval time.Duration
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simListen, "listen", ":8080", "Address to serve the simulated controller on")
	simulateCmd.Flags().StringVar(&simCaptureDir, "capture-dir", "", "Write every websocket message to a JSONL file in this directory")
	simulateCmd.Flags().BoolVar(&simAdvertise, "advertise", false, "Announce the simulator over mDNS so 'dmxsync scan' finds it")
	simulateCmd.Flags().StringVar(&simName, "name", "ESP32-2DMX-SIM", "mDNS instance name used with --advertise")
	simulateCmd.Flags().DurationVar(&simStatusInterval, "status-interval", devicesim.DefaultStatusInterval, "Status broadcast period")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated controller",
	Long: `Serve the controller's REST API and push channel from memory.

The simulator keeps its configuration until it exits, broadcasts status
reports, answers pixel tests, and echoes configuration changes to every
connected client. Point any dmxsync command at it with --host.`,
	Example: `  dmxsync simulate --listen :8080
  dmxsync --host localhost:8080

  # Record the push traffic
  dmxsync simulate --capture-dir ./captures --advertise`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ln, err := net.Listen("tcp", simListen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", simListen, err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	dev := devicesim.New(devicesim.Options{
		StatusInterval: simStatusInterval,
		APIP:           "192.168.4.1",
		CaptureDir:     simCaptureDir,
	})

	if simAdvertise {
		shutdown, err := discovery.Advertise(simName, port, "model=ESP32-2DMX", "version="+version.Version)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to advertise: %w", err)
		}
		defer shutdown()
		logging.Info("Advertising simulator", zap.String("name", simName), zap.Int("port", port))
	}

	fmt.Printf("Simulated controller listening on port %d\n", port)
	fmt.Printf("  REST: http://localhost:%d/api/config\n", port)
	fmt.Printf("  Push: ws://localhost:%d/ws\n", port)
	if simCaptureDir != "" {
		fmt.Printf("  Capturing to %s\n", simCaptureDir)
	}
	fmt.Printf("\nConnect with: dmxsync --host localhost:%d\n", port)

	return dev.Serve(cmd.Context(), ln)
}

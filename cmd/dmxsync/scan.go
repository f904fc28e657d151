package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dmxsync/internal/discovery"
)

var (
	scanTimeout time.Duration
	scanPattern string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan duration")
	scanCmd.Flags().StringVar(&scanPattern, "pattern", "", "Device name filter (default from settings; empty matches everything)")
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for controllers on the network",
	Long: `Browse mDNS for HTTP services whose name matches the device pattern
and list their addresses.`,
	Example: `  dmxsync scan

  # Longer scan, list every HTTP service
  dmxsync scan --timeout 15s --pattern ""`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, _ []string) error {
	pattern := settings.Device.NamePattern
	if cmd.Flags().Changed("pattern") {
		pattern = scanPattern
	}
	scanner := discovery.NewScanner(pattern)
	scanner.Timeout = scanTimeout

	fmt.Printf("Scanning for devices matching %q (timeout: %s)...\n\n", pattern, scanTimeout)

	devices, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the controller is powered on and joined to this network")
		fmt.Println("  - mDNS does not cross routers or VLANs")
		fmt.Println("  - Try increasing --timeout")
		fmt.Println("  - Use --host to connect by IP address")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d.Name)
		if d.Hostname != "" {
			fmt.Printf("   Hostname: %s\n", d.Hostname)
		}
		fmt.Printf("   Address:  %s\n", d.Host())
		if len(d.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", d.Metadata)
		}
		fmt.Println()
	}

	fmt.Println("Use 'dmxsync --host <address>' to open the dashboard")
	fmt.Println("Use 'dmxsync config set-host <address>' to remember a device")
	return nil
}

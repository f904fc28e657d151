package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/muurk/dmxsync/internal/cache"
	"github.com/muurk/dmxsync/internal/configsync"
	"github.com/muurk/dmxsync/internal/deviceapi"
	"github.com/muurk/dmxsync/internal/discovery"
	"github.com/muurk/dmxsync/internal/protocol"
	"github.com/muurk/dmxsync/internal/push"
	"github.com/muurk/dmxsync/internal/snapshot"
	"github.com/muurk/dmxsync/internal/tui"
	"github.com/muurk/dmxsync/internal/ui"
)

// Command flags
var (
	outputFormat   string
	showCached     bool
	noVerify       bool
	assumeYes      bool
	pixelTestWait  time.Duration
	connectTimeout = 10 * time.Second
)

// Fields the device ignores while DHCP is on
var staticFields = []string{"staticIP", "staticMask", "staticGateway"}

func init() {
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(rebootCmd)
	rootCmd.AddCommand(factoryResetCmd)
	rootCmd.AddCommand(pixelTestCmd)

	showCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	showCmd.Flags().BoolVar(&showCached, "cached", false, "Fall back to the cached configuration if the device is unreachable")
	setCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip reading the settings back after the update")
	factoryResetCmd.Flags().BoolVar(&assumeYes, "yes", false, "Skip the confirmation prompt")
	pixelTestCmd.Flags().DurationVar(&pixelTestWait, "wait", 5*time.Second, "How long to wait for the device's answer")
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive dashboard",
	Long: `Open the full-screen dashboard.

Without --host a discovery screen lists controllers found on the network.
The dashboard shows live status, keeps every field in sync with the
device, and lets you edit and submit each settings form.`,
	Example: `  # Discover devices first
  dmxsync ui

  # Open a device directly (ui is the default command)
  dmxsync --host 192.168.1.50`,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, _ []string) error {
	return tui.Run(cmd.Context(), connector(settings), tui.Options{
		Host:                settings.Device.Host,
		Scanner:             discovery.NewScanner(settings.Device.NamePattern),
		NotificationTimeout: settings.UI.NotificationTimeout,
	})
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show device configuration",
	Long: `Fetch and display the controller's current configuration.

The access point password is never displayed.`,
	Example: `  dmxsync show --host 192.168.1.50

  # JSON output for scripting
  dmxsync show --format json

  # Use the last known configuration if the device is offline
  dmxsync show --cached`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, _ []string) error {
	if err := requireHost(settings); err != nil {
		return err
	}
	ctx := cmd.Context()
	client := newDeviceClient(settings)

	source := "device"
	snap, err := client.GetConfig(ctx)
	if err != nil {
		cached, ok := loadCached()
		if !showCached || !ok {
			printDeviceError("Could not read configuration", err)
			return err
		}
		snap, source = cached, "cache"
	} else if ap, apErr := client.GetAPConfig(ctx); apErr == nil {
		snap = snap.Merge(ap)
	}
	snap = snapshot.Public(snapshot.Known(snap))

	if outputFormat == "json" {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Device configuration", "dmxsync show",
		ui.Param{Key: "Device", Value: settings.Device.Host},
		ui.Param{Key: "Source", Value: source})
	p.Println(formatConfig(snap))
	return nil
}

func loadCached() (*snapshot.Snapshot, bool) {
	store, err := cache.Open(settings.Cache)
	if err != nil {
		return nil, false
	}
	return cache.NewSnapshotCache(store).Load()
}

// formatConfig renders snap grouped by form, in registry order.
func formatConfig(snap *snapshot.Snapshot) string {
	var b strings.Builder
	for i, form := range snapshot.Forms {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ui.HeaderTitleStyle.Render(form.Label()))
		b.WriteString("\n")
		for _, f := range snapshot.FormFields(form) {
			v, ok := snap.Get(f.Key)
			if !ok {
				continue
			}
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
				"  ",
				ui.ResultKeyStyle.Render(f.Label),
				ui.ResultValueStyle.Render(formatValue(f, v)),
			))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatValue(f snapshot.Field, v snapshot.Value) string {
	switch {
	case f.Secret:
		if v.String() == "" {
			return "(not set)"
		}
		return "••••••••"
	case f.Kind == snapshot.KindBool:
		if v.Bool() {
			return "on"
		}
		return "off"
	default:
		return v.String()
	}
}

var setCmd = &cobra.Command{
	Use:   "set <network|artnet|pixel|ap> <key=value>...",
	Short: "Update one settings form",
	Long: `Submit new values for one settings form.

Fields that are not given keep their current value. The form is read back
from the device afterwards to confirm the change.

Fields:
  network  deviceName dhcpEnabled staticIP staticMask staticGateway
  artnet   artnetNet artnetSubnet artnetUniverse dmxStartAddress
  pixel    pixelCount pixelType pixelEnabled
  ap       ssid password enabled`,
	Example: `  dmxsync set artnet artnetUniverse=3 dmxStartAddress=10
  dmxsync set network dhcpEnabled=false staticIP=192.168.1.60
  dmxsync set ap enabled=true ssid=stage-left password=secret123`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSet,
}

// parseAssignments turns key=value arguments into coerced values for form.
func parseAssignments(form snapshot.Form, args []string) (*snapshot.Snapshot, error) {
	out := snapshot.New()
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		f, known := snapshot.Lookup(key)
		if !known || f.Form != form {
			names := lo.Map(snapshot.FormFields(form), func(f snapshot.Field, _ int) string { return f.Key })
			return nil, fmt.Errorf("unknown %s field %q (valid: %s)", form, key, strings.Join(names, ", "))
		}
		v, ok := snapshot.CoerceField(f, snapshot.String(raw))
		if !ok {
			return nil, fmt.Errorf("invalid %s value for %s: %q", f.Kind, key, raw)
		}
		out.Set(key, v)
	}
	return out, nil
}

// mismatches lists the submitted fields the device does not report back.
// Secrets are never served and static fields are ignored while DHCP is on.
func mismatches(sent, got *snapshot.Snapshot) []string {
	dhcp, _ := got.Get("dhcpEnabled")
	var out []string
	sent.Range(func(key string, want snapshot.Value) bool {
		f, _ := snapshot.Lookup(key)
		if f.Secret || (dhcp.Bool() && lo.Contains(staticFields, key)) {
			return true
		}
		raw, ok := got.Get(key)
		if !ok {
			out = append(out, key+": missing")
			return true
		}
		have, ok := snapshot.CoerceField(f, raw)
		if !ok || have != want {
			out = append(out, fmt.Sprintf("%s: sent %s, device has %s", key, want.String(), raw.String()))
		}
		return true
	})
	return out
}

func runSet(cmd *cobra.Command, args []string) error {
	form, err := snapshot.ParseForm(args[0])
	if err != nil {
		return err
	}
	assigned, err := parseAssignments(form, args[1:])
	if err != nil {
		return err
	}

	sess, err := newSession(settings, configsync.NewMemoryView())
	if err != nil {
		return err
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:     form.Label() + " settings",
		Command:   "dmxsync set " + string(form),
		Params:    []ui.Param{{Key: "Device", Value: settings.Device.Host}},
		StepNames: []string{"Read current settings", "Submit " + form.Label() + " form", "Verify"},
		Hints:     troubleshooting,
	})

	return runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		onStep(1, ui.StepRunning, "")
		if err := sess.sync.LoadInitial(ctx); err != nil {
			onStep(1, ui.StepFailed, deviceapi.GetShortErrorMessage(err))
			return nil, err
		}
		onStep(1, ui.StepComplete, "")

		// The device takes whole forms; unset secrets are left out so they
		// are not blanked.
		fields, err := sess.sync.FormValues(form)
		if err != nil {
			onStep(2, ui.StepFailed, deviceapi.GetShortErrorMessage(err))
			return nil, err
		}
		for _, f := range snapshot.FormFields(form) {
			if _, ok := assigned.Get(f.Key); f.Secret && !ok {
				fields.Delete(f.Key)
			}
		}
		fields = fields.Merge(assigned)

		onStep(2, ui.StepRunning, "")
		if err := sess.sync.Submit(ctx, form, fields); err != nil {
			onStep(2, ui.StepFailed, deviceapi.GetShortErrorMessage(err))
			return nil, err
		}
		onStep(2, ui.StepComplete, fmt.Sprintf("%d fields", fields.Len()))

		details := assignedParams(assigned)
		if noVerify {
			onStep(3, ui.StepSkipped, "--no-verify")
			return details, nil
		}

		onStep(3, ui.StepRunning, "")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(settings.Sync.RefreshDelay):
		}
		got, err := sess.device.GetConfig(ctx)
		if err != nil {
			onStep(3, ui.StepFailed, deviceapi.GetShortErrorMessage(err))
			return nil, err
		}
		if diff := mismatches(assigned, got); len(diff) > 0 {
			onStep(3, ui.StepFailed, fmt.Sprintf("%d mismatches", len(diff)))
			return nil, fmt.Errorf("device did not apply: %s", strings.Join(diff, "; "))
		}
		onStep(3, ui.StepComplete, "")
		return details, nil
	})
}

func assignedParams(s *snapshot.Snapshot) []ui.Param {
	var out []ui.Param
	s.Range(func(key string, v snapshot.Value) bool {
		f, _ := snapshot.Lookup(key)
		out = append(out, ui.Param{Key: f.Label, Value: formatValue(f, v)})
		return true
	})
	return out
}

func troubleshooting(err error) []string {
	hint := deviceapi.GetTroubleshootingHint(err)
	if hint == "" {
		return nil
	}
	return strings.Split(hint, "\n")
}

func printDeviceError(title string, err error) {
	ui.NewPrinter(os.Stderr).PrintError(title, err, troubleshooting(err))
}

var rebootCmd = &cobra.Command{
	Use:     "reboot",
	Short:   "Restart the controller",
	Example: `  dmxsync reboot --host 192.168.1.50`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCommand(cmd.Context(), deviceapi.CommandReboot)
	},
}

var factoryResetCmd = &cobra.Command{
	Use:   "factory-reset",
	Short: "Erase all controller settings",
	Long: `Erase all settings on the controller and restart it.

The controller comes back with default network settings and may not be
reachable at its current address afterwards.`,
	Example: `  dmxsync factory-reset --host 192.168.1.50

  # Non-interactive
  dmxsync factory-reset --host 192.168.1.50 --yes`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireHost(settings); err != nil {
			return err
		}
		if !assumeYes && !ui.FactoryResetConfirmation(os.Stdin, os.Stdout, settings.Device.Host) {
			fmt.Println("Factory reset cancelled.")
			return nil
		}
		return runCommand(cmd.Context(), deviceapi.CommandFactoryReset)
	},
}

func runCommand(ctx context.Context, command deviceapi.Command) error {
	view := configsync.NewMemoryView()
	sess, err := newSession(settings, view)
	if err != nil {
		return err
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:     command.Label(),
		Command:   "dmxsync " + string(command),
		Params:    []ui.Param{{Key: "Device", Value: settings.Device.Host}},
		StepNames: []string{"Send " + strings.ToLower(command.Label()) + " command"},
		Hints:     troubleshooting,
	})
	return runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		onStep(1, ui.StepRunning, "")
		var err error
		if command == deviceapi.CommandFactoryReset {
			err = sess.sync.FactoryReset(ctx)
		} else {
			err = sess.sync.Reboot(ctx)
		}
		if err != nil {
			onStep(1, ui.StepFailed, deviceapi.GetShortErrorMessage(err))
			return nil, err
		}
		onStep(1, ui.StepComplete, "")
		return []ui.Param{{Key: "Result", Value: lastNotice(view)}}, nil
	})
}

func lastNotice(view *configsync.MemoryView) string {
	notices := view.Notices()
	if len(notices) == 0 {
		return ""
	}
	return notices[len(notices)-1].Message
}

var pixelTestCmd = &cobra.Command{
	Use:   "pixel-test <mode>",
	Short: "Run a pixel test pattern",
	Long: `Ask the controller to drive a pixel test pattern over the push channel.

Mode 0 turns the test off. The command waits for the controller's answer.`,
	Example: `  dmxsync pixel-test 1 --host 192.168.1.50
  dmxsync pixel-test 0`,
	Args: cobra.ExactArgs(1),
	RunE: runPixelTest,
}

func runPixelTest(cmd *cobra.Command, args []string) error {
	mode, err := strconv.Atoi(args[0])
	if err != nil || mode < 0 {
		return fmt.Errorf("invalid pixel test mode %q", args[0])
	}

	connected := make(chan struct{}, 1)
	sess, err := newSession(settings, configsync.NewMemoryView(), func(st push.State) {
		if st == push.Connected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	results := make(chan snapshot.PixelTestResult, 1)
	sess.dispatcher.Add(protocol.Funcs{PixelTest: func(r snapshot.PixelTestResult) {
		select {
		case results <- r:
		default:
		}
	}})

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:     "Pixel test",
		Command:   "dmxsync pixel-test",
		Params:    []ui.Param{{Key: "Device", Value: settings.Device.Host}, {Key: "Mode", Value: strconv.Itoa(mode)}},
		StepNames: []string{"Connect push channel", "Send pixel test", "Wait for answer"},
		Hints:     troubleshooting,
	})
	return runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		onStep(1, ui.StepRunning, sess.push.URL())
		sess.push.Start(ctx)
		defer sess.push.Stop()
		select {
		case <-connected:
		case <-time.After(connectTimeout):
			onStep(1, ui.StepFailed, "timed out")
			return nil, errors.New("push channel did not connect")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		onStep(1, ui.StepComplete, "")

		onStep(2, ui.StepRunning, "")
		if !sess.sync.PixelTest(mode) {
			onStep(2, ui.StepFailed, "")
			return nil, push.ErrNotConnected
		}
		onStep(2, ui.StepComplete, "")

		onStep(3, ui.StepRunning, "")
		select {
		case r := <-results:
			if !r.Success {
				onStep(3, ui.StepFailed, r.Message)
				return nil, fmt.Errorf("device rejected pixel test: %s", r.Message)
			}
			onStep(3, ui.StepComplete, "")
			return []ui.Param{{Key: "Answer", Value: lo.Ternary(r.Message != "", r.Message, "ok")}}, nil
		case <-time.After(pixelTestWait):
			onStep(3, ui.StepSkipped, "no answer")
			return []ui.Param{{Key: "Answer", Value: "none received"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

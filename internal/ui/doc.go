// Package ui renders styled one-shot output for dmxsync commands.
//
// Components use Lipgloss and follow a "print and exit" pattern; the
// interactive dashboard lives in the tui package and shares this palette.
//
//   - Header: command banner with title and ordered parameters
//   - Progress: step list with a progress bar
//   - Result: success, failure or warning box, with troubleshooting tips
//   - Response: raw device response for --verbose
//   - Runner: drives header, steps and result for a device command
//   - ConfirmDangerousOperation: typed confirmation before a factory reset
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Reboot",
//	    Command:   "dmxsync reboot",
//	    Params:    []ui.Param{{Key: "Device", Value: host}},
//	    StepNames: []string{"Sending reboot command"},
//	    Hints:     func(err error) []string { return []string{deviceapi.GetTroubleshootingHint(err)} },
//	})
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
//	    onStep(1, ui.StepRunning, "")
//	    ...
//	})
//
// Logging is controlled by DMXSYNC_LOG_LEVEL. When unset, zap is silent so
// the styled output is not interleaved with log lines.
package ui

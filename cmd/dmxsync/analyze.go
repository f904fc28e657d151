package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/dmxsync/internal/devicesim"
	"github.com/muurk/dmxsync/internal/ui"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture.jsonl>",
	Short: "Summarize a push channel capture",
	Long: `Summarize a capture written by 'dmxsync simulate --capture-dir'.

Counts messages by direction and type, and flags device messages no
handler understands and configuration keys outside the known fields.`,
	Example: `  dmxsync analyze captures/capture-20260301-100000.jsonl`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	records, err := devicesim.ReadCapture(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	sum := devicesim.Summarize(records)

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Capture analysis", "dmxsync analyze", ui.Param{Key: "File", Value: args[0]})

	details := []ui.Param{
		{Key: "Messages", Value: strconv.Itoa(sum.Messages)},
		{Key: "Clients", Value: strconv.Itoa(len(sum.Clients))},
		{Key: "Duration", Value: sum.Duration().String()},
		{Key: "Malformed", Value: strconv.Itoa(sum.Malformed)},
	}
	for _, tc := range sum.Types {
		details = append(details, ui.Param{Key: tc.Direction + " " + tc.Type, Value: strconv.Itoa(tc.Count)})
	}

	if len(sum.Unrecognized) == 0 && len(sum.UnknownFields) == 0 && sum.Malformed == 0 {
		p.PrintSuccess("Capture is clean", details...)
		return nil
	}
	for _, t := range sum.Unrecognized {
		details = append(details, ui.Param{Key: "Unhandled type", Value: t})
	}
	for _, k := range sum.UnknownFields {
		details = append(details, ui.Param{Key: "Unknown field", Value: k})
	}
	p.PrintWarning("Capture has unexpected content", details...)
	return nil
}

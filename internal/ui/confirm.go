package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase is what the user must type to confirm a dangerous operation.
const ConfirmPhrase = "I AGREE"

// ConfirmDangerousOperation prints a warning box to out and reads one line
// from in. It returns true only if the user typed ConfirmPhrase.
func ConfirmDangerousOperation(in io.Reader, out io.Writer, title string, warnings []string, disclaimer string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)), ""}
	for _, w := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+w))
	}
	lines = append(lines, "")

	if disclaimer != "" {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			Width(width-12).
			PaddingLeft(3).
			Render(disclaimer), "")
	}

	box := resultBoxStyle(width, WarningColor).Render(strings.Join(lines, "\n"))
	_, _ = fmt.Fprintln(out, box)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == ConfirmPhrase {
		return true
	}

	_, _ = fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	_, _ = fmt.Fprintln(out)
	return false
}

// FactoryResetConfirmation asks before erasing the device's settings.
func FactoryResetConfirmation(in io.Reader, out io.Writer, device string) bool {
	return ConfirmDangerousOperation(in, out,
		"FACTORY RESET",
		[]string{
			"All settings on " + device + " will be erased",
			"The device restarts with DHCP and default Art-Net addressing",
			"Its address may change; use 'dmxsync scan' to find it again",
		},
		"The cached copy of the last configuration is kept locally and can be "+
			"used to re-enter the settings by hand.",
	)
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Response is a box holding a raw device response, shown in verbose mode.
type Response struct {
	Title    string
	Lines    []string
	Width    int
	MaxLines int // 0 = unlimited
}

// NewResponse creates a response box for body
func NewResponse(body string) *Response {
	return &Response{
		Title: "Device response",
		Lines: strings.Split(strings.TrimRight(body, "\n"), "\n"),
		Width: GetTerminalWidth(),
	}
}

// SetWidth sets the width for responsive rendering
func (r *Response) SetWidth(width int) *Response {
	r.Width = width
	return r
}

// SetMaxLines limits the number of lines displayed
func (r *Response) SetMaxLines(n int) *Response {
	r.MaxLines = n
	return r
}

// Render returns the styled box as a string
func (r *Response) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := r.Lines
	if r.MaxLines > 0 && len(lines) > r.MaxLines {
		lines = append(append([]string(nil), lines[:r.MaxLines]...), "... (output truncated)")
	}

	content := ResponseTitleStyle.Render(r.Title) + "\n" + ResponseContentStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width-4).
		Padding(0, 1).
		Render(content)
}

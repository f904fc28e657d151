package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step is one line of a multi-step command.
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // e.g., "HTTP 200", "12 fields"
}

// Progress tracks the steps of a command and renders them with a bar.
type Progress struct {
	Steps   []Step
	Current int
	Percent float64
	Width   int
	ShowBar bool
	bar     progress.Model
}

// NewProgress creates a progress display for the named steps
func NewProgress(names ...string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name}
	}
	p := &Progress{Steps: steps, ShowBar: true}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	return p
}

// Total returns the number of steps
func (p *Progress) Total() int {
	return len(p.Steps)
}

// UpdateStep updates a step's status and note. Out of range numbers are
// ignored.
func (p *Progress) UpdateStep(number int, status StepStatus, message string) {
	if number < 1 || number > len(p.Steps) {
		return
	}
	p.Steps[number-1].Status = status
	p.Steps[number-1].Message = message

	if status == StepRunning {
		p.Current = number
		return
	}
	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			done++
		}
	}
	p.Percent = float64(done) / float64(len(p.Steps))
}

// Render returns the bar and every step line
func (p *Progress) Render() string {
	var b strings.Builder
	if p.ShowBar {
		b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(
			fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, p.Total())))
		b.WriteString("\n\n")
	}
	lines := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		lines = append(lines, p.renderStepLine(s))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// renderStepLine renders "  [2/3] Submitting settings        ✓  (HTTP 200)"
func (p *Progress) renderStepLine(step Step) string {
	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	padding := 40 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, p.Total())
	b.WriteString(style.Render(step.Name))
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))
	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}

// StepCallback reports progress on a step. Commands call it as they work.
type StepCallback func(number int, status StepStatus, message string)

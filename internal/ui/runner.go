package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig describes a one-shot device command.
type RunnerConfig struct {
	Title     string  // e.g., "Reboot"
	Command   string  // e.g., "dmxsync reboot"
	Params    []Param // shown in the header
	StepNames []string
	Verbose   bool      // show the raw device response
	Output    io.Writer // default os.Stdout

	// Hints returns troubleshooting tips for a failure.
	Hints func(error) []string
}

// Runner prints header, step lines and result for a command.
type Runner struct {
	config   RunnerConfig
	progress *Progress
	out      io.Writer
	width    int
	response string
}

// NewRunner creates a runner sized to the terminal
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	var p *Progress
	if len(config.StepNames) > 0 {
		p = NewProgress(config.StepNames...).SetWidth(width)
	}
	return &Runner{config: config, progress: p, out: config.Output, width: width}
}

// Operation is the work a command does. It reports steps through onStep and
// returns details for the success box.
type Operation func(ctx context.Context, onStep StepCallback) ([]Param, error)

// Run prints the header, runs op and prints its result.
func (r *Runner) Run(ctx context.Context, op Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.out, NewHeader(r.config.Title, r.config.Command, r.config.Params...).SetWidth(r.width).Render())
	_, _ = fmt.Fprintln(r.out)

	details, err := op(ctx, r.onStep)
	elapsed := time.Since(start).Round(time.Millisecond).String()

	_, _ = fmt.Fprintln(r.out)
	var result *Result
	if err != nil {
		var hints []string
		if r.config.Hints != nil {
			hints = r.config.Hints(err)
		}
		result = NewFailureResult(r.config.Title+" failed", err, hints)
	} else {
		result = NewSuccessResult(r.config.Title+" complete", append(details, Param{Key: "Duration", Value: elapsed})...)
	}
	_, _ = fmt.Fprintln(r.out, result.SetWidth(r.width).Render())

	if r.config.Verbose && r.response != "" {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, NewResponse(r.response).SetWidth(r.width).Render())
	}
	return err
}

// SetResponse stores the raw device response for verbose output.
func (r *Runner) SetResponse(body string) {
	r.response = body
}

func (r *Runner) onStep(number int, status StepStatus, message string) {
	if r.progress == nil {
		return
	}
	r.progress.UpdateStep(number, status, message)
	if number < 1 || number > r.progress.Total() {
		return
	}

	line := r.progress.renderStepLine(r.progress.Steps[number-1])
	switch status {
	case StepRunning:
		_, _ = fmt.Fprint(r.out, line+"\r")
	case StepComplete, StepFailed, StepSkipped:
		_, _ = fmt.Fprintln(r.out, line)
	}
}

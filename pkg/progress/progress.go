// Package progress renders pull progress to the console, falling back
// to plain, unstyled lines when stdout is not a terminal.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pterm/pterm"
)

var (
	doneStyle = lipgloss.NewStyle().Bold(true)
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Reporter reports the lifecycle of a single long-running operation.
type Reporter interface {
	Start(label string)
	Update(current, total int64)
	Done()
	Fail(err error)
}

// NewConsoleReporter picks a spinner-backed reporter for a real
// terminal and a quiet line-based one otherwise, mirroring the
// teacher's isatty/termenv format detection.
func NewConsoleReporter(out *os.File) Reporter {
	if isTerminal(out) {
		return &spinnerReporter{out: out}
	}
	return &plainReporter{out: out}
}

func isTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

type spinnerReporter struct {
	out     *os.File
	spinner *pterm.SpinnerPrinter
	label   string
}

func (r *spinnerReporter) Start(label string) {
	r.label = label
	s, err := pterm.DefaultSpinner.WithWriter(r.out).Start(label)
	if err != nil {
		return
	}
	r.spinner = s
}

func (r *spinnerReporter) Update(current, total int64) {
	if r.spinner == nil {
		return
	}
	if total > 0 {
		r.spinner.UpdateText(fmt.Sprintf("%s (%d/%d)", r.label, current, total))
	}
}

func (r *spinnerReporter) Done() {
	if r.spinner == nil {
		return
	}
	r.spinner.Success(r.label + " done")
}

func (r *spinnerReporter) Fail(err error) {
	if r.spinner == nil {
		return
	}
	r.spinner.Fail(r.label + " failed: " + err.Error())
}

// plainReporter emits one line per state transition, for piped output
// or CI logs where a spinner would just corrupt the stream.
type plainReporter struct {
	out   io.Writer
	label string
}

func (r *plainReporter) Start(label string) {
	r.label = label
	fmt.Fprintf(r.out, "%s...\n", label)
}

func (r *plainReporter) Update(current, total int64) {
	if total > 0 {
		fmt.Fprintf(r.out, "%s: %d/%d\n", r.label, current, total)
	}
}

func (r *plainReporter) Done() {
	fmt.Fprintf(r.out, "%s: %s\n", r.label, doneStyle.Render("done"))
}

func (r *plainReporter) Fail(err error) {
	fmt.Fprintf(r.out, "%s: %s: %v\n", r.label, failStyle.Render("failed"), err)
}

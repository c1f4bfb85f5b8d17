package ui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/report"
)

// RunDashboard shows a live dashboard until stream is closed. onInterrupt
// is called when the user presses ctrl+c, since the terminal is in raw mode
// and no SIGINT reaches the process while the dashboard owns it.
func RunDashboard(title string, stream <-chan events.Event, onInterrupt func()) error {
	model := NewDashboard(title, stream)
	model.OnInterrupt = onInterrupt

	p := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// Printer writes styled output to a writer
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintLines writes multiple lines
func (p *Printer) PrintLines(lines ...string) {
	for _, line := range lines {
		_, _ = fmt.Fprintln(p.out, line)
	}
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a run header box
func (p *Printer) PrintHeader(h *Header) {
	p.Println(h.SetWidth(p.width).Render())
}

// PrintReport prints the summary box of a fleet run
func (p *Printer) PrintReport(rep *report.Report) {
	p.Println(NewSummary(rep).SetWidth(p.width).Render())
}

// PrintLoopReport prints the summary box of a reset run
func (p *Printer) PrintLoopReport(rep *report.LoopReport) {
	p.Println(RenderLoopReport(rep, p.width))
}

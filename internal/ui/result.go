package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/report"
)

// Summary renders the outcome of a fleet run as a table inside a result box
type Summary struct {
	Report *report.Report
	Width  int
}

// NewSummary creates a summary sized to the terminal
func NewSummary(rep *report.Report) *Summary {
	return &Summary{Report: rep, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (s *Summary) SetWidth(width int) *Summary {
	s.Width = width
	return s
}

// Render returns the styled summary
func (s *Summary) Render() string {
	rep := s.Report
	width := max(s.Width, MinTerminalWidth)

	var title string
	var color lipgloss.Color
	switch rep.ExitCode() {
	case report.ExitSuccess:
		color = SuccessColor
		title = SuccessTitleStyle.Render(fmt.Sprintf("%s  SUCCESS  ─  %s", SuccessMarker, rep.Operation))
	case report.ExitAborted:
		color = WarningColor
		title = WarningTitleStyle.Render(fmt.Sprintf("%s  ABORTED  ─  %s", AbortMarker, rep.Operation))
	default:
		color = ErrorColor
		title = ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, rep.Operation))
	}

	lines := []string{"", title, ""}

	epWidth := len("ENDPOINT")
	for _, e := range rep.Entries {
		epWidth = max(epWidth, lipgloss.Width(e.Endpoint))
	}
	lines = append(lines, DetailStyle.Render(fmt.Sprintf("  %-*s  %-8s  %8s  %s", epWidth, "ENDPOINT", "STATUS", "ELAPSED", "DETAIL")))
	for _, e := range rep.Entries {
		lines = append(lines, entryRow(e, epWidth))
	}
	if len(rep.Entries) == 0 {
		lines = append(lines, DetailStyle.Render("  no devices matched"))
	}
	lines = append(lines, "")

	succeeded, failed, aborted := rep.Counts()
	lines = append(lines,
		detail("Run", rep.RunID),
		detail("Devices", fmt.Sprintf("%d", len(rep.Entries))),
		detail("Succeeded", fmt.Sprintf("%d", succeeded)),
		detail("Failed", fmt.Sprintf("%d", failed)),
		detail("Aborted", fmt.Sprintf("%d", aborted)),
		detail("Elapsed", formatElapsed(rep.Elapsed())),
		"",
	)

	return BoxStyle(width, color).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (s *Summary) String() string {
	return s.Render()
}

func entryRow(e report.Entry, epWidth int) string {
	style, marker := StatusStyle(e.Status)

	var why string
	switch {
	case e.Status == fota.StatusFailure && e.Code != 0:
		why = fmt.Sprintf("%d: %s", e.Code, fota.UpdateResultName(e.Code))
	case e.Status != fota.StatusSuccess:
		why = e.Reason
	}
	if e.DeviceType != "" {
		why = strings.TrimSpace(e.DeviceType + "  " + why)
	}

	return fmt.Sprintf("%s %s  %s  %s  %s",
		style.Render(marker),
		EndpointStyle.Render(fmt.Sprintf("%-*s", epWidth, e.Endpoint)),
		style.Render(fmt.Sprintf("%-8s", e.Status)),
		DetailStyle.Render(fmt.Sprintf("%8s", formatElapsed(e.Elapsed()))),
		DetailStyle.Render(why),
	)
}

func detail(key, value string) string {
	return ResultKeyStyle.Render("  "+key+":") + " " + ResultValueStyle.Render(value)
}

func formatElapsed(d time.Duration) string {
	return d.Truncate(time.Second).String()
}

// RenderLoopReport renders the outcome of a reset run
func RenderLoopReport(rep *report.LoopReport, width int) string {
	width = max(width, MinTerminalWidth)

	color := SuccessColor
	switch rep.ExitCode() {
	case report.ExitAborted:
		color = WarningColor
	case report.ExitFailure:
		color = ErrorColor
	}

	lines := []string{""}
	for _, l := range rep.Loops {
		style, marker := StatusStyle(l.Status)
		line := fmt.Sprintf("%s Loop %-4d %s", style.Render(marker), l.Index, style.Render(l.Status.String()))
		if l.Status != fota.StatusSuccess && l.Reason != "" {
			line += "  " + DetailStyle.Render(l.Reason)
		}
		line += "  " + DetailStyle.Render(fmt.Sprintf("%d reset, %s", l.Reset, formatElapsed(l.EndedAt.Sub(l.StartedAt))))
		lines = append(lines, line)
	}

	text := rep.Lines()
	lines = append(lines, "", ResultValueStyle.Render(text[len(text)-1]), "")

	return BoxStyle(width, color).Render(strings.Join(lines, "\n"))
}

package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase must be typed to confirm a fleet-wide operation
const ConfirmPhrase = "yes"

// Confirm displays a warning box and prompts the user to type
// ConfirmPhrase. Returns true if the user confirmed.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", title)), ""}
	bullet := lipgloss.NewStyle().Foreground(TextColor)
	for _, warning := range warnings {
		lines = append(lines, bullet.Render("   • "+warning))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, BoxStyle(width, WarningColor).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	if strings.EqualFold(strings.TrimSpace(input), ConfirmPhrase) {
		return true
	}

	_, _ = fmt.Fprintln(out, DetailStyle.Render("  Operation cancelled."))
	return false
}

// ConfirmFleetOperation asks before an operation that reaches every
// connected device
func ConfirmFleetOperation(in io.Reader, out io.Writer, operation, server string, devices int) bool {
	return Confirm(in, out, strings.ToUpper(operation)+" ON THE WHOLE FLEET", []string{
		"No endpoint or device-type filter was given",
		fmt.Sprintf("%d connected device(s) will be targeted", devices),
		"Server: " + server,
		"Press Ctrl+C during the run to abort outstanding devices",
	})
}

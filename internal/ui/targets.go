package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/leshan-fleet/internal/discovery"
)

// NoDeviceType is shown for targets listed without a device-type read
const NoDeviceType = "-"

// RenderTargetTable renders targets as a bordered ENDPOINT / DEVICE TYPE table
func RenderTargetTable(targets []discovery.Target) string {
	rows := make([][]string, 0, len(targets))
	for _, t := range targets {
		dt := t.DeviceType
		if dt == "" {
			dt = NoDeviceType
		}
		rows = append(rows, []string{t.Endpoint, dt})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Headers("ENDPOINT", "DEVICE TYPE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return ResultKeyStyle.Padding(0, 1)
			case col == 0:
				return EndpointStyle.Padding(0, 1)
			default:
				return DetailStyle.Padding(0, 1)
			}
		}).
		Render()
}

// Package ui provides terminal output for the leshan-fleet CLI.
//
// Lipgloss renders the run header and the summary boxes printed when a run
// ends. A Bubble Tea dashboard (enabled with --tui) subscribes to the run's
// event bus and shows one row per device with a progress bar of finished
// devices.
//
// # Components
//
//   - Header: banner with the operation and its parameters
//   - Summary: per-device table and totals for a fleet run
//   - RenderLoopReport: per-loop outcome of a reset run
//   - Dashboard: live view fed by events.Bus
//   - Confirm: typed confirmation before a fleet-wide operation
//
// # Logging Integration
//
// Log lines would interleave with the redrawn view, so the CLI silences the
// logger while the dashboard owns the terminal unless --log-file sends the
// log to a file.
package ui

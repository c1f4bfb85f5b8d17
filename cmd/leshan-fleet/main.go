// Leshan-fleet drives firmware-over-the-air updates across a fleet of
// LWM2M devices through the REST API of a Leshan management server.
//
// It discovers connected devices, filters them by endpoint name or device
// type, and runs download and apply phases on a bounded pool of workers,
// printing a per-device summary when the run ends. It also toggles device
// lights, reboots devices in a loop and waits for devices to connect.
//
// Usage:
//
//	leshan-fleet [command] [flags]
//
// Exit status is 0 when every device succeeded, 1 when any device failed
// and 130 when the run was interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/version"
)

// exitCode is set by commands whose outcome is a run report
var exitCode int

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:   "leshan-fleet",
	Short: "LWM2M fleet firmware update orchestrator",
	Long: `Orchestrates firmware-over-the-air updates for LWM2M devices
registered with a Leshan management server.

Devices are discovered through the server's REST API, optionally filtered
by endpoint name or device type, and updated in parallel by a bounded pool
of workers. Press Ctrl+C to abort; devices still in progress are reported
as ABORTED.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No profile or logger is needed
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("leshan-fleet %s\n", version.Full())
	},
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/fleet"
	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/report"
	"github.com/muurk/leshan-fleet/internal/ui"
)

// Reset and wait command flags
var (
	targetCount int
	resetLoops  int
	resetDelay  time.Duration
	maxWaits    int
	waitTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(waitCmd)
}

// resetCmd implements the 'reset' command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reboot connected devices in a loop",
	Long: `Repeatedly reboot every connected device and wait for the fleet to come back.

Each loop waits until at least --targets devices answer the liveness probe
(3/0/2), executes the reboot resource (3/0/4) on every registered endpoint,
sleeps --delay and then waits again, failing the loop after --max-waits
polls that found too few devices. The command stops at the first loop that
does not succeed.`,
	Example: `  # Five reboot cycles of a 10 device test rack
  leshan-fleet reset --targets 10 --loops 5

  # Loop until interrupted
  leshan-fleet reset --targets 10 --loops 0 --delay 1m`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().IntVar(&targetCount, "targets", 0, "Number of live devices required before and after each reset (required)")
	resetCmd.Flags().IntVar(&resetLoops, "loops", 1, "Number of reset loops (0 loops until interrupted)")
	resetCmd.Flags().DurationVar(&resetDelay, "delay", fleet.DefaultResetDelay, "Pause after sending the resets")
	resetCmd.Flags().IntVar(&maxWaits, "max-waits", fleet.DefaultMaxWaits, "Liveness polls allowed after a reset before the loop fails")
	_ = resetCmd.MarkFlagRequired("targets")
}

func runReset(cmd *cobra.Command, args []string) error {
	if targetCount < 1 {
		return fmt.Errorf("--targets must be at least 1, got %d", targetCount)
	}
	if resetLoops < 0 {
		return fmt.Errorf("--loops must not be negative, got %d", resetLoops)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	client, base, err := newClient(ctx)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	defer bus.Close()
	rc := fleet.NewRunContext(ctx, bus)
	defer rc.Close()

	loops := "until interrupted"
	if resetLoops > 0 {
		loops = strconv.Itoa(resetLoops)
	}
	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader(ui.NewHeader("Reset loop", "leshan-fleet reset").
		Add("Server", base).
		Add("Targets", strconv.Itoa(targetCount)).
		Add("Loops", loops).
		Add("Delay", resetDelay.String()).
		Add("Max waits", strconv.Itoa(maxWaits)).
		Add("Run", rc.ID))

	r := &fleet.Resetter{
		Lister:   discovery.NewDiscoverer(client),
		Device:   client,
		Run:      rc,
		Targets:  targetCount,
		Loops:    resetLoops,
		Delay:    resetDelay,
		MaxWaits: maxWaits,
		Interval: settings.PollInterval.Std(),
	}
	rep := r.Reset()

	rep.Log()
	printer.PrintLoopReport(rep)
	exitCode = rep.ExitCode()
	return nil
}

// waitCmd implements the 'wait' command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until enough devices are connected",
	Long: `Poll the management server until at least --targets registered devices
answer the liveness probe (3/0/2).`,
	Example: `  # Block until 10 devices are up, for at most 5 minutes
  leshan-fleet wait --targets 10 --timeout 5m`,
	RunE: runWait,
}

func init() {
	waitCmd.Flags().IntVar(&targetCount, "targets", 0, "Number of live devices to wait for (required)")
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "Give up after this long (0 waits forever)")
	_ = waitCmd.MarkFlagRequired("targets")
}

func runWait(cmd *cobra.Command, args []string) error {
	if targetCount < 1 {
		return fmt.Errorf("--targets must be at least 1, got %d", targetCount)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	client, base, err := newClient(ctx)
	if err != nil {
		return err
	}

	logging.Info("Waiting for targets",
		zap.String("server", base),
		zap.Int("targets", targetCount),
		zap.Duration("timeout", waitTimeout),
	)

	w := &fleet.Waiter{
		Counter:  discovery.NewDiscoverer(client),
		Targets:  targetCount,
		Interval: settings.PollInterval.Std(),
		Timeout:  waitTimeout,
	}
	count, err := w.Wait(ctx)

	switch {
	case err == nil:
		fmt.Printf("%d target(s) connected\n", count)
		exitCode = report.ExitSuccess
	case errors.Is(err, fleet.ErrAborted):
		fmt.Printf("Aborted with %d of %d target(s) connected\n", count, targetCount)
		exitCode = report.ExitAborted
	default:
		fmt.Printf("%v: %d of %d target(s) connected\n", err, count, targetCount)
		exitCode = report.ExitFailure
	}
	return nil
}

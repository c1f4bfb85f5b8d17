package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/leshan-fleet/internal/config"
	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/fleet"
	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/lwm2m"
	"github.com/muurk/leshan-fleet/internal/monitor"
	"github.com/muurk/leshan-fleet/internal/report"
	"github.com/muurk/leshan-fleet/internal/ui"
)

// Target selection and run presentation flags
var (
	clientEndpoint string
	endpointFilter string
	assumeYes      bool
	useTUI         bool
	monitorListen  string
)

// Update command flags
var (
	firmwareURL   string
	monitorUpdate bool
	singlePhase   bool
)

// monitorShutdownTimeout bounds the monitor server shutdown at the end of a run
const monitorShutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(toggleCmd)
}

// addTargetFlags registers the selection and presentation flags of a fleet command
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&clientEndpoint, "client", "", "Exact endpoint to act on (skips discovery)")
	cmd.Flags().StringVar(&endpointFilter, "filter", "", "Only devices whose endpoint contains this string")
	cmd.Flags().StringVar(&deviceType, "device-type", "", "Only devices whose resource 3/0/1 equals this value")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultMaxWorkers, "Maximum devices handled concurrently")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before acting on the whole fleet")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show a live dashboard while the run is in progress")
	cmd.Flags().StringVar(&monitorListen, "monitor-listen", "", "Serve run events on this address (GET /events, GET /status)")

	cmd.MarkFlagsMutuallyExclusive("client", "filter")
	cmd.MarkFlagsMutuallyExclusive("client", "device-type")
}

// updateCmd implements the 'update' command
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update firmware on connected devices",
	Long: `Request a firmware download on every selected device and, with --monitor,
follow each device until the new image is applied.

The run has two phases by default: downloads run on a pool of --workers,
and once every download has finished the successful devices are updated on
a second pool of --apply-workers. --single-phase downloads and applies on
one worker per device instead.

Without --monitor the command returns as soon as every device accepted the
package URI.`,
	Example: `  # Request the download on every device whose endpoint contains "gw-"
  leshan-fleet update --url coap://fw.example/zephyr.signed.bin --filter gw-

  # Update and follow 8 devices at a time, applying 2 at a time
  leshan-fleet update --url coap://fw.example/zephyr.signed.bin \
      --device-type nrf9160 --monitor --workers 8 --apply-workers 2

  # Single device, with a live dashboard
  leshan-fleet update --url coap://fw.example/zephyr.signed.bin \
      --client nrf-352656100123456 --monitor --tui`,
	RunE: runUpdate,
}

func init() {
	addTargetFlags(updateCmd)
	updateCmd.Flags().StringVar(&firmwareURL, "url", "", "Firmware package URI written to resource 5/0/1 (required)")
	updateCmd.Flags().BoolVar(&monitorUpdate, "monitor", false, "Follow each device through download and apply")
	updateCmd.Flags().BoolVar(&singlePhase, "single-phase", false, "Download and apply on one worker per device")
	updateCmd.Flags().IntVar(&applyWorkers, "apply-workers", 0, "Maximum devices applying concurrently (default: --workers)")
	updateCmd.Flags().DurationVar(&deviceTimeout, "device-timeout", config.DefaultDeviceTimeout, "Give up on a device after this long in one phase (0 waits forever)")
	_ = updateCmd.MarkFlagRequired("url")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	opts := fleet.UpdateOptions{
		URL:           firmwareURL,
		Monitor:       monitorUpdate,
		SinglePhase:   singlePhase,
		Workers:       settings.MaxWorkers,
		ApplyWorkers:  settings.ApplyWorkers(),
		PollInterval:  settings.PollInterval.Std(),
		DeviceTimeout: settings.DeviceTimeout.Std(),
	}

	mode := "two-phase"
	if opts.SinglePhase {
		mode = "single-phase"
	}
	header := ui.NewHeader("Firmware update", "leshan-fleet update").
		Add("Firmware", opts.URL).
		Add("Mode", mode).
		Add("Monitor", strconv.FormatBool(opts.Monitor)).
		Add("Workers", strconv.Itoa(opts.Workers))
	if !opts.SinglePhase && opts.Monitor {
		header.Add("Apply workers", strconv.Itoa(opts.ApplyWorkers))
	}
	if opts.DeviceTimeout > 0 {
		header.Add("Device timeout", opts.DeviceTimeout.String())
	}

	return runFleet(cmd, fleetOperation{
		name:   "update",
		title:  "Firmware update",
		header: header,
		run: func(client *lwm2m.Client, rc *fleet.RunContext, targets []discovery.Target) *report.Report {
			return fleet.NewUpdater(client, rc, opts).Update(targets)
		},
	})
}

// toggleCmd implements the 'toggle-lights' command
var toggleCmd = &cobra.Command{
	Use:   "toggle-lights",
	Short: "Toggle the light of connected devices",
	Long: `Read the on/off state of the light control object (3311/0/5850) on every
selected device and write back its negation.`,
	Example: `  # Toggle every device whose endpoint contains "lab-"
  leshan-fleet toggle-lights --filter lab- --workers 4`,
	RunE: runToggle,
}

func init() {
	addTargetFlags(toggleCmd)
}

func runToggle(cmd *cobra.Command, args []string) error {
	header := ui.NewHeader("Toggle lights", "leshan-fleet toggle-lights").
		Add("Workers", strconv.Itoa(settings.MaxWorkers))

	return runFleet(cmd, fleetOperation{
		name:   "toggle",
		title:  "Toggle lights",
		header: header,
		run: func(client *lwm2m.Client, rc *fleet.RunContext, targets []discovery.Target) *report.Report {
			t := &fleet.Toggler{Device: client, Run: rc, Workers: settings.MaxWorkers}
			return t.Toggle(targets)
		},
	})
}

// fleetOperation is a per-device operation run through the worker pool
type fleetOperation struct {
	name   string
	title  string
	header *ui.Header
	run    func(client *lwm2m.Client, rc *fleet.RunContext, targets []discovery.Target) *report.Report
}

// signalContext returns a context cancelled by SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// selectTargets returns the devices the run acts on
func selectTargets(ctx context.Context, d *discovery.Discoverer) ([]discovery.Target, error) {
	if clientEndpoint != "" {
		return []discovery.Target{{Endpoint: clientEndpoint}}, nil
	}
	return d.ListTargets(ctx, targetFilter())
}

// targetFilter is the discovery filter built from --filter and --device-type
func targetFilter() discovery.Filter {
	return discovery.Filter{Endpoint: endpointFilter, DeviceType: settings.DeviceType}
}

// fleetWide reports whether no selection narrows the run
func fleetWide() bool {
	return clientEndpoint == "" && targetFilter().IsEmpty()
}

// runFleet discovers targets, runs op over them and reports the outcome
func runFleet(cmd *cobra.Command, op fleetOperation) error {
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

	targets, err := selectTargets(rc.Context(), discovery.NewDiscoverer(client))
	if err != nil {
		return fmt.Errorf("target discovery failed: %w", err)
	}
	logging.Info("Targets selected",
		zap.String("run_id", rc.ID),
		zap.String("server", base),
		zap.Int("targets", len(targets)),
	)

	if fleetWide() && !assumeYes && len(targets) > 0 && ui.IsTerminal(os.Stdin) {
		if !ui.ConfirmFleetOperation(os.Stdin, os.Stdout, op.name, base, len(targets)) {
			return nil
		}
	}

	printer := ui.NewPrinter(os.Stdout)
	op.header.Add("Server", base).
		Add("Filter", endpointFilter).
		Add("Client", clientEndpoint).
		Add("Device type", settings.DeviceType).
		Add("Devices", strconv.Itoa(len(targets))).
		Add("Run", rc.ID)
	printer.PrintHeader(op.header)

	var mon *monitor.Server
	if monitorListen != "" {
		mon = monitor.New(&monitor.Config{Addr: monitorListen}, bus)
		if err := mon.Start(); err != nil {
			return err
		}
		printer.Println(ui.DetailStyle.Render(fmt.Sprintf("  Monitor: ws://%s/events", mon.Addr())))
	}

	var rep *report.Report
	if useTUI && ui.IsTerminal(os.Stdout) {
		rep = runWithDashboard(op, client, rc, bus, targets)
	} else {
		rep = op.run(client, rc, targets)
	}
	bus.Close()

	if mon != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), monitorShutdownTimeout)
		if err := mon.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Monitor shutdown failed", zap.Error(err))
		}
		cancel()
	}

	rep.Log()
	printer.PrintReport(rep)
	if dropped := bus.Dropped(); dropped > 0 {
		logging.Debug("Slow event subscribers skipped events", zap.Uint64("dropped", dropped))
	}

	exitCode = rep.ExitCode()
	return nil
}

// runWithDashboard runs op in the background while the dashboard owns the
// terminal. Logging is silenced unless it goes to a file.
func runWithDashboard(op fleetOperation, client *lwm2m.Client, rc *fleet.RunContext, bus *events.Bus, targets []discovery.Target) *report.Report {
	stream, unsubscribe := bus.Subscribe(events.DefaultBuffer)
	defer unsubscribe()

	if logFile == "" {
		previous := logging.GetLogger()
		logging.SetLogger(zap.NewNop())
		defer logging.SetLogger(previous)
	}

	done := make(chan *report.Report, 1)
	go func() {
		rep := op.run(client, rc, targets)
		unsubscribe()
		done <- rep
	}()

	if err := ui.RunDashboard(op.title, stream, rc.Abort); err != nil {
		logging.Warn("Dashboard stopped", zap.Error(err))
	}
	return <-done
}

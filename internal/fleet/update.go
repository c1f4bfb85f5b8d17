package fleet

import (
	"time"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/report"
	"go.uber.org/zap"
)

// UpdateOptions configures a fleet firmware update
type UpdateOptions struct {
	// URL is the firmware package URI
	URL string

	// Monitor follows each device through download and apply. Without it
	// the run ends once every download has been requested.
	Monitor bool

	// SinglePhase downloads and applies on one worker per device
	SinglePhase bool

	// Workers bounds the download phase (and the single-phase pool)
	Workers int

	// ApplyWorkers bounds the apply phase. Zero means Workers.
	ApplyWorkers int

	PollInterval  time.Duration
	DeviceTimeout time.Duration
}

// Updater runs firmware updates across targets
type Updater struct {
	Machine *fota.Machine
	Run     *RunContext
	Options UpdateOptions

	// Pools holds the pools of the last Update, in phase order
	Pools []*Pool
}

// NewUpdater creates an updater whose devices are reached through device
func NewUpdater(device fota.Device, rc *RunContext, opts UpdateOptions) *Updater {
	m := fota.NewMachine(device, fota.Config{
		URL:           opts.URL,
		Monitor:       opts.Monitor,
		PollInterval:  opts.PollInterval,
		DeviceTimeout: opts.DeviceTimeout,
	})
	m.Events = rc
	return &Updater{Machine: m, Run: rc, Options: opts}
}

// Update runs the update over targets and returns the run report
func (u *Updater) Update(targets []discovery.Target) *report.Report {
	start := time.Now()
	logging.Info("Starting firmware update",
		zap.String("run_id", u.Run.ID),
		zap.String("url", u.Options.URL),
		zap.Int("targets", len(targets)),
		zap.Bool("monitor", u.Options.Monitor),
		zap.Bool("single_phase", u.Options.SinglePhase),
	)

	if u.Options.SinglePhase {
		pool := NewPool(u.Run, fota.PhaseUpdate, u.Options.Workers)
		u.Pools = []*Pool{pool}
		actions := pool.Run(targets, u.Machine.Run)
		return report.Build(u.Run.ID, "update", start, u.Run.Aborted(), actions)
	}

	download := NewPool(u.Run, fota.PhaseDownload, u.Options.Workers)
	u.Pools = []*Pool{download}
	downloads := download.Run(targets, u.Machine.Download)

	if !u.Options.Monitor || u.Run.Aborted() {
		return report.Build(u.Run.ID, "update", start, u.Run.Aborted(), downloads)
	}

	ready := make([]discovery.Target, 0, len(downloads))
	for _, a := range downloads {
		if report.Classify(a).Status == fota.StatusSuccess {
			ready = append(ready, a.Target)
		}
	}
	logging.Info("Download phase complete",
		zap.String("run_id", u.Run.ID),
		zap.Int("downloaded", len(ready)),
		zap.Int("attempted", len(downloads)),
	)

	applyWorkers := u.Options.ApplyWorkers
	if applyWorkers <= 0 {
		applyWorkers = u.Options.Workers
	}
	apply := NewPool(u.Run, fota.PhaseApply, applyWorkers)
	u.Pools = append(u.Pools, apply)
	applies := apply.Run(ready, u.Machine.Apply)

	return report.Build(u.Run.ID, "update", start, u.Run.Aborted(), downloads, applies)
}

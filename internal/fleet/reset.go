package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/lwm2m"
	"github.com/muurk/leshan-fleet/internal/report"
	"go.uber.org/zap"
)

// Defaults for Resetter
const (
	DefaultResetDelay = 45 * time.Second
	DefaultMaxWaits   = 6
)

// Executor issues execute calls
type Executor interface {
	Execute(ctx context.Context, p lwm2m.Path) error
}

// TargetLister lists and counts connected devices. *discovery.Discoverer
// implements it.
type TargetLister interface {
	Counter
	ListTargets(ctx context.Context, filter discovery.Filter) ([]discovery.Target, error)
}

// Resetter repeatedly reboots a set of devices and waits for them to return
type Resetter struct {
	Lister TargetLister
	Device Executor
	Run    *RunContext

	// Targets is the number of live devices required before and after
	// each reset
	Targets int

	// Loops is the number of iterations. Zero loops until aborted.
	Loops int

	// Delay is the pause after sending the resets
	Delay time.Duration

	// MaxWaits bounds the insufficient counts after a reset
	MaxWaits int

	// Interval is the sleep between liveness counts
	Interval time.Duration
}

// Reset runs the loop and returns one outcome per iteration. It stops at
// the first failed or aborted iteration.
func (r *Resetter) Reset() *report.LoopReport {
	rep := &report.LoopReport{RunID: r.Run.ID, StartedAt: time.Now()}
	ctx := r.Run.Context()

	for i := 1; r.Loops == 0 || i <= r.Loops; i++ {
		if r.Run.Aborted() {
			break
		}
		logging.Info("Begin reset loop", zap.String("run_id", r.Run.ID), zap.Int("loop", i))

		loop := report.Loop{Index: i, StartedAt: time.Now()}
		loop.Reset, loop.Status, loop.Reason = r.iteration(ctx, i)
		loop.EndedAt = time.Now()
		rep.Loops = append(rep.Loops, loop)

		logging.Info("End reset loop",
			zap.String("run_id", r.Run.ID),
			zap.Int("loop", i),
			zap.String("status", loop.Status.String()),
			zap.String("reason", loop.Reason),
		)
		if loop.Status != fota.StatusSuccess {
			break
		}
	}

	rep.Aborted = r.Run.Aborted()
	rep.EndedAt = time.Now()
	return rep
}

func (r *Resetter) iteration(ctx context.Context, loop int) (int, fota.Status, string) {
	before := &Waiter{Counter: r.Lister, Targets: r.Targets, Interval: r.Interval}
	if _, err := before.Wait(ctx); err != nil {
		return 0, r.classify(err), "waiting for targets before reset"
	}

	targets, err := r.Lister.ListTargets(ctx, discovery.Filter{})
	if err != nil {
		if r.Run.Aborted() {
			return 0, fota.StatusAborted, "listing targets"
		}
		return 0, fota.StatusFailure, "client listing unavailable"
	}

	sent := 0
	for _, target := range targets {
		if r.Run.Aborted() {
			return sent, fota.StatusAborted, "sending resets"
		}
		if err := r.Device.Execute(ctx, lwm2m.Reboot(target.Endpoint)); err != nil {
			logging.Warn("Reset rejected", zap.String("endpoint", target.Endpoint), zap.Error(err))
			continue
		}
		sent++
		r.Run.Publish(events.Event{
			Endpoint:       target.Endpoint,
			Phase:          "reset",
			State:          events.StateRequested,
			DownloadStatus: events.Unknown,
			UpdateResult:   events.Unknown,
			Message:        fmt.Sprintf("loop %d", loop),
		})
	}
	logging.Info("Reset targets", zap.Int("loop", loop), zap.Int("sent", sent), zap.Int("listed", len(targets)))

	delay := r.Delay
	if delay <= 0 {
		delay = DefaultResetDelay
	}
	logging.Info("Waiting after reset", zap.Duration("delay", delay))
	if err := sleepContext(ctx, delay); err != nil {
		return sent, fota.StatusAborted, "waiting after reset"
	}

	maxWaits := r.MaxWaits
	if maxWaits <= 0 {
		maxWaits = DefaultMaxWaits
	}
	after := &Waiter{Counter: r.Lister, Targets: r.Targets, Interval: r.Interval, MaxWaits: maxWaits}
	if _, err := after.Wait(ctx); err != nil {
		return sent, r.classify(err), "waiting for targets after reset"
	}
	return sent, fota.StatusSuccess, ""
}

func (r *Resetter) classify(err error) fota.Status {
	if errors.Is(err, ErrAborted) || r.Run.Aborted() {
		return fota.StatusAborted
	}
	return fota.StatusFailure
}

package fleet

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Work drives one action to a terminal result
type Work func(ctx context.Context, a *fota.Action) fota.Result

// Pool runs one worker per target with bounded concurrency
type Pool struct {
	run        *RunContext
	phase      fota.Phase
	maxWorkers int

	active atomic.Int64
	peak   atomic.Int64
}

// NewPool creates a pool for one phase of a run. maxWorkers below 1 is
// treated as 1.
func NewPool(rc *RunContext, phase fota.Phase, maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{run: rc, phase: phase, maxWorkers: maxWorkers}
}

// Run starts a worker per target, in order, waiting for a free slot before
// each. No worker starts once the run is aborted. Run returns after every
// started worker has finished; the actions are in target order.
func (p *Pool) Run(targets []discovery.Target, work Work) []*fota.Action {
	ctx := p.run.Context()
	sem := semaphore.NewWeighted(int64(p.maxWorkers))
	actions := make([]*fota.Action, 0, len(targets))

	logging.Info("Starting phase",
		zap.String("run_id", p.run.ID),
		zap.String("phase", string(p.phase)),
		zap.Int("targets", len(targets)),
		zap.Int("max_workers", p.maxWorkers),
	)

	var wg sync.WaitGroup
	for _, target := range targets {
		if p.run.Aborted() {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}

		a := fota.NewAction(target, p.phase)
		if !p.run.track(a) {
			sem.Release(1)
			break
		}
		actions = append(actions, a)
		p.publish(a, events.StateQueued, "")

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer p.run.untrack(a)

			p.enter()
			defer p.active.Add(-1)

			a.Finish(work(ctx, a))
			r := a.Result()
			logging.Info("Device finished",
				zap.String("run_id", p.run.ID),
				zap.String("endpoint", a.Endpoint()),
				zap.String("phase", string(p.phase)),
				zap.String("result", r.String()),
				zap.Duration("elapsed", a.Elapsed()),
			)
			p.publishResult(a, r)
		}()
	}

	wg.Wait()

	if skipped := len(targets) - len(actions); skipped > 0 {
		logging.Warn("Targets not started",
			zap.String("run_id", p.run.ID),
			zap.String("phase", string(p.phase)),
			zap.Int("skipped", skipped),
		)
	}
	return actions
}

// Peak returns the highest number of workers that were active at once
func (p *Pool) Peak() int {
	return int(p.peak.Load())
}

func (p *Pool) enter() {
	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (p *Pool) publish(a *fota.Action, state, message string) {
	p.run.Publish(events.Event{
		Endpoint:       a.Endpoint(),
		Phase:          string(a.Phase),
		State:          state,
		DownloadStatus: a.DownloadStatus,
		UpdateResult:   a.UpdateResult,
		Message:        message,
	})
}

func (p *Pool) publishResult(a *fota.Action, r fota.Result) {
	p.run.Publish(events.Event{
		Endpoint:       a.Endpoint(),
		Phase:          string(a.Phase),
		State:          events.StateFinished,
		Status:         r.Status.String(),
		DownloadStatus: a.DownloadStatus,
		UpdateResult:   a.UpdateResult,
		Code:           r.Code,
		Message:        r.Reason,
	})
}

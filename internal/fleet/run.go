package fleet

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/logging"
	"go.uber.org/zap"
)

// RunContext is the state shared by every worker of one run
type RunContext struct {
	// ID identifies the run in logs, events and the report
	ID string

	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stop    func() bool
	aborted atomic.Bool
	events  events.Publisher

	mu   sync.Mutex
	live map[*fota.Action]struct{}
}

// NewRunContext creates a run. Cancelling parent aborts the run.
// publisher may be nil.
func NewRunContext(parent context.Context, publisher events.Publisher) *RunContext {
	ctx, cancel := context.WithCancel(parent)
	rc := &RunContext{
		ID:     uuid.NewString(),
		parent: parent,
		ctx:    ctx,
		cancel: cancel,
		events: publisher,
		live:   make(map[*fota.Action]struct{}),
	}
	rc.stop = context.AfterFunc(parent, rc.Abort)
	return rc
}

// Context returns the context workers run under. It is done once the run
// is aborted or closed.
func (rc *RunContext) Context() context.Context {
	return rc.ctx
}

// Abort sets the abort flag, cancels the run context and flags every live
// action. Only the first call has any effect.
func (rc *RunContext) Abort() {
	if !rc.aborted.CompareAndSwap(false, true) {
		return
	}

	rc.mu.Lock()
	live := len(rc.live)
	for a := range rc.live {
		a.Abort()
	}
	rc.mu.Unlock()

	logging.Warn("Run aborted", zap.String("run_id", rc.ID), zap.Int("live_devices", live))
	rc.Publish(events.Event{
		State:          events.StateAborting,
		DownloadStatus: events.Unknown,
		UpdateResult:   events.Unknown,
	})
	rc.cancel()
}

// Aborted reports whether the run was aborted
func (rc *RunContext) Aborted() bool {
	return rc.aborted.Load() || rc.parent.Err() != nil
}

// Close releases the run context without aborting it
func (rc *RunContext) Close() {
	rc.stop()
	rc.cancel()
}

// Publish stamps the run ID on e and forwards it
func (rc *RunContext) Publish(e events.Event) {
	if rc.events == nil {
		return
	}
	e.RunID = rc.ID
	rc.events.Publish(e)
}

// track registers a live action. It reports false, without registering,
// once the run is aborted.
func (rc *RunContext) track(a *fota.Action) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.aborted.Load() {
		return false
	}
	rc.live[a] = struct{}{}
	return true
}

func (rc *RunContext) untrack(a *fota.Action) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.live, a)
}

package fota

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/events"
)

// Phase names the part of a fleet operation an Action performs
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseApply    Phase = "apply"
	PhaseUpdate   Phase = "update" // download and apply on one worker
	PhaseToggle   Phase = "toggle"
)

// Status is the terminal classification of an Action
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusFailure
	StatusAborted
)

// String returns the name used in logs and the run summary
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILED"
	case StatusAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the terminal outcome of one Action
type Result struct {
	Status Status
	Code   int    // update result code for failures, CodeTimeout on timeout
	Reason string // short human-readable cause
}

// Success returns a successful result
func Success(reason string) Result {
	return Result{Status: StatusSuccess, Reason: reason}
}

// Failure returns a failed result carrying code
func Failure(code int, reason string) Result {
	return Result{Status: StatusFailure, Code: code, Reason: reason}
}

// Aborted returns the result recorded when cancellation was observed
func Aborted(reason string) Result {
	return Result{Status: StatusAborted, Reason: reason}
}

// String formats the result for logs
func (r Result) String() string {
	if r.Status == StatusFailure && r.Code != 0 {
		return fmt.Sprintf("%s (%d: %s)", r.Status, r.Code, UpdateResultName(r.Code))
	}
	if r.Reason != "" {
		return fmt.Sprintf("%s (%s)", r.Status, r.Reason)
	}
	return r.Status.String()
}

// Action tracks one target through one phase. Only its worker mutates the
// exported fields; the abort flag may be set from any goroutine.
type Action struct {
	Target discovery.Target
	Phase  Phase

	// DownloadStatus and UpdateResult hold the last values read, or
	// events.Unknown
	DownloadStatus int
	UpdateResult   int

	// Requested is set once the package URI write was accepted
	Requested bool

	StartedAt time.Time
	EndedAt   time.Time

	aborted atomic.Bool
	result  atomic.Pointer[outcome]
}

// outcome pairs the terminal result with whether an abort had been observed
// when it was recorded, so a late Abort cannot reclassify a finished action.
type outcome struct {
	result      Result
	interrupted bool
}

// NewAction creates an action for target, started now
func NewAction(target discovery.Target, phase Phase) *Action {
	return &Action{
		Target:         target,
		Phase:          phase,
		DownloadStatus: events.Unknown,
		UpdateResult:   events.Unknown,
		StartedAt:      time.Now(),
	}
}

// Endpoint returns the target endpoint
func (a *Action) Endpoint() string {
	return a.Target.Endpoint
}

// Abort flags a live action as aborted. It has no effect once the action
// has finished.
func (a *Action) Abort() {
	a.aborted.Store(true)
}

// AbortRequested reports whether Abort was called while the action was live.
// Once finished, the answer is fixed at the moment Finish recorded the result.
func (a *Action) AbortRequested() bool {
	if o := a.result.Load(); o != nil {
		return o.interrupted
	}
	return a.aborted.Load()
}

// Finish records the terminal result and the end time. Only the first call
// has any effect; it reports whether this call recorded the result.
func (a *Action) Finish(r Result) bool {
	if !a.result.CompareAndSwap(nil, &outcome{result: r, interrupted: a.aborted.Load()}) {
		return false
	}
	a.EndedAt = time.Now()
	return true
}

// Done reports whether a result has been recorded
func (a *Action) Done() bool {
	return a.result.Load() != nil
}

// Result returns the recorded result, or a pending result if the action has
// not finished
func (a *Action) Result() Result {
	if o := a.result.Load(); o != nil {
		return o.result
	}
	return Result{Status: StatusPending}
}

// Elapsed returns the time between start and end, or since start while live
func (a *Action) Elapsed() time.Duration {
	if a.EndedAt.IsZero() {
		return time.Since(a.StartedAt)
	}
	return a.EndedAt.Sub(a.StartedAt)
}

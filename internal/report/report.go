package report

import (
	"fmt"
	"time"

	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/logging"
	"go.uber.org/zap"
)

// Process exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitAborted = 130
)

// Entry is the outcome of one endpoint
type Entry struct {
	Endpoint   string
	DeviceType string
	Status     fota.Status
	Code       int
	Reason     string

	// Phase is the last phase the endpoint reached
	Phase fota.Phase

	StartedAt time.Time
	EndedAt   time.Time
}

// Elapsed returns the time spent on the endpoint across all its phases
func (e Entry) Elapsed() time.Duration {
	if e.EndedAt.IsZero() || e.StartedAt.IsZero() {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// Report is the summary of one fleet run
type Report struct {
	RunID     string
	Operation string
	Entries   []Entry
	Aborted   bool
	StartedAt time.Time
	EndedAt   time.Time
}

// Classify returns the terminal classification of one action
func Classify(a *fota.Action) fota.Result {
	r := a.Result()
	switch {
	case r.Status == fota.StatusAborted:
		return r
	case a.AbortRequested() && r.Status != fota.StatusSuccess:
		return fota.Aborted("interrupted")
	case r.Status == fota.StatusSuccess:
		return r
	case r.Status == fota.StatusPending:
		return fota.Failure(r.Code, "did not finish")
	default:
		return r
	}
}

// Build groups the actions of every phase by endpoint and classifies them.
// Endpoints keep the order in which they first appear.
func Build(runID, operation string, startedAt time.Time, aborted bool, phases ...[]*fota.Action) *Report {
	rep := &Report{
		RunID:     runID,
		Operation: operation,
		Aborted:   aborted,
		StartedAt: startedAt,
		EndedAt:   time.Now(),
	}

	index := make(map[string]int)
	for _, actions := range phases {
		for _, a := range actions {
			r := Classify(a)
			i, seen := index[a.Endpoint()]
			if !seen {
				i = len(rep.Entries)
				index[a.Endpoint()] = i
				rep.Entries = append(rep.Entries, Entry{
					Endpoint:  a.Endpoint(),
					StartedAt: a.StartedAt,
				})
			}

			e := &rep.Entries[i]
			if a.Target.DeviceType != "" {
				e.DeviceType = a.Target.DeviceType
			}
			e.Status = r.Status
			e.Code = r.Code
			e.Reason = r.Reason
			e.Phase = a.Phase
			e.EndedAt = a.EndedAt
		}
	}

	return rep
}

// Elapsed returns the wall-clock duration of the run
func (r *Report) Elapsed() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Counts returns the number of endpoints per terminal status
func (r *Report) Counts() (succeeded, failed, aborted int) {
	for _, e := range r.Entries {
		switch e.Status {
		case fota.StatusSuccess:
			succeeded++
		case fota.StatusAborted:
			aborted++
		default:
			failed++
		}
	}
	return succeeded, failed, aborted
}

// Succeeded reports whether every endpoint succeeded and the run was not aborted
func (r *Report) Succeeded() bool {
	if r.Aborted {
		return false
	}
	for _, e := range r.Entries {
		if e.Status != fota.StatusSuccess {
			return false
		}
	}
	return true
}

// ExitCode returns the process exit code for the run
func (r *Report) ExitCode() int {
	switch {
	case r.Succeeded():
		return ExitSuccess
	case r.Aborted:
		return ExitAborted
	default:
		return ExitFailure
	}
}

// Lines returns one summary line per endpoint followed by a totals line
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.Entries)+1)
	for _, e := range r.Entries {
		lines = append(lines, entryLine(r.Operation, e))
	}
	lines = append(lines, r.TotalsLine())
	return lines
}

// TotalsLine summarizes the run in one line
func (r *Report) TotalsLine() string {
	succeeded, failed, aborted := r.Counts()
	line := fmt.Sprintf("%d %s(s) attempted which took %s total: %d succeeded, %d failed, %d aborted",
		len(r.Entries), r.Operation, formatSeconds(r.Elapsed()), succeeded, failed, aborted)
	if r.Aborted {
		line += " (run aborted)"
	}
	return line
}

func entryLine(operation string, e Entry) string {
	detail := ""
	switch {
	case e.Status == fota.StatusFailure && e.Code != 0:
		detail = fmt.Sprintf(" code %d: %s", e.Code, fota.UpdateResultName(e.Code))
	case e.Status != fota.StatusSuccess && e.Reason != "":
		detail = " " + e.Reason
	}
	return fmt.Sprintf("[%s] %s %s%s (%s)", e.Endpoint, operation, e.Status, detail, formatSeconds(e.Elapsed()))
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int(d.Seconds()))
}

// Log writes the summary through the structured logger
func (r *Report) Log() {
	logging.Info("Run summary",
		zap.String("run_id", r.RunID),
		zap.String("operation", r.Operation),
	)
	for _, e := range r.Entries {
		fields := []zap.Field{
			zap.String("run_id", r.RunID),
			zap.String("endpoint", e.Endpoint),
			zap.String("status", e.Status.String()),
			zap.String("phase", string(e.Phase)),
			zap.Duration("elapsed", e.Elapsed()),
		}
		if e.Status != fota.StatusSuccess {
			fields = append(fields, zap.Int("code", e.Code), zap.String("reason", e.Reason))
		}
		if e.Status == fota.StatusSuccess {
			logging.Info("Device "+r.Operation+" "+e.Status.String(), fields...)
		} else {
			logging.Warn("Device "+r.Operation+" "+e.Status.String(), fields...)
		}
	}

	succeeded, failed, aborted := r.Counts()
	logging.Info(r.TotalsLine(),
		zap.String("run_id", r.RunID),
		zap.Int("attempted", len(r.Entries)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("aborted", aborted),
		zap.Duration("elapsed", r.Elapsed()),
		zap.Int("exit_code", r.ExitCode()),
	)
}

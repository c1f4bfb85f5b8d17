package report

import (
	"fmt"
	"time"

	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/logging"
	"go.uber.org/zap"
)

// Loop is the outcome of one reset iteration
type Loop struct {
	Index     int
	Status    fota.Status
	Reason    string
	Reset     int // endpoints the reset was sent to
	StartedAt time.Time
	EndedAt   time.Time
}

// LoopReport summarizes a reset run
type LoopReport struct {
	RunID     string
	Loops     []Loop
	Aborted   bool
	StartedAt time.Time
	EndedAt   time.Time
}

// Failed reports whether any loop failed
func (r *LoopReport) Failed() bool {
	for _, l := range r.Loops {
		if l.Status == fota.StatusFailure {
			return true
		}
	}
	return false
}

// ExitCode returns ExitSuccess only if every loop succeeded and the run was
// not aborted
func (r *LoopReport) ExitCode() int {
	switch {
	case r.Failed():
		return ExitFailure
	case r.Aborted:
		return ExitAborted
	default:
		for _, l := range r.Loops {
			if l.Status != fota.StatusSuccess {
				return ExitFailure
			}
		}
		return ExitSuccess
	}
}

// Lines returns one line per loop and a closing line
func (r *LoopReport) Lines() []string {
	lines := make([]string, 0, len(r.Loops)+1)
	for _, l := range r.Loops {
		line := fmt.Sprintf("END Reset Loop %d: %s", l.Index, l.Status)
		if l.Reason != "" && l.Status != fota.StatusSuccess {
			line += " (" + l.Reason + ")"
		}
		lines = append(lines, line)
	}

	last := len(r.Loops)
	switch {
	case r.Failed():
		lines = append(lines, fmt.Sprintf("Failed during loop %d.", last))
	case r.Aborted:
		lines = append(lines, fmt.Sprintf("Aborted during loop %d.", last))
	default:
		lines = append(lines, fmt.Sprintf("Successfully ran %d loop(s).", last))
	}
	return lines
}

// Log writes the summary through the structured logger
func (r *LoopReport) Log() {
	for _, l := range r.Loops {
		logging.Info("Reset loop finished",
			zap.String("run_id", r.RunID),
			zap.Int("loop", l.Index),
			zap.String("status", l.Status.String()),
			zap.String("reason", l.Reason),
			zap.Int("reset", l.Reset),
			zap.Duration("elapsed", l.EndedAt.Sub(l.StartedAt)),
		)
	}
	lines := r.Lines()
	logging.Info(lines[len(lines)-1],
		zap.String("run_id", r.RunID),
		zap.Duration("elapsed", r.EndedAt.Sub(r.StartedAt)),
		zap.Int("exit_code", r.ExitCode()),
	)
}

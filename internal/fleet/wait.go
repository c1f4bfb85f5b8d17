package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muurk/leshan-fleet/internal/logging"
	"go.uber.org/zap"
)

// DefaultWaitInterval is the sleep between liveness counts
const DefaultWaitInterval = 5 * time.Second

var (
	// ErrWaitTimeout is returned when the wait deadline passes
	ErrWaitTimeout = errors.New("timed out waiting for targets")

	// ErrTooManyWaits is returned when MaxWaits polls found too few targets
	ErrTooManyWaits = errors.New("targets did not come back")

	// ErrAborted is returned when the wait is cancelled
	ErrAborted = errors.New("aborted")
)

// Counter counts devices that answer the liveness probe
type Counter interface {
	CountConnected(ctx context.Context) (int, error)
}

// Waiter blocks until enough devices are connected
type Waiter struct {
	Counter Counter

	// Targets is the number of live devices to wait for
	Targets int

	// Interval is the sleep between counts
	Interval time.Duration

	// Timeout bounds the whole wait. Zero waits indefinitely.
	Timeout time.Duration

	// MaxWaits fails the wait after this many insufficient counts.
	// Zero allows any number.
	MaxWaits int
}

// Wait polls until at least Targets devices respond. It returns the last
// count seen.
func (w *Waiter) Wait(ctx context.Context) (int, error) {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultWaitInterval
	}

	var deadline time.Time
	if w.Timeout > 0 {
		deadline = time.Now().Add(w.Timeout)
	}

	waits := 0
	for {
		if ctx.Err() != nil {
			return 0, ErrAborted
		}

		count, err := w.Counter.CountConnected(ctx)
		if err != nil {
			logging.Warn("Failed to count connected targets", zap.Error(err))
		}
		if err == nil && count >= w.Targets {
			logging.Info("Found targets", zap.Int("connected", count), zap.Int("wanted", w.Targets))
			return count, nil
		}

		waits++
		if w.MaxWaits > 0 && waits > w.MaxWaits {
			return count, fmt.Errorf("%w: found %d of %d after %d waits", ErrTooManyWaits, count, w.Targets, w.MaxWaits)
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return count, fmt.Errorf("%w: found %d of %d within %s", ErrWaitTimeout, count, w.Targets, w.Timeout)
		}

		fields := []zap.Field{zap.Int("connected", count), zap.Int("wanted", w.Targets)}
		if w.MaxWaits > 0 {
			fields = append(fields, zap.Int("waits_left", w.MaxWaits-waits))
		}
		logging.Info("Not enough targets, sleeping", fields...)

		sleep := interval
		if !deadline.IsZero() {
			if remaining := time.Until(deadline); remaining < sleep {
				sleep = remaining
			}
		}
		if err := sleepContext(ctx, sleep); err != nil {
			return count, ErrAborted
		}
	}
}

// sleepContext sleeps for d, returning early with ctx's error
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

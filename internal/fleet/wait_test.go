package fleet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/lwm2m"
)

func discoverOne(endpoint string) discovery.Target {
	return discovery.Target{Endpoint: endpoint}
}

// scriptedCounter returns successive counts, repeating the last one
type scriptedCounter struct {
	mu     sync.Mutex
	counts []int
	calls  int
	err    error
}

func (c *scriptedCounter) CountConnected(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	if i >= len(c.counts) {
		i = len(c.counts) - 1
	}
	return c.counts[i], nil
}

func (c *scriptedCounter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestWaiter_Wait(t *testing.T) {
	counter := &scriptedCounter{counts: []int{1, 2, 3}}
	w := &Waiter{Counter: counter, Targets: 3, Interval: time.Millisecond}

	count, err := w.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if count != 3 || counter.Calls() != 3 {
		t.Errorf("Wait() = %d after %d calls, want 3 after 3", count, counter.Calls())
	}
}

func TestWaiter_MaxWaits(t *testing.T) {
	counter := &scriptedCounter{counts: []int{1}}
	w := &Waiter{Counter: counter, Targets: 2, Interval: time.Millisecond, MaxWaits: 2}

	_, err := w.Wait(context.Background())
	if !errors.Is(err, ErrTooManyWaits) {
		t.Fatalf("Wait() error = %v, want ErrTooManyWaits", err)
	}
	if counter.Calls() != 3 {
		t.Errorf("calls = %d, want 3", counter.Calls())
	}
}

func TestWaiter_Timeout(t *testing.T) {
	counter := &scriptedCounter{err: lwm2m.ErrUnavailable}
	w := &Waiter{Counter: counter, Targets: 1, Interval: time.Millisecond, Timeout: 10 * time.Millisecond}

	_, err := w.Wait(context.Background())
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("Wait() error = %v, want ErrWaitTimeout", err)
	}
}

func TestWaiter_Aborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &Waiter{Counter: &scriptedCounter{counts: []int{5}}, Targets: 1}
	if _, err := w.Wait(ctx); !errors.Is(err, ErrAborted) {
		t.Errorf("Wait() error = %v, want ErrAborted", err)
	}
}

package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/lwm2m"
)

// DefaultProbeConcurrency bounds concurrent per-device reads made while
// filtering or counting targets
const DefaultProbeConcurrency = 8

// ResourceReader is the part of the management client discovery needs
type ResourceReader interface {
	ListClients(ctx context.Context) ([]lwm2m.Registration, error)
	Read(ctx context.Context, p lwm2m.Path) (lwm2m.Value, error)
}

// Discoverer enumerates connected devices through the management server
type Discoverer struct {
	// Reader performs the REST calls
	Reader ResourceReader

	// ProbeConcurrency bounds concurrent device-type and liveness reads
	ProbeConcurrency int
}

// NewDiscoverer creates a discoverer with default settings
func NewDiscoverer(reader ResourceReader) *Discoverer {
	return &Discoverer{
		Reader:           reader,
		ProbeConcurrency: DefaultProbeConcurrency,
	}
}

// ListTargets lists registered clients and applies the filter: first the
// endpoint substring match, then the exact device-type match. Order follows
// the server's listing. Nothing is cached between calls.
func (d *Discoverer) ListTargets(ctx context.Context, filter Filter) ([]Target, error) {
	regs, err := d.Reader.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	targets := make([]Target, 0, len(regs))
	for _, reg := range regs {
		if filter.Endpoint != "" && !MatchEndpoint(reg.Endpoint, filter.Endpoint) {
			continue
		}
		targets = append(targets, Target{Endpoint: reg.Endpoint})
	}

	if filter.DeviceType == "" {
		logging.Info("Discovered targets",
			zap.Int("registered", len(regs)),
			zap.Int("selected", len(targets)),
			zap.String("endpoint_filter", filter.Endpoint),
		)
		return targets, nil
	}

	types, err := d.readDeviceTypes(ctx, targets)
	if err != nil {
		return nil, err
	}

	selected := make([]Target, 0, len(targets))
	for i, target := range targets {
		if !types[i].ok || types[i].value != filter.DeviceType {
			logging.Debug("Target excluded by device type",
				zap.String("endpoint", target.Endpoint),
				zap.String("device_type", types[i].value),
				zap.String("want", filter.DeviceType),
			)
			continue
		}
		target.DeviceType = types[i].value
		selected = append(selected, target)
	}

	logging.Info("Discovered targets",
		zap.Int("registered", len(regs)),
		zap.Int("selected", len(selected)),
		zap.String("endpoint_filter", filter.Endpoint),
		zap.String("device_type_filter", filter.DeviceType),
	)
	return selected, nil
}

type deviceTypeRead struct {
	value string
	ok    bool
}

// readDeviceTypes reads 3/0/1 for every target. Results are indexed like targets.
func (d *Discoverer) readDeviceTypes(ctx context.Context, targets []Target) ([]deviceTypeRead, error) {
	results := make([]deviceTypeRead, len(targets))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency())

	for i, target := range targets {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			v, err := d.Reader.Read(gCtx, lwm2m.DeviceType(target.Endpoint))
			if err != nil {
				return nil
			}
			results[i] = deviceTypeRead{value: v.String(), ok: true}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("device type filtering interrupted: %w", err)
	}
	return results, nil
}

// CountConnected counts registered clients that answer the liveness probe
// (a read of the serial number, 3/0/2).
func (d *Discoverer) CountConnected(ctx context.Context) (int, error) {
	regs, err := d.Reader.ListClients(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list clients: %w", err)
	}

	alive := make([]bool, len(regs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency())

	for i, reg := range regs {
		g.Go(func() error {
			if _, err := d.Reader.Read(gCtx, lwm2m.SerialNumber(reg.Endpoint)); err == nil {
				alive[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, ok := range alive {
		if ok {
			count++
		}
	}
	return count, nil
}

func (d *Discoverer) concurrency() int {
	if d.ProbeConcurrency < 1 {
		return 1
	}
	return d.ProbeConcurrency
}

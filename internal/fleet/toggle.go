package fleet

import (
	"context"
	"time"

	"github.com/muurk/leshan-fleet/internal/discovery"
	"github.com/muurk/leshan-fleet/internal/fota"
	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/lwm2m"
	"github.com/muurk/leshan-fleet/internal/report"
	"go.uber.org/zap"
)

// LightDevice is the part of the management client the toggle needs
type LightDevice interface {
	Read(ctx context.Context, p lwm2m.Path) (lwm2m.Value, error)
	Write(ctx context.Context, p lwm2m.Path, value any) error
}

// Toggler flips the light of every target
type Toggler struct {
	Device  LightDevice
	Run     *RunContext
	Workers int
}

// Toggle runs the toggle over targets and returns the run report
func (t *Toggler) Toggle(targets []discovery.Target) *report.Report {
	start := time.Now()
	pool := NewPool(t.Run, fota.PhaseToggle, t.Workers)
	actions := pool.Run(targets, t.toggle)
	return report.Build(t.Run.ID, "toggle", start, t.Run.Aborted(), actions)
}

func (t *Toggler) toggle(ctx context.Context, a *fota.Action) fota.Result {
	ep := a.Endpoint()
	path := lwm2m.LightOnOff(ep)

	if ctx.Err() != nil || a.AbortRequested() {
		return fota.Aborted("interrupted")
	}

	v, err := t.Device.Read(ctx, path)
	if err != nil {
		return fota.Failure(0, "light state unavailable")
	}
	on, ok := v.Bool()
	if !ok {
		logging.Error("Light state is not a boolean", zap.String("endpoint", ep), zap.Any("value", v.Raw()))
		return fota.Failure(0, "light state is not a boolean")
	}

	if ctx.Err() != nil || a.AbortRequested() {
		return fota.Aborted("interrupted")
	}

	if err := t.Device.Write(ctx, path, !on); err != nil {
		return fota.Failure(0, "light write rejected")
	}

	state := "light on"
	if on {
		state = "light off"
	}
	logging.Info("Toggled light", zap.String("endpoint", ep), zap.Bool("was_on", on))
	return fota.Success(state)
}

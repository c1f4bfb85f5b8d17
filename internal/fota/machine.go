package fota

import (
	"context"
	"errors"
	"time"

	"github.com/muurk/leshan-fleet/internal/events"
	"github.com/muurk/leshan-fleet/internal/logging"
	"github.com/muurk/leshan-fleet/internal/lwm2m"
	"go.uber.org/zap"
)

// Defaults for Config
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultDeviceTimeout = 30 * time.Minute
)

// Device is the part of the management client the update needs
type Device interface {
	ReadInt(ctx context.Context, p lwm2m.Path) (int, error)
	Write(ctx context.Context, p lwm2m.Path, value any) error
	Execute(ctx context.Context, p lwm2m.Path) error
}

// Config controls how a Machine drives devices
type Config struct {
	// URL is the firmware package URI written to 5/0/1
	URL string

	// Monitor keeps polling after the download request. Without it the
	// download phase succeeds as soon as the request is accepted.
	Monitor bool

	// PollInterval is the sleep between status reads
	PollInterval time.Duration

	// DeviceTimeout bounds how long one phase may poll a device. Zero
	// disables the limit.
	DeviceTimeout time.Duration
}

// Machine runs the per-device update state machine
type Machine struct {
	Device Device
	Config Config

	// Events receives progress; nil discards it
	Events events.Publisher
}

// NewMachine creates a machine, filling in a default poll interval
func NewMachine(device Device, config Config) *Machine {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Machine{Device: device, Config: config}
}

// errAborted and errTimedOut end a polling loop early
var (
	errAborted  = errors.New("aborted")
	errTimedOut = errors.New("device timeout")
)

// Download requests the firmware package and, in monitor mode, polls until
// the device reports it as downloaded.
func (m *Machine) Download(ctx context.Context, a *Action) Result {
	return m.download(ctx, a, false)
}

// Run performs download and apply on one worker
func (m *Machine) Run(ctx context.Context, a *Action) Result {
	return m.download(ctx, a, true)
}

// Apply executes the update trigger and waits for the update result
func (m *Machine) Apply(ctx context.Context, a *Action) Result {
	deadline := m.deadline(a)
	if err := m.checkpoint(ctx, a, deadline); err != nil {
		return m.interrupted(a, err)
	}
	return m.apply(ctx, a, deadline)
}

func (m *Machine) download(ctx context.Context, a *Action, applyInline bool) Result {
	ep := a.Endpoint()
	deadline := m.deadline(a)

	for {
		if err := m.checkpoint(ctx, a, deadline); err != nil {
			return m.interrupted(a, err)
		}

		ds, err := m.Device.ReadInt(ctx, lwm2m.DownloadStatus(ep))
		if err != nil {
			a.DownloadStatus = events.Unknown
			logging.Warn("Device no longer found", zap.String("endpoint", ep), zap.Error(err))
			m.publish(a, events.StateUnavailable, err.Error())
		} else {
			a.DownloadStatus = ds
			m.logState(a)

			switch ds {
			case DownloadIdle:
				if a.Requested {
					return m.downloadNotStarted(ctx, a)
				}
				if err := m.checkpoint(ctx, a, deadline); err != nil {
					return m.interrupted(a, err)
				}
				if err := m.Device.Write(ctx, lwm2m.PackageURI(ep), m.Config.URL); err != nil {
					logging.Error("Failed to request firmware download",
						zap.String("endpoint", ep),
						zap.Error(err),
					)
					return Failure(0, "package URI write rejected")
				}
				a.Requested = true
				logging.Info("Requested firmware download",
					zap.String("endpoint", ep),
					zap.String("url", m.Config.URL),
				)
				m.publish(a, events.StateRequested, m.Config.URL)
				if !m.Config.Monitor {
					return Success("download requested")
				}

			case DownloadDownloading:
				m.publish(a, events.StateDownloading, "")

			case DownloadDownloaded:
				logging.Info("Firmware downloaded", zap.String("endpoint", ep))
				m.publish(a, events.StateDownloaded, "")
				if !applyInline {
					return Success("downloaded")
				}
				if err := m.checkpoint(ctx, a, deadline); err != nil {
					return m.interrupted(a, err)
				}
				return m.apply(ctx, a, deadline)

			case DownloadUpdating:
				logging.Info("Executing firmware update", zap.String("endpoint", ep))
				m.publish(a, events.StateUpdating, "")

			default:
				logging.Warn("Unknown download status",
					zap.String("endpoint", ep),
					zap.Int("download_status", ds),
				)
				m.publish(a, events.StateUnavailable, DownloadStatusName(ds))
			}
		}

		if err := m.sleep(ctx, a, deadline); err != nil {
			return m.interrupted(a, err)
		}
	}
}

// downloadNotStarted handles a device still idle after the request
func (m *Machine) downloadNotStarted(ctx context.Context, a *Action) Result {
	ep := a.Endpoint()
	ur, err := m.Device.ReadInt(ctx, lwm2m.UpdateResult(ep))
	if err != nil {
		logging.Error("Firmware download did not start", zap.String("endpoint", ep), zap.Error(err))
		return Failure(0, "download did not start")
	}
	a.UpdateResult = ur
	logging.Error("Firmware download did not start",
		zap.String("endpoint", ep),
		zap.Int("update_result", ur),
		zap.String("reason", UpdateResultName(ur)),
	)
	return Failure(ur, "download did not start")
}

// apply executes 5/0/2 and runs the apply-wait loop. The caller has already
// passed a checkpoint.
func (m *Machine) apply(ctx context.Context, a *Action, deadline time.Time) Result {
	ep := a.Endpoint()

	if err := m.Device.Execute(ctx, lwm2m.UpdateTrigger(ep)); err != nil {
		logging.Error("Failed to request firmware update execution",
			zap.String("endpoint", ep),
			zap.Error(err),
		)
		return Failure(0, "update trigger rejected")
	}
	logging.Info("Requested firmware update execution", zap.String("endpoint", ep))
	m.publish(a, events.StateApplying, "")

	for {
		if err := m.sleep(ctx, a, deadline); err != nil {
			return m.interrupted(a, err)
		}
		if err := m.checkpoint(ctx, a, deadline); err != nil {
			return m.interrupted(a, err)
		}

		ur, err := m.Device.ReadInt(ctx, lwm2m.UpdateResult(ep))
		if err != nil {
			logging.Warn("Update result unavailable", zap.String("endpoint", ep), zap.Error(err))
			m.publish(a, events.StateUnavailable, err.Error())
			continue
		}
		a.UpdateResult = ur
		m.logState(a)

		switch {
		case ur == ResultSuccess:
			logging.Info("Firmware update successful", zap.String("endpoint", ep))
			return Success("updated")
		case ur > ResultSuccess:
			logging.Error("Firmware update failed",
				zap.String("endpoint", ep),
				zap.Int("update_result", ur),
				zap.String("reason", UpdateResultName(ur)),
			)
			return Failure(ur, UpdateResultName(ur))
		default:
			m.publish(a, events.StateApplying, "")
		}
	}
}

func (m *Machine) deadline(a *Action) time.Time {
	if m.Config.DeviceTimeout <= 0 {
		return time.Time{}
	}
	return a.StartedAt.Add(m.Config.DeviceTimeout)
}

// checkpoint reports whether the worker must stop: on cancellation, on the
// action's abort flag, or past the deadline.
func (m *Machine) checkpoint(ctx context.Context, a *Action, deadline time.Time) error {
	if ctx.Err() != nil || a.AbortRequested() {
		return errAborted
	}
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return errTimedOut
	}
	return nil
}

// sleep waits one poll interval after a checkpoint
func (m *Machine) sleep(ctx context.Context, a *Action, deadline time.Time) error {
	if err := m.checkpoint(ctx, a, deadline); err != nil {
		return err
	}

	wait := m.Config.PollInterval
	if !deadline.IsZero() {
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errAborted
	case <-timer.C:
		return nil
	}
}

func (m *Machine) interrupted(a *Action, err error) Result {
	ep := a.Endpoint()
	if errors.Is(err, errTimedOut) {
		logging.Error("Device timed out",
			zap.String("endpoint", ep),
			zap.String("phase", string(a.Phase)),
			zap.Duration("device_timeout", m.Config.DeviceTimeout),
			zap.String("download_status", DownloadStatusName(a.DownloadStatus)),
		)
		return Failure(CodeTimeout, "timeout")
	}
	logging.Warn("Device update aborted", zap.String("endpoint", ep), zap.String("phase", string(a.Phase)))
	return Aborted("interrupted")
}

func (m *Machine) logState(a *Action) {
	logging.LogDeviceState(a.Endpoint(), string(a.Phase),
		DownloadStatusName(a.DownloadStatus), UpdateResultName(a.UpdateResult))
}

func (m *Machine) publish(a *Action, state, message string) {
	if m.Events == nil {
		return
	}
	m.Events.Publish(events.Event{
		Endpoint:       a.Endpoint(),
		Phase:          string(a.Phase),
		State:          state,
		DownloadStatus: a.DownloadStatus,
		UpdateResult:   a.UpdateResult,
		Message:        message,
	})
}

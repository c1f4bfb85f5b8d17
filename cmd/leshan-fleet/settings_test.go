package main

import (
	"testing"
	"time"

	"github.com/muurk/leshan-fleet/internal/config"
)

func TestMergeFlags(t *testing.T) {
	serverURL = "http://flag:8080"
	pollInterval = time.Second
	workers = 8
	deviceType = "nrf9160"
	defer func() {
		serverURL, pollInterval, workers, deviceType = config.DefaultServer, config.DefaultPollInterval, config.DefaultMaxWorkers, ""
	}()

	profile := config.Default()
	profile.Server = "http://profile:8080"
	profile.MaxWorkers = 4
	profile.DeviceType = "nrf52840"

	changed := map[string]bool{"poll-interval": true, "workers": true}
	mergeFlags(profile, func(name string) bool { return changed[name] })

	if profile.Server != "http://profile:8080" {
		t.Errorf("Server = %q, want profile value", profile.Server)
	}
	if profile.PollInterval.Std() != time.Second {
		t.Errorf("PollInterval = %s, want 1s", profile.PollInterval.Std())
	}
	if profile.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", profile.MaxWorkers)
	}
	if profile.DeviceType != "nrf52840" {
		t.Errorf("DeviceType = %q, want profile value", profile.DeviceType)
	}
}

func TestFleetWide(t *testing.T) {
	settings = config.Default()
	defer func() { settings, clientEndpoint, endpointFilter = nil, "", "" }()

	tests := []struct {
		name       string
		client     string
		filter     string
		deviceType string
		want       bool
	}{
		{"no selection", "", "", "", true},
		{"client", "dev-1", "", "", false},
		{"filter", "", "dev-", "", false},
		{"device type", "", "", "nrf9160", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientEndpoint, endpointFilter, settings.DeviceType = tt.client, tt.filter, tt.deviceType
			if got := fleetWide(); got != tt.want {
				t.Errorf("fleetWide() = %v, want %v", got, tt.want)
			}
			f := targetFilter()
			if f.Endpoint != tt.filter || f.DeviceType != tt.deviceType {
				t.Errorf("targetFilter() = %+v, want endpoint %q device type %q", f, tt.filter, tt.deviceType)
			}
		})
	}
}

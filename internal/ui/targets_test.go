package ui

import (
	"strings"
	"testing"

	"github.com/muurk/leshan-fleet/internal/discovery"
)

func TestRenderTargetTable(t *testing.T) {
	out := RenderTargetTable([]discovery.Target{
		{Endpoint: "gw-01", DeviceType: "nrf9160"},
		{Endpoint: "gw-02"},
	})

	for _, want := range []string{"ENDPOINT", "DEVICE TYPE", "gw-01", "nrf9160", "gw-02"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	var gw02 string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "gw-02") {
			gw02 = line
		}
	}
	if !strings.Contains(gw02, NoDeviceType) {
		t.Errorf("row without device type should show %q, got %q", NoDeviceType, gw02)
	}
}

func TestRenderTargetTable_Empty(t *testing.T) {
	out := RenderTargetTable(nil)
	if !strings.Contains(out, "ENDPOINT") {
		t.Errorf("empty table should still render headers:\n%s", out)
	}
	if strings.Contains(out, NoDeviceType) {
		t.Errorf("empty table should have no rows:\n%s", out)
	}
}

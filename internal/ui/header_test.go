package ui

import (
	"strings"
	"testing"
)

func TestHeader_Render(t *testing.T) {
	h := NewHeader("Firmware update", "leshan-fleet update").
		SetWidth(80).
		Add("Server", "http://leshan.local:8080").
		Add("Filter", "").
		Add("Workers", "4")

	out := h.Render()
	for _, want := range []string{"FIRMWARE UPDATE", "leshan-fleet update", "Server:", "http://leshan.local:8080", "Workers:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Filter:") {
		t.Errorf("Render() should skip empty params:\n%s", out)
	}
	if len(h.Params) != 2 {
		t.Errorf("len(Params) = %d, want 2", len(h.Params))
	}
	if strings.Index(out, "Server:") > strings.Index(out, "Workers:") {
		t.Error("Render() did not keep parameter order")
	}
}

func TestHeader_NoParams(t *testing.T) {
	out := NewHeader("list", "leshan-fleet list").SetWidth(10).Render()
	if !strings.Contains(out, "LIST") {
		t.Errorf("Render() missing title in:\n%s", out)
	}
	if strings.Contains(out, ":") {
		t.Errorf("Render() should not print params:\n%s", out)
	}
}

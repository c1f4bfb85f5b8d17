package lwm2m

import (
	"strings"
	"testing"
)

func TestResourcePaths(t *testing.T) {
	tests := []struct {
		name string
		path Path
		want string
	}{
		{"package uri", PackageURI("dev-1"), "/api/clients/dev-1/5/0/1"},
		{"update trigger", UpdateTrigger("dev-1"), "/api/clients/dev-1/5/0/2"},
		{"download status", DownloadStatus("dev-1"), "/api/clients/dev-1/5/0/3"},
		{"update result", UpdateResult("dev-1"), "/api/clients/dev-1/5/0/5"},
		{"device type", DeviceType("dev-1"), "/api/clients/dev-1/3/0/1"},
		{"serial number", SerialNumber("dev-1"), "/api/clients/dev-1/3/0/2"},
		{"reboot", Reboot("dev-1"), "/api/clients/dev-1/3/0/4"},
		{"light", LightOnOff("lamp"), "/api/clients/lamp/3311/0/5850"},
		{"query in endpoint", DownloadStatus("dev?1"), "/api/clients/dev%3F1/5/0/3"},
		{"fragment in endpoint", DownloadStatus("dev#1"), "/api/clients/dev%231/5/0/3"},
		{"slash in endpoint", PackageURI("urn:dev/1"), "/api/clients/urn:dev%2F1/5/0/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.path.APIPath(); got != tt.want {
				t.Errorf("APIPath() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("dev-1/3311/0/5850")
	if err != nil {
		t.Fatalf("ParsePath() error = %v", err)
	}
	if p != LightOnOff("dev-1") {
		t.Errorf("ParsePath() = %+v, want %+v", p, LightOnOff("dev-1"))
	}

	for _, endpoint := range []string{"dev?1", "dev#1", "urn:dev/1", "dev 1", "dev%1"} {
		want := DownloadStatus(endpoint)
		rel := strings.TrimPrefix(want.APIPath(), ClientsPath+"/")
		got, err := ParsePath(rel)
		if err != nil {
			t.Errorf("ParsePath(%q) error = %v", rel, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePath(%q) = %+v, want %+v", rel, got, want)
		}
	}

	for _, bad := range []string{"", "dev-1/5/0", "dev-1/5/x/3", "/5/0/3", "dev-1/5/0/-1", "dev%zz/5/0/3"} {
		if _, err := ParsePath(bad); err == nil {
			t.Errorf("ParsePath(%q) should fail", bad)
		}
	}
}

func TestValue(t *testing.T) {
	if n, ok := NewValue(float64(2)).Int(); !ok || n != 2 {
		t.Errorf("Int() = %d, %v, want 2, true", n, ok)
	}
	if _, ok := NewValue(2.5).Int(); ok {
		t.Error("Int() of 2.5 should fail")
	}
	if n, ok := NewValue("7").Int(); !ok || n != 7 {
		t.Errorf("Int() of \"7\" = %d, %v", n, ok)
	}
	if b, ok := NewValue(true).Bool(); !ok || !b {
		t.Error("Bool() of true should be true")
	}
	if _, ok := NewValue(float64(1)).Bool(); ok {
		t.Error("Bool() of a number should fail")
	}
	if s := NewValue("nrf52840").String(); s != "nrf52840" {
		t.Errorf("String() = %s", s)
	}
	if s := NewValue(float64(42)).String(); s != "42" {
		t.Errorf("String() = %s, want 42", s)
	}
}

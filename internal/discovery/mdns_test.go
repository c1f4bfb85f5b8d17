package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name        string
		entry       *zeroconf.ServiceEntry
		wantNil     bool
		wantBaseURL string
	}{
		{
			name: "IPv4 with defaults",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "leshan"},
				HostName:      "leshan.local.",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.20")},
			},
			wantBaseURL: "http://192.168.1.20:8080",
		},
		{
			name: "TXT scheme and path",
			entry: &zeroconf.ServiceEntry{
				HostName: "mgmt.local.",
				Port:     443,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.2")},
				Text:     []string{"scheme=https", "path=leshan/"},
			},
			wantBaseURL: "https://10.0.0.2:443/leshan",
		},
		{
			name: "no port falls back to default",
			entry: &zeroconf.ServiceEntry{
				HostName: "mgmt.local.",
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.3")},
			},
			wantBaseURL: "http://10.0.0.3:8080",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "mgmt.local.",
				Port:     8080,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantBaseURL: "http://[fe80::1]:8080",
		},
		{
			name:    "no address",
			entry:   &zeroconf.ServiceEntry{HostName: "mgmt.local.", Port: 8080},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if server != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", server)
				}
				return
			}
			if server == nil {
				t.Fatal("parseServiceEntry() returned nil")
			}
			if got := server.BaseURL(); got != tt.wantBaseURL {
				t.Errorf("BaseURL() = %s, want %s", got, tt.wantBaseURL)
			}
			if server.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt should be set")
			}
		})
	}
}

func TestNewServerScanner(t *testing.T) {
	scanner := NewServerScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if scanner.Service != ServiceType {
		t.Errorf("Service = %s, want %s", scanner.Service, ServiceType)
	}
}

func TestServerGetMetadata(t *testing.T) {
	server := &Server{IP: "10.0.0.1", Port: 8080, DiscoveredAt: time.Now()}
	if v := server.GetMetadata("path"); v != "" {
		t.Errorf("GetMetadata() on nil map = %q", v)
	}
	server.Metadata = map[string]string{"path": "/leshan"}
	if v := server.GetMetadata("path"); v != "/leshan" {
		t.Errorf("GetMetadata() = %q", v)
	}
}

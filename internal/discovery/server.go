package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Server is a management server found through mDNS
type Server struct {
	// Instance is the advertised service instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "leshan.local.")
	Hostname string

	// IP is the advertised address, IPv4 preferred
	IP string

	// Port is the REST API port
	Port int

	// Metadata contains the TXT record data ("scheme=https", "path=/leshan")
	Metadata map[string]string

	// DiscoveredAt is when the server was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the server
func (s *Server) String() string {
	return fmt.Sprintf("%s at %s", s.Instance, s.BaseURL())
}

// BaseURL returns the REST base URL. The TXT keys "scheme" and "path"
// override the defaults of http and an empty prefix.
func (s *Server) BaseURL() string {
	scheme := s.GetMetadata("scheme")
	if scheme == "" {
		scheme = "http"
	}

	path := s.GetMetadata("path")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")

	return scheme + "://" + net.JoinHostPort(s.IP, strconv.Itoa(s.Port)) + path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Server) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}

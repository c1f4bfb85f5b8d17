package discovery

import (
	"fmt"
	"strings"
)

// Target is a connected device selected for a fleet operation.
// Identity is the endpoint; targets are discovered fresh for every run.
type Target struct {
	// Endpoint is the LWM2M client identifier known to the server
	Endpoint string

	// DeviceType is the value of resource 3/0/1, populated only when the
	// device-type filter was applied
	DeviceType string
}

// String returns a human-readable representation of the target
func (t Target) String() string {
	if t.DeviceType == "" {
		return t.Endpoint
	}
	return fmt.Sprintf("%s (%s)", t.Endpoint, t.DeviceType)
}

// Filter selects targets from the registered clients. Zero fields match everything.
type Filter struct {
	// Endpoint is a case-sensitive substring of the endpoint name
	Endpoint string

	// DeviceType must equal resource 3/0/1 exactly
	DeviceType string
}

// IsEmpty reports whether the filter selects every registered client
func (f Filter) IsEmpty() bool {
	return f.Endpoint == "" && f.DeviceType == ""
}

// MatchEndpoint reports whether endpoint passes the endpoint filter.
// Matching is a partial, case-sensitive substring test: "dev-1" matches
// "dev-1" and "dev-10".
func MatchEndpoint(endpoint, filter string) bool {
	return strings.Contains(endpoint, filter)
}

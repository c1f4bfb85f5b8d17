package lwm2m

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Object IDs used by the fleet tools
const (
	ObjectDevice       = 3
	ObjectFirmware     = 5
	ObjectLightControl = 3311
)

// Path addresses a single resource on a single device:
// endpoint/objectId/instanceId/resourceId.
type Path struct {
	Endpoint   string
	ObjectID   int
	InstanceID int
	ResourceID int
}

// Resource builds a Path on instance 0, which is the only instance the fleet
// tools ever address.
func Resource(endpoint string, objectID, resourceID int) Path {
	return Path{Endpoint: endpoint, ObjectID: objectID, InstanceID: 0, ResourceID: resourceID}
}

// Firmware object (5) resources
func PackageURI(endpoint string) Path     { return Resource(endpoint, ObjectFirmware, 1) }
func UpdateTrigger(endpoint string) Path  { return Resource(endpoint, ObjectFirmware, 2) }
func DownloadStatus(endpoint string) Path { return Resource(endpoint, ObjectFirmware, 3) }
func UpdateResult(endpoint string) Path   { return Resource(endpoint, ObjectFirmware, 5) }

// Device object (3) resources
func DeviceType(endpoint string) Path   { return Resource(endpoint, ObjectDevice, 1) }
func SerialNumber(endpoint string) Path { return Resource(endpoint, ObjectDevice, 2) }
func Reboot(endpoint string) Path       { return Resource(endpoint, ObjectDevice, 4) }

// LightOnOff is the on/off boolean of the Light Control object (3311/0/5850).
func LightOnOff(endpoint string) Path { return Resource(endpoint, ObjectLightControl, 5850) }

// ResourceKey returns the "object/instance/resource" part of the path.
func (p Path) ResourceKey() string {
	return fmt.Sprintf("%d/%d/%d", p.ObjectID, p.InstanceID, p.ResourceID)
}

// APIPath returns the REST path relative to the server base URL.
// The endpoint is escaped as a single path segment.
func (p Path) APIPath() string {
	return ClientsPath + "/" + url.PathEscape(p.Endpoint) + "/" + p.ResourceKey()
}

// String implements fmt.Stringer
func (p Path) String() string {
	return p.Endpoint + "/" + p.ResourceKey()
}

// ParsePath parses "endpoint/object/instance/resource" as it appears in an
// escaped request path, so the endpoint segment may be percent-encoded.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 4 || parts[0] == "" {
		return Path{}, fmt.Errorf("invalid resource path %q: want endpoint/object/instance/resource", s)
	}

	ids := make([]int, 3)
	for i, part := range parts[1:] {
		id, err := strconv.Atoi(part)
		if err != nil || id < 0 {
			return Path{}, fmt.Errorf("invalid resource path %q: %q is not a resource id", s, part)
		}
		ids[i] = id
	}

	endpoint, err := url.PathUnescape(parts[0])
	if err != nil {
		return Path{}, fmt.Errorf("invalid resource path %q: %w", s, err)
	}

	return Path{Endpoint: endpoint, ObjectID: ids[0], InstanceID: ids[1], ResourceID: ids[2]}, nil
}

package fota

import "fmt"

// Download status values reported by resource 5/0/3
const (
	DownloadIdle        = 0
	DownloadDownloading = 1
	DownloadDownloaded  = 2
	DownloadUpdating    = 3
	DownloadUnknown     = 4
)

// Update result values reported by resource 5/0/5
const (
	ResultInitial = 0
	ResultSuccess = 1
)

// CodeTimeout is the failure code recorded when a device exceeds its
// wall-clock budget
const CodeTimeout = -1

var downloadStatusNames = map[int]string{
	DownloadIdle:        "idle",
	DownloadDownloading: "downloading",
	DownloadDownloaded:  "downloaded",
	DownloadUpdating:    "updating",
	DownloadUnknown:     "unknown",
}

var updateResultNames = map[int]string{
	0: "initial",
	1: "success",
	2: "not enough flash",
	3: "out of RAM",
	4: "connection lost",
	5: "integrity check failure",
	6: "unsupported package type",
	7: "invalid URI",
	8: "update failed",
	9: "unsupported protocol",
}

// DownloadStatusName names a 5/0/3 value
func DownloadStatusName(ds int) string {
	if ds < 0 {
		return "unread"
	}
	if name, ok := downloadStatusNames[ds]; ok {
		return name
	}
	return fmt.Sprintf("status %d", ds)
}

// UpdateResultName names a 5/0/5 value, or the timeout code
func UpdateResultName(code int) string {
	if code == CodeTimeout {
		return "timeout"
	}
	if code < 0 {
		return "unread"
	}
	if name, ok := updateResultNames[code]; ok {
		return name
	}
	return fmt.Sprintf("result %d", code)
}

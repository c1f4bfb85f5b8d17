package events

import "time"

// State names used by workers when publishing progress
const (
	StateQueued      = "queued"
	StateRequested   = "requested"
	StateDownloading = "downloading"
	StateDownloaded  = "downloaded"
	StateUpdating    = "updating"
	StateApplying    = "applying"
	StateUnavailable = "unavailable"
	StateFinished    = "finished"
	StateAborting    = "aborting"
)

// Unknown marks a download status or update result that has not been read
const Unknown = -1

// Event is one observation published by a run
type Event struct {
	RunID          string    `json:"run_id"`
	Endpoint       string    `json:"endpoint,omitempty"`
	Phase          string    `json:"phase,omitempty"`
	State          string    `json:"state"`
	Status         string    `json:"status,omitempty"` // terminal status, set with StateFinished
	DownloadStatus int       `json:"download_status"`
	UpdateResult   int       `json:"update_result"`
	Code           int       `json:"code,omitempty"`
	Message        string    `json:"message,omitempty"`
	Time           time.Time `json:"time"`
}

// Terminal reports whether the event marks the end of a device's phase
func (e Event) Terminal() bool {
	return e.State == StateFinished
}

// Publisher accepts events. *Bus implements it.
type Publisher interface {
	Publish(e Event)
}

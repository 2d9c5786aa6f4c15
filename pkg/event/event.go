package event

import "time"

// Platform identifies the client runtime that produced an event.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Event is one recorded occurrence. Once persisted an event is immutable;
// corrections are modeled as new events, never in-place edits.
type Event struct {
	ID         string           `json:"id,omitempty"`
	TenantID   string           `json:"tenant_id,omitempty"`
	UserID     string           `json:"user_id,omitempty"`
	SessionID  string           `json:"session_id,omitempty"`
	Name       string           `json:"event_name"`
	Properties map[string]Value `json:"properties,omitempty"`
	Timestamp  time.Time        `json:"timestamp,omitempty"`
	Platform   Platform         `json:"platform,omitempty"`

	// Server-attached at ingestion time, never accepted from clients.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

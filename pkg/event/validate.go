package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseboard/pulse/pkg/api"
)

const (
	// MaxNameLength bounds the event name.
	MaxNameLength = 100
	// MaxPropertyKeys bounds the number of keys in one property map.
	MaxPropertyKeys = 50
	// MaxPropertyBytes bounds the serialized size of one property map.
	MaxPropertyBytes = 10 * 1024
)

// Normalize validates a single event and fills defaults in place: ID, UserID,
// Timestamp, and Platform. Validation failures are client input errors naming
// the offending field; over-limit property maps are rejected, never truncated.
func Normalize(e *Event, now time.Time) error {
	if e.Name == "" {
		return api.NewClientInputError("event_name", "event name is required")
	}
	if len(e.Name) > MaxNameLength {
		return api.NewClientInputError("event_name",
			fmt.Sprintf("event name exceeds %d characters", MaxNameLength))
	}

	switch e.Platform {
	case PlatformWeb, PlatformAndroid, PlatformIOS:
	case "":
		e.Platform = PlatformWeb
	default:
		return api.NewClientInputError("platform",
			fmt.Sprintf("platform must be one of web, android, ios, got %q", e.Platform))
	}

	if len(e.Properties) > MaxPropertyKeys {
		return api.NewClientInputError("properties",
			fmt.Sprintf("property map exceeds %d keys", MaxPropertyKeys))
	}
	if len(e.Properties) > 0 {
		serialized, err := json.Marshal(e.Properties)
		if err != nil {
			return api.NewClientInputError("properties", "property map is not serializable")
		}
		if len(serialized) > MaxPropertyBytes {
			return api.NewClientInputError("properties",
				fmt.Sprintf("serialized properties exceed %d bytes", MaxPropertyBytes))
		}
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.UserID == "" {
		if e.SessionID != "" {
			e.UserID = "anon:" + e.SessionID
		} else {
			e.UserID = "anon:" + e.ID
		}
	}
	return nil
}

// NormalizeBatch validates a batch all-or-nothing. The first failure is
// returned with the offending index prefixed onto the field name and no event
// in the batch is considered accepted.
func NormalizeBatch(events []Event, now time.Time) error {
	for i := range events {
		if err := Normalize(&events[i], now); err != nil {
			if apiErr, ok := err.(*api.Error); ok {
				return api.NewClientInputError(
					fmt.Sprintf("events[%d].%s", i, apiErr.Field), apiErr.Message)
			}
			return err
		}
	}
	return nil
}

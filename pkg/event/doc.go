// Package event defines the Event data model and its validation boundary.
//
// Property values are a tagged scalar union (string | number | bool) enforced
// at unmarshal time, so untyped property bags never cross into the rest of the
// system. Normalize fills client-omitted defaults (id, user id, timestamp,
// platform) and rejects over-limit payloads with a structured validation error
// rather than silently truncating.
package event

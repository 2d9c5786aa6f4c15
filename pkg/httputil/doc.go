// Package httputil provides HTTP handler utilities for consistent error
// envelopes, JSON encoding/decoding, request parsing, and middleware.
//
// WriteAPIError maps the api error taxonomy onto HTTP statuses so every
// endpoint reports failures the same way: a JSON body with a machine-readable
// kind and a human-readable message, never an unstructured failure.
package httputil

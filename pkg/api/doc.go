// Package api defines the wire types and error taxonomy shared by all Pulse
// HTTP endpoints.
//
// Every server-side failure is reported as an *Error with a machine-readable
// Kind; handlers never surface unstructured failures to callers. The taxonomy
// distinguishes caller-fixable input errors, credential failures, rate limiting,
// generation-collaborator failures, query-safety rejections, and store failures
// so clients can choose between fixing, backing off, and giving up.
package api

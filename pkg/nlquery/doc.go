// Package nlquery turns natural language questions into validated,
// tenant-scoped SQL against the event store.
//
// The model is a collaborator, not an authority: its output passes through
// extraction and a mandatory validation gate before execution, and anything
// suspicious is rejected with the offending query attached rather than
// repaired. Every attempt is recorded in an audit history.
package nlquery

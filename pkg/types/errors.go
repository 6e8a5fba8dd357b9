package types

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors returned by the mapping store.
var (
	ErrNotFound    = errors.New("mapping not found")
	ErrInvalidID   = errors.New("invalid identifier")
	ErrInvalidKind = errors.New("unknown mapping kind")
	ErrStoreClosed = errors.New("mapping store is closed")
)

// APIError is a transient failure from a collaborator HTTP call. The engine
// marks the affected record failed and continues with the next one; there is
// no automatic retry, the operator re-runs an incremental sync instead.
type APIError struct {
	Service string // "megaplan" or "openproject".
	Method  string
	URL     string
	Status  int    // Zero for transport-level failures.
	Body    string // Truncated response body, for the log line.
	Err     error  // Underlying transport error, if any.
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s API %d on %s %s: %s", e.Service, e.Status, e.Method, e.URL, e.Body)
	}
	return fmt.Sprintf("%s API request %s %s: %v", e.Service, e.Method, e.URL, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// UnmappableFieldError reports a source field value with no configured
// target equivalent and no configured default. Whether this fails the record
// or drops the field is an engine policy decision (Config.Sync.OnUnmapped).
type UnmappableFieldError struct {
	Field string // "status", "type", or "user".
	Value string
}

func (e *UnmappableFieldError) Error() string {
	return fmt.Sprintf("no target mapping for %s %q", e.Field, e.Value)
}

// CycleError reports a parent chain that references itself transitively.
// The affected project's run is aborted; other projects are unaffected.
type CycleError struct {
	Chain []string // Task IDs along the cycle, in parent-link order.
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("hierarchy cycle: %s", strings.Join(e.Chain, " -> "))
}

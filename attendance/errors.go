/*
errors.go - Error types for the attendance engine

PURPOSE:
  All error types in one place. A rejected scan is a returned value,
  never a panic: callers drop the scan and carry on.

ERROR CATEGORIES:
  1. Parse errors  - decoded text without a usable id/name pair
  2. Lookup errors - unknown worker or malformed date from a caller
  3. Record errors - an imported or stored day breaking record invariants
  4. Export errors - see export/retry.go (wraps ErrExportFailed there)

NOT AN ERROR:
  A third scan on a completed day is reported as OutcomeIgnored.
*/
package attendance

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrParse is returned when decoded text lacks an id or name token.
	ErrParse = errors.New("unrecognized scan payload")

	// ErrWorkerNotFound is returned by lookups for an id the store never saw.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrInvalidDate is returned when a date string is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRecord is returned when a daily record has a time-out but
	// no time-in.
	ErrInvalidRecord = errors.New("invalid daily record")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ParseError names the tokens missing from a rejected payload.
type ParseError struct {
	Text    string
	Missing []string // "id", "name"
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return "unrecognized scan payload: empty input"
	}
	return fmt.Sprintf("unrecognized scan payload: missing %s", strings.Join(e.Missing, ", "))
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrParse) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidRecord)
}

// IsNotFound returns true if the error indicates a missing worker.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkerNotFound)
}

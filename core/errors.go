/*
errors.go - Centralized error types for the core engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Ledger computations never return these: they are total functions that
  degrade to zero/empty on bad data. Only user-initiated mutations that
  violate an explicit business rule produce errors, and those errors are
  rejections - no partial mutation ever occurs.

ERROR CATEGORIES:
  1. Lookup errors     - Referenced entity does not exist
  2. Business rules    - Payment threshold, inactive student
  3. Caller contract   - Undo without a retained snapshot

USAGE:
  The API layer classifies with the helpers:

    if core.IsClientError(err) { respond 409 }
    if core.IsNotFound(err)    { respond 404 }

SEE ALSO:
  - actions.go: The mutators that return these
  - api: HTTP status mapping
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStudentNotFound is returned when an action references a missing student.
	ErrStudentNotFound = errors.New("student not found")

	// ErrSeriesNotFound is returned when an action references a missing series.
	ErrSeriesNotFound = errors.New("class series not found")

	// ErrCoachNotFound is returned when an action references a missing coach.
	ErrCoachNotFound = errors.New("coach not found")

	// ErrPaymentNotFound is returned when undo references a payment the
	// student does not hold.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInactiveStudent is returned when a payment or enrollment targets an
	// inactive student.
	ErrInactiveStudent = errors.New("student is inactive")

	// ErrCreditThreshold is returned when a payment would stack credits past
	// the standard batch size.
	ErrCreditThreshold = errors.New("remaining credits at or above payment size")

	// ErrUndoSnapshotRequired is returned when a payment undo arrives without
	// the pre-mutation snapshot. The ledger's anchor reset is not invertible
	// by recomputation; callers must snapshot-and-restore.
	ErrUndoSnapshotRequired = errors.New("payment undo requires the pre-payment snapshot")

	// ErrMalformedSeries is returned when creating or editing a series whose
	// date window is missing or inverted.
	ErrMalformedSeries = errors.New("series requires startDate <= endDate")

	// ErrUnknownAction is returned by dispatch for an action type the
	// reducer does not recognize.
	ErrUnknownAction = errors.New("unknown action")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ThresholdError reports a refused payment with the balance that blocked it.
type ThresholdError struct {
	StudentID StudentID
	Remaining int
	Threshold int
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("payment refused for %s: %d credits remaining, threshold %d",
		e.StudentID, e.Remaining, e.Threshold)
}

func (e *ThresholdError) Unwrap() error { return ErrCreditThreshold }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is a business-rule rejection the
// UI should surface rather than a server fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrCreditThreshold) ||
		errors.Is(err, ErrInactiveStudent) ||
		errors.Is(err, ErrMalformedSeries) ||
		errors.Is(err, ErrUndoSnapshotRequired)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrSeriesNotFound) ||
		errors.Is(err, ErrCoachNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

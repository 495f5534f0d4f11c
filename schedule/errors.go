package schedule

import (
	"errors"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStartNotBeforeEnd is returned for slot or range ordering
	// violations.
	ErrStartNotBeforeEnd = errors.New("start must be before end")

	// ErrPeriodXorRange: a builder must reference exactly one of a
	// period or an explicit start/end pair.
	ErrPeriodXorRange = errors.New("must select one of period or start/end")

	// ErrZeroInterval: the hours/minutes pair must sum to a positive
	// recurrence interval, or the slot loop would never advance.
	ErrZeroInterval = errors.New("recurrence interval must be positive")

	// ErrIncompleteRange: an explicit range needs both bounds.
	ErrIncompleteRange = errors.New("explicit range requires both start and end")

	// ErrAlreadyGenerated: a builder expands exactly once; any further
	// generation attempt is rejected.
	ErrAlreadyGenerated = errors.New("builder already generated")

	// ErrInvalidRec: a visit's rec blob must be empty or parseable JSON.
	ErrInvalidRec = errors.New("invalid JSON @ rec")

	// ErrMissingWeek: generation requires a week template.
	ErrMissingWeek = errors.New("builder has no week configuration")
)

// =============================================================================
// AGGREGATED VALIDATION
// =============================================================================

// ValidationErrors collects every invariant violation found during a
// pre-generation check, so callers surface one human-readable list
// instead of fixing inputs one failure at a time.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is/errors.As.
func (v ValidationErrors) Unwrap() []error { return v }

// AsError returns nil when no violations were collected.
func (v ValidationErrors) AsError() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

package schedule

import (
	"fmt"
	"time"

	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// BUILDER STATE - One-shot lifecycle, explicit
// =============================================================================

// BuilderState makes the one-shot contract a type-level invariant:
// Pending builders may generate, Generated builders never regenerate.
// There is no Generated -> Pending transition.
type BuilderState string

const (
	StatePending   BuilderState = "pending"
	StateGenerated BuilderState = "generated"
)

// =============================================================================
// VISIT BUILDER
// =============================================================================

// BuilderID identifies a builder.
type BuilderID int64

// VisitBuilder encapsulates a recurring-visit specification and its
// one-time expansion into concrete visits. Defining fields are frozen
// once generated; deletion of a generated builder is disallowed.
type VisitBuilder struct {
	ID        BuilderID
	CreatedAt time.Time
	Name      string
	Syscode   string
	State     BuilderState

	// Qty is the write-once count of visits emitted by generation.
	Qty int

	Node tree.ID
	Week *WeekConfig

	// Recurrence interval; at least one must be nonzero.
	EveryHours   int
	EveryMinutes int

	// Exactly one of Period or the explicit Start/End pair.
	Period *Period
	Start  *time.Time
	End    *time.Time

	// Filter criteria persisted for eligibility use elsewhere; the
	// generator itself does not consume them.
	UserCats  []tree.ID
	LocCats   []tree.ID
	Regions   []geo.ID
	Cities    []geo.ID
	States    []geo.ID
	Countries []geo.ID
	Zips      []geo.ID
	Bricks    []geo.ID
}

// Interval returns the recurrence step.
func (b *VisitBuilder) Interval() time.Duration {
	return time.Duration(b.EveryHours)*time.Hour + time.Duration(b.EveryMinutes)*time.Minute
}

// Validate checks every pre-generation invariant and aggregates all
// violations. Updates to an already generated builder are pure updates
// and are not re-validated here.
func (b *VisitBuilder) Validate() error {
	if b.State == StateGenerated {
		return nil
	}
	var errs ValidationErrors

	// The pair must net out positive: 1h + -60m is as unusable as 0/0.
	if b.Interval() <= 0 {
		errs = append(errs, ErrZeroInterval)
	}

	hasPeriod := b.Period != nil
	hasRange := b.Start != nil
	if hasPeriod == hasRange {
		errs = append(errs, ErrPeriodXorRange)
	}
	if !hasPeriod && b.Start != nil && b.End == nil {
		errs = append(errs, ErrIncompleteRange)
	}
	if b.Start != nil && b.End != nil && b.End.Before(*b.Start) {
		errs = append(errs, fmt.Errorf("builder range: %w", ErrStartNotBeforeEnd))
	}

	if b.Week == nil {
		errs = append(errs, ErrMissingWeek)
	} else if err := b.Week.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errs.AsError()
}

// resolveRange returns the inclusive [from, to] generation range:
// derived from the period chain when a period is set, verbatim from the
// explicit pair otherwise.
func (b *VisitBuilder) resolveRange(chain *Chain) (from, to time.Time) {
	if b.Period != nil {
		return chain.RangeFor(*b.Period)
	}
	return DayOf(*b.Start), DayOf(*b.End)
}

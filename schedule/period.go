/*
Package schedule implements the visit-generation scheduler: periods,
week/day/time configuration, visit records, and the one-shot builder
that expands a recurring-visit specification into concrete visits.

PURPOSE:
  Administrators describe WHEN visits happen (a week template of
  time-of-day slots plus a recurrence interval) and OVER WHICH RANGE
  (a named period from a contiguous chain, or an explicit date pair).
  The generator deterministically enumerates every slot in the range and
  materializes one visit per slot, exactly once per builder.

KEY CONCEPTS IN THIS FILE (period.go):
  - Period: a named range defined only by its end date
  - Chain: the ordered sequence of periods; a period's start is implied
    by its predecessor (contiguity invariant)

CONTIGUITY:
  Given period P with predecessor P0, the implied range for P is
  (P0.End + 1 day) .. P.End. The earliest period collapses to the
  single day of its own end date.

SEE ALSO:
  - config.go: week/day/time templates
  - builder.go, generator.go: the one-shot expansion
*/
package schedule

import (
	"sort"
	"time"

	"github.com/warp/field-engine/tree"
)

// =============================================================================
// DATES - Day-granular instants, always UTC midnight
// =============================================================================

// Date normalizes an instant to its calendar day at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates an instant to its calendar day.
func DayOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// =============================================================================
// PERIOD
// =============================================================================

// PeriodID identifies a period.
type PeriodID int64

// Period is a named date range defined by its end date alone; the start
// is implied by the chain.
type Period struct {
	ID      PeriodID
	Name    string
	End     time.Time
	Syscode string

	// Cats tag the period in the period-category tree (reporting
	// grouping only).
	Cats []tree.ID
}

// =============================================================================
// CHAIN - Ordered periods with implied contiguous ranges
// =============================================================================

// Chain holds all periods ordered by end date.
type Chain struct {
	periods []Period
}

// NewChain builds a chain from periods in any order.
func NewChain(periods ...Period) *Chain {
	c := &Chain{periods: append([]Period(nil), periods...)}
	sort.Slice(c.periods, func(i, j int) bool {
		if !c.periods[i].End.Equal(c.periods[j].End) {
			return c.periods[i].End.Before(c.periods[j].End)
		}
		return c.periods[i].ID < c.periods[j].ID
	})
	return c
}

// Periods returns the chain in end-date order.
func (c *Chain) Periods() []Period {
	return append([]Period(nil), c.periods...)
}

// Prev returns the nearest period ending strictly before p.
func (c *Chain) Prev(p Period) (Period, bool) {
	var prev Period
	found := false
	for _, e := range c.periods {
		if e.End.Before(p.End) {
			prev = e
			found = true
			continue
		}
		break
	}
	return prev, found
}

// RangeFor returns the implied inclusive date range for p: from the day
// after its predecessor's end, or p's own end date when it has no
// predecessor (degenerate single-day range).
func (c *Chain) RangeFor(p Period) (from, to time.Time) {
	to = DayOf(p.End)
	if prev, ok := c.Prev(p); ok {
		from = DayOf(prev.End).AddDate(0, 0, 1)
	} else {
		from = to
	}
	return from, to
}

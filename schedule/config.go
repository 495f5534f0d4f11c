package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME-OF-DAY SLOTS
// =============================================================================

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// At anchors the time-of-day on a calendar date, UTC.
func (t TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
}

// Before reports strict wall-clock ordering.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TimeConfig is one (start, end) slot within a day template.
// Invariant: Start < End, checked before any generation.
type TimeConfig struct {
	ID    int64
	Name  string
	Start TimeOfDay
	End   TimeOfDay
}

// Validate enforces the slot ordering invariant.
func (tc TimeConfig) Validate() error {
	if !tc.Start.Before(tc.End) {
		return fmt.Errorf("time slot %s-%s: %w", tc.Start, tc.End, ErrStartNotBeforeEnd)
	}
	return nil
}

// =============================================================================
// DAY AND WEEK TEMPLATES
// =============================================================================

// DayConfig is a named collection of time slots.
type DayConfig struct {
	ID    int64
	Name  string
	Times []TimeConfig
}

// WeekConfig maps each weekday to an optional day template. A weekday
// with no template is a day with no visits. Days is indexed by
// time.Weekday (Sunday = 0), so weekday lookup is a direct array index
// rather than name-based dispatch.
type WeekConfig struct {
	ID   int64
	Name string
	Days [7]*DayConfig
}

// DayFor returns the template for a weekday, nil when unset.
func (w *WeekConfig) DayFor(wd time.Weekday) *DayConfig {
	return w.Days[int(wd)]
}

// SetDay assigns a template to a weekday.
func (w *WeekConfig) SetDay(wd time.Weekday, d *DayConfig) {
	w.Days[int(wd)] = d
}

// Validate checks every referenced slot's ordering invariant.
func (w *WeekConfig) Validate() error {
	var errs ValidationErrors
	for _, d := range w.Days {
		if d == nil {
			continue
		}
		for _, tc := range d.Times {
			if err := tc.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("day %q: %w", d.Name, err))
			}
		}
	}
	return errs.AsError()
}

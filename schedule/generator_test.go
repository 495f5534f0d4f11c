package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/field-engine/schedule"
	"github.com/warp/field-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// oneSlotWeek returns a week with the given weekday active, 09:00-10:00.
func oneSlotWeek(wd time.Weekday) *schedule.WeekConfig {
	w := &schedule.WeekConfig{ID: 1, Name: "mornings"}
	w.SetDay(wd, &schedule.DayConfig{
		ID:   1,
		Name: "morning",
		Times: []schedule.TimeConfig{
			{ID: 1, Start: schedule.TimeOfDay{Hour: 9}, End: schedule.TimeOfDay{Hour: 10}},
		},
	})
	return w
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := schedule.Date(y, m, d)
	return &t
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_PeriodXorExplicitRange(t *testing.T) {
	week := oneSlotWeek(time.Monday)
	period := &schedule.Period{ID: 1, Name: "Q1", End: schedule.Date(2026, time.March, 31)}

	cases := []struct {
		name    string
		builder schedule.VisitBuilder
		wantErr error
	}{
		{
			"both set",
			schedule.VisitBuilder{Week: week, EveryHours: 1, Period: period, Start: datePtr(2026, time.March, 2)},
			schedule.ErrPeriodXorRange,
		},
		{
			"neither set",
			schedule.VisitBuilder{Week: week, EveryHours: 1},
			schedule.ErrPeriodXorRange,
		},
		{
			"zero interval",
			schedule.VisitBuilder{Week: week, Start: datePtr(2026, time.March, 2), End: datePtr(2026, time.March, 3)},
			schedule.ErrZeroInterval,
		},
		{
			"end before start",
			schedule.VisitBuilder{Week: week, EveryHours: 1, Start: datePtr(2026, time.March, 3), End: datePtr(2026, time.March, 2)},
			schedule.ErrStartNotBeforeEnd,
		},
		{
			"missing week",
			schedule.VisitBuilder{EveryHours: 1, Start: datePtr(2026, time.March, 2), End: datePtr(2026, time.March, 3)},
			schedule.ErrMissingWeek,
		},
		{
			"start without end",
			schedule.VisitBuilder{Week: week, EveryHours: 1, Start: datePtr(2026, time.March, 2)},
			schedule.ErrIncompleteRange,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.builder.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_IntervalMustNetPositive(t *testing.T) {
	// GIVEN: hours/minutes pairs that sum to zero or less. Each
	// component passes a nonzero check on its own; only the summed
	// interval reveals the problem.
	week := oneSlotWeek(time.Monday)
	cases := []struct {
		name           string
		hours, minutes int
	}{
		{"net zero", 1, -60},
		{"negative", 0, -30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := schedule.VisitBuilder{
				Week: week, EveryHours: tc.hours, EveryMinutes: tc.minutes,
				Start: datePtr(2026, time.March, 2), End: datePtr(2026, time.March, 3),
			}
			if err := b.Validate(); !errors.Is(err, schedule.ErrZeroInterval) {
				t.Errorf("err = %v, want non-positive interval violation", err)
			}
		})
	}
}

func TestGenerate_NetZeroIntervalEmitsNothing(t *testing.T) {
	// A slot loop stepping by a zero interval would never advance, so
	// generation must refuse before the first emit.
	sink := memory.NewSink()
	g := &schedule.Generator{Sink: sink, Locs: schedule.FixedLoc(1)}
	b := &schedule.VisitBuilder{
		Week:         oneSlotWeek(time.Monday),
		EveryHours:   1,
		EveryMinutes: -60,
		Start:        datePtr(2026, time.March, 2),
		End:          datePtr(2026, time.March, 2),
	}

	_, err := g.Generate(context.Background(), b, nil)
	if !errors.Is(err, schedule.ErrZeroInterval) {
		t.Fatalf("err = %v, want non-positive interval violation", err)
	}
	if len(sink.Visits()) != 0 {
		t.Errorf("rejected builder still emitted %d visits", len(sink.Visits()))
	}
	if b.State != schedule.StatePending {
		t.Errorf("state = %s, want pending", b.State)
	}
}

func TestValidate_BadTimeSlotRejected(t *testing.T) {
	w := &schedule.WeekConfig{ID: 1, Name: "broken"}
	w.SetDay(time.Monday, &schedule.DayConfig{
		Name: "inverted",
		Times: []schedule.TimeConfig{
			{Start: schedule.TimeOfDay{Hour: 10}, End: schedule.TimeOfDay{Hour: 9}},
		},
	})
	b := schedule.VisitBuilder{Week: w, EveryHours: 1, Start: datePtr(2026, time.March, 2), End: datePtr(2026, time.March, 3)}
	if err := b.Validate(); !errors.Is(err, schedule.ErrStartNotBeforeEnd) {
		t.Errorf("err = %v, want slot ordering violation", err)
	}
}

func TestValidate_AggregatesAllViolations(t *testing.T) {
	b := schedule.VisitBuilder{} // zero interval, no range, no week
	err := b.Validate()

	for _, want := range []error{schedule.ErrZeroInterval, schedule.ErrPeriodXorRange, schedule.ErrMissingWeek} {
		if !errors.Is(err, want) {
			t.Errorf("aggregate missing %v (got %v)", want, err)
		}
	}
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerate_TwoDayRangeEmitsSpacedVisits(t *testing.T) {
	// GIVEN: Mon 2026-03-02 .. Tue 2026-03-03, Mondays only active,
	// one 09:00-10:00 slot, 30 minute interval
	sink := memory.NewSink()
	g := &schedule.Generator{Sink: sink, Locs: schedule.FixedLoc(1)}
	week := oneSlotWeek(time.Monday)
	week.SetDay(time.Tuesday, week.DayFor(time.Monday))
	b := &schedule.VisitBuilder{
		ID: 1, Name: "march mornings", Node: 7, Week: week,
		EveryMinutes: 30,
		Start:        datePtr(2026, time.March, 2),
		End:          datePtr(2026, time.March, 3),
	}

	qty, err := g.Generate(context.Background(), b, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// THEN: 2 slots/day x 2 days, 30-minute spacing, count written back
	if qty != 4 || b.Qty != 4 {
		t.Fatalf("qty = %d (builder %d), want 4", qty, b.Qty)
	}
	if b.State != schedule.StateGenerated {
		t.Errorf("state = %s, want generated", b.State)
	}
	want := []time.Time{
		time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 9, 30, 0, 0, time.UTC),
	}
	for i, v := range sink.Visits() {
		if !v.At.Equal(want[i]) {
			t.Errorf("visit %d at %v, want %v", i, v.At, want[i])
		}
		if v.Status != schedule.StatusScheduled || v.Node != 7 || v.Loc != 1 {
			t.Errorf("visit %d = %+v, want scheduled node 7 loc 1", i, v)
		}
		if v.Syscode == "" {
			t.Errorf("visit %d has no syscode", i)
		}
	}

	// Windowed listing slices the second day out on its own.
	day2, err := sink.ListVisits(context.Background(), 7,
		schedule.Date(2026, time.March, 3), schedule.Date(2026, time.March, 4))
	if err != nil {
		t.Fatalf("list visits: %v", err)
	}
	if len(day2) != 2 || !day2[0].At.Equal(want[2]) {
		t.Errorf("day-2 window = %v, want visits at %v and %v", day2, want[2], want[3])
	}
}

func TestGenerate_InactiveWeekdaysSkipped(t *testing.T) {
	sink := memory.NewSink()
	g := &schedule.Generator{Sink: sink, Locs: schedule.FixedLoc(1)}
	b := &schedule.VisitBuilder{
		Week:       oneSlotWeek(time.Monday), // Mar 4 2026 is a Wednesday
		EveryHours: 1,
		Start:      datePtr(2026, time.March, 4),
		End:        datePtr(2026, time.March, 5),
	}

	qty, err := g.Generate(context.Background(), b, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if qty != 0 || len(sink.Visits()) != 0 {
		t.Errorf("qty = %d, visits = %d, want none", qty, len(sink.Visits()))
	}
	if b.State != schedule.StateGenerated {
		t.Errorf("empty expansion still completes the transition, state = %s", b.State)
	}
}

func TestGenerate_OneShot(t *testing.T) {
	sink := memory.NewSink()
	g := &schedule.Generator{Sink: sink, Locs: schedule.FixedLoc(1)}
	b := &schedule.VisitBuilder{
		Week:         oneSlotWeek(time.Monday),
		EveryMinutes: 30,
		Start:        datePtr(2026, time.March, 2),
		End:          datePtr(2026, time.March, 2),
	}

	if _, err := g.Generate(context.Background(), b, nil); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	emitted := len(sink.Visits())

	// WHEN: generating again (a re-save is a pure update)
	_, err := g.Generate(context.Background(), b, nil)

	// THEN: rejected, zero additional visits
	if !errors.Is(err, schedule.ErrAlreadyGenerated) {
		t.Fatalf("err = %v, want ErrAlreadyGenerated", err)
	}
	if len(sink.Visits()) != emitted {
		t.Errorf("regeneration emitted visits: %d -> %d", emitted, len(sink.Visits()))
	}
}

func TestGenerate_PeriodDrivenRangeWrittenBack(t *testing.T) {
	// GIVEN: Q1 ends Tue 2026-03-03, Q0 ends Sun 2026-03-01
	q0 := schedule.Period{ID: 1, Name: "Q0", End: schedule.Date(2026, time.March, 1)}
	q1 := schedule.Period{ID: 2, Name: "Q1", End: schedule.Date(2026, time.March, 3)}
	chain := schedule.NewChain(q0, q1)

	sink := memory.NewSink()
	g := &schedule.Generator{Sink: sink, Locs: schedule.FixedLoc(1)}
	b := &schedule.VisitBuilder{
		Week:       oneSlotWeek(time.Monday), // Mon 2026-03-02 in range
		EveryHours: 1,
		Period:     &q1,
	}

	qty, err := g.Generate(context.Background(), b, chain)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if qty != 1 {
		t.Errorf("qty = %d, want 1 (single Monday slot)", qty)
	}

	// Derived range is recorded on the builder after generation.
	if b.Start == nil || !b.Start.Equal(schedule.Date(2026, time.March, 2)) {
		t.Errorf("start = %v, want 2026-03-02", b.Start)
	}
	if b.End == nil || !b.End.Equal(schedule.Date(2026, time.March, 3)) {
		t.Errorf("end = %v, want 2026-03-03", b.End)
	}
}

func TestGenerate_ValidationAbortsBeforeAnyEmit(t *testing.T) {
	sink := memory.NewSink()
	g := &schedule.Generator{Sink: sink, Locs: schedule.FixedLoc(1)}
	b := &schedule.VisitBuilder{
		Week:  oneSlotWeek(time.Monday),
		Start: datePtr(2026, time.March, 2),
		End:   datePtr(2026, time.March, 9),
		// zero interval
	}

	if _, err := g.Generate(context.Background(), b, nil); err == nil {
		t.Fatal("expected validation error")
	}
	if len(sink.Visits()) != 0 {
		t.Errorf("failed validation still emitted %d visits", len(sink.Visits()))
	}
	if b.State != schedule.StatePending {
		t.Errorf("state = %s, want pending after failed validation", b.State)
	}
}

/*
generator.go - One-shot expansion of a builder into visit records

PURPOSE:
  Expands a pending VisitBuilder into concrete ForceVisit rows:

    for each calendar date D in [from, to]:
        day := week[D.weekday]            // may be unset: no visits
        for each (start, end) slot in day:
            t := D + start
            while t < D + end:
                emit visit at t
                t += interval

  The emitted count is written back onto the builder once, after the
  loop. Validation happens entirely before the first emit: a failed
  precondition produces no visits at all.

ATOMICITY:
  The generator emits through a VisitSink and never talks to storage
  directly. Callers wrap Generate and their builder persistence in one
  store transaction, so either the builder row and every visit commit
  together or nothing does.

LOCATION POLICY:
  Which location each visit targets is an injected policy, not a fixed
  id. FixedLoc reproduces the simplest assignment (every visit at one
  location) for seeds and tests.

SEE ALSO:
  - builder.go: validation and the Pending/Generated state machine
  - store/sqlite: the transactional sink used in production
*/
package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// VisitSink receives generated visits. Implementations decide
// persistence; the generator only ever creates.
type VisitSink interface {
	CreateVisit(ctx context.Context, v *ForceVisit) error
}

// LocPolicy chooses the target location for each generated visit.
type LocPolicy interface {
	LocFor(ctx context.Context, node tree.ID, at time.Time) (catalog.LocID, error)
}

// FixedLoc is a LocPolicy assigning every visit to one location.
type FixedLoc catalog.LocID

func (f FixedLoc) LocFor(context.Context, tree.ID, time.Time) (catalog.LocID, error) {
	return catalog.LocID(f), nil
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator expands pending builders. Logger may be nil.
type Generator struct {
	Sink   VisitSink
	Locs   LocPolicy
	Logger *zap.Logger
}

// Generate performs the one-shot Pending -> Generated transition:
// validates, enumerates every slot in the resolved range, emits one
// visit per slot through the sink, then records the count (and, for
// period-driven builders, the derived range) on the builder. A builder
// that has already generated is rejected before any work.
func (g *Generator) Generate(ctx context.Context, b *VisitBuilder, chain *Chain) (int, error) {
	if b.State == StateGenerated {
		return 0, ErrAlreadyGenerated
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	logger := g.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	from, to := b.resolveRange(chain)
	interval := b.Interval()

	qty := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dc := b.Week.DayFor(day.Weekday())
		if dc == nil {
			continue
		}
		for _, slot := range dc.Times {
			end := slot.End.At(day)
			for at := slot.Start.At(day); at.Before(end); at = at.Add(interval) {
				loc, err := g.Locs.LocFor(ctx, b.Node, at)
				if err != nil {
					return 0, err
				}
				visit := &ForceVisit{
					Node:    b.Node,
					Loc:     loc,
					At:      at,
					Status:  StatusScheduled,
					Syscode: uuid.NewString(),
				}
				if err := g.Sink.CreateVisit(ctx, visit); err != nil {
					return 0, err
				}
				qty++
			}
		}
	}

	// Single post-hoc write-back, not per-visit.
	b.Qty = qty
	b.State = StateGenerated
	if b.Period != nil {
		b.Start = &from
		b.End = &to
	}

	logger.Info("builder generated",
		zap.Int64("builder", int64(b.ID)),
		zap.String("name", b.Name),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("qty", qty),
	)
	return qty, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/schedule"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// PERIODS
// =============================================================================

// SavePeriod upserts a period and its category tags.
func (s *Store) SavePeriod(ctx context.Context, p schedule.Period) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO periods (id, name, end_date, syscode) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			end_date = excluded.end_date, syscode = excluded.syscode`,
		int64(p.ID), p.Name, encDate(p.End), nullStr(p.Syscode))
	if err != nil {
		return mapErr(err)
	}
	return s.replaceLinks(ctx, "period_cats", "period_id", "cat_id", int64(p.ID), rawIDs(p.Cats))
}

// LoadChain reads every period into an ordered chain.
func (s *Store) LoadChain(ctx context.Context) (*schedule.Chain, error) {
	cats, err := s.loadLinks(ctx, "period_cats", "period_id", "cat_id")
	if err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, end_date, syscode FROM periods`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var periods []schedule.Period
	for rows.Next() {
		var p schedule.Period
		var id int64
		var end string
		var syscode sql.NullString
		if err := rows.Scan(&id, &p.Name, &end, &syscode); err != nil {
			return nil, err
		}
		p.ID = schedule.PeriodID(id)
		p.Syscode = syscode.String
		if p.End, err = decDate(end); err != nil {
			return nil, err
		}
		p.Cats = treeIDs(cats[id])
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schedule.NewChain(periods...), nil
}

// GetPeriod reads one period.
func (s *Store) GetPeriod(ctx context.Context, id schedule.PeriodID) (schedule.Period, error) {
	var p schedule.Period
	var end string
	var syscode sql.NullString
	err := s.q.QueryRowContext(ctx,
		`SELECT name, end_date, syscode FROM periods WHERE id = ?`, int64(id)).
		Scan(&p.Name, &end, &syscode)
	if err != nil {
		return schedule.Period{}, mapErr(err)
	}
	p.ID = id
	p.Syscode = syscode.String
	if p.End, err = decDate(end); err != nil {
		return schedule.Period{}, err
	}
	cats, err := s.loadLinks(ctx, "period_cats", "period_id", "cat_id")
	if err != nil {
		return schedule.Period{}, err
	}
	p.Cats = treeIDs(cats[int64(id)])
	return p, nil
}

// =============================================================================
// WEEK / DAY / TIME TEMPLATES
// =============================================================================

// SaveDay upserts a day template and rewrites its time slots.
func (s *Store) SaveDay(ctx context.Context, d schedule.DayConfig) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO day_configs (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`, d.ID, d.Name)
	if err != nil {
		return mapErr(err)
	}
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM time_configs WHERE day_id = ?`, d.ID); err != nil {
		return mapErr(err)
	}
	for _, tc := range d.Times {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO time_configs (id, day_id, name, start_h, start_m, end_h, end_m)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tc.ID, d.ID, tc.Name, tc.Start.Hour, tc.Start.Minute, tc.End.Hour, tc.End.Minute); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

// SaveWeek upserts a week template and its weekday assignments. The
// referenced day templates must already be saved.
func (s *Store) SaveWeek(ctx context.Context, w *schedule.WeekConfig) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO week_configs (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`, w.ID, w.Name)
	if err != nil {
		return mapErr(err)
	}
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM week_days WHERE week_id = ?`, w.ID); err != nil {
		return mapErr(err)
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		d := w.DayFor(wd)
		if d == nil {
			continue
		}
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO week_days (week_id, weekday, day_id) VALUES (?, ?, ?)`,
			w.ID, int(wd), d.ID); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

func (s *Store) loadDay(ctx context.Context, id int64) (*schedule.DayConfig, error) {
	var d schedule.DayConfig
	if err := s.q.QueryRowContext(ctx,
		`SELECT id, name FROM day_configs WHERE id = ?`, id).Scan(&d.ID, &d.Name); err != nil {
		return nil, mapErr(err)
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, start_h, start_m, end_h, end_m
		FROM time_configs WHERE day_id = ? ORDER BY start_h, start_m, id`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var tc schedule.TimeConfig
		if err := rows.Scan(&tc.ID, &tc.Name, &tc.Start.Hour, &tc.Start.Minute,
			&tc.End.Hour, &tc.End.Minute); err != nil {
			return nil, err
		}
		d.Times = append(d.Times, tc)
	}
	return &d, rows.Err()
}

// GetWeek reads a week template with its day templates hydrated.
func (s *Store) GetWeek(ctx context.Context, id int64) (*schedule.WeekConfig, error) {
	var w schedule.WeekConfig
	if err := s.q.QueryRowContext(ctx,
		`SELECT id, name FROM week_configs WHERE id = ?`, id).Scan(&w.ID, &w.Name); err != nil {
		return nil, mapErr(err)
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT weekday, day_id FROM week_days WHERE week_id = ?`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	type assignment struct {
		weekday int
		dayID   int64
	}
	var assignments []assignment
	for rows.Next() {
		var a assignment
		if err := rows.Scan(&a.weekday, &a.dayID); err != nil {
			rows.Close()
			return nil, err
		}
		assignments = append(assignments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	days := map[int64]*schedule.DayConfig{}
	for _, a := range assignments {
		d, ok := days[a.dayID]
		if !ok {
			var err error
			if d, err = s.loadDay(ctx, a.dayID); err != nil {
				return nil, err
			}
			days[a.dayID] = d
		}
		w.SetDay(time.Weekday(a.weekday), d)
	}
	return &w, nil
}

// =============================================================================
// BUILDERS - Persisted once, post-generation, immutable after
// =============================================================================

// The builder filter dimensions share the builder_filters table.
const (
	bdimUserCats  = "usercats"
	bdimLocCats   = "loccats"
	bdimRegions   = "regions"
	bdimCities    = "cities"
	bdimStates    = "states"
	bdimCountries = "countries"
	bdimZips      = "zips"
	bdimBricks    = "bricks"
)

// InsertBuilder persists a builder row and its filter criteria,
// assigning b.ID. Called exactly once per builder, inside the same
// transaction as the visits it generated.
func (s *Store) InsertBuilder(ctx context.Context, b *schedule.VisitBuilder) error {
	var periodID any
	if b.Period != nil {
		periodID = int64(b.Period.ID)
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO visit_builders
			(created_at, name, state, qty, node_id, week_id,
			 every_hours, every_minutes, period_id, start, end_date, syscode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encTime(b.CreatedAt), b.Name, string(b.State), b.Qty,
		int64(b.Node), b.Week.ID, b.EveryHours, b.EveryMinutes,
		periodID, encNullDate(b.Start), encNullDate(b.End), nullStr(b.Syscode))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = schedule.BuilderID(id)

	dims := map[string][]int64{
		bdimUserCats:  rawIDs(b.UserCats),
		bdimLocCats:   rawIDs(b.LocCats),
		bdimRegions:   rawIDs(b.Regions),
		bdimCities:    rawIDs(b.Cities),
		bdimStates:    rawIDs(b.States),
		bdimCountries: rawIDs(b.Countries),
		bdimZips:      rawIDs(b.Zips),
		bdimBricks:    rawIDs(b.Bricks),
	}
	for dim, refs := range dims {
		for _, ref := range refs {
			if _, err := s.q.ExecContext(ctx,
				`INSERT INTO builder_filters (builder_id, dim, ref_id) VALUES (?, ?, ?)`,
				id, dim, ref); err != nil {
				return mapErr(err)
			}
		}
	}
	return nil
}

// GetBuilder reads one builder with its week template and period
// hydrated.
func (s *Store) GetBuilder(ctx context.Context, id schedule.BuilderID) (*schedule.VisitBuilder, error) {
	var b schedule.VisitBuilder
	var createdAt, state string
	var node, weekID int64
	var periodID sql.NullInt64
	var start, end, syscode sql.NullString
	err := s.q.QueryRowContext(ctx, `
		SELECT created_at, name, state, qty, node_id, week_id,
		       every_hours, every_minutes, period_id, start, end_date, syscode
		FROM visit_builders WHERE id = ?`, int64(id)).
		Scan(&createdAt, &b.Name, &state, &b.Qty, &node, &weekID,
			&b.EveryHours, &b.EveryMinutes, &periodID, &start, &end, &syscode)
	if err != nil {
		return nil, mapErr(err)
	}
	b.ID = id
	b.State = schedule.BuilderState(state)
	b.Node = tree.ID(node)
	b.Syscode = syscode.String
	if b.CreatedAt, err = decTime(createdAt); err != nil {
		return nil, err
	}
	if b.Start, err = decNullDate(start); err != nil {
		return nil, err
	}
	if b.End, err = decNullDate(end); err != nil {
		return nil, err
	}
	if b.Week, err = s.GetWeek(ctx, weekID); err != nil {
		return nil, err
	}
	if periodID.Valid {
		p, err := s.GetPeriod(ctx, schedule.PeriodID(periodID.Int64))
		if err != nil {
			return nil, err
		}
		b.Period = &p
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT dim, ref_id FROM builder_filters WHERE builder_id = ? ORDER BY dim, ref_id`, int64(id))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var dim string
		var ref int64
		if err := rows.Scan(&dim, &ref); err != nil {
			return nil, err
		}
		switch dim {
		case bdimUserCats:
			b.UserCats = append(b.UserCats, tree.ID(ref))
		case bdimLocCats:
			b.LocCats = append(b.LocCats, tree.ID(ref))
		case bdimRegions:
			b.Regions = append(b.Regions, geo.ID(ref))
		case bdimCities:
			b.Cities = append(b.Cities, geo.ID(ref))
		case bdimStates:
			b.States = append(b.States, geo.ID(ref))
		case bdimCountries:
			b.Countries = append(b.Countries, geo.ID(ref))
		case bdimZips:
			b.Zips = append(b.Zips, geo.ID(ref))
		case bdimBricks:
			b.Bricks = append(b.Bricks, geo.ID(ref))
		}
	}
	return &b, rows.Err()
}

// ListBuilders reads every builder, newest first. Weeks and periods are
// not hydrated; use GetBuilder for a full read.
func (s *Store) ListBuilders(ctx context.Context) ([]schedule.VisitBuilder, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, created_at, name, state, qty, node_id, every_hours, every_minutes, syscode
		FROM visit_builders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []schedule.VisitBuilder
	for rows.Next() {
		var b schedule.VisitBuilder
		var id, node int64
		var createdAt, state string
		var syscode sql.NullString
		if err := rows.Scan(&id, &createdAt, &b.Name, &state, &b.Qty, &node,
			&b.EveryHours, &b.EveryMinutes, &syscode); err != nil {
			return nil, err
		}
		b.ID = schedule.BuilderID(id)
		b.State = schedule.BuilderState(state)
		b.Node = tree.ID(node)
		b.Syscode = syscode.String
		if b.CreatedAt, err = decTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBuilder refuses for generated builders. Since builders only
// ever persist in the generated state, this always refuses; it exists
// so the refusal is an explicit storage-layer contract rather than an
// API-layer convention.
func (s *Store) DeleteBuilder(ctx context.Context, id schedule.BuilderID) error {
	var state string
	err := s.q.QueryRowContext(ctx,
		`SELECT state FROM visit_builders WHERE id = ?`, int64(id)).Scan(&state)
	if err != nil {
		return mapErr(err)
	}
	if schedule.BuilderState(state) == schedule.StateGenerated {
		return fmt.Errorf("builder %d: %w", id, ErrBuilderImmutable)
	}
	_, err = s.q.ExecContext(ctx, `DELETE FROM visit_builders WHERE id = ?`, int64(id))
	return mapErr(err)
}

// =============================================================================
// VISITS
// =============================================================================

// CreateVisit inserts a visit and assigns its id. This is the
// schedule.VisitSink the generator emits into.
func (s *Store) CreateVisit(ctx context.Context, v *schedule.ForceVisit) error {
	if err := v.Validate(); err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO force_visits (node_id, loc_id, at, status, accompanied, observations, rec, syscode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(v.Node), int64(v.Loc), encTime(v.At), string(v.Status),
		v.Accompanied, v.Observations, v.Rec, nullStr(v.Syscode))
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = schedule.VisitID(id)
	return nil
}

// UpdateVisit rewrites a visit's mutable fields.
func (s *Store) UpdateVisit(ctx context.Context, v schedule.ForceVisit) error {
	if err := v.Validate(); err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE force_visits SET at = ?, status = ?, accompanied = ?, observations = ?, rec = ?
		WHERE id = ?`,
		encTime(v.At), string(v.Status), v.Accompanied, v.Observations, v.Rec, int64(v.ID))
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetVisit reads one visit.
func (s *Store) GetVisit(ctx context.Context, id schedule.VisitID) (schedule.ForceVisit, error) {
	var v schedule.ForceVisit
	var node, loc int64
	var at, status string
	var syscode sql.NullString
	err := s.q.QueryRowContext(ctx, `
		SELECT node_id, loc_id, at, status, accompanied, observations, rec, syscode
		FROM force_visits WHERE id = ?`, int64(id)).
		Scan(&node, &loc, &at, &status, &v.Accompanied, &v.Observations, &v.Rec, &syscode)
	if err != nil {
		return schedule.ForceVisit{}, mapErr(err)
	}
	v.ID = id
	v.Node = tree.ID(node)
	v.Loc = catalog.LocID(loc)
	v.Status = schedule.Status(status)
	v.Syscode = syscode.String
	if v.At, err = decTime(at); err != nil {
		return schedule.ForceVisit{}, err
	}
	return v, nil
}

// ListVisits reads a node's visits within [from, to), in time order.
// A zero node lists every node.
func (s *Store) ListVisits(ctx context.Context, node tree.ID, from, to time.Time) ([]schedule.ForceVisit, error) {
	query := `
		SELECT id, node_id, loc_id, at, status, accompanied, observations, rec, syscode
		FROM force_visits WHERE at >= ? AND at < ?`
	args := []any{encTime(from), encTime(to)}
	if node != 0 {
		query += ` AND node_id = ?`
		args = append(args, int64(node))
	}
	query += ` ORDER BY at, id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []schedule.ForceVisit
	for rows.Next() {
		var v schedule.ForceVisit
		var id, nodeID, loc int64
		var at, status string
		var syscode sql.NullString
		if err := rows.Scan(&id, &nodeID, &loc, &at, &status,
			&v.Accompanied, &v.Observations, &v.Rec, &syscode); err != nil {
			return nil, err
		}
		v.ID = schedule.VisitID(id)
		v.Node = tree.ID(nodeID)
		v.Loc = catalog.LocID(loc)
		v.Status = schedule.Status(status)
		v.Syscode = syscode.String
		if v.At, err = decTime(at); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

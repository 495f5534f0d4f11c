/*
Package sqlite provides the SQLite-backed store for the field engine.

PURPOSE:
  Persists the whole data model: category trees, geography, master data
  (users, items, locations, places, force nodes), forms and their nine
  relation dimensions, scheduling configuration (periods, week/day/time
  templates), visit builders, and visits. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

TRANSACTIONS:
  WithTx runs a function against a transactional view of the store.
  Builder generation uses it so the builder row, every generated visit,
  and the write-once quantity commit together or not at all. A failed
  validation aborts before the first write.

GENERATION IMMUTABILITY:
  Builders persist only in the generated state, the recorded quantity is
  never updated afterwards, and DeleteBuilder always refuses: the
  one-shot contract holds at the storage layer too.

KEY TABLES:
  categories:     All six category trees, discriminated by kind
  form_rels:      The nine form relation dimensions, discriminated by dim
  visit_builders: One row per generation, written once
  force_visits:   The visit agenda, indexed by (node, at)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - schedule/generator.go: the VisitSink this store implements
  - catalog: the in-memory arena LoadCatalog hydrates
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrNotUnique is surfaced for store-level uniqueness violations; the
// API maps it to the generic "Not unique, invalid." message.
var ErrNotUnique = errors.New("not unique, invalid")

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrBuilderImmutable is returned for any attempt to delete a
// generated builder.
var ErrBuilderImmutable = errors.New("generated builder is immutable")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements persistence for every engine entity.
type Store struct {
	db *sql.DB
	q  querier
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a transactional view of the store. The
// transaction commits when fn returns nil and rolls back otherwise.
// Calls on an already-transactional store nest flat.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// mapErr converts driver-level failures into the store's conditions.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", ErrNotUnique, err)
	}
	return err
}

// =============================================================================
// COLUMN ENCODING - TEXT columns: RFC3339 instants, plain dates
// =============================================================================

const dateLayout = "2006-01-02"

func encTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }
func encDate(t time.Time) string { return t.UTC().Format(dateLayout) }

func decTime(s string) (time.Time, error) { return time.Parse(time.RFC3339, s) }
func decDate(s string) (time.Time, error) { return time.ParseInLocation(dateLayout, s, time.UTC) }

func encNullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encDate(*t)
}

func decNullDate(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := decDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullStr maps empty strings to NULL so nullable-unique columns
// (syscodes) stay honest: many rows may omit one, set ones stay unique.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
	-- Category trees (one table, discriminated by kind)
	CREATE TABLE IF NOT EXISTS categories (
		kind TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		parent INTEGER NOT NULL DEFAULT 0,
		ord INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (kind, id)
	);

	CREATE INDEX IF NOT EXISTS idx_categories_kind_parent
		ON categories(kind, parent);

	-- Geography reference chain: country > state > city and
	-- brick > zip, joined by region
	CREATE TABLE IF NOT EXISTS countries (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS states (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		country_id INTEGER NOT NULL REFERENCES countries(id)
	);

	CREATE TABLE IF NOT EXISTS cities (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		state_id INTEGER NOT NULL REFERENCES states(id)
	);

	CREATE TABLE IF NOT EXISTS bricks (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS zips (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		brick_id INTEGER NOT NULL REFERENCES bricks(id)
	);

	CREATE TABLE IF NOT EXISTS regions (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		city_id INTEGER NOT NULL REFERENCES cities(id),
		zip_id INTEGER NOT NULL REFERENCES zips(id)
	);

	-- Master data
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		joined TEXT NOT NULL,
		syscode TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS user_cats (
		user_id INTEGER NOT NULL REFERENCES users(id),
		cat_id INTEGER NOT NULL,
		PRIMARY KEY (user_id, cat_id)
	);

	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		forms_description TEXT NOT NULL DEFAULT '',
		forms_expandable INTEGER NOT NULL DEFAULT 0,
		forms_order INTEGER NOT NULL DEFAULT 0,
		syscode TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS item_cats (
		item_id INTEGER NOT NULL REFERENCES items(id),
		cat_id INTEGER NOT NULL,
		PRIMARY KEY (item_id, cat_id)
	);

	CREATE TABLE IF NOT EXISTS item_visits_usercats (
		item_id INTEGER NOT NULL REFERENCES items(id),
		cat_id INTEGER NOT NULL,
		PRIMARY KEY (item_id, cat_id)
	);

	CREATE TABLE IF NOT EXISTS item_visits_loccats (
		item_id INTEGER NOT NULL REFERENCES items(id),
		cat_id INTEGER NOT NULL,
		PRIMARY KEY (item_id, cat_id)
	);

	CREATE TABLE IF NOT EXISTS addresses (
		id INTEGER PRIMARY KEY,
		street TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		phone2 TEXT NOT NULL DEFAULT '',
		fax TEXT NOT NULL DEFAULT '',
		region_id INTEGER NOT NULL REFERENCES regions(id)
	);

	CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		parent INTEGER NOT NULL DEFAULT 0,
		ord INTEGER NOT NULL DEFAULT 0,
		address_id INTEGER NOT NULL REFERENCES addresses(id),
		canloc INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS locs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		user_id INTEGER NOT NULL REFERENCES users(id),
		address_id INTEGER,
		place_id INTEGER,
		syscode TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS loc_cats (
		loc_id INTEGER NOT NULL REFERENCES locs(id),
		cat_id INTEGER NOT NULL,
		PRIMARY KEY (loc_id, cat_id)
	);

	CREATE TABLE IF NOT EXISTS force_nodes (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		parent INTEGER NOT NULL DEFAULT 0,
		ord INTEGER NOT NULL DEFAULT 0,
		user_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS node_itemcats (
		node_id INTEGER NOT NULL REFERENCES force_nodes(id),
		cat_id INTEGER NOT NULL,
		PRIMARY KEY (node_id, cat_id)
	);

	CREATE TABLE IF NOT EXISTS node_bricks (
		node_id INTEGER NOT NULL REFERENCES force_nodes(id),
		brick_id INTEGER NOT NULL REFERENCES bricks(id),
		PRIMARY KEY (node_id, brick_id)
	);

	-- Forms; the nine relation dimensions share one link table,
	-- discriminated by dim
	CREATE TABLE IF NOT EXISTS forms (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		scope TEXT NOT NULL,
		start TEXT,
		end_date TEXT,
		description TEXT NOT NULL DEFAULT '',
		expandable INTEGER NOT NULL DEFAULT 0,
		ord INTEGER NOT NULL DEFAULT 0,
		syscode TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS form_rels (
		form_id INTEGER NOT NULL REFERENCES forms(id),
		dim TEXT NOT NULL,
		ref_id INTEGER NOT NULL,
		PRIMARY KEY (form_id, dim, ref_id)
	);

	CREATE INDEX IF NOT EXISTS idx_form_rels_dim
		ON form_rels(dim, ref_id);

	CREATE TABLE IF NOT EXISTS form_fields (
		id INTEGER PRIMARY KEY,
		form_id INTEGER NOT NULL REFERENCES forms(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		widget TEXT NOT NULL DEFAULT 'def',
		dflt TEXT NOT NULL DEFAULT '',
		required INTEGER NOT NULL DEFAULT 0,
		ord INTEGER NOT NULL DEFAULT 0,
		opts1 TEXT NOT NULL DEFAULT '',
		optscat INTEGER NOT NULL DEFAULT 0,
		UNIQUE (form_id, name)
	);

	-- Scheduling configuration
	CREATE TABLE IF NOT EXISTS periods (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		end_date TEXT NOT NULL,
		syscode TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS period_cats (
		period_id INTEGER NOT NULL REFERENCES periods(id),
		cat_id INTEGER NOT NULL,
		PRIMARY KEY (period_id, cat_id)
	);

	CREATE TABLE IF NOT EXISTS day_configs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS time_configs (
		id INTEGER PRIMARY KEY,
		day_id INTEGER NOT NULL REFERENCES day_configs(id),
		name TEXT NOT NULL DEFAULT '',
		start_h INTEGER NOT NULL,
		start_m INTEGER NOT NULL,
		end_h INTEGER NOT NULL,
		end_m INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS week_configs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS week_days (
		week_id INTEGER NOT NULL REFERENCES week_configs(id),
		weekday INTEGER NOT NULL,
		day_id INTEGER NOT NULL REFERENCES day_configs(id),
		PRIMARY KEY (week_id, weekday)
	);

	-- Builders (one row per generation, written once) and visits
	CREATE TABLE IF NOT EXISTS visit_builders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL,
		name TEXT NOT NULL,
		state TEXT NOT NULL,
		qty INTEGER NOT NULL DEFAULT 0,
		node_id INTEGER NOT NULL REFERENCES force_nodes(id),
		week_id INTEGER NOT NULL REFERENCES week_configs(id),
		every_hours INTEGER NOT NULL DEFAULT 0,
		every_minutes INTEGER NOT NULL DEFAULT 0,
		period_id INTEGER,
		start TEXT,
		end_date TEXT,
		syscode TEXT UNIQUE
	);

	CREATE TABLE IF NOT EXISTS builder_filters (
		builder_id INTEGER NOT NULL REFERENCES visit_builders(id),
		dim TEXT NOT NULL,
		ref_id INTEGER NOT NULL,
		PRIMARY KEY (builder_id, dim, ref_id)
	);

	CREATE TABLE IF NOT EXISTS force_visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node_id INTEGER NOT NULL REFERENCES force_nodes(id),
		loc_id INTEGER NOT NULL REFERENCES locs(id),
		at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 's',
		accompanied INTEGER NOT NULL DEFAULT 0,
		observations TEXT NOT NULL DEFAULT '',
		rec TEXT NOT NULL DEFAULT '',
		syscode TEXT UNIQUE
	);

	-- Agenda queries read per-node, newest first (hot path)
	CREATE INDEX IF NOT EXISTS idx_force_visits_node_at
		ON force_visits(node_id, at DESC);
	CREATE INDEX IF NOT EXISTS idx_force_visits_loc
		ON force_visits(loc_id);
	`

package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// VISIT STATUS
// =============================================================================

// Status is the lifecycle state of a visit.
type Status string

const (
	StatusScheduled   Status = "s"
	StatusVisited     Status = "v"
	StatusNegative    Status = "n"
	StatusRescheduled Status = "r"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusVisited, StatusNegative, StatusRescheduled:
		return true
	}
	return false
}

// Label returns the display name of a status.
func (s Status) Label() string {
	switch s {
	case StatusScheduled:
		return "Scheduled"
	case StatusVisited:
		return "Visited"
	case StatusNegative:
		return "Negative"
	case StatusRescheduled:
		return "Re-scheduled"
	}
	return string(s)
}

// =============================================================================
// FORCE VISIT
// =============================================================================

// VisitID identifies a visit.
type VisitID int64

// ForceVisit is a scheduled appointment of a force node at a location.
// Created by the generator (or one-off by an administrator); the
// generator only ever creates, never updates or deletes.
type ForceVisit struct {
	ID           VisitID
	Node         tree.ID
	Loc          catalog.LocID
	At           time.Time
	Status       Status
	Accompanied  bool
	Observations string
	Syscode      string

	// Rec is a free-form JSON blob of structured record data. Empty or
	// parseable JSON; anything else fails validation.
	Rec string
}

// Validate checks the rec invariant.
func (v ForceVisit) Validate() error {
	if v.Rec == "" {
		return nil
	}
	if !json.Valid([]byte(v.Rec)) {
		return fmt.Errorf("visit %d: %w", v.ID, ErrInvalidRec)
	}
	return nil
}

// RecMap parses the rec blob into a map. Numbers are preserved as
// decimal.Decimal so fractional record values survive round-trips
// without float drift. An empty blob yields an empty map.
func (v ForceVisit) RecMap() (map[string]any, error) {
	out, err := v.recRaw()
	if err != nil {
		return nil, err
	}
	decimalize(out)
	return out, nil
}

// recRaw parses the blob keeping json.Number leaves, so a re-marshal
// emits unquoted numbers.
func (v ForceVisit) recRaw() (map[string]any, error) {
	out := map[string]any{}
	if v.Rec == "" {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(v.Rec)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("visit %d: %w", v.ID, ErrInvalidRec)
	}
	return out, nil
}

// MergeRec applies a shallow key overwrite of partial onto the existing
// rec map and stores the result back as JSON. Nested values are
// replaced wholesale, not merged.
func (v *ForceVisit) MergeRec(partial map[string]any) error {
	rec, err := v.recRaw()
	if err != nil {
		return err
	}
	for k, val := range partial {
		rec[k] = val
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("visit %d: %w", v.ID, ErrInvalidRec)
	}
	v.Rec = string(raw)
	return nil
}

// decimalize converts json.Number leaves to decimal.Decimal, in place
// where possible.
func decimalize(m map[string]any) {
	for k, val := range m {
		m[k] = decimalizeValue(val)
	}
}

func decimalizeValue(val any) any {
	switch t := val.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d
		}
		return t.String()
	case map[string]any:
		decimalize(t)
		return t
	case []any:
		for i, e := range t {
			t[i] = decimalizeValue(e)
		}
		return t
	}
	return val
}

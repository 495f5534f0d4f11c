/*
Package forms implements dynamic forms and the eligibility resolver.

PURPOSE:
  A Form is a dynamic questionnaire targeted at either users or visits.
  Which forms apply to a given user or visit is decided by any-match set
  intersection across the form's categorical dimensions; which report
  items ride along with a matched form is decided by a second, per-item
  pass. This package owns both decisions.

KEY CONCEPTS IN THIS FILE (form.go):
  - Scope: the discriminator selecting which dimension group applies.
    A "users" form only ever consults its Users* fields, a "visits" form
    only its Visits* fields. The two groups are never cross-checked.
  - Form: the questionnaire and its nine relation dimensions.

SEE ALSO:
  - resolver.go: the forms/report-items resolution algorithm
  - field.go: per-field option derivation
  - query.go: assembling matcher input from the catalog
*/
package forms

import (
	"time"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// SCOPE
// =============================================================================

// Scope selects which eligibility dimension group a form is matched
// under.
type Scope string

const (
	ScopeUsers  Scope = "users"
	ScopeVisits Scope = "visits"
)

// =============================================================================
// FORM
// =============================================================================

// FormID identifies a form.
type FormID int64

// Form is a dynamic form definition. All relation slices are
// independent eligibility dimensions; a single matching dimension
// qualifies the form.
type Form struct {
	ID          FormID
	Name        string
	Scope       Scope
	Start       *time.Time // optional validity window
	End         *time.Time
	Description string
	Expandable  bool
	Order       int
	Syscode     string

	// Cats place the form itself in the form-category tree (display
	// grouping only; never part of eligibility).
	Cats []tree.ID

	// Report items: direct, plus everything under the item-category
	// closure.
	RepItems    []catalog.ItemID
	RepItemCats []tree.ID

	// "users" scope dimensions.
	UsersUserCats []tree.ID
	UsersLocCats  []tree.ID

	// "visits" scope dimensions.
	VisitsUserCats   []tree.ID
	VisitsLocCats    []tree.ID
	VisitsItemCats   []tree.ID
	VisitsForceNodes []tree.ID
	VisitsBricks     []geo.ID
}

// ActiveAt reports whether the form's optional validity window covers
// the given instant. Forms with no window are always active.
func (f Form) ActiveAt(at time.Time) bool {
	if f.Start != nil && at.Before(*f.Start) {
		return false
	}
	if f.End != nil && at.After(*f.End) {
		return false
	}
	return true
}

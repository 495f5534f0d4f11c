/*
resolver.go - Form and report-item eligibility resolution

PURPOSE:
  Computes, for one user or one visit, the set of applicable forms and
  the report items nested within each matched form. This is the read
  side of the system: a pure query composition with no side effects,
  safe for unlimited concurrent callers.

ALGORITHM:
  1. Candidate forms are those matching the query's scope.
  2. A candidate qualifies if ANY of its scope's dimensions intersects
     the query (logical OR). Every check is a genuine intersection: a
     form with nothing configured on a dimension never matches on it.
  3. For each qualified form, the report-item union (direct items plus
     items under the repitemcat descendant closure, deduplicated) is
     resolved:
       - empty union: the form id goes to the matched-forms list
       - non-empty, user scope: every union item is recorded, keyed
         form -> items, with no further per-item filtering
       - non-empty, visit scope: the union is narrowed to items the
         visit carries, then each survivor must itself any-match the
         visit's user/loc categories; results are keyed item -> forms

DETERMINISM:
  Candidates iterate in (name, id) order. Iteration order affects only
  list ordering, never membership.

SEE ALSO:
  - query.go: UserQuery / VisitQuery assembly
  - tree/match.go: the intersection primitive
*/
package forms

import (
	"sort"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// QUERIES - Matcher input, one per scope
// =============================================================================

// UserQuery carries the tag sets a "users" scope resolution matches on.
// UserCats must already be the full descendant closure of the user's
// tags; LocCats are the direct tags of the user's locations.
type UserQuery struct {
	UserCats tree.Set
	LocCats  tree.Set
}

// VisitQuery carries the tag sets a "visits" scope resolution matches
// on. UpNodes is matched exactly against a form's force-node list; no
// ancestor or descendant generalization is ever applied to it.
type VisitQuery struct {
	UserCats tree.Set
	LocCats  tree.Set
	ItemCats tree.Set
	UpNodes  tree.Set
	Brick    geo.ID
	Items    []catalog.ItemID
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the resolver output. Forms lists qualified forms whose
// report-item union was empty. Exactly one of the two maps is populated,
// matching the query scope: UserReps keys form -> items, VisitReps keys
// item -> forms.
type Result struct {
	Forms     []FormID
	UserReps  map[FormID][]catalog.ItemID
	VisitReps map[catalog.ItemID][]FormID
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver resolves form and report-item eligibility over a catalog.
type Resolver struct {
	Catalog *catalog.Catalog
	Forms   []Form
}

// FormsReps resolves eligibility for exactly one of a user or a visit.
// Supplying both or neither is a programming-contract violation and
// fails with ErrExactlyOneScope before any work is done.
func (r *Resolver) FormsReps(user *UserQuery, visit *VisitQuery) (*Result, error) {
	if (user == nil) == (visit == nil) {
		return nil, ErrExactlyOneScope
	}

	scope := ScopeVisits
	if user != nil {
		scope = ScopeUsers
	}

	candidates := make([]Form, 0, len(r.Forms))
	for _, f := range r.Forms {
		if f.Scope == scope {
			candidates = append(candidates, f)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Name != candidates[j].Name {
			return candidates[i].Name < candidates[j].Name
		}
		return candidates[i].ID < candidates[j].ID
	})

	res := &Result{
		UserReps:  make(map[FormID][]catalog.ItemID),
		VisitReps: make(map[catalog.ItemID][]FormID),
	}

	var carried tree.Set
	if visit != nil {
		carried = make(tree.Set, len(visit.Items))
		for _, id := range visit.Items {
			carried.Add(tree.ID(id))
		}
	}

	for _, form := range candidates {
		if user != nil {
			if !r.userEligible(user, form) {
				continue
			}
		} else if !r.visitEligible(visit, form) {
			continue
		}

		union := r.repUnion(form)
		if len(union) == 0 {
			// No report-item gating applies; the form matches at the
			// form level.
			res.Forms = append(res.Forms, form.ID)
			continue
		}

		if user != nil {
			for _, item := range union {
				res.UserReps[form.ID] = append(res.UserReps[form.ID], item.ID)
			}
			continue
		}

		for _, item := range union {
			if !carried.Has(tree.ID(item.ID)) {
				continue
			}
			if tree.AnyMatch(visit.UserCats, item.VisitsUserCats) ||
				tree.AnyMatch(visit.LocCats, item.VisitsLocCats) {
				res.VisitReps[item.ID] = append(res.VisitReps[item.ID], form.ID)
			}
		}
	}
	return res, nil
}

func (r *Resolver) userEligible(q *UserQuery, f Form) bool {
	return tree.AnyMatch(q.UserCats, f.UsersUserCats) ||
		tree.AnyMatch(q.LocCats, f.UsersLocCats)
}

func (r *Resolver) visitEligible(q *VisitQuery, f Form) bool {
	if tree.AnyMatch(q.UserCats, f.VisitsUserCats) ||
		tree.AnyMatch(q.LocCats, f.VisitsLocCats) ||
		tree.AnyMatch(q.ItemCats, f.VisitsItemCats) ||
		tree.AnyMatch(q.UpNodes, f.VisitsForceNodes) {
		return true
	}
	if q.Brick != 0 {
		for _, b := range f.VisitsBricks {
			// Exact geography match; bricks are never tree-expanded.
			if b == q.Brick {
				return true
			}
		}
	}
	return false
}

// repUnion resolves a form's report-item set: direct items plus items
// under the descendant closure of its report-item categories,
// deduplicated, ordered by (name, id).
func (r *Resolver) repUnion(f Form) []catalog.Item {
	seen := make(map[catalog.ItemID]bool)
	var union []catalog.Item

	for _, id := range f.RepItems {
		item, ok := r.Catalog.Items[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		union = append(union, item)
	}
	if len(f.RepItemCats) > 0 {
		closure := r.Catalog.ItemCats.AllDowns(f.RepItemCats)
		for _, item := range r.Catalog.ItemsByCats(closure) {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			union = append(union, item)
		}
	}

	sort.Slice(union, func(i, j int) bool {
		if union[i].Name != union[j].Name {
			return union[i].Name < union[j].Name
		}
		return union[i].ID < union[j].ID
	})
	return union
}

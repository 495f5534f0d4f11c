package forms_test

import (
	"errors"
	"testing"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/forms"
	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newFixture builds a catalog with:
//   user cats:  specialist (1) > cardiology (2)
//   item cats:  drugs (10) > statins (11)
//   force tree: national (100) > north (101)
//   items:      lipix (1, cats statins), bandor (2, cats statins)
func newFixture(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("fixture: %v", err)
		}
	}
	must(c.UserCats.Upsert(tree.Node{ID: 1, Name: "specialist"}))
	must(c.UserCats.Upsert(tree.Node{ID: 2, Name: "cardiology", Parent: 1}))
	must(c.ItemCats.Upsert(tree.Node{ID: 10, Name: "drugs"}))
	must(c.ItemCats.Upsert(tree.Node{ID: 11, Name: "statins", Parent: 10}))
	must(c.PutNode(catalog.ForceNode{ID: 100, Name: "national"}))
	must(c.PutNode(catalog.ForceNode{ID: 101, Name: "north", Parent: 100}))

	c.Items[1] = catalog.Item{ID: 1, Name: "lipix", Cats: []tree.ID{11}, VisitsUserCats: []tree.ID{2}}
	c.Items[2] = catalog.Item{ID: 2, Name: "bandor", Cats: []tree.ID{11}}
	return c
}

func userQuery(c *catalog.Catalog, cats ...tree.ID) *forms.UserQuery {
	return &forms.UserQuery{
		UserCats: c.UserCats.AllDowns(cats),
		LocCats:  tree.NewSet(),
	}
}

// =============================================================================
// SCOPE CONTRACT TESTS
// =============================================================================

func TestFormsReps_RequiresExactlyOneScope(t *testing.T) {
	r := &forms.Resolver{Catalog: newFixture(t)}

	if _, err := r.FormsReps(nil, nil); !errors.Is(err, forms.ErrExactlyOneScope) {
		t.Errorf("neither: err = %v, want ErrExactlyOneScope", err)
	}
	u := &forms.UserQuery{}
	v := &forms.VisitQuery{}
	if _, err := r.FormsReps(u, v); !errors.Is(err, forms.ErrExactlyOneScope) {
		t.Errorf("both: err = %v, want ErrExactlyOneScope", err)
	}
}

func TestFormsReps_ScopeGroupsNeverCrossChecked(t *testing.T) {
	// GIVEN: a visits-scope form whose Users* dimensions would match
	c := newFixture(t)
	r := &forms.Resolver{
		Catalog: c,
		Forms: []forms.Form{{
			ID: 1, Name: "visits only", Scope: forms.ScopeVisits,
			UsersUserCats: []tree.ID{1},
		}},
	}

	// WHEN: resolving for a user that holds that category
	res, err := r.FormsReps(userQuery(c, 1), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// THEN: the visits-scope form never appears under the users scope
	if len(res.Forms) != 0 || len(res.UserReps) != 0 {
		t.Errorf("visits-scope form leaked into users scope: %+v", res)
	}
}

// =============================================================================
// EXPANSION ASYMMETRY TESTS
// =============================================================================

func TestFormsReps_UserCatsExpandDownward(t *testing.T) {
	// GIVEN: a form tagging only the CHILD category (cardiology)
	c := newFixture(t)
	r := &forms.Resolver{
		Catalog: c,
		Forms: []forms.Form{{
			ID: 1, Name: "cardio survey", Scope: forms.ScopeUsers,
			UsersUserCats: []tree.ID{2},
		}},
	}

	// WHEN: resolving for a user tagged with the PARENT (specialist)
	res, err := r.FormsReps(userQuery(c, 1), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// THEN: the downward closure of the user's tags reaches the child
	if len(res.Forms) != 1 || res.Forms[0] != 1 {
		t.Errorf("forms = %v, want [1]", res.Forms)
	}
}

func TestFormsReps_ForceNodesMatchExactly(t *testing.T) {
	// GIVEN: a form listing only the PARENT node (national)
	c := newFixture(t)
	r := &forms.Resolver{
		Catalog: c,
		Forms: []forms.Form{{
			ID: 1, Name: "national brief", Scope: forms.ScopeVisits,
			VisitsForceNodes: []tree.ID{100},
		}},
	}

	// WHEN: resolving for a visit whose node is the DESCENDANT (north)
	res, err := r.FormsReps(nil, &forms.VisitQuery{UpNodes: tree.NewSet(101)})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// THEN: no match; the node dimension is never tree-expanded
	if len(res.Forms) != 0 {
		t.Errorf("descendant node matched ancestor listing: %v", res.Forms)
	}

	// AND: the exact node does match
	res, err = r.FormsReps(nil, &forms.VisitQuery{UpNodes: tree.NewSet(100)})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Forms) != 1 {
		t.Errorf("exact node did not match: %v", res.Forms)
	}
}

func TestFormsReps_EmptyDimensionsNeverAutoMatch(t *testing.T) {
	// A form with zero tags configured on every dimension matches
	// nothing, under either scope.
	c := newFixture(t)
	r := &forms.Resolver{
		Catalog: c,
		Forms: []forms.Form{
			{ID: 1, Name: "blank users", Scope: forms.ScopeUsers},
			{ID: 2, Name: "blank visits", Scope: forms.ScopeVisits},
		},
	}

	res, err := r.FormsReps(userQuery(c, 1), nil)
	if err != nil {
		t.Fatalf("resolve user: %v", err)
	}
	if len(res.Forms) != 0 {
		t.Errorf("blank users form matched: %v", res.Forms)
	}

	res, err = r.FormsReps(nil, &forms.VisitQuery{UserCats: tree.NewSet(1), UpNodes: tree.NewSet(101)})
	if err != nil {
		t.Fatalf("resolve visit: %v", err)
	}
	if len(res.Forms) != 0 {
		t.Errorf("blank visits form matched: %v", res.Forms)
	}
}

// =============================================================================
// REPORT-ITEM RESOLUTION TESTS
// =============================================================================

func TestFormsReps_UserGetsFullRepUnion(t *testing.T) {
	// GIVEN: a users form whose rep union is lipix + bandor (via the
	// repitemcat closure from the "drugs" root)
	c := newFixture(t)
	r := &forms.Resolver{
		Catalog: c,
		Forms: []forms.Form{{
			ID: 1, Name: "drug report", Scope: forms.ScopeUsers,
			UsersUserCats: []tree.ID{1},
			RepItemCats:   []tree.ID{10},
		}},
	}

	res, err := r.FormsReps(userQuery(c, 1), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// THEN: the form moves from the form list into form -> items, with
	// ALL union items and no per-item filtering
	if len(res.Forms) != 0 {
		t.Errorf("form with items also listed at form level: %v", res.Forms)
	}
	items := res.UserReps[1]
	if len(items) != 2 || items[0] != 2 || items[1] != 1 {
		t.Errorf("user reps = %v, want [2 1] (bandor, lipix by name)", items)
	}
}

func TestFormsReps_VisitFiltersRepsByCarriedAndItemEligibility(t *testing.T) {
	// GIVEN: a visits form with the same rep union; the visit carries
	// only lipix, and lipix requires usercat cardiology (2)
	c := newFixture(t)
	form := forms.Form{
		ID: 1, Name: "drug report", Scope: forms.ScopeVisits,
		VisitsUserCats: []tree.ID{2},
		RepItemCats:    []tree.ID{10},
	}
	r := &forms.Resolver{Catalog: c, Forms: []forms.Form{form}}

	q := &forms.VisitQuery{
		UserCats: c.UserCats.AllDowns([]tree.ID{2}),
		LocCats:  tree.NewSet(),
		Items:    []catalog.ItemID{1},
	}
	res, err := r.FormsReps(nil, q)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// THEN: only lipix survives, keyed item -> forms
	if len(res.VisitReps) != 1 {
		t.Fatalf("visit reps = %+v, want exactly lipix", res.VisitReps)
	}
	if got := res.VisitReps[1]; len(got) != 1 || got[0] != 1 {
		t.Errorf("lipix forms = %v, want [1]", got)
	}
	// bandor is in the union but not carried; it must not appear.
	if _, ok := res.VisitReps[2]; ok {
		t.Error("uncarried item appeared in visit reps")
	}
}

func TestFormsReps_VisitDropsItemsFailingOwnEligibility(t *testing.T) {
	// GIVEN: the visit carries both items but holds no user categories;
	// lipix requires cardiology, bandor has no item-level tags at all
	c := newFixture(t)
	form := forms.Form{
		ID: 1, Name: "drug report", Scope: forms.ScopeVisits,
		VisitsItemCats: []tree.ID{10},
		RepItemCats:    []tree.ID{10},
	}
	r := &forms.Resolver{Catalog: c, Forms: []forms.Form{form}}

	q := &forms.VisitQuery{
		ItemCats: c.ItemCats.AllDowns([]tree.ID{10}),
		Items:    []catalog.ItemID{1, 2},
	}
	res, err := r.FormsReps(nil, q)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// THEN: both items fail their own any-match and are dropped, and
	// the form does NOT fall back to the form-level list (the union was
	// non-empty).
	if len(res.VisitReps) != 0 {
		t.Errorf("ineligible items kept: %+v", res.VisitReps)
	}
	if len(res.Forms) != 0 {
		t.Errorf("form with non-empty union listed at form level: %v", res.Forms)
	}
}

func TestFormsReps_EmptyUnionReportsFormItself(t *testing.T) {
	c := newFixture(t)
	r := &forms.Resolver{
		Catalog: c,
		Forms: []forms.Form{{
			ID: 7, Name: "plain survey", Scope: forms.ScopeUsers,
			UsersUserCats: []tree.ID{1},
		}},
	}

	res, err := r.FormsReps(userQuery(c, 1), nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Forms) != 1 || res.Forms[0] != 7 {
		t.Errorf("forms = %v, want [7]", res.Forms)
	}
	if len(res.UserReps) != 0 {
		t.Errorf("empty union produced reps: %+v", res.UserReps)
	}
}

func TestFormsReps_BrickMatchesExactGeography(t *testing.T) {
	c := newFixture(t)
	r := &forms.Resolver{
		Catalog: c,
		Forms: []forms.Form{{
			ID: 1, Name: "brick brief", Scope: forms.ScopeVisits,
			VisitsBricks: []geo.ID{90},
		}},
	}

	res, err := r.FormsReps(nil, &forms.VisitQuery{Brick: 90})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Forms) != 1 {
		t.Errorf("brick member did not match: %v", res.Forms)
	}

	// A zero brick (unresolvable location) never matches.
	res, err = r.FormsReps(nil, &forms.VisitQuery{Brick: 0})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Forms) != 0 {
		t.Errorf("zero brick matched: %v", res.Forms)
	}
}

// =============================================================================
// QUERY ASSEMBLY TESTS
// =============================================================================

func TestQueryForVisit_AssemblesExactNodeAndClosures(t *testing.T) {
	c := newFixture(t)
	c.Users[1] = catalog.User{ID: 1, Email: "doc@example.com", Cats: []tree.ID{1}}
	c.Locs[1] = catalog.Loc{ID: 1, Name: "clinic", User: 1, Address: 60, Cats: []tree.ID{33}}
	c.Nodes[101] = catalog.ForceNode{ID: 101, Name: "north", Parent: 100, ItemCats: []tree.ID{10}}

	q, err := forms.QueryForVisit(c, 101, 1)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// Node identity only; the ancestor (100) must not be present.
	if !q.UpNodes.Has(101) || q.UpNodes.Has(100) || len(q.UpNodes) != 1 {
		t.Errorf("upnodes = %v, want exactly [101]", q.UpNodes.IDs())
	}
	// User cats expanded downward (specialist -> cardiology).
	if !q.UserCats.Has(1) || !q.UserCats.Has(2) {
		t.Errorf("usercats = %v, want closure of specialist", q.UserCats.IDs())
	}
	// Loc cats exact.
	if !q.LocCats.Has(33) || len(q.LocCats) != 1 {
		t.Errorf("loccats = %v, want exactly [33]", q.LocCats.IDs())
	}
	// Carried items come from the node's item-category closure.
	if len(q.Items) != 2 {
		t.Errorf("items = %v, want both fixture items", q.Items)
	}
}

func TestQueryForUser_UnknownUserFails(t *testing.T) {
	c := newFixture(t)
	if _, err := forms.QueryForUser(c, 999); !errors.Is(err, forms.ErrUnknownEntity) {
		t.Errorf("err = %v, want ErrUnknownEntity", err)
	}
}

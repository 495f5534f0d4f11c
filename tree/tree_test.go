package tree_test

import (
	"errors"
	"testing"

	"github.com/warp/field-engine/tree"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// buildSpecialtyTree builds:
//
//	cardio (1)
//	  interventional (2)
//	  pediatric (3)
//	neuro (4)
//	  vascular (5)
func buildSpecialtyTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New(tree.KindUserCat)
	nodes := []tree.Node{
		{ID: 1, Name: "cardio"},
		{ID: 2, Name: "interventional", Parent: 1},
		{ID: 3, Name: "pediatric", Parent: 1},
		{ID: 4, Name: "neuro"},
		{ID: 5, Name: "vascular", Parent: 4},
	}
	for _, n := range nodes {
		if err := tr.Upsert(n); err != nil {
			t.Fatalf("upsert %d: %v", n.ID, err)
		}
	}
	return tr
}

func ids(nodes []tree.Node) []tree.ID {
	out := make([]tree.ID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func sameIDs(a, b []tree.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// REBUILD TESTS
// =============================================================================

func TestRebuild_DepthEqualsAncestorHops(t *testing.T) {
	tr := buildSpecialtyTree(t)

	for id, want := range map[tree.ID]int{1: 0, 2: 1, 3: 1, 4: 0, 5: 1} {
		n, ok := tr.Get(id)
		if !ok {
			t.Fatalf("node %d missing", id)
		}
		if n.Level() != want {
			t.Errorf("node %d: level = %d, want %d", id, n.Level(), want)
		}
	}
}

func TestRebuild_SiblingsOrderedByOrderThenName(t *testing.T) {
	// GIVEN: siblings with mixed explicit orders and names
	tr := tree.New(tree.KindGenericCat)
	for _, n := range []tree.Node{
		{ID: 10, Name: "root"},
		{ID: 11, Name: "zeta", Parent: 10, Order: 0},
		{ID: 12, Name: "alpha", Parent: 10, Order: 0},
		{ID: 13, Name: "first", Parent: 10, Order: -1},
	} {
		if err := tr.Upsert(n); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	// THEN: order key is (order, name)
	got := ids(tr.Children(10))
	want := []tree.ID{13, 12, 11}
	if !sameIDs(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
}

func TestRebuild_Idempotent(t *testing.T) {
	// GIVEN: a built tree
	tr := buildSpecialtyTree(t)
	first := ids(tr.Ordered())

	// WHEN: rebuilding twice with no intervening mutation
	if err := tr.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	second := ids(tr.Ordered())
	if err := tr.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	third := ids(tr.Ordered())

	// THEN: ordering is identical every time
	if !sameIDs(first, second) || !sameIDs(second, third) {
		t.Errorf("ordering changed across rebuilds: %v / %v / %v", first, second, third)
	}
}

func TestUpsert_RejectsCycleWithoutMutating(t *testing.T) {
	tr := buildSpecialtyTree(t)
	before := ids(tr.Ordered())

	// WHEN: making cardio a child of its own descendant
	err := tr.Upsert(tree.Node{ID: 1, Name: "cardio", Parent: 2})

	// THEN: rejected as a geometry error, arena unchanged
	if !errors.Is(err, tree.ErrInvalidGeometry) {
		t.Fatalf("err = %v, want geometry error", err)
	}
	if !sameIDs(ids(tr.Ordered()), before) {
		t.Errorf("failed upsert mutated the tree")
	}
}

func TestUpsert_RejectsUnknownParent(t *testing.T) {
	tr := tree.New(tree.KindLocCat)
	err := tr.Upsert(tree.Node{ID: 1, Name: "orphan", Parent: 99})
	if !errors.Is(err, tree.ErrInvalidGeometry) {
		t.Fatalf("err = %v, want geometry error", err)
	}
}

func TestRemove_ReparentsChildren(t *testing.T) {
	tr := buildSpecialtyTree(t)

	if err := tr.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Children of cardio become roots.
	for _, id := range []tree.ID{2, 3} {
		n, _ := tr.Get(id)
		if n.Parent != 0 || n.Level() != 0 {
			t.Errorf("node %d: parent=%d level=%d, want root", id, n.Parent, n.Level())
		}
	}
}

// =============================================================================
// CLOSURE TESTS
// =============================================================================

func TestDescendants_TransitiveClosure(t *testing.T) {
	tr := buildSpecialtyTree(t)

	got := tr.Descendants(1, false)
	if !sameIDs(got, []tree.ID{2, 3}) {
		t.Errorf("descendants(1) = %v, want [2 3]", got)
	}

	got = tr.Descendants(1, true)
	if !sameIDs(got, []tree.ID{1, 2, 3}) {
		t.Errorf("descendants(1, self) = %v, want [1 2 3]", got)
	}
}

func TestAncestors_NearestFirst(t *testing.T) {
	tr := tree.New(tree.KindForceNode)
	for _, n := range []tree.Node{
		{ID: 1, Name: "national"},
		{ID: 2, Name: "north", Parent: 1},
		{ID: 3, Name: "metro", Parent: 2},
	} {
		if err := tr.Upsert(n); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got := tr.Ancestors(3, true)
	if !sameIDs(got, []tree.ID{3, 2, 1}) {
		t.Errorf("ancestors(3, self) = %v, want [3 2 1]", got)
	}
	got = tr.Ancestors(3, false)
	if !sameIDs(got, []tree.ID{2, 1}) {
		t.Errorf("ancestors(3) = %v, want [2 1]", got)
	}
}

func TestAllDowns_UnionOfClosures(t *testing.T) {
	tr := buildSpecialtyTree(t)

	s := tr.AllDowns([]tree.ID{1, 4})
	want := []tree.ID{1, 2, 3, 4, 5}
	if !sameIDs(s.IDs(), want) {
		t.Errorf("alldowns = %v, want %v", s.IDs(), want)
	}
}

func TestAllDowns_UnknownIDKeptVerbatim(t *testing.T) {
	tr := buildSpecialtyTree(t)
	s := tr.AllDowns([]tree.ID{42})
	if !sameIDs(s.IDs(), []tree.ID{42}) {
		t.Errorf("alldowns(42) = %v, want [42]", s.IDs())
	}
}

// =============================================================================
// ANY-MATCH TESTS
// =============================================================================

func TestAnyMatch_EmptySidesNeverMatch(t *testing.T) {
	if tree.AnyMatch(tree.NewSet(), []tree.ID{1}) {
		t.Error("empty candidates matched")
	}
	if tree.AnyMatch(tree.NewSet(1), nil) {
		t.Error("empty targets matched")
	}
	if tree.AnyMatch(tree.NewSet(), nil) {
		t.Error("both empty matched")
	}
}

func TestAnyMatch_Intersection(t *testing.T) {
	cands := tree.NewSet(1, 2, 3)
	if !tree.AnyMatch(cands, []tree.ID{9, 3}) {
		t.Error("overlapping sets did not match")
	}
	if tree.AnyMatch(cands, []tree.ID{9, 8}) {
		t.Error("disjoint sets matched")
	}
}

package forms_test

import (
	"testing"

	"github.com/warp/field-engine/forms"
	"github.com/warp/field-engine/tree"
)

func newGenericTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New(tree.KindGenericCat)
	for _, n := range []tree.Node{
		{ID: 1, Name: "frequency"},
		{ID: 2, Name: "daily", Parent: 1},
		{ID: 3, Name: "weekly", Parent: 1},
		{ID: 4, Name: "twice weekly", Parent: 3},
	} {
		if err := tr.Upsert(n); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	return tr
}

func TestOptions_LiteralLines(t *testing.T) {
	f := forms.FormField{
		Type:     forms.FieldOpts,
		Required: true,
		Opts1:    "y: Yes\nn: No\n\nmaybe",
	}
	got := f.Options(nil)
	want := []forms.Option{{Value: "y", Label: "Yes"}, {Value: "n", Label: "No"}, {Value: "maybe", Label: "maybe"}}
	if len(got) != len(want) {
		t.Fatalf("options = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("option %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOptions_NonRequiredGetsBlankPrefix(t *testing.T) {
	f := forms.FormField{Type: forms.FieldOpts, Opts1: "a:A"}
	got := f.Options(nil)
	if len(got) != 2 || got[0].Value != "" || got[0].Label != "-" {
		t.Fatalf("options = %v, want blank prefix", got)
	}
}

func TestOptions_CategoryChildren(t *testing.T) {
	tr := newGenericTree(t)
	f := forms.FormField{Type: forms.FieldOptsCat, Required: true, OptsCat: 1}

	got := f.Options(tr)
	// Direct children only, sibling order; the grandchild is excluded.
	if len(got) != 2 || got[0].Label != "daily" || got[1].Label != "weekly" {
		t.Fatalf("options = %v, want [daily weekly]", got)
	}
	if got[0].Value != "2" {
		t.Errorf("value = %q, want node id", got[0].Value)
	}
}

func TestOptions_CategoryClosureIndentsByDepth(t *testing.T) {
	tr := newGenericTree(t)
	f := forms.FormField{Type: forms.FieldOptsCatAll, Required: true, OptsCat: 1}

	got := f.Options(tr)
	want := []string{"daily", "weekly", " -- twice weekly"}
	if len(got) != len(want) {
		t.Fatalf("options = %v, want labels %v", got, want)
	}
	for i, label := range want {
		if got[i].Label != label {
			t.Errorf("label %d = %q, want %q", i, got[i].Label, label)
		}
	}
}

func TestOptions_NonOptionTypesAndMissingCat(t *testing.T) {
	if got := (forms.FormField{Type: forms.FieldString}).Options(nil); got != nil {
		t.Errorf("string field produced options: %v", got)
	}
	if got := (forms.FormField{Type: forms.FieldBoolean}).Options(nil); got != nil {
		t.Errorf("boolean field produced options: %v", got)
	}
	tr := newGenericTree(t)
	if got := (forms.FormField{Type: forms.FieldOptsCat}).Options(tr); got != nil {
		t.Errorf("optscat without category produced options: %v", got)
	}
}

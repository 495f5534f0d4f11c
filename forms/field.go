package forms

import (
	"strconv"
	"strings"

	"github.com/warp/field-engine/tree"
)

// =============================================================================
// FORM FIELDS - Per-field option derivation
// =============================================================================

// FieldType governs how a field's options are derived.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldBoolean FieldType = "boolean"

	// FieldOpts takes literal Value:Label lines from Opts1.
	FieldOpts FieldType = "opts"

	// FieldOptsCat takes the direct children of OptsCat.
	FieldOptsCat FieldType = "optscat"

	// FieldOptsCatAll takes the full descendant closure of OptsCat,
	// labels indented by depth.
	FieldOptsCatAll FieldType = "optscat-all"
)

// Widget selects the rendering hint for a field.
type Widget string

const (
	WidgetDefault  Widget = "def"
	WidgetRadios   Widget = "radios"
	WidgetTextarea Widget = "textarea"
)

// FieldID identifies a form field.
type FieldID int64

// FormField belongs to exactly one form. (Form, Name) is unique.
type FormField struct {
	ID          FieldID
	Form        FormID
	Name        string
	Description string
	Type        FieldType
	Widget      Widget
	Default     string
	Required    bool
	Order       int

	// Opts1 holds one option per line, "Value:Label".
	Opts1 string

	// OptsCat anchors category-driven option types in the generic
	// category tree. Zero when unset.
	OptsCat tree.ID
}

// Option is a single selectable choice.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Options derives the field's choice list against the generic category
// tree. Non-option field types return nil. Non-required option fields
// are prefixed with a blank "none" choice.
func (f FormField) Options(generics *tree.Tree) []Option {
	var opts []Option

	switch f.Type {
	case FieldOpts:
		for _, line := range strings.Split(f.Opts1, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			value, label, found := strings.Cut(line, ":")
			value = strings.TrimSpace(value)
			if !found {
				label = value
			}
			opts = append(opts, Option{Value: value, Label: strings.TrimSpace(label)})
		}

	case FieldOptsCat:
		if f.OptsCat == 0 {
			return nil
		}
		for _, child := range generics.Children(f.OptsCat) {
			opts = append(opts, Option{Value: idValue(child.ID), Label: child.Name})
		}

	case FieldOptsCatAll:
		if f.OptsCat == 0 {
			return nil
		}
		root, ok := generics.Get(f.OptsCat)
		if !ok {
			return nil
		}
		for _, id := range generics.Descendants(f.OptsCat, false) {
			n, _ := generics.Get(id)
			indent := strings.Repeat(" -- ", n.Level()-root.Level()-1)
			opts = append(opts, Option{Value: idValue(n.ID), Label: indent + n.Name})
		}

	default:
		return nil
	}

	if opts != nil && !f.Required {
		opts = append([]Option{{Value: "", Label: "-"}}, opts...)
	}
	return opts
}

// idValue renders a node id as the stored option value.
func idValue(id tree.ID) string {
	return strconv.FormatInt(int64(id), 10)
}

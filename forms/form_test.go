package forms_test

import (
	"testing"
	"time"

	"github.com/warp/field-engine/forms"
)

func TestActiveAt_ValidityWindow(t *testing.T) {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		form forms.Form
		at   time.Time
		want bool
	}{
		{"no window is always active", forms.Form{}, time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), true},
		{"inside window", forms.Form{Start: &start, End: &end}, start.AddDate(0, 0, 14), true},
		{"before start", forms.Form{Start: &start, End: &end}, start.AddDate(0, 0, -1), false},
		{"after end", forms.Form{Start: &start, End: &end}, end.AddDate(0, 0, 1), false},
		{"open-ended start", forms.Form{Start: &start}, start.AddDate(10, 0, 0), true},
		{"open-ended end", forms.Form{End: &end}, end.AddDate(0, 0, -1), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.form.ActiveAt(tc.at); got != tc.want {
				t.Errorf("ActiveAt(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

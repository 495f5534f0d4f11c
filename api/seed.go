/*
seed.go - Demo data loader for testing and demonstrations

PURPOSE:

	Populates the database with a realistic pharma-style field-force
	dataset: category trees, a geography chain, users with locations,
	items, force nodes, forms in both scopes with fields, periods and a
	week template. Enough master data to exercise every read endpoint
	and run a builder generation end to end.

DATASET SHAPE:

	User categories:   specialist > cardiology, gp
	Item categories:   drugs > statins
	Generic categories: frequency > daily, weekly > twice weekly
	Geography:         Spain > Madrid > Madrid, brick North-7 via zip 28001
	Force hierarchy:   national > north (worker Ana, brick North-7)
	Items:             Lipix (statin), Bandor
	Forms:             "Profile survey" (users), "Visit report" (visits)
	Periods:           four quarters of 2026
	Week template:     Mon-Fri mornings, 09:00-12:00

NOTE:

	Seeding is idempotent (upserts by fixed ids). Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: SeedDemo handler
  - cmd/server/main.go: -seed flag
*/
package api

import (
	"context"
	"time"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/forms"
	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/schedule"
	"github.com/warp/field-engine/store/sqlite"
	"github.com/warp/field-engine/tree"
)

// Seed loads the demo dataset inside one transaction.
func Seed(ctx context.Context, store *sqlite.Store) error {
	return store.WithTx(ctx, func(tx *sqlite.Store) error {
		if err := seedCategories(ctx, tx); err != nil {
			return err
		}
		if err := seedGeo(ctx, tx); err != nil {
			return err
		}
		if err := seedMasterData(ctx, tx); err != nil {
			return err
		}
		if err := seedForms(ctx, tx); err != nil {
			return err
		}
		return seedSchedule(ctx, tx)
	})
}

func seedCategories(ctx context.Context, tx *sqlite.Store) error {
	cats := []struct {
		kind tree.Kind
		node tree.Node
	}{
		{tree.KindUserCat, tree.Node{ID: 1, Name: "specialist"}},
		{tree.KindUserCat, tree.Node{ID: 2, Name: "cardiology", Parent: 1}},
		{tree.KindUserCat, tree.Node{ID: 3, Name: "gp"}},

		{tree.KindItemCat, tree.Node{ID: 10, Name: "drugs"}},
		{tree.KindItemCat, tree.Node{ID: 11, Name: "statins", Parent: 10}},

		{tree.KindLocCat, tree.Node{ID: 20, Name: "clinic"}},
		{tree.KindLocCat, tree.Node{ID: 21, Name: "hospital"}},

		{tree.KindGenericCat, tree.Node{ID: 30, Name: "frequency"}},
		{tree.KindGenericCat, tree.Node{ID: 31, Name: "daily", Parent: 30, Order: 1}},
		{tree.KindGenericCat, tree.Node{ID: 32, Name: "weekly", Parent: 30, Order: 2}},
		{tree.KindGenericCat, tree.Node{ID: 33, Name: "twice weekly", Parent: 32}},
	}
	for _, c := range cats {
		if err := tx.SaveCategory(ctx, c.kind, c.node); err != nil {
			return err
		}
	}
	return nil
}

func seedGeo(ctx context.Context, tx *sqlite.Store) error {
	if err := tx.SaveCountry(ctx, geo.Country{ID: 1, Name: "Spain"}); err != nil {
		return err
	}
	if err := tx.SaveState(ctx, geo.State{ID: 1, Name: "Madrid", Country: 1}); err != nil {
		return err
	}
	if err := tx.SaveCity(ctx, geo.City{ID: 1, Name: "Madrid", State: 1}); err != nil {
		return err
	}
	if err := tx.SaveBrick(ctx, geo.Brick{ID: 7, Name: "North-7"}); err != nil {
		return err
	}
	if err := tx.SaveZip(ctx, geo.Zip{ID: 3, Name: "28001", Brick: 7}); err != nil {
		return err
	}
	return tx.SaveRegion(ctx, geo.Region{ID: 5, Name: "Centro", City: 1, Zip: 3})
}

func seedMasterData(ctx context.Context, tx *sqlite.Store) error {
	users := []catalog.User{
		{
			ID: 1, Email: "ana@example.com", FirstName: "Ana", LastName: "Ruiz",
			Active: true, Joined: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			Cats: []tree.ID{1},
		},
		{
			ID: 2, Email: "ben@example.com", FirstName: "Ben", LastName: "Soler",
			Active: true, Joined: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			Cats: []tree.ID{3},
		},
	}
	for _, u := range users {
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	items := []catalog.Item{
		{ID: 1, Name: "Lipix", Cats: []tree.ID{11}, VisitsUserCats: []tree.ID{2}, FormsOrder: 1},
		{ID: 2, Name: "Bandor", Cats: []tree.ID{10}, FormsOrder: 2},
	}
	for _, it := range items {
		if err := tx.SaveItem(ctx, it); err != nil {
			return err
		}
	}

	if err := tx.SaveAddress(ctx, catalog.Address{ID: 1, Street: "Calle Mayor 1", Region: 5}); err != nil {
		return err
	}
	if err := tx.SaveAddress(ctx, catalog.Address{ID: 2, Street: "Gran Via 30", Region: 5}); err != nil {
		return err
	}
	if err := tx.SavePlace(ctx, catalog.Place{ID: 1, Name: "Hospital Central", Address: 2, CanLoc: false}); err != nil {
		return err
	}
	if err := tx.SavePlace(ctx, catalog.Place{ID: 2, Name: "Cardiology wing", Parent: 1, Address: 2, CanLoc: true}); err != nil {
		return err
	}

	locs := []catalog.Loc{
		{ID: 1, Name: "Ana's clinic", User: 1, Address: 1, Cats: []tree.ID{20}},
		{ID: 2, Name: "Cardiology wing", User: 1, Place: 2, Cats: []tree.ID{21}},
		{ID: 3, Name: "Ben's practice", User: 2, Address: 1, Cats: []tree.ID{20}},
	}
	for _, l := range locs {
		if err := tx.SaveLoc(ctx, l); err != nil {
			return err
		}
	}

	nodes := []catalog.ForceNode{
		{ID: 100, Name: "national"},
		{ID: 101, Name: "north", Parent: 100, User: 1, ItemCats: []tree.ID{10}, Bricks: []geo.ID{7}},
	}
	for _, n := range nodes {
		if err := tx.SaveNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func seedForms(ctx context.Context, tx *sqlite.Store) error {
	profile := forms.Form{
		ID: 1, Name: "Profile survey", Scope: forms.ScopeUsers,
		UsersUserCats: []tree.ID{2},
		Order:         1,
	}
	report := forms.Form{
		ID: 2, Name: "Visit report", Scope: forms.ScopeVisits,
		VisitsForceNodes: []tree.ID{101},
		RepItemCats:      []tree.ID{10},
		Order:            2,
	}
	for _, f := range []forms.Form{profile, report} {
		if err := tx.SaveForm(ctx, f); err != nil {
			return err
		}
	}

	fields := []forms.FormField{
		{ID: 1, Form: 2, Name: "outcome", Type: forms.FieldOpts,
			Opts1: "ok:Good\nko:Bad", Required: true, Order: 1},
		{ID: 2, Form: 2, Name: "frequency", Type: forms.FieldOptsCatAll,
			OptsCat: 30, Order: 2},
		{ID: 3, Form: 2, Name: "notes", Type: forms.FieldString,
			Widget: forms.WidgetTextarea, Order: 3},
		{ID: 4, Form: 1, Name: "accepts samples", Type: forms.FieldBoolean, Order: 1},
	}
	for _, f := range fields {
		if err := tx.SaveField(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func seedSchedule(ctx context.Context, tx *sqlite.Store) error {
	quarters := []schedule.Period{
		{ID: 1, Name: "2026 Q1", End: schedule.Date(2026, 3, 31)},
		{ID: 2, Name: "2026 Q2", End: schedule.Date(2026, 6, 30)},
		{ID: 3, Name: "2026 Q3", End: schedule.Date(2026, 9, 30)},
		{ID: 4, Name: "2026 Q4", End: schedule.Date(2026, 12, 31)},
	}
	for _, p := range quarters {
		if err := tx.SavePeriod(ctx, p); err != nil {
			return err
		}
	}

	mornings := schedule.DayConfig{ID: 1, Name: "mornings", Times: []schedule.TimeConfig{
		{ID: 1, Name: "morning block", Start: schedule.TimeOfDay{Hour: 9}, End: schedule.TimeOfDay{Hour: 12}},
	}}
	if err := tx.SaveDay(ctx, mornings); err != nil {
		return err
	}

	week := &schedule.WeekConfig{ID: 1, Name: "weekday mornings"}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		week.SetDay(wd, &mornings)
	}
	return tx.SaveWeek(ctx, week)
}

package sqlite

import (
	"context"
	"database/sql"
	"sort"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/forms"
	"github.com/warp/field-engine/tree"
)

// The nine relation dimensions share the form_rels table, keyed by dim.
const (
	dimCats             = "cats"
	dimRepItems         = "repitems"
	dimRepItemCats      = "repitemcats"
	dimUsersUserCats    = "users_usercats"
	dimUsersLocCats     = "users_loccats"
	dimVisitsUserCats   = "visits_usercats"
	dimVisitsLocCats    = "visits_loccats"
	dimVisitsItemCats   = "visits_itemcats"
	dimVisitsForceNodes = "visits_forcenodes"
	dimVisitsBricks     = "visits_bricks"
)

// SaveForm upserts a form and rewrites all of its relation dimensions.
func (s *Store) SaveForm(ctx context.Context, f forms.Form) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO forms (id, name, scope, start, end_date, description, expandable, ord, syscode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, scope = excluded.scope,
			start = excluded.start, end_date = excluded.end_date,
			description = excluded.description, expandable = excluded.expandable,
			ord = excluded.ord, syscode = excluded.syscode`,
		int64(f.ID), f.Name, string(f.Scope), encNullDate(f.Start), encNullDate(f.End),
		f.Description, f.Expandable, f.Order, nullStr(f.Syscode))
	if err != nil {
		return mapErr(err)
	}

	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM form_rels WHERE form_id = ?`, int64(f.ID)); err != nil {
		return mapErr(err)
	}
	dims := map[string][]int64{
		dimCats:             rawIDs(f.Cats),
		dimRepItems:         rawIDs(f.RepItems),
		dimRepItemCats:      rawIDs(f.RepItemCats),
		dimUsersUserCats:    rawIDs(f.UsersUserCats),
		dimUsersLocCats:     rawIDs(f.UsersLocCats),
		dimVisitsUserCats:   rawIDs(f.VisitsUserCats),
		dimVisitsLocCats:    rawIDs(f.VisitsLocCats),
		dimVisitsItemCats:   rawIDs(f.VisitsItemCats),
		dimVisitsForceNodes: rawIDs(f.VisitsForceNodes),
		dimVisitsBricks:     rawIDs(f.VisitsBricks),
	}
	for dim, refs := range dims {
		for _, ref := range refs {
			if _, err := s.q.ExecContext(ctx,
				`INSERT INTO form_rels (form_id, dim, ref_id) VALUES (?, ?, ?)`,
				int64(f.ID), dim, ref); err != nil {
				return mapErr(err)
			}
		}
	}
	return nil
}

// ListForms reads every form with its relation dimensions populated.
func (s *Store) ListForms(ctx context.Context) ([]forms.Form, error) {
	rels, err := s.loadFormRels(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, scope, start, end_date, description, expandable, ord, syscode
		FROM forms`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []forms.Form
	for rows.Next() {
		var f forms.Form
		var id int64
		var start, end, syscode sql.NullString
		var scope string
		if err := rows.Scan(&id, &f.Name, &scope, &start, &end,
			&f.Description, &f.Expandable, &f.Order, &syscode); err != nil {
			return nil, err
		}
		f.ID = forms.FormID(id)
		f.Scope = forms.Scope(scope)
		f.Syscode = syscode.String
		if f.Start, err = decNullDate(start); err != nil {
			return nil, err
		}
		if f.End, err = decNullDate(end); err != nil {
			return nil, err
		}

		r := rels[id]
		f.Cats = treeIDs(r[dimCats])
		f.RepItemCats = treeIDs(r[dimRepItemCats])
		f.UsersUserCats = treeIDs(r[dimUsersUserCats])
		f.UsersLocCats = treeIDs(r[dimUsersLocCats])
		f.VisitsUserCats = treeIDs(r[dimVisitsUserCats])
		f.VisitsLocCats = treeIDs(r[dimVisitsLocCats])
		f.VisitsItemCats = treeIDs(r[dimVisitsItemCats])
		f.VisitsForceNodes = treeIDs(r[dimVisitsForceNodes])
		f.VisitsBricks = geoIDs(r[dimVisitsBricks])
		for _, ref := range r[dimRepItems] {
			f.RepItems = append(f.RepItems, catalog.ItemID(ref))
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) loadFormRels(ctx context.Context) (map[int64]map[string][]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT form_id, dim, ref_id FROM form_rels ORDER BY form_id, dim, ref_id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := map[int64]map[string][]int64{}
	for rows.Next() {
		var formID, refID int64
		var dim string
		if err := rows.Scan(&formID, &dim, &refID); err != nil {
			return nil, err
		}
		if out[formID] == nil {
			out[formID] = map[string][]int64{}
		}
		out[formID][dim] = append(out[formID][dim], refID)
	}
	return out, rows.Err()
}

// SaveField upserts a form field. (form, name) uniqueness is enforced
// by the schema and surfaces as ErrNotUnique.
func (s *Store) SaveField(ctx context.Context, f forms.FormField) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO form_fields (id, form_id, name, description, type, widget, dflt, required, ord, opts1, optscat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET form_id = excluded.form_id, name = excluded.name,
			description = excluded.description, type = excluded.type,
			widget = excluded.widget, dflt = excluded.dflt,
			required = excluded.required, ord = excluded.ord,
			opts1 = excluded.opts1, optscat = excluded.optscat`,
		int64(f.ID), int64(f.Form), f.Name, f.Description, string(f.Type),
		string(f.Widget), f.Default, f.Required, f.Order, f.Opts1, int64(f.OptsCat))
	return mapErr(err)
}

// ListFields reads a form's fields in display order.
func (s *Store) ListFields(ctx context.Context, formID forms.FormID) ([]forms.FormField, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, form_id, name, description, type, widget, dflt, required, ord, opts1, optscat
		FROM form_fields WHERE form_id = ? ORDER BY ord, name, id`, int64(formID))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []forms.FormField
	for rows.Next() {
		var f forms.FormField
		var id, form, optsCat int64
		var ftype, widget string
		if err := rows.Scan(&id, &form, &f.Name, &f.Description, &ftype, &widget,
			&f.Default, &f.Required, &f.Order, &f.Opts1, &optsCat); err != nil {
			return nil, err
		}
		f.ID = forms.FieldID(id)
		f.Form = forms.FormID(form)
		f.Type = forms.FieldType(ftype)
		f.Widget = forms.Widget(widget)
		f.OptsCat = tree.ID(optsCat)
		out = append(out, f)
	}
	return out, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// CATEGORY TREES
// =============================================================================

// SaveCategory upserts one node of a category tree.
func (s *Store) SaveCategory(ctx context.Context, kind tree.Kind, n tree.Node) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (kind, id, name, parent, ord)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET name = excluded.name,
			parent = excluded.parent, ord = excluded.ord`,
		string(kind), int64(n.ID), n.Name, int64(n.Parent), n.Order)
	return mapErr(err)
}

// DeleteCategory removes one node; the in-memory tree reparents its
// children on reload.
func (s *Store) DeleteCategory(ctx context.Context, kind tree.Kind, id tree.ID) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE categories SET parent = (SELECT parent FROM categories WHERE kind = ? AND id = ?)
		 WHERE kind = ? AND parent = ?`,
		string(kind), int64(id), string(kind), int64(id))
	if err != nil {
		return mapErr(err)
	}
	_, err = s.q.ExecContext(ctx, `DELETE FROM categories WHERE kind = ? AND id = ?`,
		string(kind), int64(id))
	return mapErr(err)
}

// loadCategories reads every node of one kind.
func (s *Store) loadCategories(ctx context.Context, kind tree.Kind) ([]tree.Node, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, parent, ord FROM categories WHERE kind = ?`, string(kind))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []tree.Node
	for rows.Next() {
		var n tree.Node
		var id, parent int64
		if err := rows.Scan(&id, &n.Name, &parent, &n.Order); err != nil {
			return nil, err
		}
		n.ID, n.Parent = tree.ID(id), tree.ID(parent)
		out = append(out, n)
	}
	return out, rows.Err()
}

// =============================================================================
// GEOGRAPHY
// =============================================================================

// SaveCountry upserts a country.
func (s *Store) SaveCountry(ctx context.Context, c geo.Country) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO countries (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		int64(c.ID), c.Name)
	return mapErr(err)
}

// SaveState upserts a state.
func (s *Store) SaveState(ctx context.Context, st geo.State) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO states (id, name, country_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, country_id = excluded.country_id`,
		int64(st.ID), st.Name, int64(st.Country))
	return mapErr(err)
}

// SaveCity upserts a city.
func (s *Store) SaveCity(ctx context.Context, c geo.City) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cities (id, name, state_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, state_id = excluded.state_id`,
		int64(c.ID), c.Name, int64(c.State))
	return mapErr(err)
}

// SaveBrick upserts a brick.
func (s *Store) SaveBrick(ctx context.Context, b geo.Brick) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO bricks (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		int64(b.ID), b.Name)
	return mapErr(err)
}

// SaveZip upserts a zip.
func (s *Store) SaveZip(ctx context.Context, z geo.Zip) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO zips (id, name, brick_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, brick_id = excluded.brick_id`,
		int64(z.ID), z.Name, int64(z.Brick))
	return mapErr(err)
}

// SaveRegion upserts a region.
func (s *Store) SaveRegion(ctx context.Context, r geo.Region) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO regions (id, name, city_id, zip_id) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			city_id = excluded.city_id, zip_id = excluded.zip_id`,
		int64(r.ID), r.Name, int64(r.City), int64(r.Zip))
	return mapErr(err)
}

// =============================================================================
// MASTER DATA
// =============================================================================

// replaceLinks rewrites one side of an m2m link table for a single owner.
func (s *Store) replaceLinks(ctx context.Context, table, ownerCol, refCol string, owner int64, refs []int64) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE `+ownerCol+` = ?`, owner); err != nil {
		return mapErr(err)
	}
	for _, ref := range refs {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO `+table+` (`+ownerCol+`, `+refCol+`) VALUES (?, ?)`, owner, ref); err != nil {
			return mapErr(err)
		}
	}
	return nil
}

// loadLinks reads one m2m link table grouped by owner.
func (s *Store) loadLinks(ctx context.Context, table, ownerCol, refCol string) (map[int64][]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+ownerCol+`, `+refCol+` FROM `+table+` ORDER BY `+ownerCol+`, `+refCol)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := map[int64][]int64{}
	for rows.Next() {
		var owner, ref int64
		if err := rows.Scan(&owner, &ref); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], ref)
	}
	return out, rows.Err()
}

func treeIDs(ids []int64) []tree.ID {
	out := make([]tree.ID, len(ids))
	for i, id := range ids {
		out[i] = tree.ID(id)
	}
	return out
}

func geoIDs(ids []int64) []geo.ID {
	out := make([]geo.ID, len(ids))
	for i, id := range ids {
		out[i] = geo.ID(id)
	}
	return out
}

func rawIDs[T ~int64](ids []T) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// SaveUser upserts a user and its category tags.
func (s *Store) SaveUser(ctx context.Context, u catalog.User) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, display_name, active, joined, syscode)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email,
			first_name = excluded.first_name, last_name = excluded.last_name,
			display_name = excluded.display_name, active = excluded.active,
			joined = excluded.joined, syscode = excluded.syscode`,
		int64(u.ID), u.Email, u.FirstName, u.LastName, u.DisplayName,
		u.Active, encTime(u.Joined), nullStr(u.Syscode))
	if err != nil {
		return mapErr(err)
	}
	return s.replaceLinks(ctx, "user_cats", "user_id", "cat_id", int64(u.ID), rawIDs(u.Cats))
}

// SaveItem upserts an item and its three tag sets.
func (s *Store) SaveItem(ctx context.Context, it catalog.Item) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO items (id, name, forms_description, forms_expandable, forms_order, syscode)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			forms_description = excluded.forms_description,
			forms_expandable = excluded.forms_expandable,
			forms_order = excluded.forms_order, syscode = excluded.syscode`,
		int64(it.ID), it.Name, it.FormsDescription, it.FormsExpandable, it.FormsOrder, nil)
	if err != nil {
		return mapErr(err)
	}
	if err := s.replaceLinks(ctx, "item_cats", "item_id", "cat_id", int64(it.ID), rawIDs(it.Cats)); err != nil {
		return err
	}
	if err := s.replaceLinks(ctx, "item_visits_usercats", "item_id", "cat_id", int64(it.ID), rawIDs(it.VisitsUserCats)); err != nil {
		return err
	}
	return s.replaceLinks(ctx, "item_visits_loccats", "item_id", "cat_id", int64(it.ID), rawIDs(it.VisitsLocCats))
}

// SaveAddress upserts an address.
func (s *Store) SaveAddress(ctx context.Context, a catalog.Address) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO addresses (id, street, unit, phone, phone2, fax, region_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET street = excluded.street, unit = excluded.unit,
			phone = excluded.phone, phone2 = excluded.phone2, fax = excluded.fax,
			region_id = excluded.region_id`,
		int64(a.ID), a.Street, a.Unit, a.Phone, a.Phone2, a.Fax, int64(a.Region))
	return mapErr(err)
}

// SavePlace upserts a place.
func (s *Store) SavePlace(ctx context.Context, p catalog.Place) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO places (id, name, parent, ord, address_id, canloc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, parent = excluded.parent,
			ord = excluded.ord, address_id = excluded.address_id, canloc = excluded.canloc`,
		int64(p.ID), p.Name, int64(p.Parent), p.Order, int64(p.Address), p.CanLoc)
	return mapErr(err)
}

// SaveLoc upserts a location; it must already satisfy the
// address-XOR-place invariant (validated by catalog.PutLoc).
func (s *Store) SaveLoc(ctx context.Context, l catalog.Loc) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO locs (id, name, user_id, address_id, place_id, syscode)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, user_id = excluded.user_id,
			address_id = excluded.address_id, place_id = excluded.place_id,
			syscode = excluded.syscode`,
		int64(l.ID), l.Name, int64(l.User), nullID(int64(l.Address)), nullID(int64(l.Place)), nil)
	if err != nil {
		return mapErr(err)
	}
	return s.replaceLinks(ctx, "loc_cats", "loc_id", "cat_id", int64(l.ID), rawIDs(l.Cats))
}

// SaveNode upserts a force node with its item-category and brick
// assignments.
func (s *Store) SaveNode(ctx context.Context, n catalog.ForceNode) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO force_nodes (id, name, parent, ord, user_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, parent = excluded.parent,
			ord = excluded.ord, user_id = excluded.user_id`,
		int64(n.ID), n.Name, int64(n.Parent), n.Order, int64(n.User))
	if err != nil {
		return mapErr(err)
	}
	if err := s.replaceLinks(ctx, "node_itemcats", "node_id", "cat_id", int64(n.ID), rawIDs(n.ItemCats)); err != nil {
		return err
	}
	return s.replaceLinks(ctx, "node_bricks", "node_id", "brick_id", int64(n.ID), rawIDs(n.Bricks))
}

// =============================================================================
// LOAD - Hydrate the in-memory catalog
// =============================================================================

// LoadCatalog reads the whole master data set into a fresh catalog.
// Called on startup and after administrative writes; resolvers only
// ever read the returned arena.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	c := catalog.New()

	catTrees := map[tree.Kind]*tree.Tree{
		tree.KindUserCat:    c.UserCats,
		tree.KindItemCat:    c.ItemCats,
		tree.KindLocCat:     c.LocCats,
		tree.KindFormCat:    c.FormCats,
		tree.KindGenericCat: c.GenericCats,
		tree.KindPeriodCat:  c.PeriodCats,
	}
	for kind, t := range catTrees {
		nodes, err := s.loadCategories(ctx, kind)
		if err != nil {
			return nil, err
		}
		if err := t.Load(nodes); err != nil {
			return nil, err
		}
	}

	if err := s.loadGeo(ctx, c); err != nil {
		return nil, err
	}
	if err := s.loadUsers(ctx, c); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, c); err != nil {
		return nil, err
	}
	if err := s.loadAddresses(ctx, c); err != nil {
		return nil, err
	}
	if err := s.loadPlaces(ctx, c); err != nil {
		return nil, err
	}
	if err := s.loadLocs(ctx, c); err != nil {
		return nil, err
	}
	if err := s.loadNodes(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) loadGeo(ctx context.Context, c *catalog.Catalog) error {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name FROM bricks`)
	if err != nil {
		return mapErr(err)
	}
	for rows.Next() {
		var b geo.Brick
		var id int64
		if err := rows.Scan(&id, &b.Name); err != nil {
			rows.Close()
			return err
		}
		b.ID = geo.ID(id)
		c.Bricks[b.ID] = b
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.q.QueryContext(ctx, `SELECT id, name, brick_id FROM zips`)
	if err != nil {
		return mapErr(err)
	}
	for rows.Next() {
		var z geo.Zip
		var id, brick int64
		if err := rows.Scan(&id, &z.Name, &brick); err != nil {
			rows.Close()
			return err
		}
		z.ID, z.Brick = geo.ID(id), geo.ID(brick)
		c.Zips[z.ID] = z
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.q.QueryContext(ctx, `SELECT id, name, city_id, zip_id FROM regions`)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var r geo.Region
		var id, city, zip int64
		if err := rows.Scan(&id, &r.Name, &city, &zip); err != nil {
			return err
		}
		r.ID, r.City, r.Zip = geo.ID(id), geo.ID(city), geo.ID(zip)
		c.Regions[r.ID] = r
	}
	return rows.Err()
}

func (s *Store) loadUsers(ctx context.Context, c *catalog.Catalog) error {
	cats, err := s.loadLinks(ctx, "user_cats", "user_id", "cat_id")
	if err != nil {
		return err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, email, first_name, last_name, display_name, active, joined, syscode FROM users`)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var u catalog.User
		var id int64
		var joined string
		var syscode sql.NullString
		if err := rows.Scan(&id, &u.Email, &u.FirstName, &u.LastName,
			&u.DisplayName, &u.Active, &joined, &syscode); err != nil {
			return err
		}
		u.ID = catalog.UserID(id)
		u.Syscode = syscode.String
		if u.Joined, err = decTime(joined); err != nil {
			return err
		}
		u.Cats = treeIDs(cats[id])
		c.Users[u.ID] = u
	}
	return rows.Err()
}

func (s *Store) loadItems(ctx context.Context, c *catalog.Catalog) error {
	cats, err := s.loadLinks(ctx, "item_cats", "item_id", "cat_id")
	if err != nil {
		return err
	}
	vUserCats, err := s.loadLinks(ctx, "item_visits_usercats", "item_id", "cat_id")
	if err != nil {
		return err
	}
	vLocCats, err := s.loadLinks(ctx, "item_visits_loccats", "item_id", "cat_id")
	if err != nil {
		return err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, forms_description, forms_expandable, forms_order FROM items`)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var it catalog.Item
		var id int64
		if err := rows.Scan(&id, &it.Name, &it.FormsDescription,
			&it.FormsExpandable, &it.FormsOrder); err != nil {
			return err
		}
		it.ID = catalog.ItemID(id)
		it.Cats = treeIDs(cats[id])
		it.VisitsUserCats = treeIDs(vUserCats[id])
		it.VisitsLocCats = treeIDs(vLocCats[id])
		c.Items[it.ID] = it
	}
	return rows.Err()
}

func (s *Store) loadAddresses(ctx context.Context, c *catalog.Catalog) error {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, street, unit, phone, phone2, fax, region_id FROM addresses`)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var a catalog.Address
		var id, region int64
		if err := rows.Scan(&id, &a.Street, &a.Unit, &a.Phone, &a.Phone2, &a.Fax, &region); err != nil {
			return err
		}
		a.ID, a.Region = catalog.AddressID(id), geo.ID(region)
		c.Addresses[a.ID] = a
	}
	return rows.Err()
}

func (s *Store) loadPlaces(ctx context.Context, c *catalog.Catalog) error {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, parent, ord, address_id, canloc FROM places`)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	var places []catalog.Place
	var nodes []tree.Node
	for rows.Next() {
		var p catalog.Place
		var id, parent, address int64
		if err := rows.Scan(&id, &p.Name, &parent, &p.Order, &address, &p.CanLoc); err != nil {
			return err
		}
		p.ID, p.Parent = tree.ID(id), tree.ID(parent)
		p.Address = catalog.AddressID(address)
		places = append(places, p)
		nodes = append(nodes, tree.Node{ID: p.ID, Name: p.Name, Parent: p.Parent, Order: p.Order})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := c.PlaceTree.Load(nodes); err != nil {
		return err
	}
	for _, p := range places {
		c.Places[p.ID] = p
	}
	return nil
}

func (s *Store) loadLocs(ctx context.Context, c *catalog.Catalog) error {
	cats, err := s.loadLinks(ctx, "loc_cats", "loc_id", "cat_id")
	if err != nil {
		return err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, user_id, address_id, place_id FROM locs`)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var l catalog.Loc
		var id, user int64
		var address, place sql.NullInt64
		if err := rows.Scan(&id, &l.Name, &user, &address, &place); err != nil {
			return err
		}
		l.ID, l.User = catalog.LocID(id), catalog.UserID(user)
		l.Address = catalog.AddressID(address.Int64)
		l.Place = tree.ID(place.Int64)
		l.Cats = treeIDs(cats[id])
		c.Locs[l.ID] = l
	}
	return rows.Err()
}

func (s *Store) loadNodes(ctx context.Context, c *catalog.Catalog) error {
	itemCats, err := s.loadLinks(ctx, "node_itemcats", "node_id", "cat_id")
	if err != nil {
		return err
	}
	bricks, err := s.loadLinks(ctx, "node_bricks", "node_id", "brick_id")
	if err != nil {
		return err
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, parent, ord, user_id FROM force_nodes`)
	if err != nil {
		return mapErr(err)
	}
	defer rows.Close()

	var all []catalog.ForceNode
	var geometry []tree.Node
	for rows.Next() {
		var n catalog.ForceNode
		var id, parent, user int64
		if err := rows.Scan(&id, &n.Name, &parent, &n.Order, &user); err != nil {
			return err
		}
		n.ID, n.Parent = tree.ID(id), tree.ID(parent)
		n.User = catalog.UserID(user)
		n.ItemCats = treeIDs(itemCats[id])
		n.Bricks = geoIDs(bricks[id])
		all = append(all, n)
		geometry = append(geometry, tree.Node{ID: n.ID, Name: n.Name, Parent: n.Parent, Order: n.Order})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := c.NodeTree.Load(geometry); err != nil {
		return err
	}
	for _, n := range all {
		c.Nodes[n.ID] = n
	}
	return nil
}

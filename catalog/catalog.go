package catalog

import (
	"sort"

	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// CATALOG - In-memory master data arena
// =============================================================================

// Catalog is the in-memory working set of master data. One tree per
// categorical kind; entity maps keyed by id. The zero value is not
// usable; use New.
type Catalog struct {
	UserCats    *tree.Tree
	ItemCats    *tree.Tree
	LocCats     *tree.Tree
	FormCats    *tree.Tree
	GenericCats *tree.Tree
	PeriodCats  *tree.Tree
	PlaceTree   *tree.Tree
	NodeTree    *tree.Tree

	Users     map[UserID]User
	Items     map[ItemID]Item
	Locs      map[LocID]Loc
	Addresses map[AddressID]Address
	Places    map[tree.ID]Place
	Nodes     map[tree.ID]ForceNode

	Regions map[geo.ID]geo.Region
	Zips    map[geo.ID]geo.Zip
	Bricks  map[geo.ID]geo.Brick
}

// New creates an empty catalog with all trees initialized.
func New() *Catalog {
	return &Catalog{
		UserCats:    tree.New(tree.KindUserCat),
		ItemCats:    tree.New(tree.KindItemCat),
		LocCats:     tree.New(tree.KindLocCat),
		FormCats:    tree.New(tree.KindFormCat),
		GenericCats: tree.New(tree.KindGenericCat),
		PeriodCats:  tree.New(tree.KindPeriodCat),
		PlaceTree:   tree.New(tree.KindPlaceCat),
		NodeTree:    tree.New(tree.KindForceNode),

		Users:     make(map[UserID]User),
		Items:     make(map[ItemID]Item),
		Locs:      make(map[LocID]Loc),
		Addresses: make(map[AddressID]Address),
		Places:    make(map[tree.ID]Place),
		Nodes:     make(map[tree.ID]ForceNode),

		Regions: make(map[geo.ID]geo.Region),
		Zips:    make(map[geo.ID]geo.Zip),
		Bricks:  make(map[geo.ID]geo.Brick),
	}
}

// PutNode stores a force node and mirrors its geometry into the node
// tree (serialized rebuild included).
func (c *Catalog) PutNode(n ForceNode) error {
	if err := c.NodeTree.Upsert(tree.Node{ID: n.ID, Name: n.Name, Parent: n.Parent, Order: n.Order}); err != nil {
		return err
	}
	c.Nodes[n.ID] = n
	return nil
}

// PutPlace stores a place after validating its tree geometry against
// the shared address invariant.
func (c *Catalog) PutPlace(p Place) error {
	if err := ValidatePlace(c, p); err != nil {
		return err
	}
	if err := c.PlaceTree.Upsert(tree.Node{ID: p.ID, Name: p.Name, Parent: p.Parent, Order: p.Order}); err != nil {
		return err
	}
	c.Places[p.ID] = p
	return nil
}

// PutLoc stores a location after the address-XOR-place check.
func (c *Catalog) PutLoc(l Loc) error {
	if err := ValidateLoc(l); err != nil {
		return err
	}
	c.Locs[l.ID] = l
	return nil
}

// =============================================================================
// LOOKUPS
// =============================================================================

// ItemsByCats returns the items whose category tags intersect the given
// set, ordered by name. This is the closure-side lookup behind a form's
// report-item-category dimension: callers pass an already expanded set.
func (c *Catalog) ItemsByCats(cats tree.Set) []Item {
	var out []Item
	for _, item := range c.Items {
		if tree.AnyMatch(cats, item.Cats) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LocsOfUser returns the user's locations ordered by name.
func (c *Catalog) LocsOfUser(id UserID) []Loc {
	var out []Loc
	for _, l := range c.Locs {
		if l.User == id {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BrickForLoc resolves a location to its brick through its address (or
// its place's address) and the region/zip chain. Returns 0 when any hop
// is missing; a zero brick never matches a form's brick list.
func (c *Catalog) BrickForLoc(l Loc) geo.ID {
	addrID := l.Address
	if addrID == 0 && l.Place != 0 {
		if p, ok := c.Places[l.Place]; ok {
			addrID = p.Address
		}
	}
	addr, ok := c.Addresses[addrID]
	if !ok {
		return 0
	}
	region, ok := c.Regions[addr.Region]
	if !ok {
		return 0
	}
	return geo.BrickOf(c.Zips, region.Zip)
}

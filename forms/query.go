package forms

import (
	"fmt"

	"github.com/warp/field-engine/catalog"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// QUERY ASSEMBLY - Catalog state to matcher input
// =============================================================================
// The expansion policy per dimension lives here, on purpose:
//   - user categories expand to their full descendant closure, so a user
//     tagged with a parent category matches forms tagging any descendant
//   - location categories stay exact
//   - the visit's force node stays exact (no ancestor generalization)

// QueryForUser assembles the "users" scope matcher input for one user.
func QueryForUser(c *catalog.Catalog, id catalog.UserID) (*UserQuery, error) {
	u, ok := c.Users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrUnknownEntity)
	}

	locCats := tree.NewSet()
	for _, l := range c.LocsOfUser(id) {
		for _, ct := range l.Cats {
			locCats.Add(ct)
		}
	}

	return &UserQuery{
		UserCats: c.UserCats.AllDowns(u.Cats),
		LocCats:  locCats,
	}, nil
}

// QueryForVisit assembles the "visits" scope matcher input for a visit
// of the given node at the given location. The carried item set is
// everything under the node's item-category closure; UpNodes holds the
// node id itself.
func QueryForVisit(c *catalog.Catalog, nodeID tree.ID, locID catalog.LocID) (*VisitQuery, error) {
	node, ok := c.Nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("force node %d: %w", nodeID, ErrUnknownEntity)
	}
	loc, ok := c.Locs[locID]
	if !ok {
		return nil, fmt.Errorf("loc %d: %w", locID, ErrUnknownEntity)
	}

	userCats := tree.NewSet()
	if owner, ok := c.Users[loc.User]; ok {
		userCats = c.UserCats.AllDowns(owner.Cats)
	}

	itemCats := c.ItemCats.AllDowns(node.ItemCats)
	var items []catalog.ItemID
	for _, item := range c.ItemsByCats(itemCats) {
		items = append(items, item.ID)
	}

	return &VisitQuery{
		UserCats: userCats,
		LocCats:  tree.NewSet(loc.Cats...),
		ItemCats: itemCats,
		UpNodes:  tree.NewSet(nodeID),
		Brick:    c.BrickForLoc(loc),
		Items:    items,
	}, nil
}

/*
Package catalog holds the field-operations master data: users, items,
locations, addresses, places, and the force-node hierarchy, each carrying
the category tag sets the eligibility engine matches on.

PURPOSE:
  Master data is kept as an in-memory arena (maps keyed by id plus one
  tree.Tree per categorical kind). The persistence layer loads into a
  Catalog on startup and writes through it; the resolver and the visit
  generator only ever read it.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: a person with user-category tags and owned locations
  - Item: a product with its own categories plus per-visit eligibility tags
  - Loc: a visitable location owned by a user; address XOR place
  - Place: a tree-structured venue (hospital > floor > office)
  - ForceNode: a node in the field-force hierarchy (team/territory)

SEE ALSO:
  - catalog.go: the Catalog arena and closure-aware lookups
  - validate.go: Loc and Place structural validation
*/
package catalog

import (
	"strings"
	"time"

	"github.com/warp/field-engine/geo"
	"github.com/warp/field-engine/tree"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID int64
type ItemID int64
type LocID int64
type AddressID int64

// =============================================================================
// ENTITIES
// =============================================================================

// User is a person the "users" form scope resolves against.
type User struct {
	ID          UserID
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
	Active      bool
	Joined      time.Time
	Syscode     string

	// Cats are user-category tags; matching expands them to their full
	// descendant closure.
	Cats []tree.ID
}

// Name returns the best short name available.
func (u User) Name() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "You"
}

// FullName returns first and last name joined, trimmed.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Item is a product or report item.
type Item struct {
	ID   ItemID
	Name string

	// Cats place the item in the item-category tree.
	Cats []tree.ID

	// VisitsUserCats / VisitsLocCats gate per-item eligibility when a
	// form's report items are resolved for a visit.
	VisitsUserCats []tree.ID
	VisitsLocCats  []tree.ID

	FormsDescription string
	FormsExpandable  bool
	FormsOrder       int
}

// Address is a street address within a region.
type Address struct {
	ID     AddressID
	Street string
	Unit   string
	Phone  string
	Phone2 string
	Fax    string
	Region geo.ID
}

// Place is a node in the place tree (e.g. hospital > floor > office)
// anchored to an address. CanLoc marks places that may host a Loc.
type Place struct {
	ID      tree.ID
	Name    string
	Parent  tree.ID
	Order   int
	Address AddressID
	CanLoc  bool
}

// Loc is a visitable location owned by a user. Exactly one of Address
// or Place must be set.
type Loc struct {
	ID      LocID
	Name    string
	User    UserID
	Address AddressID // 0 when unset
	Place   tree.ID   // 0 when unset
	Cats    []tree.ID
}

// ForceNode is a node in the field-force hierarchy. The tree geometry
// (parent, order) lives in the catalog's node tree; this struct carries
// the node's own assignments.
type ForceNode struct {
	ID     tree.ID
	Name   string
	Parent tree.ID
	Order  int

	User     UserID // 0 when the node has no assigned worker
	ItemCats []tree.ID
	Bricks   []geo.ID
}

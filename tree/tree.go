/*
Package tree provides the category tree engine.

PURPOSE:
  Every categorical dimension in the system (user categories, item
  categories, location categories, form categories, generic option
  categories, place hierarchies, force nodes) is the same structure: a
  forest of named nodes with an explicit sibling order. This package owns
  that structure once, so the eligibility matcher and the form resolver
  never reimplement closure walks.

KEY CONCEPTS IN THIS FILE (tree.go):
  - Node: a single tree entry (id, name, optional parent, sibling order)
  - Tree: an arena of nodes of one Kind, with rebuilt traversal metadata
  - Rebuild: full recomputation of depth and left/right bounds

REBUILD CONTRACT:
  Structural metadata is never incrementally maintained. Any mutation
  (Upsert, Remove) triggers a full rebuild of the whole tree of that kind.
  Rebuild is deterministic and idempotent:
    - a node's Level equals the number of ancestor hops to its root
    - siblings are ordered by (order, name), id as the final tiebreak
    - running Rebuild twice without mutation yields the same order

CONCURRENCY:
  Each Tree carries its own RWMutex. Mutations (and their rebuild pass)
  take the write lock, so two concurrent saves of the same kind are
  serialized and cannot interleave an inconsistent order. Closure queries
  take the read lock and are safe for unlimited concurrent readers.

SEE ALSO:
  - match.go: set intersection over closure-expanded tag sets
  - forms/resolver.go: the main consumer of closure queries
*/
package tree

import (
	"sort"
	"sync"
)

// =============================================================================
// IDENTIFIERS AND KINDS
// =============================================================================

// ID identifies a node within one tree kind.
type ID int64

// Kind names which categorical dimension a tree holds.
type Kind string

const (
	KindUserCat    Kind = "usercat"
	KindItemCat    Kind = "itemcat"
	KindLocCat     Kind = "loccat"
	KindFormCat    Kind = "formcat"
	KindGenericCat Kind = "genericcat"
	KindPeriodCat  Kind = "periodcat"
	KindPlaceCat   Kind = "placecat"
	KindForceNode  Kind = "forcenode"
)

// =============================================================================
// NODE - One tree entry
// =============================================================================

// Node is a single entry in a category tree. Parent == 0 marks a root.
// Level, and the left/right bounds behind the closure queries, are computed
// by Rebuild and are not settable by callers.
type Node struct {
	ID     ID
	Name   string
	Parent ID
	Order  int

	level      int
	lft, rght  int
}

// Level returns the node's depth: number of ancestor hops to its root.
// Only meaningful on nodes returned from a Tree.
func (n Node) Level() int { return n.level }

// =============================================================================
// TREE - Arena of nodes of one kind
// =============================================================================

// Tree holds all nodes of one Kind and the rebuilt traversal metadata.
// The zero value is not usable; use New.
type Tree struct {
	kind Kind

	mu      sync.RWMutex
	nodes   map[ID]*Node
	ordered []ID // traversal order from the last rebuild
}

// New creates an empty tree of the given kind.
func New(kind Kind) *Tree {
	return &Tree{
		kind:  kind,
		nodes: make(map[ID]*Node),
	}
}

// Kind returns which categorical dimension this tree holds.
func (t *Tree) Kind() Kind { return t.kind }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Upsert inserts or replaces a node, then rebuilds the whole tree.
// Fails without mutating if the node is malformed or would break the
// forest geometry (unknown parent, self-parent, cycle).
func (t *Tree) Upsert(n Node) error {
	if n.ID == 0 {
		return ErrZeroID
	}
	if n.Parent == n.ID {
		return &GeometryError{Kind: t.kind, NodeID: n.ID, Reason: "node cannot be its own parent"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, existed := t.nodes[n.ID]
	stored := n
	t.nodes[n.ID] = &stored

	if err := t.rebuildLocked(); err != nil {
		// Roll the arena back; a failed save leaves the tree untouched.
		if existed {
			t.nodes[n.ID] = prev
		} else {
			delete(t.nodes, n.ID)
		}
		_ = t.rebuildLocked()
		return err
	}
	return nil
}

// Remove deletes a node. Its children are reparented to the removed
// node's parent, then the tree is rebuilt.
func (t *Tree) Remove(id ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	for _, child := range t.nodes {
		if child.Parent == id {
			child.Parent = n.Parent
		}
	}
	delete(t.nodes, id)
	return t.rebuildLocked()
}

// Load replaces the whole arena with the given nodes and rebuilds once.
// Insertion order does not matter. Fails without mutating if any node is
// malformed or the resulting geometry is invalid.
func (t *Tree) Load(nodes []Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prevNodes, prevOrdered := t.nodes, append([]ID(nil), t.ordered...)
	arena := make(map[ID]*Node, len(nodes))
	for _, n := range nodes {
		if n.ID == 0 {
			return ErrZeroID
		}
		if n.Parent == n.ID {
			return &GeometryError{Kind: t.kind, NodeID: n.ID, Reason: "node cannot be its own parent"}
		}
		stored := n
		arena[n.ID] = &stored
	}
	t.nodes = arena
	if err := t.rebuildLocked(); err != nil {
		t.nodes, t.ordered = prevNodes, prevOrdered
		return err
	}
	return nil
}

// Rebuild recomputes depth and left/right bounds for the whole tree.
// Exposed so persistence layers can rebuild after bulk loads; mutations
// through Upsert/Remove already rebuild on their own.
func (t *Tree) Rebuild() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rebuildLocked()
}

// rebuildLocked is the deterministic ordering pass. Caller holds the
// write lock.
func (t *Tree) rebuildLocked() error {
	// Validate geometry first: every parent must exist, no cycles.
	for _, n := range t.nodes {
		if n.Parent == 0 {
			continue
		}
		if _, ok := t.nodes[n.Parent]; !ok {
			return &GeometryError{Kind: t.kind, NodeID: n.ID, Reason: "unknown parent"}
		}
		seen := map[ID]bool{n.ID: true}
		for p := n.Parent; p != 0; p = t.nodes[p].Parent {
			if seen[p] {
				return &GeometryError{Kind: t.kind, NodeID: n.ID, Reason: "parent cycle"}
			}
			seen[p] = true
		}
	}

	children := make(map[ID][]*Node, len(t.nodes))
	var roots []*Node
	for _, n := range t.nodes {
		if n.Parent == 0 {
			roots = append(roots, n)
		} else {
			children[n.Parent] = append(children[n.Parent], n)
		}
	}
	sortSiblings(roots)
	for _, group := range children {
		sortSiblings(group)
	}

	// Depth-first numbering: lft on entry, rght on exit.
	t.ordered = t.ordered[:0]
	counter := 0
	var walk func(n *Node, level int)
	walk = func(n *Node, level int) {
		counter++
		n.level = level
		n.lft = counter
		t.ordered = append(t.ordered, n.ID)
		for _, c := range children[n.ID] {
			walk(c, level+1)
		}
		counter++
		n.rght = counter
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return nil
}

// sortSiblings orders one sibling group by (order, name), id tiebreak.
func sortSiblings(group []*Node) {
	sort.Slice(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a node by id.
func (t *Tree) Get(id ID) (Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Ordered returns all nodes in rebuilt traversal order: parents before
// children, siblings by (order, name).
func (t *Tree) Ordered() []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Node, 0, len(t.ordered))
	for _, id := range t.ordered {
		out = append(out, *t.nodes[id])
	}
	return out
}

// Children returns the direct children of a node, in sibling order.
func (t *Tree) Children(id ID) []Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var out []Node
	for _, cid := range t.ordered {
		c := t.nodes[cid]
		if c.Parent == n.ID {
			out = append(out, *c)
		}
	}
	return out
}

// Ancestors returns the chain from the node up to its root, nearest
// first. With includeSelf, the node itself leads the chain.
func (t *Tree) Ancestors(id ID, includeSelf bool) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var out []ID
	if includeSelf {
		out = append(out, n.ID)
	}
	for p := n.Parent; p != 0; {
		pn, ok := t.nodes[p]
		if !ok {
			break
		}
		out = append(out, pn.ID)
		p = pn.Parent
	}
	return out
}

// Descendants returns the transitive closure below a node in traversal
// order, using the rebuilt left/right bounds.
func (t *Tree) Descendants(id ID, includeSelf bool) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var out []ID
	for _, oid := range t.ordered {
		o := t.nodes[oid]
		if o.lft > n.lft && o.rght < n.rght {
			out = append(out, o.ID)
		} else if includeSelf && o.ID == n.ID {
			out = append(out, o.ID)
		}
	}
	return out
}

// AllDowns expands a concrete tag set into everything below it: the
// union of the inclusive descendant closure of every id. Unknown ids are
// kept as-is so that tags referencing a vanished node still match
// themselves exactly.
func (t *Tree) AllDowns(ids []ID) Set {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(Set, len(ids))
	for _, id := range ids {
		n, ok := t.nodes[id]
		if !ok {
			out[id] = struct{}{}
			continue
		}
		for _, oid := range t.ordered {
			o := t.nodes[oid]
			if o.lft >= n.lft && o.rght <= n.rght {
				out[o.ID] = struct{}{}
			}
		}
	}
	return out
}

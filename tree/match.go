package tree

import "sort"

// =============================================================================
// SET - Tag sets for eligibility matching
// =============================================================================

// Set is an unordered collection of node ids, typically the closure
// expansion of an entity's tags.
type Set map[ID]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts an id.
func (s Set) Add(id ID) { s[id] = struct{}{} }

// Has reports membership.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Empty reports whether the set has no members.
func (s Set) Empty() bool { return len(s) == 0 }

// IDs returns the members in ascending order, for deterministic output.
func (s Set) IDs() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// ANY-MATCH - The eligibility primitive
// =============================================================================

// AnyMatch reports whether the candidate set intersects the target tag
// list. It performs NO tree expansion of its own: whichever closure the
// call site needs (full downward closure for user categories, exact node
// identity for force nodes) must already be baked into candidates.
//
// An empty candidate set or an empty target list never matches. A form
// dimension with nothing configured is a genuine non-match, not a
// trivially-true one.
func AnyMatch(candidates Set, targets []ID) bool {
	if candidates.Empty() || len(targets) == 0 {
		return false
	}
	for _, id := range targets {
		if candidates.Has(id) {
			return true
		}
	}
	return false
}

package catalog

import (
	"errors"
	"fmt"
)

// =============================================================================
// VALIDATION - Structural invariants, checked before any write
// =============================================================================

var (
	// ErrLocAddressXorPlace: a Loc must reference exactly one of an
	// address or a place.
	ErrLocAddressXorPlace = errors.New("must select one of address or place")

	// ErrPlaceAddressMismatch: a place must share its address with its
	// parent and children.
	ErrPlaceAddressMismatch = errors.New("invalid address based on parent / children")
)

// ValidateLoc enforces the address-XOR-place invariant.
func ValidateLoc(l Loc) error {
	hasAddr := l.Address != 0
	hasPlace := l.Place != 0
	if hasAddr == hasPlace {
		return fmt.Errorf("loc %d: %w", l.ID, ErrLocAddressXorPlace)
	}
	return nil
}

// ValidatePlace checks that a place's parent and any existing children
// are anchored to the same address. A place tree never spans buildings.
func ValidatePlace(c *Catalog, p Place) error {
	if p.Parent != 0 {
		parent, ok := c.Places[p.Parent]
		if ok && parent.Address != p.Address {
			return fmt.Errorf("place %d: %w", p.ID, ErrPlaceAddressMismatch)
		}
	}
	for _, other := range c.Places {
		if other.Parent == p.ID && other.Address != p.Address {
			return fmt.Errorf("place %d: %w", p.ID, ErrPlaceAddressMismatch)
		}
	}
	return nil
}

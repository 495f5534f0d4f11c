package tree

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrZeroID is returned when a node is inserted without an identifier.
	ErrZeroID = errors.New("node id must be nonzero")

	// ErrNodeNotFound is returned when a referenced node doesn't exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidGeometry is the sentinel behind GeometryError.
	ErrInvalidGeometry = errors.New("invalid tree geometry")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// GeometryError reports a forest-invariant violation: unknown parent,
// self-parent, or a parent cycle. The failed mutation is never applied.
type GeometryError struct {
	Kind   Kind
	NodeID ID
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s tree: node %d: %s", e.Kind, e.NodeID, e.Reason)
}

func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

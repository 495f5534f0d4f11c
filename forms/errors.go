package forms

import "errors"

var (
	// ErrExactlyOneScope is returned when the resolver is called with
	// both or neither of user/visit. This is a programming-contract
	// violation, not a user-recoverable condition.
	ErrExactlyOneScope = errors.New("resolver requires exactly one of user or visit")

	// ErrUnknownEntity is returned when query assembly references a
	// user, node, or loc that is not in the catalog.
	ErrUnknownEntity = errors.New("unknown entity")
)

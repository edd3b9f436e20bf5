package condition

import "errors"

var (
	// ErrUnknownOperator is returned by Compile when a condition node
	// carries an operator outside the closed set this compiler knows
	// how to render. Compile rejects it; CompileOrTrue falls back to an
	// unconditional TRUE instead, matching the historical PL/pgSQL
	// behavior this compiler replaces.
	ErrUnknownOperator = errors.New("condition: unknown operator")

	// ErrEmptyLogical is returned by Parse when an and/or node has no
	// sub-conditions to combine (a "not" node gets ErrNotArity).
	ErrEmptyLogical = errors.New("condition: logical node has no sub-conditions")

	// ErrNotArity is returned when a "not" node does not carry exactly
	// one sub-condition.
	ErrNotArity = errors.New("condition: not takes exactly one sub-condition")

	// ErrMissingAttr is returned when a leaf node has no attribute name.
	ErrMissingAttr = errors.New("condition: leaf node missing attr")
)

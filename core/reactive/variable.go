package reactive

// Variable is a typed handle to a reactive cell belonging to the system. The
// type parameter is a compile-time witness of the cell's value type; only
// the ID is kept at runtime. Variable values are freely copyable and the
// system does not reference-count them.
type Variable[T any] struct {
	id ID
}

// ID returns the variable's underlying opaque identifier.
func (v Variable[T]) ID() ID { return v.id }

// Untyped erases the value type, producing a handle suitable for passing to
// Listen/Emit targets without requiring the caller's type to match.
func (v Variable[T]) Untyped() VariableID { return VariableID{id: v.id} }

// VariableID is an untyped handle to a variable, used wherever a target is
// passed to listener registration or event emission without requiring the
// caller's type to match the variable's actual type.
type VariableID struct {
	id ID
}

// ID returns the underlying opaque identifier.
func (v VariableID) ID() ID { return v.id }

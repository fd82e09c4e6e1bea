package record

// Table represents table metadata: field descriptors, primary keys and the
// dialect the table's SQL is built in. Records hold a non-owning reference;
// one Table value is typically shared by every Record mapped to it.
type Table interface {
	// QualifiedName returns the schema-qualified table identifier.
	QualifiedName() string
	FieldExists(name string) bool
	// Field returns the descriptor for name, or nil for unknown fields.
	Field(name string) FieldDescriptor
	// PrimaryKeys returns the declared primary-key field names, in order.
	PrimaryKeys() []string
	// Builder returns the dialect's statement builder factory.
	Builder() Builder
	// Returning reports whether the dialect can hand generated keys back
	// from an INSERT.
	Returning() bool
}

// FieldDescriptor converts between storage and program representations of
// one field.
type FieldDescriptor interface {
	Name() string
	// Program coerces a storage-bound or caller-supplied value into the
	// field's program representation.
	Program(raw any) (any, error)
	// Bound coerces value for storage and pairs it with its SQL
	// placeholder and bound parameters.
	Bound(value any) (placeholder string, bindings []any, err error)
}

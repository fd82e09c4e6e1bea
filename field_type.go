package record

// FieldType represents the abstract storage type of a table field.
type FieldType int

const (
	TypeText FieldType = iota
	TypeInt64
	TypeFloat64
	TypeBool
	TypeBlob
	TypeDate
)

// Constraint is a bitmask of column-level constraints.
// ConstraintNone = 0 is defined separately to avoid shifting iota off-by-one.
type Constraint int

const ConstraintNone Constraint = 0

const (
	ConstraintPK            Constraint = 1 << iota // 1: Primary Key (auto-detected via fmt.IDorPrimaryKey)
	ConstraintUnique                               // 2: UNIQUE
	ConstraintNotNull                              // 4: NOT NULL
	ConstraintAutoIncrement                        // 8: SERIAL / AUTOINCREMENT
)

// Field describes a single column of a table. Table metadata
// implementations build their FieldDescriptor set from these.
type Field struct {
	Name        string
	Type        FieldType
	Constraints Constraint
}

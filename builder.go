package record

// SQLSource is anything that renders to executable SQL text plus the
// ordered bound parameters the text references.
type SQLSource interface {
	Output() string
	Bindings() []any
}

// SelectQuery accumulates a SELECT statement.
type SelectQuery interface {
	SQLSource
	From(table string) SelectQuery
	Column(expr string) SelectQuery
	Where(cond string, bindings ...any) SelectQuery
	OrderBy(field, dir string) SelectQuery
	Limit(n int) SelectQuery
	Offset(n int) SelectQuery
	ClearWhere()
	ClearOrder()
}

// InsertQuery accumulates an INSERT statement.
type InsertQuery interface {
	SQLSource
	Into(table string) InsertQuery
	Value(column, placeholder string, bindings ...any) InsertQuery
	Returning(columns ...string) InsertQuery
}

// UpdateQuery accumulates an UPDATE statement.
type UpdateQuery interface {
	SQLSource
	Table(table string) UpdateQuery
	Assign(column, placeholder string, bindings ...any) UpdateQuery
	Where(cond string, bindings ...any) UpdateQuery
}

// DeleteQuery accumulates a DELETE statement.
type DeleteQuery interface {
	SQLSource
	From(table string) DeleteQuery
	Where(cond string, bindings ...any) DeleteQuery
}

// WithQuery and UnionQuery are opaque to the core; collections only render
// and execute them. Their construction surface is dialect-specific.
type WithQuery interface {
	SQLSource
}

type UnionQuery interface {
	SQLSource
}

// Builder represents a dialect's statement builder factory.
// Consumers inject an implementation via Table.Builder().
type Builder interface {
	Select() SelectQuery
	Insert() InsertQuery
	Update() UpdateQuery
	Delete() DeleteQuery
	With() WithQuery
	Union() UnionQuery
}

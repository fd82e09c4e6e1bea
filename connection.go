package record

// Row is one fetched result row, keyed by column name.
type Row map[string]any

// Statement represents a prepared statement on a Connection.
// FetchRow returns a nil Row once the result set is exhausted.
type Statement interface {
	Execute(bindings []any) error
	FetchRow() (Row, error)
	RowCount() int
	Close() error
}

// Connection represents the database handle abstraction.
// Implementations must remain compatible with sql.DB-backed adapters,
// pgx-backed adapters and mocks.
type Connection interface {
	Prepare(sqlText string) (Statement, error)
	BeginTransaction() error
	Commit() error
	InTransaction() bool
}

// Package sqldb provides reference collaborators for the record core on
// top of database/sql: a Connection, a statement Builder with
// configurable placeholder style, and Table metadata with per-type value
// coercion. Any database/sql driver works; tests use modernc.org/sqlite.
package sqldb

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/tinywasm/record"
)

// Conn adapts a *sql.DB to record.Connection. It tracks at most one open
// transaction; statements prepared while it is open run inside it.
// Single logical caller, like the rest of the core.
type Conn struct {
	db *sql.DB
	tx *sql.Tx
}

// NewConn wraps an opened database handle. The handle stays owned by the
// caller.
func NewConn(db *sql.DB) *Conn {
	return &Conn{db: db}
}

// DB returns the underlying database handle.
func (c *Conn) DB() *sql.DB { return c.db }

// Prepare prepares sqlText on the connection, or on the open transaction
// when there is one.
func (c *Conn) Prepare(sqlText string) (record.Statement, error) {
	var (
		st  *sql.Stmt
		err error
	)
	if c.tx != nil {
		st, err = c.tx.Prepare(sqlText)
	} else {
		st, err = c.db.Prepare(sqlText)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "prepare %q", sqlText)
	}
	return &stmt{st: st, sqlText: sqlText}, nil
}

// BeginTransaction opens a transaction. Nested begins are an error; the
// core flattens instead of nesting.
func (c *Conn) BeginTransaction() error {
	if c.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := c.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return errors.New("no open transaction")
	}
	err := c.tx.Commit()
	c.tx = nil
	return errors.Wrap(err, "commit")
}

// Rollback aborts the open transaction. The core never calls it; it is
// the caller's safety net after a failed bulk operation.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return errors.New("no open transaction")
	}
	err := c.tx.Rollback()
	c.tx = nil
	return errors.Wrap(err, "rollback")
}

// InTransaction reports whether a transaction is open.
func (c *Conn) InTransaction() bool { return c.tx != nil }

// stmt is one prepared statement. Row-returning statements are
// materialized on Execute so RowCount and repeated FetchRow stay cheap.
type stmt struct {
	st       *sql.Stmt
	sqlText  string
	rows     []record.Row
	pos      int
	affected int
	isQuery  bool
}

func (s *stmt) Execute(bindings []any) error {
	if returnsRows(s.sqlText) {
		s.isQuery = true
		rows, err := s.st.Query(bindings...)
		if err != nil {
			return errors.Wrapf(err, "execute %q", s.sqlText)
		}
		defer rows.Close()
		s.rows, err = fetchAll(rows)
		s.pos = 0
		return err
	}
	res, err := s.st.Exec(bindings...)
	if err != nil {
		return errors.Wrapf(err, "execute %q", s.sqlText)
	}
	if n, err := res.RowsAffected(); err == nil {
		s.affected = int(n)
	}
	return nil
}

func (s *stmt) FetchRow() (record.Row, error) {
	if s.pos >= len(s.rows) {
		return nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *stmt) RowCount() int {
	if s.isQuery {
		return len(s.rows)
	}
	return s.affected
}

func (s *stmt) Close() error { return s.st.Close() }

func fetchAll(rows *sql.Rows) ([]record.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "columns")
	}
	var out []record.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		row := make(record.Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// returnsRows decides between the Query and Exec paths: SELECT-like
// statements and any statement with a RETURNING clause produce rows.
func returnsRows(sqlText string) bool {
	u := strings.ToUpper(strings.TrimSpace(sqlText))
	for _, prefix := range []string{"SELECT", "WITH", "VALUES", "PRAGMA"} {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return strings.Contains(u, " RETURNING ")
}

// Package pgdb provides a postgres record.Connection using the pgx client
// package. Pair it with a dollar-style sqldb.Builder; postgres dialects
// are RETURNING-capable, so generated keys flow back into saved records.
package pgdb

import (
	"strings"

	"github.com/jackc/pgx"
	"github.com/pkg/errors"
	"github.com/tinywasm/record"
)

// Open connects a pgx pool and verifies it with one round trip.
func Open(dsn string, logger pgx.Logger) (*pgx.ConnPool, error) {
	conf, err := pgx.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parsing postgres dsn")
	}
	if logger != nil {
		conf.Logger = logger
		conf.LogLevel = pgx.LogLevelWarn
	}
	db, err := pgx.NewConnPool(pgx.ConnPoolConfig{ConnConfig: conf})
	if err != nil {
		return nil, errors.Wrap(err, "creating pgx connection pool")
	}
	_, err = db.Exec("SELECT 1")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "opening first pgx connection")
	}
	return db, nil
}

// Conn adapts a pgx pool to record.Connection, tracking at most one open
// transaction.
type Conn struct {
	pool *pgx.ConnPool
	tx   *pgx.Tx
}

// NewConn wraps an opened pool. The pool stays owned by the caller.
func NewConn(pool *pgx.ConnPool) *Conn {
	return &Conn{pool: pool}
}

// Pool returns the underlying connection pool.
func (c *Conn) Pool() *pgx.ConnPool { return c.pool }

// runner is the query surface shared by *pgx.ConnPool and *pgx.Tx.
type runner interface {
	Query(sql string, args ...interface{}) (*pgx.Rows, error)
	Exec(sql string, args ...interface{}) (pgx.CommandTag, error)
}

func (c *Conn) runner() runner {
	if c.tx != nil {
		return c.tx
	}
	return c.pool
}

// Prepare returns a statement for sqlText. pgx caches prepared statements
// itself, so this only captures the text.
func (c *Conn) Prepare(sqlText string) (record.Statement, error) {
	return &stmt{conn: c, sqlText: sqlText}, nil
}

// BeginTransaction opens a transaction on one pool connection.
func (c *Conn) BeginTransaction() error {
	if c.tx != nil {
		return errors.New("transaction already open")
	}
	tx, err := c.pool.Begin()
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

// Rollback aborts the open transaction; the caller's safety net after a
// failed bulk operation.
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

// WithTx runs f inside a transaction on the connection, committing when f
// succeeds and rolling back otherwise.
func WithTx(c *Conn, f func(*Conn) error) error {
	if err := c.BeginTransaction(); err != nil {
		return err
	}
	if err := f(c); err != nil {
		c.Rollback()
		return err
	}
	return c.Commit()
}

type stmt struct {
	conn     *Conn
	sqlText  string
	rows     []record.Row
	pos      int
	affected int
	isQuery  bool
}

func (s *stmt) Execute(bindings []any) error {
	if returnsRows(s.sqlText) {
		s.isQuery = true
		rows, err := s.conn.runner().Query(s.sqlText, bindings...)
		if err != nil {
			return errors.Wrapf(err, "execute %q", s.sqlText)
		}
		defer rows.Close()
		s.rows, err = fetchAll(rows)
		s.pos = 0
		return err
	}
	tag, err := s.conn.runner().Exec(s.sqlText, bindings...)
	if err != nil {
		return errors.Wrapf(err, "execute %q", s.sqlText)
	}
	s.affected = int(tag.RowsAffected())
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

func (s *stmt) Close() error { return nil }

func fetchAll(rows *pgx.Rows) ([]record.Row, error) {
	fields := rows.FieldDescriptions()
	var out []record.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		row := make(record.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func returnsRows(sqlText string) bool {
	u := strings.ToUpper(strings.TrimSpace(sqlText))
	for _, prefix := range []string{"SELECT", "WITH", "VALUES"} {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return strings.Contains(u, " RETURNING ")
}

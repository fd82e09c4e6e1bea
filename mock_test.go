package record_test

import (
	"github.com/tinywasm/record"
)

// mockStmt serves canned rows and captures bindings.
type mockStmt struct {
	sqlText  string
	rows     []record.Row
	pos      int
	count    int
	execErr  error
	fetchErr error
	binds    []any
	closed   bool
}

func (s *mockStmt) Execute(bindings []any) error {
	s.binds = bindings
	return s.execErr
}

func (s *mockStmt) FetchRow() (record.Row, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if s.pos >= len(s.rows) {
		return nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *mockStmt) RowCount() int {
	if s.count != 0 {
		return s.count
	}
	return len(s.rows)
}

func (s *mockStmt) Close() error {
	s.closed = true
	return nil
}

// mockConn hands queued statements to Prepare calls, in order, and
// tracks transaction state.
type mockConn struct {
	prepared   []string
	queue      []*mockStmt
	prepareErr error
	begun      int
	committed  int
	inTx       bool
}

func (c *mockConn) Prepare(sqlText string) (record.Statement, error) {
	c.prepared = append(c.prepared, sqlText)
	if c.prepareErr != nil {
		return nil, c.prepareErr
	}
	if len(c.queue) > 0 {
		s := c.queue[0]
		c.queue = c.queue[1:]
		s.sqlText = sqlText
		return s, nil
	}
	return &mockStmt{}, nil
}

func (c *mockConn) BeginTransaction() error {
	c.begun++
	c.inTx = true
	return nil
}

func (c *mockConn) Commit() error {
	c.committed++
	c.inTx = false
	return nil
}

func (c *mockConn) InTransaction() bool { return c.inTx }

func (c *mockConn) push(stmts ...*mockStmt) {
	c.queue = append(c.queue, stmts...)
}

func (c *mockConn) lastSQL() string {
	if len(c.prepared) == 0 {
		return ""
	}
	return c.prepared[len(c.prepared)-1]
}

package sqldb

import (
	"strconv"
	"strings"

	"github.com/tinywasm/record"
)

// Style selects the placeholder notation the dialect expects. Conditions
// and bound values are always written with '?'; dollar-style renders
// renumber them to $1..$n at Output time.
type Style int

const (
	Question Style = iota // sqlite, mysql
	Dollar                // postgres
)

// Builder is the statement builder factory for one placeholder style.
type Builder struct {
	style Style
}

// NewBuilder creates a builder factory.
func NewBuilder(style Style) *Builder {
	return &Builder{style: style}
}

func (b *Builder) Select() record.SelectQuery { return &selectQuery{b: b, limit: -1, offset: -1} }
func (b *Builder) Insert() record.InsertQuery { return &insertQuery{b: b} }
func (b *Builder) Update() record.UpdateQuery { return &updateQuery{b: b} }
func (b *Builder) Delete() record.DeleteQuery { return &deleteQuery{b: b} }
func (b *Builder) With() record.WithQuery     { return &With{b: b} }
func (b *Builder) Union() record.UnionQuery   { return &Union{b: b} }

// rawSQL is implemented by this package's builders so composite
// statements (WITH, UNION) can merge '?' text before renumbering; without
// it each part would restart dollar numbering at $1.
type rawSQL interface {
	raw() string
}

func rawOf(q record.SQLSource) string {
	if r, ok := q.(rawSQL); ok {
		return r.raw()
	}
	return q.Output()
}

// render rewrites '?' placeholders to the builder's style. Question marks
// inside string literals and double-quoted identifiers are not
// placeholders and pass through untouched.
func (b *Builder) render(sqlText string) string {
	if b.style == Question {
		return sqlText
	}
	var sb strings.Builder
	n := 0
	var quote byte
	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// cond is one accumulated WHERE fragment with its bound parameters.
// Fragments combine conjunctively.
type cond struct {
	expr  string
	binds []any
}

func writeWhere(sb *strings.Builder, conds []cond) {
	for i, c := range conds {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c.expr)
	}
}

func condBinds(conds []cond) []any {
	var out []any
	for _, c := range conds {
		out = append(out, c.binds...)
	}
	return out
}

type order struct {
	field string
	dir   string
}

type selectQuery struct {
	b      *Builder
	table  string
	cols   []string
	where  []cond
	orders []order
	limit  int
	offset int
}

func (q *selectQuery) From(table string) record.SelectQuery {
	q.table = table
	return q
}

func (q *selectQuery) Column(expr string) record.SelectQuery {
	q.cols = append(q.cols, expr)
	return q
}

func (q *selectQuery) Where(cnd string, bindings ...any) record.SelectQuery {
	q.where = append(q.where, cond{expr: cnd, binds: bindings})
	return q
}

func (q *selectQuery) OrderBy(field, dir string) record.SelectQuery {
	q.orders = append(q.orders, order{field: field, dir: dir})
	return q
}

func (q *selectQuery) Limit(n int) record.SelectQuery {
	q.limit = n
	return q
}

func (q *selectQuery) Offset(n int) record.SelectQuery {
	q.offset = n
	return q
}

func (q *selectQuery) ClearWhere() { q.where = nil }
func (q *selectQuery) ClearOrder() { q.orders = nil }

func (q *selectQuery) Output() string { return q.b.render(q.raw()) }

func (q *selectQuery) raw() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.cols) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(q.cols, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)
	writeWhere(&sb, q.where)
	for i, o := range q.orders {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(o.field)
		sb.WriteByte(' ')
		sb.WriteString(o.dir)
	}
	if q.limit >= 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.limit))
	}
	if q.offset >= 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(q.offset))
	}
	return sb.String()
}

func (q *selectQuery) Bindings() []any { return condBinds(q.where) }

type insertQuery struct {
	b         *Builder
	table     string
	cols      []string
	phs       []string
	binds     []any
	returning []string
}

func (q *insertQuery) Into(table string) record.InsertQuery {
	q.table = table
	return q
}

func (q *insertQuery) Value(column, placeholder string, bindings ...any) record.InsertQuery {
	q.cols = append(q.cols, column)
	q.phs = append(q.phs, placeholder)
	q.binds = append(q.binds, bindings...)
	return q
}

func (q *insertQuery) Returning(columns ...string) record.InsertQuery {
	q.returning = append(q.returning, columns...)
	return q
}

func (q *insertQuery) Output() string { return q.b.render(q.raw()) }

func (q *insertQuery) raw() string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(q.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(q.cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(q.phs, ", "))
	sb.WriteString(")")
	if len(q.returning) > 0 {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(q.returning, ", "))
	}
	return sb.String()
}

func (q *insertQuery) Bindings() []any { return q.binds }

type updateQuery struct {
	b       *Builder
	table   string
	assigns []string
	binds   []any
	where   []cond
}

func (q *updateQuery) Table(table string) record.UpdateQuery {
	q.table = table
	return q
}

func (q *updateQuery) Assign(column, placeholder string, bindings ...any) record.UpdateQuery {
	q.assigns = append(q.assigns, column+" = "+placeholder)
	q.binds = append(q.binds, bindings...)
	return q
}

func (q *updateQuery) Where(cnd string, bindings ...any) record.UpdateQuery {
	q.where = append(q.where, cond{expr: cnd, binds: bindings})
	return q
}

func (q *updateQuery) Output() string { return q.b.render(q.raw()) }

func (q *updateQuery) raw() string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(q.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(q.assigns, ", "))
	writeWhere(&sb, q.where)
	return sb.String()
}

func (q *updateQuery) Bindings() []any {
	return append(append([]any{}, q.binds...), condBinds(q.where)...)
}

type deleteQuery struct {
	b     *Builder
	table string
	where []cond
}

func (q *deleteQuery) From(table string) record.DeleteQuery {
	q.table = table
	return q
}

func (q *deleteQuery) Where(cnd string, bindings ...any) record.DeleteQuery {
	q.where = append(q.where, cond{expr: cnd, binds: bindings})
	return q
}

func (q *deleteQuery) Output() string { return q.b.render(q.raw()) }

func (q *deleteQuery) raw() string {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(q.table)
	writeWhere(&sb, q.where)
	return sb.String()
}

func (q *deleteQuery) Bindings() []any { return condBinds(q.where) }

// With assembles a WITH statement: named common table expressions over a
// body statement. Callers obtain it from Collection.With and type-assert.
type With struct {
	b     *Builder
	ctes  []string
	binds []any
	body  record.SQLSource
}

// Define adds one named common table expression.
func (w *With) Define(name string, q record.SQLSource) *With {
	w.ctes = append(w.ctes, name+" AS ("+rawOf(q)+")")
	w.binds = append(w.binds, q.Bindings()...)
	return w
}

// Body sets the statement the expressions feed.
func (w *With) Body(q record.SQLSource) *With {
	w.body = q
	return w
}

func (w *With) Output() string { return w.b.render(w.raw()) }

func (w *With) raw() string {
	var sb strings.Builder
	sb.WriteString("WITH ")
	sb.WriteString(strings.Join(w.ctes, ", "))
	sb.WriteByte(' ')
	if w.body != nil {
		sb.WriteString(rawOf(w.body))
	}
	return sb.String()
}

func (w *With) Bindings() []any {
	out := append([]any{}, w.binds...)
	if w.body != nil {
		out = append(out, w.body.Bindings()...)
	}
	return out
}

// Union assembles a UNION of statements.
type Union struct {
	b     *Builder
	parts []record.SQLSource
	all   bool
}

// Add appends one side of the union.
func (u *Union) Add(q record.SQLSource) *Union {
	u.parts = append(u.parts, q)
	return u
}

// All switches to UNION ALL.
func (u *Union) All() *Union {
	u.all = true
	return u
}

func (u *Union) Output() string { return u.b.render(u.raw()) }

func (u *Union) raw() string {
	sep := " UNION "
	if u.all {
		sep = " UNION ALL "
	}
	outs := make([]string, 0, len(u.parts))
	for _, p := range u.parts {
		outs = append(outs, rawOf(p))
	}
	return strings.Join(outs, sep)
}

func (u *Union) Bindings() []any {
	var out []any
	for _, p := range u.parts {
		out = append(out, p.Bindings()...)
	}
	return out
}

package record

import (
	"encoding/json"
	"iter"
	"slices"

	"github.com/tinywasm/fmt"
)

// stmtKind tags which statement is active on a collection. Exactly one
// statement kind drives the next Run; builders of the other kinds persist
// but stay inert until re-selected.
type stmtKind int

const (
	stmtNone stmtKind = iota
	stmtSelect
	stmtWith
	stmtUnion
	stmtRaw
)

// Collection represents a generic result set: an indexable sequence of
// row-shaped items populated by an arbitrary query. Indices are stable
// across Remove, so gaps may appear. Not safe for concurrent use; one
// logical caller owns a collection at a time.
type Collection struct {
	conn    Connection
	builder Builder

	items  map[int]Item
	order  []int
	next   int
	cursor int

	active   stmtKind
	sel      SelectQuery
	with     WithQuery
	union    UnionQuery
	raw      string
	rawBinds []any

	factory    func() Item
	restricted bool
}

// NewCollection creates an empty collection over a connection and a
// dialect builder. Fetched rows materialize as DynamicItems unless a
// different factory is installed via SetFactory.
func NewCollection(conn Connection, builder Builder) *Collection {
	c := &Collection{
		conn:    conn,
		builder: builder,
		items:   make(map[int]Item),
	}
	c.factory = func() Item { return NewItem() }
	return c
}

// SetFactory replaces the item factory used to materialize fetched rows.
func (c *Collection) SetFactory(f func() Item) { c.factory = f }

// Select activates (and lazily creates) the collection's SELECT builder.
func (c *Collection) Select() SelectQuery {
	if c.sel == nil {
		c.sel = c.builder.Select()
	}
	c.active = stmtSelect
	return c.sel
}

// With activates the collection's WITH builder. Rejected on
// shape-constrained collections, whose rows must match one table.
func (c *Collection) With() (WithQuery, error) {
	if c.restricted {
		return nil, fmt.Err(ErrStatementKind, "with")
	}
	if c.with == nil {
		c.with = c.builder.With()
	}
	c.active = stmtWith
	return c.with, nil
}

// Union activates the collection's UNION builder. Rejected on
// shape-constrained collections.
func (c *Collection) Union() (UnionQuery, error) {
	if c.restricted {
		return nil, fmt.Err(ErrStatementKind, "union")
	}
	if c.union == nil {
		c.union = c.builder.Union()
	}
	c.active = stmtUnion
	return c.union, nil
}

// SetRaw activates a raw SQL statement with positional bindings. Rejected
// on shape-constrained collections.
func (c *Collection) SetRaw(sqlText string, bindings ...any) error {
	if c.restricted {
		return fmt.Err(ErrStatementKind, "raw")
	}
	c.raw = sqlText
	c.rawBinds = bindings
	c.active = stmtRaw
	return nil
}

func (c *Collection) activeSQL() (string, []any, error) {
	switch c.active {
	case stmtSelect:
		return c.sel.Output(), c.sel.Bindings(), nil
	case stmtWith:
		return c.with.Output(), c.with.Bindings(), nil
	case stmtUnion:
		return c.union.Output(), c.union.Bindings(), nil
	case stmtRaw:
		return c.raw, c.rawBinds, nil
	}
	return "", nil, ErrNoStatement
}

// Run executes the active statement and appends one new item per result
// row, every column set as a field. Records fetched this way are marked
// loaded. On any failure the collection is left unchanged and the error
// is returned; callers opting into fail-soft listing behavior ignore it.
func (c *Collection) Run() error {
	sqlText, binds, err := c.activeSQL()
	if err != nil {
		return err
	}
	stmt, err := c.conn.Prepare(sqlText)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.Execute(binds); err != nil {
		return err
	}
	var fetched []Item
	for {
		row, err := stmt.FetchRow()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		it := c.factory()
		for col, v := range row {
			it.Set(col, v)
		}
		if r, ok := it.(*Record); ok {
			r.status = Loaded
		}
		fetched = append(fetched, it)
	}
	for _, it := range fetched {
		c.append(it)
	}
	return nil
}

// RunForCount executes the active statement and returns only the row
// count, leaving the stored items untouched.
func (c *Collection) RunForCount() (int, error) {
	sqlText, binds, err := c.activeSQL()
	if err != nil {
		return 0, err
	}
	stmt, err := c.conn.Prepare(sqlText)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	if err := stmt.Execute(binds); err != nil {
		return 0, err
	}
	return stmt.RowCount(), nil
}

func (c *Collection) append(it Item) int {
	idx := c.next
	c.next++
	c.items[idx] = it
	c.order = append(c.order, idx)
	return idx
}

// Add appends an item to the collection.
func (c *Collection) Add(it Item) { c.append(it) }

// Get returns the item at index, nil when absent or removed.
func (c *Collection) Get(index int) Item { return c.items[index] }

// Count returns the number of present items.
func (c *Collection) Count() int { return len(c.order) }

// Top returns the first item in insertion order, nil when empty.
func (c *Collection) Top() Item {
	if len(c.order) == 0 {
		return nil
	}
	return c.items[c.order[0]]
}

// Find returns the first item whose field equals value, in insertion
// order, or nil.
func (c *Collection) Find(field string, value any) Item {
	for _, idx := range c.order {
		if equalValues(c.items[idx].Get(field), value) {
			return c.items[idx]
		}
	}
	return nil
}

// FindAll returns every item whose field equals value, preserving order.
func (c *Collection) FindAll(field string, value any) []Item {
	var out []Item
	for _, idx := range c.order {
		if equalValues(c.items[idx].Get(field), value) {
			out = append(out, c.items[idx])
		}
	}
	return out
}

// Max returns the item with the greatest non-nil value of field. When
// every value is nil it falls back to the first item; nil only when the
// collection is empty.
func (c *Collection) Max(field string) Item {
	return c.scan(field, 1)
}

// Min returns the item with the smallest non-nil value of field, with the
// same fall-back-to-top policy as Max.
func (c *Collection) Min(field string) Item {
	return c.scan(field, -1)
}

func (c *Collection) scan(field string, dir int) Item {
	var best Item
	var bestV any
	for _, idx := range c.order {
		v := c.items[idx].Get(field)
		if v == nil {
			continue
		}
		if best == nil || compareValues(v, bestV)*dir > 0 {
			best, bestV = c.items[idx], v
		}
	}
	if best == nil {
		return c.Top()
	}
	return best
}

// FieldValues projects one field across all items, order-preserving.
func (c *Collection) FieldValues(field string) []any {
	out := make([]any, 0, len(c.order))
	for _, idx := range c.order {
		out = append(out, c.items[idx].Get(field))
	}
	return out
}

// Reverse reverses the item order in place.
func (c *Collection) Reverse() { slices.Reverse(c.order) }

// Clear empties the collection without touching the backing store.
func (c *Collection) Clear() {
	c.items = make(map[int]Item)
	c.order = nil
	c.next = 0
	c.cursor = 0
}

// Remove deletes the entry at index only; other indices stay stable.
func (c *Collection) Remove(index int) {
	if _, ok := c.items[index]; !ok {
		return
	}
	delete(c.items, index)
	if i := slices.Index(c.order, index); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
		if c.cursor > i {
			c.cursor--
		}
	}
}

// Rewind restarts sequential traversal at the first item.
func (c *Collection) Rewind() { c.cursor = 0 }

// Valid reports whether Current points at an item.
func (c *Collection) Valid() bool { return c.cursor < len(c.order) }

// Key returns the index of the current item, -1 past the end.
func (c *Collection) Key() int {
	if !c.Valid() {
		return -1
	}
	return c.order[c.cursor]
}

// Current returns the item under the traversal cursor, nil past the end.
func (c *Collection) Current() Item {
	if !c.Valid() {
		return nil
	}
	return c.items[c.order[c.cursor]]
}

// Next advances the traversal cursor.
func (c *Collection) Next() {
	if c.Valid() {
		c.cursor++
	}
}

// All returns an index/item sequence over the collection in order, for
// use with range-over-func.
func (c *Collection) All() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		for _, idx := range c.order {
			if !yield(idx, c.items[idx]) {
				return
			}
		}
	}
}

// MarshalJSON serializes the present items, in order, as a JSON array.
func (c *Collection) MarshalJSON() ([]byte, error) {
	out := make([]Item, 0, len(c.order))
	for _, idx := range c.order {
		out = append(out, c.items[idx])
	}
	return json.Marshal(out)
}

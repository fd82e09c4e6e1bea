// Package record maps rows of relational tables to in-memory record
// objects and offers queryable collection abstractions over result sets.
// The SQL dialect, table metadata and database driver are injected as
// collaborator interfaces; see Connection, Table and Builder.
package record

import (
	"encoding/json"
	"slices"

	"github.com/tinywasm/fmt"
)

// IDField is the virtual alias field. Getting or setting it routes to the
// table's first declared primary key, unless the table declares a real
// field with this name.
const IDField = "id"

// Record represents a single mapped table row.
// Created empty in NotLoaded state; populated via Set, Load or collection
// runs. The table and connection references are shared, non-owning.
type Record struct {
	table  Table
	conn   Connection
	fields map[string]any
	status LoadStatus
	strict bool
}

// NewRecord creates an empty record bound to a table and connection.
func NewRecord(table Table, conn Connection) *Record {
	return &Record{
		table:  table,
		conn:   conn,
		fields: make(map[string]any),
	}
}

// SetStrict selects the coercion policy at the Set boundary: strict mode
// fails on values the field cannot coerce, the default clamps best-effort.
func (r *Record) SetStrict(strict bool) { r.strict = strict }

func (r *Record) Table() Table           { return r.table }
func (r *Record) Connection() Connection { return r.conn }
func (r *Record) Status() LoadStatus     { return r.status }
func (r *Record) IsLoaded() bool         { return r.status == Loaded }

// Clone returns a fresh empty record with the same table, connection and
// coercion policy. Used as the prototype factory by RecordSet.
func (r *Record) Clone() *Record {
	c := NewRecord(r.table, r.conn)
	c.strict = r.strict
	return c
}

// Get returns the field's value passed through the field's coercion, nil
// for unknown or unset fields. Storage and program representations may
// diverge, so values are coerced on read as well as on write.
func (r *Record) Get(field string) any {
	if r.isAlias(field) {
		return r.ID()
	}
	fd := r.table.Field(field)
	if fd == nil {
		return nil
	}
	raw, ok := r.fields[field]
	if !ok {
		return nil
	}
	v, err := fd.Program(raw)
	if err != nil {
		return raw
	}
	return v
}

// Set coerces value through the field's descriptor and stores it. Unknown
// fields are a silent no-op. In strict mode a failed coercion returns
// ErrCoerce; otherwise the raw value is kept as-is.
func (r *Record) Set(field string, value any) error {
	if r.isAlias(field) {
		return r.SetID(value)
	}
	fd := r.table.Field(field)
	if fd == nil {
		return nil
	}
	v, err := fd.Program(value)
	if err != nil {
		if r.strict {
			return fmt.Err(ErrCoerce, field)
		}
		v = value
	}
	r.fields[field] = v
	return nil
}

func (r *Record) isAlias(field string) bool {
	return field == IDField && !r.table.FieldExists(IDField)
}

// ID returns the value of the first declared primary key, nil when the
// table has none.
func (r *Record) ID() any {
	pks := r.table.PrimaryKeys()
	if len(pks) == 0 {
		return nil
	}
	return r.Get(pks[0])
}

// SetID sets the first declared primary key. No-op when the table has none.
func (r *Record) SetID(value any) error {
	pks := r.table.PrimaryKeys()
	if len(pks) == 0 {
		return nil
	}
	return r.Set(pks[0], value)
}

// Fields returns the names of fields that have been set, sorted.
// Absence of a name means "untouched", not NULL.
func (r *Record) Fields() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of set fields.
func (r *Record) Count() int { return len(r.fields) }

// Clear removes all field data without touching the load status.
func (r *Record) Clear() { r.fields = make(map[string]any) }

// Load fetches the row whose primary key equals id. A nil id reuses the
// record's current primary-key value; when neither exists Load fails with
// ErrMissingKey. Zero rows is not an error: the record is cleared and
// enters NotFound state.
func (r *Record) Load(id any) error {
	pks := r.table.PrimaryKeys()
	if len(pks) == 0 {
		return fmt.Err(ErrNoPrimaryKey, r.table.QualifiedName())
	}
	if id == nil {
		if _, ok := r.fields[pks[0]]; !ok {
			return fmt.Err(ErrMissingKey, r.table.QualifiedName())
		}
		id = r.fields[pks[0]]
	} else if err := r.Set(pks[0], id); err != nil {
		return err
	}
	fd := r.table.Field(pks[0])
	ph, binds, err := fd.Bound(id)
	if err != nil {
		return err
	}
	return r.LoadFrom(fd.Name()+" = "+ph, binds...)
}

// LoadFrom fetches the first row matching a caller-supplied predicate.
// Zero rows clears the record and sets NotFound, one row populates every
// returned column through Set and sets Loaded.
func (r *Record) LoadFrom(where string, bindings ...any) error {
	sel := r.table.Builder().Select().
		From(r.table.QualifiedName()).
		Where(where, bindings...).
		Limit(1)
	stmt, err := r.conn.Prepare(sel.Output())
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.Execute(sel.Bindings()); err != nil {
		return err
	}
	row, err := stmt.FetchRow()
	if err != nil {
		return err
	}
	if row == nil {
		r.fields = make(map[string]any)
		r.status = NotFound
		return nil
	}
	r.populate(row)
	return nil
}

// populate fills the record from a fetched row and marks it loaded.
// Values come from the store, so coercion failures are not fatal.
func (r *Record) populate(row Row) {
	for col, v := range row {
		r.Set(col, v)
	}
	r.status = Loaded
}

// Save inserts the record when it is not loaded and updates it otherwise.
// After either round trip the record is Loaded. An insert with no set
// fields and an update on a table without a primary key are silent no-ops.
func (r *Record) Save() error {
	if r.status == Loaded {
		return r.update()
	}
	return r.insert()
}

func (r *Record) insert() error {
	ins := r.table.Builder().Insert().Into(r.table.QualifiedName())
	n := 0
	for _, name := range r.Fields() {
		fd := r.table.Field(name)
		ph, binds, err := fd.Bound(r.fields[name])
		if err != nil {
			return err
		}
		ins.Value(fd.Name(), ph, binds...)
		n++
	}
	if n == 0 {
		return nil
	}
	pks := r.table.PrimaryKeys()
	returning := r.table.Returning() && len(pks) > 0
	if returning {
		ins.Returning(pks...)
	}
	stmt, err := r.conn.Prepare(ins.Output())
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.Execute(ins.Bindings()); err != nil {
		return err
	}
	if returning {
		row, err := stmt.FetchRow()
		if err != nil {
			return err
		}
		for col, v := range row {
			r.Set(col, v)
		}
	}
	r.status = Loaded
	return nil
}

func (r *Record) update() error {
	pks := r.table.PrimaryKeys()
	if len(pks) == 0 {
		return nil
	}
	upd := r.table.Builder().Update().Table(r.table.QualifiedName())
	n := 0
	for _, name := range r.Fields() {
		if slices.Contains(pks, name) {
			continue
		}
		fd := r.table.Field(name)
		ph, binds, err := fd.Bound(r.fields[name])
		if err != nil {
			return err
		}
		upd.Assign(fd.Name(), ph, binds...)
		n++
	}
	if n == 0 {
		return nil
	}
	for _, pk := range pks {
		raw, ok := r.fields[pk]
		if !ok {
			return fmt.Err(ErrMissingKey, r.table.QualifiedName(), pk)
		}
		fd := r.table.Field(pk)
		ph, binds, err := fd.Bound(raw)
		if err != nil {
			return err
		}
		upd.Where(fd.Name()+" = "+ph, binds...)
	}
	stmt, err := r.conn.Prepare(upd.Output())
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.Execute(upd.Bindings()); err != nil {
		return err
	}
	r.status = Loaded
	return nil
}

// Delete removes the row keyed on all primary-key values and returns the
// record to NotLoaded. Only acts on a loaded record of a table with a
// primary key; otherwise it is an idempotent no-op.
func (r *Record) Delete() error {
	if r.status != Loaded {
		return nil
	}
	pks := r.table.PrimaryKeys()
	if len(pks) == 0 {
		return nil
	}
	del := r.table.Builder().Delete().From(r.table.QualifiedName())
	for _, pk := range pks {
		raw, ok := r.fields[pk]
		if !ok {
			return fmt.Err(ErrMissingKey, r.table.QualifiedName(), pk)
		}
		fd := r.table.Field(pk)
		ph, binds, err := fd.Bound(raw)
		if err != nil {
			return err
		}
		del.Where(fd.Name()+" = "+ph, binds...)
	}
	stmt, err := r.conn.Prepare(del.Output())
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err := stmt.Execute(del.Bindings()); err != nil {
		return err
	}
	r.status = NotLoaded
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	out := make(map[string]any, len(r.fields))
	for name := range r.fields {
		out[name] = r.Get(name)
	}
	return json.Marshal(out)
}

package record

import (
	"slices"
	"strings"

	"github.com/tinywasm/fmt"
)

// RecordSet represents a homogeneous, CRUD-capable collection of records
// of one table. Every fetched row clones the sample record, so all items
// share its table, connection and coercion policy. WITH, UNION and raw
// statements are rejected: their rows need not match the sample's shape.
type RecordSet struct {
	Collection
	sample *Record
}

// NewRecordSet creates a record collection seeded from a sample record.
// The sample is a template only; it never becomes a member unless
// explicitly Add()-ed. The SELECT starts out scoped to the sample's table.
func NewRecordSet(sample *Record) *RecordSet {
	s := &RecordSet{sample: sample}
	s.conn = sample.Connection()
	s.builder = sample.Table().Builder()
	s.items = make(map[int]Item)
	s.restricted = true
	s.factory = func() Item { return sample.Clone() }
	s.Select().From(sample.Table().QualifiedName())
	return s
}

// Sample returns the prototype record.
func (s *RecordSet) Sample() *Record { return s.sample }

// Add appends a record, provided it maps the same table as the sample.
// A mismatch fails with ErrItemMismatch.
func (s *RecordSet) Add(r *Record) error {
	if r == nil || r.Table() != s.sample.Table() {
		return fmt.Err(ErrItemMismatch, s.sample.Table().QualifiedName())
	}
	s.append(r)
	return nil
}

// Record returns the record at index, nil when absent or removed.
func (s *RecordSet) Record(index int) *Record {
	r, _ := s.Get(index).(*Record)
	return r
}

// AddFilter appends a WHERE condition. Conditions accumulate
// conjunctively; they stack, never replace.
func (s *RecordSet) AddFilter(cond string, bindings ...any) *RecordSet {
	s.Select().Where(cond, bindings...)
	return s
}

// AddValueInFilter appends a field IN (...) condition with one bound
// parameter per value. An empty value list matches nothing.
func (s *RecordSet) AddValueInFilter(field string, values ...any) *RecordSet {
	if len(values) == 0 {
		s.Select().Where("1 = 0")
		return s
	}
	fd := s.sample.Table().Field(field)
	phs := make([]string, 0, len(values))
	var binds []any
	for _, v := range values {
		if fd != nil {
			ph, bs, err := fd.Bound(v)
			if err == nil {
				phs = append(phs, ph)
				binds = append(binds, bs...)
				continue
			}
		}
		phs = append(phs, "?")
		binds = append(binds, v)
	}
	s.Select().Where(field+" IN ("+strings.Join(phs, ", ")+")", binds...)
	return s
}

// AddValueInSQL appends a field IN (subquery) condition with the
// subquery given as a raw SQL fragment.
func (s *RecordSet) AddValueInSQL(field, subquery string, bindings ...any) *RecordSet {
	s.Select().Where(field+" IN ("+subquery+")", bindings...)
	return s
}

// ClearFilter resets all accumulated conditions and their bound
// parameters.
func (s *RecordSet) ClearFilter() { s.Select().ClearWhere() }

// AddOrder appends an ORDER BY term; the first call sets the primary sort
// key. Direction defaults to ascending.
func (s *RecordSet) AddOrder(field string, dir ...string) *RecordSet {
	d := "ASC"
	if len(dir) > 0 && dir[0] != "" {
		d = dir[0]
	}
	s.Select().OrderBy(field, d)
	return s
}

// ClearOrder resets all accumulated ORDER BY terms.
func (s *RecordSet) ClearOrder() { s.Select().ClearOrder() }

// SetLimit caps the number of fetched rows.
func (s *RecordSet) SetLimit(n int) { s.Select().Limit(n) }

// SetOffset skips the first n rows.
func (s *RecordSet) SetOffset(n int) { s.Select().Offset(n) }

// GetPk returns the first record whose primary key equals value, nil
// when absent or when the table declares no primary key.
func (s *RecordSet) GetPk(value any) *Record {
	pks := s.sample.Table().PrimaryKeys()
	if len(pks) == 0 {
		return nil
	}
	want := value
	if fd := s.sample.Table().Field(pks[0]); fd != nil {
		if v, err := fd.Program(value); err == nil {
			want = v
		}
	}
	for _, idx := range s.order {
		r, ok := s.items[idx].(*Record)
		if !ok {
			continue
		}
		if equalValues(r.Get(pks[0]), want) {
			return r
		}
	}
	return nil
}

// PkValues projects the primary-key value of every record, in order.
// Empty when the table declares no primary key.
func (s *RecordSet) PkValues() []any {
	pks := s.sample.Table().PrimaryKeys()
	if len(pks) == 0 {
		return nil
	}
	return s.FieldValues(pks[0])
}

// Delete removes the record at index from the collection and issues its
// DELETE against the store.
func (s *RecordSet) Delete(index int) error {
	r := s.Record(index)
	if r == nil {
		return nil
	}
	if err := r.Delete(); err != nil {
		return err
	}
	s.Remove(index)
	return nil
}

// DeleteAll deletes every record and empties the collection. When useTx
// is set and the connection is not already inside a transaction, the
// deletes are bracketed by one transaction; a mid-loop failure propagates
// with the transaction left open for the caller to settle.
func (s *RecordSet) DeleteAll(useTx bool) error {
	useTx, err := s.begin(useTx)
	if err != nil {
		return err
	}
	for _, idx := range slices.Clone(s.order) {
		// The promoted Collection.Add bypasses the Record guard, so items
		// of other shapes may be present; they have no row to delete.
		if r, ok := s.items[idx].(*Record); ok {
			if err := r.Delete(); err != nil {
				return err
			}
		}
		s.Remove(idx)
	}
	if useTx {
		return s.conn.Commit()
	}
	return nil
}

// Save saves every record, with the same transaction discipline as
// DeleteAll.
func (s *RecordSet) Save(useTx bool) error {
	useTx, err := s.begin(useTx)
	if err != nil {
		return err
	}
	for _, idx := range s.order {
		r, ok := s.items[idx].(*Record)
		if !ok {
			continue
		}
		if err := r.Save(); err != nil {
			return err
		}
	}
	if useTx {
		return s.conn.Commit()
	}
	return nil
}

// begin flattens nested transactions: inside an outer transaction the
// flag is force-disabled and the loop joins it.
func (s *RecordSet) begin(useTx bool) (bool, error) {
	if s.conn.InTransaction() {
		return false, nil
	}
	if !useTx {
		return false, nil
	}
	return true, s.conn.BeginTransaction()
}

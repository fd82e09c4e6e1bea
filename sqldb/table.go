package sqldb

import (
	"github.com/tinywasm/record"
)

// Table implements record.Table from a static field list. One Table value
// is shared by every record and record set mapped to it.
type Table struct {
	name      string
	fields    map[string]*fieldDesc
	pks       []string
	builder   *Builder
	returning bool
}

// NewTable builds table metadata. Primary keys are the fields carrying
// ConstraintPK, in declaration order. RETURNING is assumed available —
// both sqlite and postgres support it — and can be switched off for
// dialects that do not.
func NewTable(name string, builder *Builder, fields ...record.Field) *Table {
	t := &Table{
		name:      name,
		fields:    make(map[string]*fieldDesc, len(fields)),
		builder:   builder,
		returning: true,
	}
	for _, f := range fields {
		t.fields[f.Name] = &fieldDesc{f: f}
		if f.Constraints&record.ConstraintPK != 0 {
			t.pks = append(t.pks, f.Name)
		}
	}
	return t
}

// SetReturning overrides the RETURNING capability flag.
func (t *Table) SetReturning(v bool) { t.returning = v }

func (t *Table) QualifiedName() string { return t.name }

func (t *Table) FieldExists(name string) bool {
	_, ok := t.fields[name]
	return ok
}

func (t *Table) Field(name string) record.FieldDescriptor {
	fd, ok := t.fields[name]
	if !ok {
		return nil
	}
	return fd
}

func (t *Table) PrimaryKeys() []string { return t.pks }

func (t *Table) Builder() record.Builder { return t.builder }

func (t *Table) Returning() bool { return t.returning }

// fieldDesc coerces values per the field's abstract type. Bound always
// emits a '?' placeholder; style-specific renumbering happens in the
// builder at Output time.
type fieldDesc struct {
	f record.Field
}

func (d *fieldDesc) Name() string { return d.f.Name }

func (d *fieldDesc) Program(raw any) (any, error) {
	return coerce(d.f.Type, raw)
}

func (d *fieldDesc) Bound(value any) (string, []any, error) {
	v, err := coerce(d.f.Type, value)
	if err != nil {
		return "", nil, err
	}
	return "?", []any{v}, nil
}

package record

import (
	"encoding/json"
	"slices"
)

// Item represents one row-shaped member of a Collection.
// Both *Record and *DynamicItem implement it.
type Item interface {
	Get(field string) any
	Set(field string, value any) error
	Fields() []string
}

// DynamicItem is the default collection item: an untyped bag of columns
// with no table metadata and no coercion.
type DynamicItem struct {
	fields map[string]any
}

// NewItem creates a new empty DynamicItem.
func NewItem() *DynamicItem {
	return &DynamicItem{fields: make(map[string]any)}
}

// Get returns the value of a column, or nil when it was never set.
func (d *DynamicItem) Get(field string) any {
	return d.fields[field]
}

// Set stores a column value. It never fails.
func (d *DynamicItem) Set(field string, value any) error {
	d.fields[field] = value
	return nil
}

// Fields returns the set column names, sorted.
func (d *DynamicItem) Fields() []string {
	names := make([]string, 0, len(d.fields))
	for name := range d.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns the number of set columns.
func (d *DynamicItem) Count() int {
	return len(d.fields)
}

// Clear removes all columns.
func (d *DynamicItem) Clear() {
	d.fields = make(map[string]any)
}

// MarshalJSON implements the json.Marshaler interface.
func (d *DynamicItem) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.fields)
}

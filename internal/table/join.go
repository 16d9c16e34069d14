package table

import "errors"

// ErrNotIndexed is returned when an Index was not built by NewIndex.
var ErrNotIndexed = errors.New("table: index was not built by NewIndex")

// Index is a set of rows keyed by the stringified value of one field, kept in
// insertion order for O(1) lookups.
type Index struct {
	field   string
	entries *OrderedMap[string, Row]
}

// NewIndex indexes rows by field. When several rows share a key the last one
// is kept, at the position of the first.
func NewIndex(rows []Row, field string) *Index {
	entries := NewOrderedMap[string, Row](len(rows))
	for _, row := range rows {
		entries.Set(KeyString(row[field]), row)
	}
	return &Index{field: field, entries: entries}
}

// Field returns the indexed field name.
func (ix *Index) Field() string {
	if ix == nil {
		return ""
	}
	return ix.field
}

// Lookup returns the row stored under the key value v.
func (ix *Index) Lookup(v any) (Row, bool) {
	if ix == nil || ix.entries == nil {
		return nil, false
	}
	return ix.entries.Get(KeyString(v))
}

// Len returns the number of distinct keys.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.entries.Len()
}

// Rows converts the index back to a sequence in insertion order.
func (ix *Index) Rows() ([]Row, error) {
	if ix == nil || ix.entries == nil {
		return nil, ErrNotIndexed
	}
	return ix.entries.Values(), nil
}

// Mapping copies column From of a source row into column To of the matching
// destination row.
type Mapping struct {
	From string
	To   string
}

// Join copies the mapped columns of every from row into the dest row sharing
// its joinField value. from rows without a match are dropped, dest order is
// preserved and no rows are added. dest rows are modified in place.
func Join(dest, from []Row, joinField string, mapping []Mapping) []Row {
	ix := NewIndex(dest, joinField)
	for _, row := range from {
		record, ok := ix.Lookup(row[joinField])
		if !ok {
			continue
		}
		for _, m := range mapping {
			record[m.To] = row[m.From]
		}
	}
	rows, _ := ix.Rows()
	return rows
}

// MappedColumns returns the destination column names of mapping, in order.
func MappedColumns(mapping []Mapping) []string {
	out := make([]string, len(mapping))
	for i, m := range mapping {
		out[i] = m.To
	}
	return out
}

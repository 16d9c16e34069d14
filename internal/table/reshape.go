package table

import (
	"slices"
	"time"
)

// Group is the set of rows that share one index value.
type Group struct {
	Key  any
	Rows []Row
}

// GroupBy groups rows by the value of field. Groups iterate in the order their
// key was first seen and are keyed by [KeyString] of the field value.
func GroupBy(rows []Row, field string) *OrderedMap[string, *Group] {
	groups := NewOrderedMap[string, *Group](0)
	for _, row := range rows {
		v := row[field]
		k := KeyString(v)
		g, ok := groups.Get(k)
		if !ok {
			g = &Group{Key: v}
			groups.Set(k, g)
		}
		g.Rows = append(g.Rows, row)
	}
	return groups
}

// Pivot turns each group into one wide record. Every row in a group
// contributes a field named after its categoryField value holding its
// valueField value; the record also carries indexField set to the group key.
// Later rows with the same category overwrite earlier ones, and indexField
// wins over a category of the same name. Records follow group order.
func Pivot(groups *OrderedMap[string, *Group], categoryField, valueField, indexField string) []Row {
	out := make([]Row, 0, groups.Len())
	groups.Each(func(_ string, g *Group) {
		record := make(Row, len(g.Rows)+1)
		for _, row := range g.Rows {
			category, ok := row.String(categoryField)
			if !ok {
				continue
			}
			record[category] = row[valueField]
		}
		record[indexField] = g.Key
		out = append(out, record)
	})
	return out
}

// Union concatenates the sequences, dropping repeats and keeping the first
// occurrence of each value.
func Union[T comparable](seqs ...[]T) []T {
	seen := make(map[T]struct{})
	var out []T
	for _, seq := range seqs {
		for _, v := range seq {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// MonthIndex returns the position of a full English month name in calendar
// order (January = 0), or -1 if name is not a month.
func MonthIndex(name string) int {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return int(m) - 1
		}
	}
	return -1
}

// SortByMonth stably sorts rows by the month name stored in field, January
// first. Rows without a recognizable month sort last.
func SortByMonth(rows []Row, field string) {
	rank := func(r Row) int {
		name, _ := r.String(field)
		if i := MonthIndex(name); i >= 0 {
			return i
		}
		return 12
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		return rank(a) - rank(b)
	})
}

// Nullify sets field to nil in every row where it equals sentinel. Numeric
// values compare by value, so an int32 -9999 matches a sentinel of -9999.
func Nullify(rows []Row, field string, sentinel float64) []Row {
	for _, row := range rows {
		if v, ok := toFloat(row[field]); ok && v == sentinel {
			row[field] = nil
		}
	}
	return rows
}

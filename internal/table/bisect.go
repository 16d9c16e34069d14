package table

import (
	"cmp"
	"sort"
	"time"
)

// Comparator orders an item against a boundary value: negative when the item
// sorts before the boundary, zero when equal, positive when after.
type Comparator[T, B any] func(item T, boundary B) int

// Numeric is the default comparator for ordered numeric or string keys.
func Numeric[N cmp.Ordered](item, boundary N) int {
	return cmp.Compare(item, boundary)
}

// ByTime builds a comparator that orders items by the timestamp key returns.
func ByTime[T any](key func(T) time.Time) Comparator[T, time.Time] {
	return func(item T, boundary time.Time) int {
		return key(item).Compare(boundary)
	}
}

// BisectIndex returns the partition point: the smallest index i such that
// compare(items[i], boundary) >= 0, or len(items) if there is none. items must
// be sorted ascending by the comparator key.
func BisectIndex[T, B any](items []T, boundary B, compare Comparator[T, B]) int {
	return sort.Search(len(items), func(i int) bool {
		return compare(items[i], boundary) >= 0
	})
}

// BisectLeft returns the prefix of items that sort strictly before boundary.
func BisectLeft[T, B any](items []T, boundary B, compare Comparator[T, B]) []T {
	return items[:BisectIndex(items, boundary, compare)]
}

// BisectRight returns the suffix of items at or after boundary.
func BisectRight[T, B any](items []T, boundary B, compare Comparator[T, B]) []T {
	return items[BisectIndex(items, boundary, compare):]
}

// Window returns the items whose key lies in the closed interval
// [start, end], in their original order. The result shares the backing array
// of items.
func Window[T, B any](items []T, start, end B, compare Comparator[T, B]) []T {
	lo := BisectIndex(items, start, compare)
	hi := sort.Search(len(items), func(i int) bool {
		return compare(items[i], end) > 0
	})
	if hi < lo {
		return items[:0]
	}
	return items[lo:hi]
}

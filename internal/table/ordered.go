package table

// OrderedMap is a map that iterates in key insertion order. Setting an
// existing key replaces its value and keeps its original position.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// NewOrderedMap returns an empty map with room for size entries.
func NewOrderedMap[K comparable, V any](size int) *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		keys:   make([]K, 0, size),
		values: make(map[K]V, size),
	}
}

// Set stores v under k.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the value stored under k.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Len returns the number of keys.
func (m *OrderedMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns the values in key insertion order.
func (m *OrderedMap[K, V]) Values() []V {
	if m == nil {
		return nil
	}
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// Each calls fn for every entry in insertion order.
func (m *OrderedMap[K, V]) Each(fn func(k K, v V)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

package table

import (
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// Row maps column names to scalar values: string, bool, integer and float
// kinds, time.Time, []any (a LIST column) or nil.
type Row map[string]any

// Result is the normalized shape returned by every query. Columns is display
// order; Rows is output order.
type Result struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of rows.
func (r Result) Len() int { return len(r.Rows) }

// String returns the column value as a string. Non-string scalars are
// formatted; nil and missing columns report false.
func (r Row) String(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Float returns a numeric column value as float64.
func (r Row) Float(col string) (float64, bool) {
	return toFloat(r[col])
}

// Int returns a numeric column value as int64. Floats are truncated.
func (r Row) Int(col string) (int64, bool) {
	switch v := r[col].(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case *big.Int:
		if v != nil && v.IsInt64() {
			return v.Int64(), true
		}
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	f, ok := toFloat(r[col])
	return int64(f), ok
}

// Bool returns a boolean column value.
func (r Row) Bool(col string) (bool, bool) {
	switch v := r[col].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	return false, false
}

// Time returns a date or timestamp column value. Strings are parsed as
// YYYY-MM-DD or RFC 3339.
func (r Row) Time(col string) (time.Time, bool) {
	switch v := r[col].(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.DateOnly, v); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Floats returns a LIST column as float64 values. Null elements are skipped.
func (r Row) Floats(col string) ([]float64, bool) {
	var items []any
	switch v := r[col].(type) {
	case []any:
		items = v
	case []float64:
		return v, true
	default:
		return nil, false
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		if f, ok := toFloat(item); ok {
			out = append(out, f)
		}
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case *big.Int:
		if n == nil {
			return 0, false
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// nilKey is the key of a missing value. It cannot collide with a string key
// produced from a real column value.
const nilKey = "\x00nil"

// KeyString stringifies a join or group key so that equal dates and numbers
// produce the same lookup key regardless of their Go type. nil and the empty
// string map to different keys.
func KeyString(v any) string {
	switch k := v.(type) {
	case nil:
		return nilKey
	case string:
		return k
	case time.Time:
		return k.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return k.String()
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

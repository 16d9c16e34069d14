package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rainMapping = []Mapping{{From: "total", To: "rainfall"}}

func TestJoin_LeftJoinScenario(t *testing.T) {
	dest := []Row{
		{"date": "2020-01", "average": 5},
		{"date": "2020-02", "average": 7},
	}
	from := []Row{
		{"date": "2020-01", "total": 12},
	}

	got := Join(dest, from, "date", rainMapping)

	require.Len(t, got, 2)
	assert.Equal(t, Row{"date": "2020-01", "average": 5, "rainfall": 12}, got[0])
	assert.Equal(t, Row{"date": "2020-02", "average": 7}, got[1])
}

func TestJoin_DropsUnmatchedAndNeverGrows(t *testing.T) {
	dest := []Row{{"id": 1}, {"id": 2}, {"id": 3}}
	from := []Row{{"id": 3, "total": 30}, {"id": 9, "total": 90}, {"id": 1, "total": 10}}

	got := Join(dest, from, "id", rainMapping)

	require.Len(t, got, 3)
	assert.Equal(t, 10, got[0]["rainfall"])
	assert.NotContains(t, got[1], "rainfall")
	assert.Equal(t, 30, got[2]["rainfall"])
}

func TestJoin_MultipleMappings(t *testing.T) {
	month := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	dest := []Row{{"date": month, "average": 181.5, "values": []any{int32(180), int32(183)}}}
	from := []Row{{"date": month, "total": int64(44), "values": []any{int32(0), int32(44)}}}

	got := Join(dest, from, "date", []Mapping{
		{From: "total", To: "rainfall"},
		{From: "values", To: "rainValues"},
	})

	require.Len(t, got, 1)
	assert.Equal(t, int64(44), got[0]["rainfall"])
	assert.Equal(t, []any{int32(0), int32(44)}, got[0]["rainValues"])
	assert.Equal(t, []any{int32(180), int32(183)}, got[0]["values"])
}

func TestJoin_KeysMatchAcrossNumericTypes(t *testing.T) {
	dest := []Row{{"month": int32(4)}}
	from := []Row{{"month": int64(4), "total": 1}}

	got := Join(dest, from, "month", rainMapping)
	assert.Equal(t, 1, got[0]["rainfall"])
}

func TestJoin_DuplicateDestKeysKeepLast(t *testing.T) {
	dest := []Row{
		{"id": "a", "n": 1},
		{"id": "b", "n": 2},
		{"id": "a", "n": 3},
	}
	got := Join(dest, nil, "id", rainMapping)

	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0]["n"])
	assert.Equal(t, 2, got[1]["n"])
}

func TestIndex_RoundTripsOrder(t *testing.T) {
	rows := []Row{{"id": "z"}, {"id": "a"}, {"id": "m"}}
	ix := NewIndex(rows, "id")

	got, err := ix.Rows()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, "id", ix.Field())
	assert.Equal(t, 3, ix.Len())

	r, ok := ix.Lookup("m")
	require.True(t, ok)
	assert.Equal(t, "m", r["id"])
}

func TestIndex_NotIndexed(t *testing.T) {
	var zero Index
	_, err := zero.Rows()
	require.ErrorIs(t, err, ErrNotIndexed)

	var nilIndex *Index
	_, err = nilIndex.Rows()
	require.ErrorIs(t, err, ErrNotIndexed)

	_, ok := zero.Lookup("x")
	assert.False(t, ok)
}

func TestIndex_KeyColumnNamedKeys(t *testing.T) {
	rows := []Row{{"keys": "k1", "v": 1}, {"keys": "k2", "v": 2}}
	got, err := NewIndex(rows, "keys").Rows()
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestMappedColumns(t *testing.T) {
	assert.Equal(t, []string{"rainfall", "rainValues"}, MappedColumns([]Mapping{
		{From: "total", To: "rainfall"},
		{From: "values", To: "rainValues"},
	}))
}

func TestJoin_NilKeyDoesNotMatchEmptyString(t *testing.T) {
	dest := []Row{{"id": "", "name": "blank"}, {"id": nil, "name": "missing"}}
	from := []Row{{"id": "", "elev": 10}}

	got := Join(dest, from, "id", []Mapping{{From: "elev", To: "elevation"}})
	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0]["elevation"])
	assert.NotContains(t, got[1], "elevation")

	ix := NewIndex(dest, "id")
	assert.Equal(t, 2, ix.Len())
	row, ok := ix.Lookup(nil)
	require.True(t, ok)
	assert.Equal(t, "missing", row["name"])
}

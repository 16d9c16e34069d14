// Package parquetfile writes weather and station data as Parquet and inspects
// Parquet files before they are loaded into the database.
package parquetfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/couchcryptid/weather-explorer/internal/weather"
)

// WeatherColumns are the columns every weather file must carry.
var WeatherColumns = []string{"id", "year", "month", "day", "date", "element", "value"}

// StationColumns are the columns every stations file must carry.
var StationColumns = []string{"id", "lat", "lon", "elevation", "state", "name", "gsn", "hcn", "crn", "wmo", "sampled"}

var weatherSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String},
	{Name: "year", Type: arrow.PrimitiveTypes.Int64},
	{Name: "month", Type: arrow.PrimitiveTypes.Int64},
	{Name: "day", Type: arrow.PrimitiveTypes.Int64},
	{Name: "date", Type: arrow.FixedWidthTypes.Date32},
	{Name: "element", Type: arrow.BinaryTypes.String},
	{Name: "value", Type: arrow.PrimitiveTypes.Int64},
}, nil)

var stationSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.BinaryTypes.String},
	{Name: "lat", Type: arrow.PrimitiveTypes.Float64},
	{Name: "lon", Type: arrow.PrimitiveTypes.Float64},
	{Name: "elevation", Type: arrow.PrimitiveTypes.Float64},
	{Name: "state", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "gsn", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "hcn", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "crn", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "wmo", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	{Name: "sampled", Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// WriteObservations writes obs as one Parquet row group. Calendar fields and
// values are INT64, as in the upstream NOAA extract.
func WriteObservations(w io.Writer, obs []weather.Observation) error {
	b := array.NewRecordBuilder(memory.DefaultAllocator, weatherSchema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	years := b.Field(1).(*array.Int64Builder)
	months := b.Field(2).(*array.Int64Builder)
	days := b.Field(3).(*array.Int64Builder)
	dates := b.Field(4).(*array.Date32Builder)
	elements := b.Field(5).(*array.StringBuilder)
	values := b.Field(6).(*array.Int64Builder)

	for _, o := range obs {
		ids.Append(o.ID)
		years.Append(int64(o.Year))
		months.Append(int64(o.Month))
		days.Append(int64(o.Day))
		dates.Append(arrow.Date32FromTime(o.Date))
		elements.Append(o.Element)
		values.Append(int64(o.Value))
	}
	return writeRecord(w, weatherSchema, b)
}

// WriteStations writes stations as one Parquet row group. An empty state and
// a zero WMO number are written as null.
func WriteStations(w io.Writer, stations []weather.Station) error {
	b := array.NewRecordBuilder(memory.DefaultAllocator, stationSchema)
	defer b.Release()

	ids := b.Field(0).(*array.StringBuilder)
	lats := b.Field(1).(*array.Float64Builder)
	lons := b.Field(2).(*array.Float64Builder)
	elevations := b.Field(3).(*array.Float64Builder)
	states := b.Field(4).(*array.StringBuilder)
	names := b.Field(5).(*array.StringBuilder)
	gsn := b.Field(6).(*array.BooleanBuilder)
	hcn := b.Field(7).(*array.BooleanBuilder)
	crn := b.Field(8).(*array.BooleanBuilder)
	wmo := b.Field(9).(*array.Int64Builder)
	sampled := b.Field(10).(*array.BooleanBuilder)

	for _, s := range stations {
		ids.Append(s.ID)
		lats.Append(s.Lat)
		lons.Append(s.Lon)
		elevations.Append(s.Elevation)
		if s.State == "" {
			states.AppendNull()
		} else {
			states.Append(s.State)
		}
		names.Append(s.Name)
		gsn.Append(s.GSN)
		hcn.Append(s.HCN)
		crn.Append(s.CRN)
		if s.WMO == 0 {
			wmo.AppendNull()
		} else {
			wmo.Append(s.WMO)
		}
		sampled.Append(s.Sampled)
	}
	return writeRecord(w, stationSchema, b)
}

// noClose hides Close from the parquet writer so the caller keeps ownership
// of w.
type noClose struct{ io.Writer }

func writeRecord(w io.Writer, schema *arrow.Schema, b *array.RecordBuilder) error {
	rec := b.NewRecord()
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(schema, noClose{w}, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close() //nolint:errcheck // the write error is what matters
		return fmt.Errorf("write parquet record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck // the write error is what matters
		return err
	}
	return f.Close()
}

// Info summarizes a Parquet file.
type Info struct {
	Columns []string
	Rows    int64
}

// Inspect reads the footer of the Parquet file at path.
func Inspect(path string) (Info, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return Info{}, fmt.Errorf("open parquet %s: %w", path, err)
	}
	defer rdr.Close()

	schema := rdr.MetaData().Schema
	cols := make([]string, schema.NumColumns())
	for i := range cols {
		cols[i] = schema.Column(i).Name()
	}
	return Info{Columns: cols, Rows: rdr.NumRows()}, nil
}

// ReadSchema returns the column names of the Parquet file at path.
func ReadSchema(path string) ([]string, error) {
	info, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	return info.Columns, nil
}

// ErrMissingColumns is wrapped by RequireColumns failures.
var ErrMissingColumns = errors.New("missing columns")

// RequireColumns fails with an error naming every column of cols that the
// file at path does not have.
func RequireColumns(path string, cols ...string) error {
	have, err := ReadSchema(path)
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	var missing []string
	for _, c := range cols {
		if _, ok := set[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: %w: %s", path, ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

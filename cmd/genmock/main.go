// Command genmock writes deterministic mock weather and stations Parquet files
// for local development and tests, plus an optional JSON-lines file of raw
// observation messages for the ingest topic.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/mock \
//	  -start 2022-01-01 -days 730 \
//	  -jsonl data/mock/observations.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/parquetfile"
	"github.com/couchcryptid/weather-explorer/internal/weather"
)

// mockStations are real GSN stations; the last one has no sampled data.
var mockStations = []weather.Station{
	{ID: "USW00094728", Lat: 40.7789, Lon: -73.9692, Elevation: 39.6, State: "NY", Name: "NEW YORK CNTRL PK TWR", GSN: true, HCN: true, WMO: 72506, Sampled: true},
	{ID: "USW00023174", Lat: 33.9382, Lon: -118.3866, Elevation: 29.6, State: "CA", Name: "LOS ANGELES INTL AP", GSN: true, WMO: 72295, Sampled: true},
	{ID: "ASN00066062", Lat: -33.8607, Lon: 151.2050, Elevation: 39.0, Name: "SYDNEY (OBSERVATORY HILL)", GSN: true, WMO: 94768, Sampled: true},
	{ID: "USW00014739", Lat: 42.3606, Lon: -71.0097, Elevation: 3.7, State: "MA", Name: "BOSTON LOGAN INTL AP", GSN: true, WMO: 72509},
}

// climate holds the parameters of a station's synthetic daily series, in
// tenths of a degree and tenths of a millimetre.
type climate struct {
	meanTemp  float64
	amplitude float64
	peakDay   int
	rainProb  float64
	rainMean  float64
}

var climates = map[string]climate{
	"USW00094728": {meanTemp: 130, amplitude: 110, peakDay: 200, rainProb: 0.33, rainMean: 95},
	"USW00023174": {meanTemp: 180, amplitude: 40, peakDay: 225, rainProb: 0.09, rainMean: 110},
	"ASN00066062": {meanTemp: 185, amplitude: 50, peakDay: 20, rainProb: 0.35, rainMean: 85},
}

// options controls the generated range.
type options struct {
	start       time.Time
	days        int
	seed        uint64
	missingRate float64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory for weather and stations Parquet files")
	weatherFile := flag.String("weather-file", "noaa-sample.parquet", "weather file name")
	stationsFile := flag.String("stations-file", "noaa-gsn-stations.parquet", "stations file name")
	jsonlOut := flag.String("jsonl", "", "optional output path for raw observation messages")
	startFlag := flag.String("start", "2022-01-01", "first observation date, YYYY-MM-DD")
	days := flag.Int("days", 730, "number of days per station")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	start, err := time.Parse(time.DateOnly, *startFlag)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	opts := options{start: start, days: *days, seed: *seed, missingRate: 0.01}
	obs := generate(mockStations, opts)
	log.Printf("generated %d observations for %d stations", len(obs), len(mockStations))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	weatherPath := filepath.Join(*outDir, *weatherFile)
	if err := parquetfile.WriteFile(weatherPath, func(w io.Writer) error {
		return parquetfile.WriteObservations(w, obs)
	}); err != nil {
		return fmt.Errorf("writing weather file: %w", err)
	}
	log.Printf("wrote %s", weatherPath)

	stationsPath := filepath.Join(*outDir, *stationsFile)
	if err := parquetfile.WriteFile(stationsPath, func(w io.Writer) error {
		return parquetfile.WriteStations(w, mockStations)
	}); err != nil {
		return fmt.Errorf("writing stations file: %w", err)
	}
	log.Printf("wrote %s", stationsPath)

	if *jsonlOut != "" {
		if err := writeJSONL(*jsonlOut, obs); err != nil {
			return fmt.Errorf("writing messages: %w", err)
		}
		log.Printf("wrote %s", *jsonlOut)
	}

	printStats(obs)
	return nil
}

// generate returns TMIN, TAVG, TMAX and PRCP observations for every sampled
// station and day, ordered by station then date. The same options always
// produce the same observations.
func generate(stations []weather.Station, opts options) []weather.Observation {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	var obs []weather.Observation //nolint:prealloc // depends on sampled stations

	for _, st := range stations {
		c, ok := climates[st.ID]
		if !ok || !st.Sampled {
			continue
		}
		for i := range opts.days {
			date := opts.start.AddDate(0, 0, i)
			season := math.Cos(2 * math.Pi * float64(date.YearDay()-c.peakDay) / 365.25)
			tavg := c.meanTemp + c.amplitude*season + rng.NormFloat64()*25
			spread := 40 + rng.Float64()*40

			prcp := 0.0
			if rng.Float64() < c.rainProb {
				prcp = rng.ExpFloat64() * c.rainMean
			}

			values := []struct {
				element string
				value   float64
			}{
				{weather.ElementTMIN, tavg - spread},
				{weather.ElementTAVG, tavg},
				{weather.ElementTMAX, tavg + spread},
				{weather.ElementPRCP, prcp},
			}
			for _, v := range values {
				value := int(math.Round(v.value))
				if rng.Float64() < opts.missingRate {
					value = weather.MissingValue
				}
				obs = append(obs, weather.Observation{
					ID:      st.ID,
					Year:    date.Year(),
					Month:   int(date.Month()),
					Day:     date.Day(),
					Date:    date,
					Element: v.element,
					Value:   value,
				})
			}
		}
	}
	return obs
}

func writeJSONL(path string, obs []weather.Observation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, o := range obs {
		value := o.Value
		if err := enc.Encode(weather.RawObservation{
			ID:      o.ID,
			Date:    o.Date.Format(time.DateOnly),
			Element: o.Element,
			Value:   &value,
		}); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func printStats(obs []weather.Observation) {
	counts := map[string]int{}
	missing := 0
	for _, o := range obs {
		counts[o.Element]++
		if o.Missing() {
			missing++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(obs))
	fmt.Printf("By element: TMIN=%d, TAVG=%d, TMAX=%d, PRCP=%d\n",
		counts[weather.ElementTMIN], counts[weather.ElementTAVG],
		counts[weather.ElementTMAX], counts[weather.ElementPRCP])
	fmt.Printf("Missing values: %d\n", missing)
}

// Package weather models NOAA Global Historical Climatology Network daily
// (GHCN-Daily) station and observation data.
//
// # Data Source
//
// Two Parquet files are loaded into the analytical database at startup:
// station metadata for the GCOS Surface Network (GSN) and a sample of daily
// observations for a subset of those stations. Stations with observations in
// the sample carry sampled = true.
//
// # GHCN Conventions
//
// Elements:
//
//	TMAX  maximum temperature, tenths of °C
//	TMIN  minimum temperature, tenths of °C
//	TAVG  average temperature, tenths of °C
//	PRCP  precipitation, tenths of mm
//
// Missing values:
//
//	-9999 is the GHCN sentinel for a missing observation. Queries exclude it
//	from aggregates; raw series replace it with null before charting.
//
// Station flags:
//
//	gsn  GCOS Surface Network member
//	hcn  US Historical Climatology Network member
//	crn  US Climate Reference Network member
//	wmo  World Meteorological Organization station number (0 when unassigned)
//
// # Records
//
// Each canned query has an explicit record type ([Station], [MonthlyAverage],
// [DailyWeather], [MonthlyNormal], [MonthlyDetail]) decoded from the generic
// {columns, rows} result. Decoding fails when a projected column is missing, so
// a renamed SQL alias surfaces as an error rather than a silently empty chart.
package weather

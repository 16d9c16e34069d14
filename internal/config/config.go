package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Data files and the embedded database.
	DataBaseURL  string
	WeatherFile  string
	StationsFile string
	DataDir      string
	FetchTimeout time.Duration
	DuckDBPath   string

	// Observation ingest from Kafka.
	IngestEnabled      bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaDLQTopic      string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox reverse geocoding of station coordinates.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// DefaultDataBaseURL hosts the NOAA sample and station Parquet files.
const DefaultDataBaseURL = "https://storage.googleapis.com/mlange-files/noaa-cdo/"

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	baseURL := sharedcfg.EnvOrDefault("DATA_BASE_URL", DefaultDataBaseURL)
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataBaseURL:  baseURL,
		WeatherFile:  sharedcfg.EnvOrDefault("WEATHER_FILE", "noaa-sample.parquet"),
		StationsFile: sharedcfg.EnvOrDefault("STATIONS_FILE", "noaa-gsn-stations.parquet"),
		DataDir:      sharedcfg.EnvOrDefault("DATA_DIR", filepath.Join(os.TempDir(), "weather-explorer")),
		FetchTimeout: fetchTimeout,
		DuckDBPath:   os.Getenv("DUCKDB_PATH"),

		IngestEnabled:      os.Getenv("INGEST_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-observations"),
		KafkaDLQTopic:      os.Getenv("KAFKA_DLQ_TOPIC"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "weather-explorer"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.WeatherFile == "" {
		return nil, errors.New("WEATHER_FILE is required")
	}
	if cfg.StationsFile == "" {
		return nil, errors.New("STATIONS_FILE is required")
	}
	if cfg.IngestEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("INGEST_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.IngestEnabled && cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required when INGEST_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

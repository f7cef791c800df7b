// Package config loads application settings from the environment
// (populated from .env in main) and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SinkElasticsearch = "elasticsearch"
	SinkMongo         = "mongo"
)

// Config holds all configuration for the application.
type Config struct {
	SourceDriver string `yaml:"source_driver"`
	SourceDSN    string `yaml:"source_dsn"`

	Sink            string `yaml:"sink"`
	ElasticURL      string `yaml:"es_url"`
	MongoConnString string `yaml:"mongo_connection_string"`
	MongoDatabase   string `yaml:"mongo_database"`

	CheckpointBackend string `yaml:"checkpoint_backend"`
	CheckpointFile    string `yaml:"checkpoint_file"`

	Streams         []string      `yaml:"streams"`
	BatchSize       int           `yaml:"batch_size"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	SinkMaxAttempts int           `yaml:"sink_max_attempts"`
	SinkRateLimit   float64       `yaml:"sink_rate_limit"`

	MetricsAddr string `yaml:"metrics_addr"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		SourceDriver:      "postgres",
		Sink:              SinkElasticsearch,
		ElasticURL:        "http://127.0.0.1:9200",
		MongoDatabase:     "movies",
		CheckpointBackend: "file",
		CheckpointFile:    "state.json",
		Streams:           []string{"movies", "genres", "persons"},
		BatchSize:         100,
		PollInterval:      time.Second,
		SinkMaxAttempts:   10,
		LogLevel:          "info",
	}
}

// LoadConfig starts from Default and applies every variable set in the
// environment. It does not validate; call Validate once all overlays are in.
func LoadConfig() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SOURCE_DRIVER", &c.SourceDriver)
	str("DATABASE_URL", &c.SourceDSN)
	str("SOURCE_DSN", &c.SourceDSN)
	str("SINK", &c.Sink)
	str("ES_URL", &c.ElasticURL)
	str("MONGO_CONNECTION_STRING", &c.MongoConnString)
	str("MONGO_DATABASE", &c.MongoDatabase)
	str("CHECKPOINT_BACKEND", &c.CheckpointBackend)
	str("CHECKPOINT_FILE", &c.CheckpointFile)
	str("METRICS_ADDR", &c.MetricsAddr)
	str("LOG_FILE", &c.LogFile)
	str("LOG_LEVEL", &c.LogLevel)

	if c.SourceDSN == "" && (c.SourceDriver == "postgres" || c.SourceDriver == "pgx") {
		c.SourceDSN = postgresDSNFromParts(lookup)
	}

	if v, ok := lookup("STREAMS"); ok && v != "" {
		c.Streams = splitList(v)
	}

	var errs []error
	if v, ok := lookup("BATCH_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BATCH_SIZE: %w", err))
		}
		c.BatchSize = n
	}
	if v, ok := lookup("POLL_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("POLL_INTERVAL: %w", err))
		}
		c.PollInterval = d
	}
	if v, ok := lookup("SINK_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SINK_MAX_ATTEMPTS: %w", err))
		}
		c.SinkMaxAttempts = n
	}
	if v, ok := lookup("SINK_RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SINK_RATE_LIMIT: %w", err))
		}
		c.SinkRateLimit = f
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.SourceDriver {
	case "postgres", "pgx", "sqlserver":
	default:
		errs = append(errs, fmt.Errorf("SOURCE_DRIVER must be postgres, pgx or sqlserver, got %q", c.SourceDriver))
	}
	if c.SourceDSN == "" {
		errs = append(errs, errors.New("SOURCE_DSN environment variable not set"))
	}

	switch c.Sink {
	case SinkElasticsearch:
		if c.ElasticURL == "" {
			errs = append(errs, errors.New("ES_URL must be set for the elasticsearch sink"))
		}
	case SinkMongo:
		if c.MongoConnString == "" {
			errs = append(errs, errors.New("MONGO_CONNECTION_STRING environment variable not set"))
		}
		if c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGO_DATABASE must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("SINK must be elasticsearch or mongo, got %q", c.Sink))
	}

	switch c.CheckpointBackend {
	case "file":
		if c.CheckpointFile == "" {
			errs = append(errs, errors.New("CHECKPOINT_FILE must not be empty"))
		}
	case "sql":
	default:
		errs = append(errs, fmt.Errorf("CHECKPOINT_BACKEND must be file or sql, got %q", c.CheckpointBackend))
	}

	if len(c.Streams) == 0 {
		errs = append(errs, errors.New("STREAMS must name at least one stream"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval))
	}
	if c.SinkMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("SINK_MAX_ATTEMPTS must be at least 1, got %d", c.SinkMaxAttempts))
	}
	if c.SinkRateLimit < 0 {
		errs = append(errs, fmt.Errorf("SINK_RATE_LIMIT must not be negative, got %g", c.SinkRateLimit))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// postgresDSNFromParts builds a DSN from the DB_* variables used by older
// deployments. It returns "" when none of them is set.
func postgresDSNFromParts(lookup func(string) (string, bool)) string {
	parts := map[string]string{
		"DB_NAME":     "movies_database",
		"DB_USER":     "app",
		"DB_PASSWORD": "",
		"DB_HOST":     "127.0.0.1",
		"DB_PORT":     "5432",
		"DB_SSLMODE":  "disable",
	}
	found := false
	for key := range parts {
		if v, ok := lookup(key); ok && v != "" {
			parts[key] = v
			found = true
		}
	}
	if !found {
		return ""
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(parts["DB_USER"], parts["DB_PASSWORD"]),
		Host:     net.JoinHostPort(parts["DB_HOST"], parts["DB_PORT"]),
		Path:     "/" + parts["DB_NAME"],
		RawQuery: url.Values{"sslmode": {parts["DB_SSLMODE"]}}.Encode(),
	}
	if parts["DB_PASSWORD"] == "" {
		u.User = url.User(parts["DB_USER"])
	}
	return u.String()
}

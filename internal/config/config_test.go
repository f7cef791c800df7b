package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultsAreValidOnceSourceIsSet(t *testing.T) {
	cfg := Default()
	cfg.SourceDSN = "postgres://localhost/movies"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !slices.Equal(cfg.Streams, []string{"movies", "genres", "persons"}) {
		t.Errorf("default streams: %v", cfg.Streams)
	}
	if cfg.BatchSize != 100 || cfg.PollInterval != time.Second || cfg.SinkMaxAttempts != 10 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{
		"SOURCE_DRIVER":     "sqlserver",
		"SOURCE_DSN":        "sqlserver://sa@localhost",
		"SINK":              "mongo",
		"STREAMS":           " genres , persons,",
		"BATCH_SIZE":        "25",
		"POLL_INTERVAL":     "250ms",
		"SINK_MAX_ATTEMPTS": "3",
		"SINK_RATE_LIMIT":   "12.5",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.SourceDriver != "sqlserver" || cfg.Sink != "mongo" {
		t.Errorf("strings not applied: %+v", cfg)
	}
	if !slices.Equal(cfg.Streams, []string{"genres", "persons"}) {
		t.Errorf("streams: %v", cfg.Streams)
	}
	if cfg.BatchSize != 25 || cfg.PollInterval != 250*time.Millisecond || cfg.SinkMaxAttempts != 3 || cfg.SinkRateLimit != 12.5 {
		t.Errorf("numbers not applied: %+v", cfg)
	}
}

func TestSourceDSNFallsBackToDatabaseURL(t *testing.T) {
	cfg := Default()
	if err := cfg.applyEnv(envFrom(map[string]string{"DATABASE_URL": "postgres://fallback"})); err != nil {
		t.Fatal(err)
	}
	if cfg.SourceDSN != "postgres://fallback" {
		t.Errorf("SourceDSN = %q", cfg.SourceDSN)
	}

	cfg = Default()
	cfg.applyEnv(envFrom(map[string]string{"DATABASE_URL": "postgres://fallback", "SOURCE_DSN": "postgres://primary"}))
	if cfg.SourceDSN != "postgres://primary" {
		t.Errorf("SOURCE_DSN must win, got %q", cfg.SourceDSN)
	}
}

func TestSourceDSNFromDatabaseParts(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{
		"DB_HOST":     "db",
		"DB_PASSWORD": "p@ss/word",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := "postgres://app:p%40ss%2Fword@db:5432/movies_database?sslmode=disable"
	if cfg.SourceDSN != want {
		t.Errorf("SourceDSN = %q, want %q", cfg.SourceDSN, want)
	}

	cfg = Default()
	cfg.applyEnv(envFrom(map[string]string{"DB_HOST": "db", "SOURCE_DSN": "postgres://explicit"}))
	if cfg.SourceDSN != "postgres://explicit" {
		t.Errorf("an explicit DSN must win, got %q", cfg.SourceDSN)
	}

	cfg = Default()
	cfg.applyEnv(envFrom(map[string]string{}))
	if cfg.SourceDSN != "" {
		t.Errorf("no DB_* variables must leave the DSN empty, got %q", cfg.SourceDSN)
	}

	cfg = Default()
	cfg.applyEnv(envFrom(map[string]string{"SOURCE_DRIVER": "sqlserver", "DB_HOST": "db"}))
	if cfg.SourceDSN != "" {
		t.Errorf("DB_* parts are postgres only, got %q", cfg.SourceDSN)
	}
}

func TestApplyEnvRejectsMalformedNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envFrom(map[string]string{"BATCH_SIZE": "lots", "POLL_INTERVAL": "soon"}))
	if err == nil {
		t.Fatal("expected parse errors")
	}
	for _, key := range []string{"BATCH_SIZE", "POLL_INTERVAL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should mention %s: %v", key, err)
		}
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.SourceDriver = "oracle"
	cfg.Sink = "kafka"
	cfg.CheckpointBackend = "redis"
	cfg.BatchSize = 0
	cfg.SinkMaxAttempts = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"SOURCE_DRIVER", "SOURCE_DSN", "SINK", "CHECKPOINT_BACKEND", "BATCH_SIZE", "SINK_MAX_ATTEMPTS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %s in %v", want, err)
		}
	}
}

func TestMongoSinkNeedsConnectionString(t *testing.T) {
	cfg := Default()
	cfg.SourceDSN = "postgres://localhost/movies"
	cfg.Sink = SinkMongo
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "MONGO_CONNECTION_STRING") {
		t.Fatalf("expected MONGO_CONNECTION_STRING error, got %v", err)
	}
}

func TestLoadFileOverlaysOnlyPresentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moviesync.yaml")
	body := "source_dsn: postgres://from-file\nstreams: [persons]\npoll_interval: 5s\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.SourceDSN != "postgres://from-file" || cfg.PollInterval != 5*time.Second {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	if !slices.Equal(cfg.Streams, []string{"persons"}) {
		t.Errorf("streams: %v", cfg.Streams)
	}
	if cfg.BatchSize != 100 || cfg.Sink != SinkElasticsearch {
		t.Errorf("absent keys must keep defaults: %+v", cfg)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moviesync.yaml")
	if err := os.WriteFile(path, []byte("batchsize: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(path, Default()); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moviesync.yaml")
	if err := os.WriteFile(path, []byte("source_dsn: postgres://file\nbatch_size: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOURCE_DSN", "postgres://env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SourceDSN != "postgres://env" || cfg.BatchSize != 7 {
		t.Errorf("unexpected precedence: %+v", cfg)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled by default")
	}
	if cfg.Comparison.WorkerConcurrency != 10 {
		t.Errorf("WorkerConcurrency = %d, expected 10", cfg.Comparison.WorkerConcurrency)
	}
	if cfg.Comparison.StaleAfterMinutes != 30 {
		t.Errorf("StaleAfterMinutes = %d, expected 30", cfg.Comparison.StaleAfterMinutes)
	}
	if cfg.Comparison.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, expected 90", cfg.Comparison.RetentionDays)
	}
	if cfg.Comparison.SummaryTopN != 5 {
		t.Errorf("SummaryTopN = %d, expected 5", cfg.Comparison.SummaryTopN)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, expected %q", cfg.Log.Level, "info")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected default %q", cfg.Server.Port, "8080")
	}
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  port: "9090"
comparison:
  retention_days: 14
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "9090")
	}
	if cfg.Comparison.RetentionDays != 14 {
		t.Errorf("RetentionDays = %d, expected 14", cfg.Comparison.RetentionDays)
	}
	// unspecified values fall back to defaults
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, expected default", cfg.Server.Host)
	}
	if cfg.Comparison.SummaryTopN != 5 {
		t.Errorf("SummaryTopN = %d, expected default 5", cfg.Comparison.SummaryTopN)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [broken"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load should fail on invalid YAML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=db user=perfgate dbname=perfgate")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RETENTION_DAYS", "30")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Server.Port = %q, expected %q", cfg.Server.Port, "7070")
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, expected %q", cfg.Database.Driver, "postgres")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, expected %q", cfg.Log.Level, "debug")
	}
	if cfg.Comparison.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, expected 30", cfg.Comparison.RetentionDays)
	}
}

func TestLoad_RedisURLOverride(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://:secret@redis.internal:6380/2")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Error("REDIS_URL should enable Redis")
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr = %q, expected %q", cfg.Redis.Addr, "redis.internal:6380")
	}
	if cfg.Redis.Password != "secret" {
		t.Errorf("Redis.Password = %q, expected %q", cfg.Redis.Password, "secret")
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("Redis.DB = %d, expected 2", cfg.Redis.DB)
	}
}

func TestParseRedisURL_NoAuthNoDB(t *testing.T) {
	cfg := DefaultConfig()
	cfg.parseRedisURL("redis://localhost:6379")

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, expected %q", cfg.Redis.Addr, "localhost:6379")
	}
	if cfg.Redis.Password != "" {
		t.Errorf("Redis.Password = %q, expected empty", cfg.Redis.Password)
	}
}

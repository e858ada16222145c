package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.SpiderXHS.Storage.BaseDirectory != "~/data/spider_xhs" {
		t.Errorf("Expected default base directory ~/data/spider_xhs, got %s", config.SpiderXHS.Storage.BaseDirectory)
	}
	if config.SpiderXHS.Storage.MediaSubdir != "media" || config.SpiderXHS.Storage.ExcelSubdir != "excel" {
		t.Errorf("Unexpected storage subdirectories: %+v", config.SpiderXHS.Storage)
	}
	if config.HTTP.Timeout != 30*time.Second {
		t.Errorf("Expected default HTTP timeout 30s, got %s", config.HTTP.Timeout)
	}
	if config.Download.RetryAttempts != 3 || config.Download.RetryDelay != time.Second {
		t.Errorf("Expected 3 attempts with 1s delay, got %d/%s", config.Download.RetryAttempts, config.Download.RetryDelay)
	}
	if config.Downloader.ChunkSize != 2*1024*1024 {
		t.Errorf("Expected downloader chunk size 2MiB, got %d", config.Downloader.ChunkSize)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XHS_DEFAULT_COOKIES", "a1=abc; web_session=xyz")
	t.Setenv("XHS_BASE_DIRECTORY", "/tmp/xhs")
	t.Setenv("XHS_DOWNLOADER_ENABLED", "true")
	t.Setenv("XHS_SIGNER_VERSION", "57")
	t.Setenv("XHS_HTTP_TIMEOUT", "10s")
	t.Setenv("XHS_REQUESTS_PER_MINUTE", "30")
	t.Setenv("XHS_EXPORT_FORMAT", "csv")
	t.Setenv("XHS_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.SpiderXHS.DefaultCookies != "a1=abc; web_session=xyz" {
		t.Errorf("Expected cookies from env, got %q", config.SpiderXHS.DefaultCookies)
	}
	if config.SpiderXHS.Storage.BaseDirectory != "/tmp/xhs" {
		t.Errorf("Expected base directory /tmp/xhs, got %s", config.SpiderXHS.Storage.BaseDirectory)
	}
	if !config.Downloader.Enabled {
		t.Error("Expected downloader to be enabled")
	}
	if config.Signer.Version != "57" {
		t.Errorf("Expected signer version 57, got %s", config.Signer.Version)
	}
	if config.HTTP.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %s", config.HTTP.Timeout)
	}
	if config.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("Expected requests per minute 30, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Export.Format != "csv" {
		t.Errorf("Expected csv export, got %s", config.Export.Format)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("XHS_HTTP_TIMEOUT", "soon")
	t.Setenv("XHS_CONCURRENT_NOTES", "many")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err == nil {
		t.Fatal("Expected an error for unparsable values")
	}
	if !strings.Contains(err.Error(), "XHS_HTTP_TIMEOUT") || !strings.Contains(err.Error(), "XHS_CONCURRENT_NOTES") {
		t.Errorf("Expected both variables to be reported, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing base directory", func(c *Config) { c.SpiderXHS.Storage.BaseDirectory = "" }, true},
		{"downloader timeout too high", func(c *Config) { c.Downloader.TimeoutSeconds = 61 }, true},
		{"downloader chunk too small", func(c *Config) { c.Downloader.ChunkSize = 100 }, true},
		{"downloader retry out of range", func(c *Config) { c.Downloader.MaxRetry = 0 }, true},
		{"empty signer version", func(c *Config) { c.Signer.Version = "" }, true},
		{"zero retry attempts", func(c *Config) { c.Download.RetryAttempts = 0 }, true},
		{"too many concurrent notes", func(c *Config) { c.Download.ConcurrentNotes = 32 }, true},
		{"unknown export format", func(c *Config) { c.Export.Format = "parquet" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	config.MergeCommandLineFlags(map[string]interface{}{
		"cookies":        "a1=flag",
		"base-directory": "/flag/output",
		"concurrent":     7,
		"export-format":  "csv",
		"log-level":      "error",
	})

	if config.SpiderXHS.DefaultCookies != "a1=flag" {
		t.Errorf("Expected cookies a1=flag, got %s", config.SpiderXHS.DefaultCookies)
	}
	if config.SpiderXHS.Storage.BaseDirectory != "/flag/output" {
		t.Errorf("Expected base directory /flag/output, got %s", config.SpiderXHS.Storage.BaseDirectory)
	}
	if config.Download.ConcurrentNotes != 7 {
		t.Errorf("Expected concurrent notes 7, got %d", config.Download.ConcurrentNotes)
	}
	if config.Export.Format != "csv" {
		t.Errorf("Expected export format csv, got %s", config.Export.Format)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.SpiderXHS.DefaultCookies = "a1=saved"
	config.Download.ConcurrentNotes = 8
	config.Downloader.MappingData = map[string]string{"user1": "alias"}

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Saved config missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.SpiderXHS.DefaultCookies != "a1=saved" {
		t.Errorf("Expected cookies a1=saved, got %s", loaded.SpiderXHS.DefaultCookies)
	}
	if loaded.Download.ConcurrentNotes != 8 {
		t.Errorf("Expected concurrent notes 8, got %d", loaded.Download.ConcurrentNotes)
	}
	if loaded.Downloader.MappingData["user1"] != "alias" {
		t.Errorf("Expected mapping data to round trip, got %v", loaded.Downloader.MappingData)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for an explicit missing file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ExpandPath("~/data/spider_xhs")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "data", "spider_xhs") {
		t.Errorf("Unexpected expansion: %s", got)
	}

	abs, err := ExpandPath("relative/dir")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("Expected absolute path, got %s", abs)
	}
}

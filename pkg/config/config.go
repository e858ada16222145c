package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the crawler
type Config struct {
	SpiderXHS  SpiderXHSConfig  `yaml:"spider_xhs" json:"spider_xhs"`
	Downloader DownloaderConfig `yaml:"xhs_downloader" json:"xhs_downloader"`

	// Signing transform selection
	Signer SignerConfig `yaml:"signer" json:"signer"`

	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Download  DownloadConfig  `yaml:"download" json:"download"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// SpiderXHSConfig configures the note/user/search crawler
type SpiderXHSConfig struct {
	Enabled        bool                   `yaml:"enabled" json:"enabled"`
	DefaultCookies string                 `yaml:"default_cookies" json:"-"`
	Storage        SpiderXHSStorageConfig `yaml:"storage" json:"storage"`
}

// SpiderXHSStorageConfig locates the media and export roots
type SpiderXHSStorageConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	MediaSubdir   string `yaml:"media_subdir" json:"media_subdir"`
	ExcelSubdir   string `yaml:"excel_subdir" json:"excel_subdir"`
}

// DownloaderConfig configures the single-item detail extractor
type DownloaderConfig struct {
	Enabled        bool                    `yaml:"enabled" json:"enabled"`
	Storage        DownloaderStorageConfig `yaml:"storage" json:"storage"`
	DefaultCookie  string                  `yaml:"default_cookie" json:"-"`
	UserAgent      string                  `yaml:"user_agent" json:"user_agent"`
	Proxy          string                  `yaml:"proxy" json:"proxy"`
	TimeoutSeconds int                     `yaml:"timeout_seconds" json:"timeout_seconds"`
	ChunkSize      int                     `yaml:"chunk_size" json:"chunk_size"`
	MaxRetry       int                     `yaml:"max_retry" json:"max_retry"`
	RecordData     bool                    `yaml:"record_data" json:"record_data"`
	ImageFormat    string                  `yaml:"image_format" json:"image_format"`
	ImageDownload  bool                    `yaml:"image_download" json:"image_download"`
	VideoDownload  bool                    `yaml:"video_download" json:"video_download"`
	LiveDownload   bool                    `yaml:"live_download" json:"live_download"`
	FolderMode     bool                    `yaml:"folder_mode" json:"folder_mode"`
	DownloadRecord bool                    `yaml:"download_record" json:"download_record"`
	AuthorArchive  bool                    `yaml:"author_archive" json:"author_archive"`
	WriteMtime     bool                    `yaml:"write_mtime" json:"write_mtime"`
	Language       string                  `yaml:"language" json:"language"`
	MappingFile    string                  `yaml:"mapping_file" json:"mapping_file"`
	MappingData    map[string]string       `yaml:"mapping_data" json:"mapping_data"`
}

// DownloaderStorageConfig locates extractor downloads
type DownloaderStorageConfig struct {
	WorkDirectory string `yaml:"work_directory" json:"work_directory"`
	FolderName    string `yaml:"folder_name" json:"folder_name"`
	NameFormat    string `yaml:"name_format" json:"name_format"`
}

// SignerConfig selects the request signing transform
type SignerConfig struct {
	Version string `yaml:"version" json:"version"`
}

// HTTPConfig holds upstream API client settings
type HTTPConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	MediaTimeout time.Duration `yaml:"media_timeout" json:"media_timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// DownloadConfig holds media persistence settings
type DownloadConfig struct {
	RetryAttempts   int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay"`
	ConcurrentNotes int           `yaml:"concurrent_notes" json:"concurrent_notes"`
}

// ExportConfig selects the tabular export format
type ExportConfig struct {
	Format string `yaml:"format" json:"format"`
}

// ServerConfig holds HTTP API server settings
type ServerConfig struct {
	Address         string        `yaml:"address" json:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	Mode            string        `yaml:"mode" json:"mode"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SpiderXHS: SpiderXHSConfig{
			Enabled: true,
			Storage: SpiderXHSStorageConfig{
				BaseDirectory: "~/data/spider_xhs",
				MediaSubdir:   "media",
				ExcelSubdir:   "excel",
			},
		},
		Downloader: DownloaderConfig{
			Enabled: false,
			Storage: DownloaderStorageConfig{
				WorkDirectory: "~/data/xhs_downloader",
				FolderName:    "Download",
				NameFormat:    "发布时间 作者昵称 作品标题",
			},
			TimeoutSeconds: 10,
			ChunkSize:      2 * 1024 * 1024,
			MaxRetry:       5,
			ImageFormat:    "PNG",
			ImageDownload:  true,
			VideoDownload:  true,
			DownloadRecord: true,
			Language:       "zh_CN",
			MappingData:    map[string]string{},
		},
		Signer: SignerConfig{
			Version: "56",
		},
		HTTP: HTTPConfig{
			BaseURL:      "https://edith.xiaohongshu.com",
			Timeout:      30 * time.Second,
			MediaTimeout: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Download: DownloadConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			ConcurrentNotes: 3,
		},
		Export: ExportConfig{
			Format: "xlsx",
		},
		Server: ServerConfig{
			Address:         ":8000",
			ShutdownTimeout: 5 * time.Second,
			Mode:            "release",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if cookies := os.Getenv("XHS_DEFAULT_COOKIES"); cookies != "" {
		c.SpiderXHS.DefaultCookies = cookies
	}
	if dir := os.Getenv("XHS_BASE_DIRECTORY"); dir != "" {
		c.SpiderXHS.Storage.BaseDirectory = dir
	}
	if enabled := os.Getenv("XHS_SPIDER_ENABLED"); enabled != "" {
		c.SpiderXHS.Enabled = strings.ToLower(enabled) == "true"
	}

	if enabled := os.Getenv("XHS_DOWNLOADER_ENABLED"); enabled != "" {
		c.Downloader.Enabled = strings.ToLower(enabled) == "true"
	}
	if cookie := os.Getenv("XHS_DOWNLOADER_COOKIE"); cookie != "" {
		c.Downloader.DefaultCookie = cookie
	}
	if dir := os.Getenv("XHS_DOWNLOADER_WORK_DIRECTORY"); dir != "" {
		c.Downloader.Storage.WorkDirectory = dir
	}
	if proxy := os.Getenv("XHS_DOWNLOADER_PROXY"); proxy != "" {
		c.Downloader.Proxy = proxy
	}

	if version := os.Getenv("XHS_SIGNER_VERSION"); version != "" {
		c.Signer.Version = version
	}
	if baseURL := os.Getenv("XHS_BASE_URL"); baseURL != "" {
		c.HTTP.BaseURL = baseURL
	}
	if timeout := os.Getenv("XHS_HTTP_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_HTTP_TIMEOUT: %w", err))
		} else {
			c.HTTP.Timeout = d
		}
	}

	if rpm := os.Getenv("XHS_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_REQUESTS_PER_MINUTE: %w", err))
		} else if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}
	if concurrent := os.Getenv("XHS_CONCURRENT_NOTES"); concurrent != "" {
		val, err := strconv.Atoi(concurrent)
		if err != nil {
			errs = append(errs, fmt.Errorf("XHS_CONCURRENT_NOTES: %w", err))
		} else if val > 0 {
			c.Download.ConcurrentNotes = val
		}
	}

	if format := os.Getenv("XHS_EXPORT_FORMAT"); format != "" {
		c.Export.Format = format
	}
	if addr := os.Getenv("XHS_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if logLevel := os.Getenv("XHS_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("XHS_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".xhscrawler.yaml",
		".xhscrawler.yml",
		filepath.Join(home, ".config", "xhscrawler", "config.yaml"),
		filepath.Join(home, ".config", "xhscrawler", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.SpiderXHS.Storage.BaseDirectory == "" {
		errs = append(errs, errors.New("spider_xhs storage base directory is required"))
	}
	if c.SpiderXHS.Storage.MediaSubdir == "" || c.SpiderXHS.Storage.ExcelSubdir == "" {
		errs = append(errs, errors.New("spider_xhs media and excel subdirectories are required"))
	}

	d := c.Downloader
	if d.TimeoutSeconds < 1 || d.TimeoutSeconds > 60 {
		errs = append(errs, errors.New("xhs_downloader timeout_seconds must be between 1 and 60"))
	}
	if d.ChunkSize < 1024 || d.ChunkSize > 50*1024*1024 {
		errs = append(errs, errors.New("xhs_downloader chunk_size must be between 1KiB and 50MiB"))
	}
	if d.MaxRetry < 1 || d.MaxRetry > 10 {
		errs = append(errs, errors.New("xhs_downloader max_retry must be between 1 and 10"))
	}

	if c.Signer.Version == "" {
		errs = append(errs, errors.New("signer version is required"))
	}
	if c.HTTP.BaseURL == "" {
		errs = append(errs, errors.New("http base url is required"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("download retry attempts must be at least 1"))
	}
	if c.Download.RetryDelay < 0 {
		errs = append(errs, errors.New("download retry delay cannot be negative"))
	}
	if c.Download.ConcurrentNotes <= 0 || c.Download.ConcurrentNotes > 16 {
		errs = append(errs, errors.New("concurrent notes must be between 1 and 16"))
	}

	switch strings.ToLower(c.Export.Format) {
	case "xlsx", "csv":
	default:
		errs = append(errs, fmt.Errorf("unsupported export format %q", c.Export.Format))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600 because the file may carry default cookies
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cookies, ok := flags["cookies"].(string); ok && cookies != "" {
		c.SpiderXHS.DefaultCookies = cookies
	}
	if baseDir, ok := flags["base-directory"].(string); ok && baseDir != "" {
		c.SpiderXHS.Storage.BaseDirectory = baseDir
	}
	if addr, ok := flags["address"].(string); ok && addr != "" {
		c.Server.Address = addr
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentNotes = concurrent
	}
	if format, ok := flags["export-format"].(string); ok && format != "" {
		c.Export.Format = format
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// ExpandPath resolves a leading ~ and returns an absolute path
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xhscrawler.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

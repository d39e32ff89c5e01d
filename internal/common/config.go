package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Content     ContentConfig   `toml:"content"`
	ServerLog   ServerLogConfig `toml:"server_log"`
	Retention   RetentionConfig `toml:"retention"`
	Logging     LoggingConfig   `toml:"logging"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Webhooks    WebhooksConfig  `toml:"webhooks"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StorageConfig selects and configures the partition store for event logs
type StorageConfig struct {
	Type       string           `toml:"type"` // "filesystem" or "badger"
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// FilesystemConfig holds the directories of the JSON partition files
type FilesystemConfig struct {
	ServerLogs string `toml:"server_logs"`
	AuditLogs  string `toml:"audit_logs"`
}

// ContentConfig locates the site's content tree
type ContentConfig struct {
	BlogDir      string `toml:"blog_dir"`
	MindDir      string `toml:"mind_dir"`
	AssetsDir    string `toml:"assets_dir"`
	MaxImageSize int64  `toml:"max_image_size"` // bytes
}

// ServerLogConfig configures the server event queue
type ServerLogConfig struct {
	Timezone    string  `toml:"timezone"`     // IANA name used for day partitions; empty = process local time
	Echo        bool    `toml:"echo"`         // Echo each event to the console at enqueue time
	EchoLevel   string  `toml:"echo_level"`   // Minimum level echoed (INFO, WARN, ERROR, FATAL)
	IngestRate  float64 `toml:"ingest_rate"`  // Events per second accepted by POST /api/logs/server
	IngestBurst int     `toml:"ingest_burst"` // Burst size for the ingest limiter
}

// RetentionConfig controls pruning of old server log partitions
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`
	Days     int    `toml:"days"`     // Partitions older than this many days are deleted
	Schedule string `toml:"schedule"` // Cron schedule format
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// WebSocketConfig configures the live log tail
type WebSocketConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"` // Empty allows any origin
	PingInterval   string   `toml:"ping_interval"`
}

// WebhooksConfig holds shared secrets for inbound webhooks
type WebhooksConfig struct {
	GiscusSecret string `toml:"giscus_secret"` // Empty disables signature validation
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "filesystem",
			Badger: BadgerConfig{
				Path: "./data/badger",
			},
			Filesystem: FilesystemConfig{
				ServerLogs: "./src/data/server-logs",
				AuditLogs:  "./src/data/audit-logs",
			},
		},
		Content: ContentConfig{
			BlogDir:      "./src/content/blog",
			MindDir:      "./src/content/mind",
			AssetsDir:    "./src/assets",
			MaxImageSize: 5 * 1024 * 1024,
		},
		ServerLog: ServerLogConfig{
			Timezone:    "",
			Echo:        true,
			EchoLevel:   "INFO",
			IngestRate:  20,
			IngestBurst: 50,
		},
		Retention: RetentionConfig{
			Enabled:  false, // Disabled by default - user must explicitly opt-in
			Days:     90,
			Schedule: "15 3 * * *", // Daily at 03:15
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		WebSocket: WebSocketConfig{
			PingInterval: "30s",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// FOLIO_ENV first, GO_ENV as fallback
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("FOLIO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FOLIO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage
	if storageType := os.Getenv("FOLIO_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if badgerPath := os.Getenv("FOLIO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if dir := os.Getenv("FOLIO_SERVER_LOGS_DIR"); dir != "" {
		config.Storage.Filesystem.ServerLogs = dir
	}
	if dir := os.Getenv("FOLIO_AUDIT_LOGS_DIR"); dir != "" {
		config.Storage.Filesystem.AuditLogs = dir
	}

	// Content
	if dir := os.Getenv("FOLIO_BLOG_DIR"); dir != "" {
		config.Content.BlogDir = dir
	}
	if dir := os.Getenv("FOLIO_MIND_DIR"); dir != "" {
		config.Content.MindDir = dir
	}
	if dir := os.Getenv("FOLIO_ASSETS_DIR"); dir != "" {
		config.Content.AssetsDir = dir
	}

	// Server log queue
	if tz := os.Getenv("FOLIO_SERVER_LOG_TIMEZONE"); tz != "" {
		config.ServerLog.Timezone = tz
	}
	if echo := os.Getenv("FOLIO_SERVER_LOG_ECHO"); echo != "" {
		if b, err := strconv.ParseBool(echo); err == nil {
			config.ServerLog.Echo = b
		}
	}

	// Retention
	if enabled := os.Getenv("FOLIO_RETENTION_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Retention.Enabled = b
		}
	}
	if days := os.Getenv("FOLIO_RETENTION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			config.Retention.Days = d
		}
	}

	// Logging
	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FOLIO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if secret := os.Getenv("FOLIO_GISCUS_WEBHOOK_SECRET"); secret != "" {
		config.Webhooks.GiscusSecret = secret
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "filesystem", "badger":
	default:
		return fmt.Errorf("invalid storage type %q (expected filesystem or badger)", c.Storage.Type)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Retention.Enabled {
		if c.Retention.Days < 1 {
			return fmt.Errorf("retention days must be at least 1, got %d", c.Retention.Days)
		}
		if err := ValidateSchedule(c.Retention.Schedule); err != nil {
			return fmt.Errorf("invalid retention schedule: %w", err)
		}
	}

	return nil
}

// Location resolves the timezone used for day partitions
func (c *Config) Location() (*time.Location, error) {
	if c.ServerLog.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.ServerLog.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid server_log.timezone %q: %w", c.ServerLog.Timezone, err)
	}
	return loc, nil
}

// ValidateSchedule validates a five-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// PingInterval parses the websocket keepalive interval, defaulting to 30s
func (c *Config) PingInterval() time.Duration {
	d, err := time.ParseDuration(c.WebSocket.PingInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

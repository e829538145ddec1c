package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	Cache     CacheConfig     `yaml:"cache"`
	Logger    LoggerConfig    `yaml:"logger"`
	Collector CollectorConfig `yaml:"collector"`

	Notification NotificationConfig `yaml:"notification"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for ingestion routes (optional, if empty, auth is disabled)
}

// StoreConfig price store configuration
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`    // full DSN, takes precedence over the fields below

	// SQLite database file
	Path string `yaml:"path"`

	// MySQL / PostgreSQL connection
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	MaxOpenConns  int           `yaml:"max_open_conns"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QueueConfig async ingestion queue configuration
type QueueConfig struct {
	Enabled     bool `yaml:"enabled"`
	Concurrency int  `yaml:"concurrency"`  // queue processing concurrency
	MaxRetry    int  `yaml:"max_retry"`    // maximum retry count
	TaskTimeout int  `yaml:"task_timeout"` // task timeout (seconds)
}

// CacheConfig latest-snapshot cache configuration (requires redis)
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// CollectorConfig catalog collection configuration
type CollectorConfig struct {
	CatalogURL string        `yaml:"catalog_url"` // empty disables the scheduled collection job
	Interval   time.Duration `yaml:"interval"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	Filters    FilterConfig  `yaml:"filters"`
}

// NotificationConfig snapshot webhook configuration
type NotificationConfig struct {
	WebhookURL string        `yaml:"webhook_url"` // empty disables notifications
	Format     string        `yaml:"format"`      // json, feishu
	Timeout    time.Duration `yaml:"timeout"`
}

// FilterConfig catalog filters applied after mapping
type FilterConfig struct {
	MinGPUMemoryGB int     `yaml:"min_gpu_memory_gb"`
	MinCPU         int     `yaml:"min_cpu"`
	MaxPrice       float64 `yaml:"max_price"`
	GPUName        string  `yaml:"gpu_name"`
	Provider       string  `yaml:"provider"`
}

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	defaultConfigPath  = "config/config.yaml"
	defaultSQLitePath  = "data/gpu_prices.db"
	defaultServerPort  = 8080
	defaultMaxOpenConn = 50
)

// Default returns a configuration usable without any config file: embedded
// SQLite store, console logging, no redis.
func Default() *Config {
	cfg := &Config{}
	validateAndApplyDefaults(cfg)
	return cfg
}

// Init initializes configuration
func Init() error {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	GlobalConfig = cfg
	return nil
}

// Load reads the yaml file at path, applies .env and environment overrides and
// fills defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// run on defaults
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	validateAndApplyDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GPUPRICES_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("GPUPRICES_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("GPUPRICES_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("GPUPRICES_WEBHOOK_URL"); v != "" {
		cfg.Notification.WebhookURL = v
	}
	if v := os.Getenv("GPUPRICES_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
}

func validateAndApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		cfg.Store.Driver = DriverSQLite
	}
	if cfg.Store.Driver == DriverSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = defaultSQLitePath
	}
	if cfg.Store.MaxOpenConns <= 0 {
		cfg.Store.MaxOpenConns = defaultMaxOpenConn
	}
	if cfg.Store.SlowThreshold <= 0 {
		cfg.Store.SlowThreshold = 500 * time.Millisecond
	}

	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 2
	}
	if cfg.Queue.MaxRetry < 0 {
		cfg.Queue.MaxRetry = 0
	}
	if cfg.Queue.TaskTimeout <= 0 {
		cfg.Queue.TaskTimeout = 60
	}

	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "console"
	}
	if cfg.Logger.File.Path == "" {
		cfg.Logger.File.Path = "logs/gpuprices.log"
	}

	if cfg.Collector.Interval <= 0 {
		cfg.Collector.Interval = time.Hour
	}
	if cfg.Collector.Timeout <= 0 {
		cfg.Collector.Timeout = 60 * time.Second
	}
	if cfg.Collector.Retries < 0 {
		cfg.Collector.Retries = 0
	}

	if cfg.Notification.Format == "" {
		cfg.Notification.Format = "json"
	}
	if cfg.Notification.Timeout <= 0 {
		cfg.Notification.Timeout = 10 * time.Second
	}
}

// StoreDSN builds the driver-specific DSN for the configured store.
func (c StoreConfig) StoreDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.Database)
	default:
		return c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
}

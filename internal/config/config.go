package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigFile = "config.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Cache     CacheConfig     `yaml:"cache"`
	Logger    LoggerConfig    `yaml:"logger"`
	Security  SecurityConfig  `yaml:"security"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"SERVER_PORT" env-default:"8084"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// WarehouseConfig points at the curated warehouse. DSN is a postgres:// URL
// or a sqlite file path; the password belongs in the environment only.
type WarehouseConfig struct {
	DSN             string        `yaml:"-" env:"WAREHOUSE_DSN" env-default:"data_warehouse/main_curated.db"`
	MaxConnections  int32         `yaml:"max_connections" env:"WAREHOUSE_MAX_CONNECTIONS" env-default:"10"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"WAREHOUSE_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"WAREHOUSE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	QueryTimeout    time.Duration `yaml:"query_timeout" env:"WAREHOUSE_QUERY_TIMEOUT" env-default:"30s"`
	CheckSchema     bool          `yaml:"check_schema" env:"WAREHOUSE_CHECK_SCHEMA" env-default:"true"`
}

type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"5m"`
	MaxEntries      int           `yaml:"max_entries" env:"CACHE_MAX_ENTRIES" env-default:"256"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CACHE_CLEANUP_INTERVAL" env-default:"1m"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"enable_rate_limit" env:"SECURITY_RATE_LIMIT_ENABLED" env-default:"true"`
	RateLimitRPS    int      `yaml:"rate_limit_rps" env:"SECURITY_RATE_LIMIT_RPS" env-default:"100"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" env:"SECURITY_RATE_LIMIT_BURST" env-default:"20"`
	AllowedOrigins  []string `yaml:"allowed_origins" env:"SECURITY_ALLOWED_ORIGINS" env-default:"http://localhost:8084"`
	TrustedProxies  []string `yaml:"trusted_proxies" env:"SECURITY_TRUSTED_PROXIES" env-default:"127.0.0.1"`
}

// DashboardConfig holds the default widget values. Requests may override
// them within the documented bounds.
type DashboardConfig struct {
	TopProducts        int `yaml:"top_products" env:"DASHBOARD_TOP_PRODUCTS" env-default:"15"`
	TopCategories      int `yaml:"top_categories" env:"DASHBOARD_TOP_CATEGORIES" env-default:"10"`
	CategoriesPerState int `yaml:"categories_per_state" env:"DASHBOARD_CATEGORIES_PER_STATE" env-default:"5"`
	TopStores          int `yaml:"top_stores" env:"DASHBOARD_TOP_STORES" env-default:"10"`
	GrowthHeatmapRows  int `yaml:"growth_heatmap_rows" env:"DASHBOARD_GROWTH_HEATMAP_ROWS" env-default:"25"`
}

// Load reads CONFIG_FILE (default config.yaml) when it exists and applies
// environment overrides; without a file only the environment and defaults
// are used.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = defaultConfigFile
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	case errors.Is(statErr, fs.ErrNotExist):
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if strings.TrimSpace(c.Warehouse.DSN) == "" {
		return fmt.Errorf("warehouse DSN cannot be empty")
	}

	if c.Warehouse.QueryTimeout <= 0 {
		return fmt.Errorf("warehouse query timeout must be positive")
	}

	if c.Warehouse.MaxConnections < 1 {
		return fmt.Errorf("warehouse max connections must be positive")
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	d := c.Dashboard
	for name, v := range map[string]int{
		"top products":         d.TopProducts,
		"top categories":       d.TopCategories,
		"categories per state": d.CategoriesPerState,
		"top stores":           d.TopStores,
		"growth heatmap rows":  d.GrowthHeatmapRows,
	} {
		if v < 1 {
			return fmt.Errorf("dashboard %s must be >= 1, got %d", name, v)
		}
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

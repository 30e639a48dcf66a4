package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		IdleTimeout     time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	RateLimit struct {
		RequestsPerMinute int `yaml:"requests_per_minute"`
		Burst             int `yaml:"burst"`
	} `yaml:"rate_limit"`
	Storage struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"storage"`
	Cache struct {
		Driver        string        `yaml:"driver"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	MarketData struct {
		Provider   string        `yaml:"provider"`
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Source     string        `yaml:"source"`
		Timeout    time.Duration `yaml:"timeout"`
		RetryCount int           `yaml:"retry_count"`
	} `yaml:"market_data"`
	Underwriting struct {
		DownPaymentPercent float64 `yaml:"down_payment_percent"`
		InterestRate       float64 `yaml:"interest_rate"`
		LoanTermYears      int     `yaml:"loan_term_years"`
	} `yaml:"underwriting"`
	Schedule struct {
		MarketRefreshCron string `yaml:"market_refresh_cron"`
		StatsCron         string `yaml:"stats_cron"`
		RefreshLimit      int    `yaml:"refresh_limit"`
	} `yaml:"schedule"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	setString(&cfg.Storage.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Storage.PostgresURL, "DATABASE_URL")
	setString(&cfg.Cache.Driver, "CACHE_DRIVER")
	setString(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.MarketData.Provider, "MARKET_DATA_PROVIDER")
	setString(&cfg.MarketData.BaseURL, "MARKET_DATA_URL")
	setString(&cfg.MarketData.APIKey, "MARKET_DATA_API_KEY")
	setString(&cfg.Schedule.MarketRefreshCron, "CRON_MARKET_REFRESH")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("PORT"); v != "" && os.Getenv("SERVER_ADDR") == "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.RedisDB = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 60
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/deal_underwriter.db"
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = "memory"
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 15 * time.Minute
	}
	if cfg.MarketData.Provider == "" {
		cfg.MarketData.Provider = "static"
	}
	if cfg.MarketData.Timeout == 0 {
		cfg.MarketData.Timeout = 10 * time.Second
	}
	if cfg.Underwriting.DownPaymentPercent == 0 {
		cfg.Underwriting.DownPaymentPercent = 25
	}
	if cfg.Underwriting.InterestRate == 0 {
		cfg.Underwriting.InterestRate = 6.5
	}
	if cfg.Underwriting.LoanTermYears == 0 {
		cfg.Underwriting.LoanTermYears = 30
	}
	if cfg.Schedule.MarketRefreshCron == "" {
		cfg.Schedule.MarketRefreshCron = "0 0 2 * * *"
	}
	if cfg.Schedule.StatsCron == "" {
		cfg.Schedule.StatsCron = "0 0 * * * *"
	}
	if cfg.Schedule.RefreshLimit == 0 {
		cfg.Schedule.RefreshLimit = 50
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the selected drivers are known and have what they
// need to start.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver)
	}

	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.driver %q is not one of memory, redis", c.Cache.Driver)
	}

	switch c.MarketData.Provider {
	case "static":
	case "http":
		if c.MarketData.BaseURL == "" {
			return fmt.Errorf("market_data.base_url is required for the http provider")
		}
	default:
		return fmt.Errorf("market_data.provider %q is not one of static, http", c.MarketData.Provider)
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if c.Underwriting.DownPaymentPercent < 0 || c.Underwriting.DownPaymentPercent > 100 {
		return fmt.Errorf("underwriting.down_payment_percent must be within 0-100")
	}
	if c.Underwriting.InterestRate < 0 {
		return fmt.Errorf("underwriting.interest_rate must not be negative")
	}
	if c.Underwriting.LoanTermYears < 0 {
		return fmt.Errorf("underwriting.loan_term_years must not be negative")
	}
	return nil
}

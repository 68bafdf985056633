package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	RegistryFile   string `mapstructure:"registry_file"`
	PublishersFile string `mapstructure:"publishers_file"`
	HTTPAddr       string `mapstructure:"http_addr"`
	SentryDSN      string `mapstructure:"sentry_dsn"`

	UserAgent           string        `mapstructure:"user_agent"`
	FetchTimeoutSeconds int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`
	FetchRetries        int           `mapstructure:"fetch_retries"`
	MaxArticles         int           `mapstructure:"max_articles"`
	EnrichThumbnails    bool          `mapstructure:"enrich_thumbnails"`

	RefreshCron    string `mapstructure:"refresh_cron"`
	RefreshOnStart bool   `mapstructure:"refresh_on_start"`

	StorageType     string        `mapstructure:"storage_type"`
	BBoltPath       string        `mapstructure:"bbolt_path"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MemoryEntries   int           `mapstructure:"memory_entries"`
	CacheKey        string        `mapstructure:"cache_key"`
	CacheTTLSeconds int64         `mapstructure:"cache_ttl_seconds"`
	CacheTTL        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "captainnews-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("registry_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("sentry_dsn", "")
	v.SetDefault("user_agent", "CaptainNews.gr/1.0 (+harvester)")
	v.SetDefault("fetch_timeout_seconds", 8)
	v.SetDefault("fetch_retries", 0)
	v.SetDefault("max_articles", 30)
	v.SetDefault("enrich_thumbnails", false)
	v.SetDefault("refresh_cron", "*/30 * * * *")
	v.SetDefault("refresh_on_start", true)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/cache.db")
	v.SetDefault("sqlite_path", "./data/cache.sqlite")
	v.SetDefault("memory_entries", 16)
	v.SetDefault("cache_key", "news")
	v.SetDefault("cache_ttl_seconds", int64((7*24*time.Hour)/time.Second))
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.FetchTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second

	if cfg.FetchRetries < 0 {
		return nil, fmt.Errorf("invalid fetch_retries (must not be negative)")
	}
	if cfg.MaxArticles <= 0 {
		return nil, fmt.Errorf("invalid max_articles (must be positive)")
	}
	if strings.TrimSpace(cfg.RefreshCron) == "" {
		return nil, fmt.Errorf("refresh_cron is required")
	}
	if strings.TrimSpace(cfg.CacheKey) == "" {
		return nil, fmt.Errorf("cache_key is required")
	}

	if cfg.CacheTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid cache_ttl_seconds (must be positive seconds)")
	}
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second

	return &cfg, nil
}

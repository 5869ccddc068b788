package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every recognized option. Provider keys left empty disable
// that provider; nothing here is ever a startup error except an
// unparseable environment.
type Config struct {
	AppPort string `env:"APP_PORT" env-default:"9000"`

	// Upstream credentials. Absence disables the provider.
	NewsAPIKey    string `env:"NEWSAPI_KEY"`
	GNewsKey      string `env:"GNEWS_KEY"`
	NewsDataKey   string `env:"NEWSDATA_KEY"`
	MediastackKey string `env:"MEDIASTACK_KEY"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisAddr   string `env:"REDIS_ADDR"`

	ArchivePath   string `env:"ARCHIVE_PATH" env-default:"data/archive.json"`
	RetentionDays int    `env:"RETENTION_DAYS" env-default:"365"`
	RecentDays    int    `env:"RECENT_DAYS" env-default:"14"`

	CacheTTLMs  int `env:"CACHE_TTL_MS" env-default:"60000"`
	MaxResponse int `env:"MAX_RESPONSE" env-default:"500"`

	ImageFetchMax       int `env:"IMAGE_FETCH_MAX" env-default:"12"`
	ImageFetchTimeoutMs int `env:"IMAGE_FETCH_TIMEOUT_MS" env-default:"4000"`

	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" env-default:"*"`
	AdminToken      string `env:"ADMIN_TOKEN"`

	FastCronSpec    string `env:"FAST_CRON_SPEC" env-default:"*/15 * * * *"`
	HourlyCronSpec  string `env:"HOURLY_CRON_SPEC" env-default:"0 * * * *"`
	CategoryDelayMs int    `env:"CATEGORY_DELAY_MS" env-default:"1500"`
	FetchLimit      int    `env:"FETCH_LIMIT" env-default:"20"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	log.Printf("config loaded: port=%s archive=%s retention=%dd ttl=%dms",
		cfg.AppPort, cfg.ArchivePath, cfg.RetentionDays, cfg.CacheTTLMs)
	return &cfg, nil
}

func (c *Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLMs) * time.Millisecond }

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) RecentWindow() time.Duration {
	return time.Duration(c.RecentDays) * 24 * time.Hour
}

func (c *Config) ImageFetchTimeout() time.Duration {
	return time.Duration(c.ImageFetchTimeoutMs) * time.Millisecond
}

func (c *Config) CategoryDelay() time.Duration {
	return time.Duration(c.CategoryDelayMs) * time.Millisecond
}

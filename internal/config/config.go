package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBSource string `env:"DB_SOURCE"`
	Port     string `env:"SERVER_PORT" envDefault:"8080"`
	Env      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	TelegramToken         string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramBotName       string        `env:"TELEGRAM_BOT_NAME"`
	TelegramWebhookURL    string        `env:"TELEGRAM_WEBHOOK_URL"`
	TelegramWebhookListen string        `env:"TELEGRAM_WEBHOOK_LISTEN" envDefault:":8443"`
	LinkCodeTTL           time.Duration `env:"LINK_CODE_TTL" envDefault:"10m"`

	Currency       string  `env:"CURRENCY" envDefault:"RUB"`
	TxMaxRetries   int     `env:"TX_MAX_RETRIES" envDefault:"5"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load reads the environment, after merging a local .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBSource == "" {
		return errors.New("DB_SOURCE environment variable is required")
	}
	if c.TxMaxRetries < 1 {
		return fmt.Errorf("TX_MAX_RETRIES must be at least 1, got %d", c.TxMaxRetries)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return errors.New("rate limit settings must be positive")
	}
	return nil
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

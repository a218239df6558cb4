package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"BLOG_ENV"`
	HTTPAddr string `mapstructure:"BLOG_HTTP_ADDR"`

	SiteTitle    string `mapstructure:"BLOG_SITE_TITLE"`
	SiteSubtitle string `mapstructure:"BLOG_SITE_SUBTITLE"`

	Database DBConfig       `mapstructure:",squash"`
	Session  SessionConfig  `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Driver string `mapstructure:"BLOG_DB_DRIVER"`
	DSN    string `mapstructure:"BLOG_DB_DSN"`
}

type SessionConfig struct {
	Backend   string        `mapstructure:"BLOG_SESSION_BACKEND"` // "memory", "redis"
	RedisAddr string        `mapstructure:"BLOG_REDIS_ADDR"`
	TTL       time.Duration `mapstructure:"BLOG_SESSION_TTL"`
	SignKey   string        `mapstructure:"BLOG_SIGN_KEY"`
}

type SecurityConfig struct {
	SaltLength       int  `mapstructure:"BLOG_SALT_LENGTH"`
	PBKDF2Iterations int  `mapstructure:"BLOG_PBKDF2_ITERATIONS"`
	OwnerOnlyEdits   bool `mapstructure:"BLOG_OWNER_ONLY_EDITS"`
	LoginRatePerMin  int  `mapstructure:"BLOG_LOGIN_RATE_PER_MIN"`
}

const devSignKey = "dev-only-sign-key-change-me"

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found")
	}

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("BLOG_ENV", "dev")
	v.SetDefault("BLOG_HTTP_ADDR", ":5000")
	v.SetDefault("BLOG_SITE_TITLE", "My Blog")
	v.SetDefault("BLOG_SITE_SUBTITLE", "Welcome to my world!")
	v.SetDefault("BLOG_DB_DRIVER", "sqlite3")
	v.SetDefault("BLOG_DB_DSN", "file:posts.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	v.SetDefault("BLOG_SESSION_BACKEND", "memory")
	v.SetDefault("BLOG_REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("BLOG_SESSION_TTL", "24h")
	v.SetDefault("BLOG_SIGN_KEY", "")
	v.SetDefault("BLOG_SALT_LENGTH", 8)
	v.SetDefault("BLOG_PBKDF2_ITERATIONS", 600000)
	v.SetDefault("BLOG_OWNER_ONLY_EDITS", false)
	v.SetDefault("BLOG_LOGIN_RATE_PER_MIN", 30)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Session.SignKey == "" && !cfg.IsProd() {
		cfg.Session.SignKey = devSignKey
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("invalid BLOG_DB_DRIVER %q (must be sqlite3 or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("BLOG_DB_DSN is required")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid BLOG_SESSION_BACKEND %q (must be memory or redis)", c.Session.Backend)
	}
	if c.Session.SignKey == "" {
		return fmt.Errorf("BLOG_SIGN_KEY is required in prod")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("BLOG_SESSION_TTL must be positive")
	}
	if c.Security.SaltLength < 1 {
		return fmt.Errorf("BLOG_SALT_LENGTH must be at least 1")
	}
	if c.Security.PBKDF2Iterations < 1 {
		return fmt.Errorf("BLOG_PBKDF2_ITERATIONS must be at least 1")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

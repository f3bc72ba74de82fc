// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port      int    `yaml:"port" env:"SERVER_PORT"`
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`       // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"LOG_FORMAT"`     // json|console
	Sampling bool   `yaml:"sampling" env:"LOG_SAMPLING"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type PayPalConfig struct {
	ClientID     string `yaml:"client_id" env:"PAYPAL_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"PAYPAL_CLIENT_SECRET"`
	WebhookID    string `yaml:"webhook_id" env:"PAYPAL_WEBHOOK_ID"`
	Sandbox      bool   `yaml:"sandbox" env:"PAYPAL_SANDBOX"`
}

type CashfreeConfig struct {
	ClientID     string `yaml:"client_id" env:"CASHFREE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CASHFREE_CLIENT_SECRET"`
	Sandbox      bool   `yaml:"sandbox" env:"CASHFREE_SANDBOX"`
}

type PaymentConfig struct {
	// ReturnBaseURL is the frontend base used to build gateway return URLs.
	ReturnBaseURL string         `yaml:"return_base_url" env:"RETURN_BASE_URL"`
	PayPal        PayPalConfig   `yaml:"paypal"`
	Cashfree      CashfreeConfig `yaml:"cashfree"`
}

type EmailConfig struct {
	APIKey string `yaml:"api_key" env:"EMAIL_API_KEY"`
	From   string `yaml:"from" env:"EMAIL_FROM"`
}

type SchedulerConfig struct {
	RenewalInterval     time.Duration `yaml:"renewal_interval"`
	RenewalInitialDelay time.Duration `yaml:"renewal_initial_delay"`
	RenewalDaysAhead    int           `yaml:"renewal_days_ahead"`
	OutboxInterval      time.Duration `yaml:"outbox_interval"`
	ReconcileInterval   time.Duration `yaml:"reconcile_interval"`
	ReconcileStaleAfter time.Duration `yaml:"reconcile_stale_after"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-" env:"-"`
}

// LoadConfig reads the YAML file, layers environment overrides on top, and
// applies defaults plus validation. Gateway credentials and webhook secrets
// are hard requirements: the service refuses to start without them.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Scheduler.RenewalInterval <= 0 {
		cfg.Scheduler.RenewalInterval = 24 * time.Hour
	}
	if cfg.Scheduler.RenewalInitialDelay <= 0 {
		cfg.Scheduler.RenewalInitialDelay = time.Minute
	}
	if cfg.Scheduler.RenewalDaysAhead <= 0 {
		cfg.Scheduler.RenewalDaysAhead = 3
	}
	if cfg.Scheduler.OutboxInterval <= 0 {
		cfg.Scheduler.OutboxInterval = 30 * time.Second
	}
	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = time.Minute
	}
	if cfg.Scheduler.ReconcileStaleAfter <= 0 {
		cfg.Scheduler.ReconcileStaleAfter = 10 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Server.JWTSecret == "" {
		return nil, errors.New("server.jwt_secret is required")
	}
	if cfg.Payment.ReturnBaseURL == "" {
		return nil, errors.New("payment.return_base_url is required")
	}
	if cfg.Payment.PayPal.ClientID == "" || cfg.Payment.PayPal.ClientSecret == "" {
		return nil, errors.New("payment.paypal credentials are required")
	}
	if cfg.Payment.PayPal.WebhookID == "" {
		return nil, errors.New("payment.paypal.webhook_id is required (webhook verification cannot be skipped)")
	}
	if cfg.Payment.Cashfree.ClientID == "" || cfg.Payment.Cashfree.ClientSecret == "" {
		return nil, errors.New("payment.cashfree credentials are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

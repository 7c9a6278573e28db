// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	DashboardAPIKey string        `yaml:"dashboard_api_key"` // "api-token" header for /dashboard
	JWTSecret       string        `yaml:"jwt_secret"`        // console bearer tokens
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	QRImageBase     string        `yaml:"qr_image_base"` // e.g. https://img.vietqr.io/image
	QRTemplate      string        `yaml:"qr_template"`   // compact | compact2 | qr_only | print
	AliasTTL        time.Duration `yaml:"alias_ttl"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	RequestLimit    int           `yaml:"request_limit"` // pay requests per account per window
	RequestWindow   time.Duration `yaml:"request_window"`
	WebhookLockTTL  time.Duration `yaml:"webhook_lock_ttl"`
	MinAmountFactor float64       `yaml:"min_amount_factor"` // accepted fraction of plan price, 1.0 = exact
}

// FeatureDefaults are the limits every account gets without a custom plan.
type FeatureDefaults struct {
	Members              int `yaml:"members"`
	Apps                 int `yaml:"apps"`
	VectorSpace          int `yaml:"vector_space"`
	KnowledgeRateLimit   int `yaml:"knowledge_rate_limit"`
	AnnotationQuotaLimit int `yaml:"annotation_quota_limit"`
	DocumentsUploadQuota int `yaml:"documents_upload_quota"`
	MonthBeforeBanned    int `yaml:"month_before_banned"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

// ConsoleConfig drives the purchase client (cmd/console).
type ConsoleConfig struct {
	BaseURL      string        `yaml:"base_url"` // e.g. http://localhost:8080/console/api
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	Language     string        `yaml:"language"`
}

type Config struct {
	Log      LogConfig       `yaml:"log"`
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Redis    RedisConfig     `yaml:"redis"`
	Payment  PaymentConfig   `yaml:"payment"`
	Features FeatureDefaults `yaml:"features"`
	Security SecurityConfig  `yaml:"security"`
	Console  ConsoleConfig   `yaml:"console"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies env overrides and defaults.
// Section-specific validation is left to ValidateServer / ValidateConsole.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BILLING_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("BILLING_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("BILLING_CONSOLE_TOKEN"); v != "" {
		cfg.Console.Token = v
	}
	if v := os.Getenv("BILLING_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Payment.QRImageBase == "" {
		cfg.Payment.QRImageBase = "https://img.vietqr.io/image"
	}
	if cfg.Payment.QRTemplate == "" {
		cfg.Payment.QRTemplate = "compact2"
	}
	if cfg.Payment.AliasTTL <= 0 {
		cfg.Payment.AliasTTL = 24 * time.Hour
	}
	if cfg.Payment.SweepInterval <= 0 {
		cfg.Payment.SweepInterval = 15 * time.Minute
	}
	if cfg.Payment.RequestLimit <= 0 {
		cfg.Payment.RequestLimit = 5
	}
	if cfg.Payment.RequestWindow <= 0 {
		cfg.Payment.RequestWindow = time.Minute
	}
	if cfg.Payment.WebhookLockTTL <= 0 {
		cfg.Payment.WebhookLockTTL = 30 * time.Second
	}
	if cfg.Payment.MinAmountFactor <= 0 {
		cfg.Payment.MinAmountFactor = 1.0
	}

	// limits of an account without a custom plan
	f := &cfg.Features
	if f.Members <= 0 {
		f.Members = 1
	}
	if f.Apps <= 0 {
		f.Apps = 10
	}
	if f.VectorSpace <= 0 {
		f.VectorSpace = 5
	}
	if f.KnowledgeRateLimit <= 0 {
		f.KnowledgeRateLimit = 10
	}
	if f.AnnotationQuotaLimit <= 0 {
		f.AnnotationQuotaLimit = 10
	}
	if f.DocumentsUploadQuota <= 0 {
		f.DocumentsUploadQuota = 50
	}
	if f.MonthBeforeBanned <= 0 {
		f.MonthBeforeBanned = 12
	}

	if cfg.Console.PollInterval <= 0 {
		cfg.Console.PollInterval = 5 * time.Second
	}
	if cfg.Console.Timeout <= 0 {
		cfg.Console.Timeout = 10 * time.Second
	}
	if cfg.Console.Language == "" {
		cfg.Console.Language = "en"
	}
	cfg.Console.BaseURL = strings.TrimRight(cfg.Console.BaseURL, "/")
}

// ValidateServer checks what cmd/app cannot start without.
func (c *Config) ValidateServer() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Server.JWTSecret == "" {
		return errors.New("server.jwt_secret is required")
	}
	if c.Server.DashboardAPIKey == "" {
		return errors.New("server.dashboard_api_key is required")
	}
	return nil
}

// ValidateConsole checks what cmd/console cannot start without.
func (c *Config) ValidateConsole() error {
	if c.Console.BaseURL == "" {
		return errors.New("console.base_url is required")
	}
	if c.Console.Token == "" {
		return errors.New("console.token is required")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

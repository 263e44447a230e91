package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"BLOOM_SERVER_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"BLOOM_STORAGE_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"BLOOM_DB_"`
	AWS       AWSConfig       `yaml:"aws" envPrefix:"BLOOM_AWS_"`
	JWT       JWTConfig       `yaml:"jwt" envPrefix:"BLOOM_JWT_"`
	Log       LogConfig       `yaml:"log" envPrefix:"BLOOM_LOG_"`
	APNs      APNsConfig      `yaml:"apns" envPrefix:"BLOOM_APNS_"`
	OpenAI    OpenAIConfig    `yaml:"openai" envPrefix:"BLOOM_OPENAI_"`
	Questions QuestionsConfig `yaml:"questions" envPrefix:"BLOOM_QUESTIONS_"`
	Pairing   PairingConfig   `yaml:"pairing" envPrefix:"BLOOM_PAIRING_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"BLOOM_METRICS_"`
	Tracing   TracingConfig   `yaml:"tracing" envPrefix:"BLOOM_TRACING_"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port" env:"PORT"`
	Host string `yaml:"host" env:"HOST"`
}

// StorageConfig selects the storage backend
type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // postgres | memory
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	Migrate  bool   `yaml:"migrate" env:"MIGRATE"`
}

// AWSConfig holds object storage configuration
type AWSConfig struct {
	Region    string `yaml:"region" env:"REGION"`
	S3Bucket  string `yaml:"s3_bucket" env:"S3_BUCKET"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"` // S3-compatible endpoint, optional
	PublicURL string `yaml:"public_url" env:"PUBLIC_URL"`
	// MaxImageSide caps the width and height of raw photos accepted by finalize
	MaxImageSide int `yaml:"max_image_side" env:"MAX_IMAGE_SIDE"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret" env:"SECRET"`
	TTL    time.Duration `yaml:"ttl" env:"TTL"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// APNsConfig holds Apple push configuration. Push is disabled when KeyFile is empty.
type APNsConfig struct {
	KeyFile    string `yaml:"key_file" env:"KEY_FILE"`
	KeyID      string `yaml:"key_id" env:"KEY_ID"`
	TeamID     string `yaml:"team_id" env:"TEAM_ID"`
	Topic      string `yaml:"topic" env:"TOPIC"`
	Production bool   `yaml:"production" env:"PRODUCTION"`
}

// OpenAIConfig holds the summarizer configuration
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	Model   string `yaml:"model" env:"MODEL"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

// QuestionsConfig holds daily question configuration
type QuestionsConfig struct {
	Timezone string `yaml:"timezone" env:"TIMEZONE"`
}

// PairingConfig holds couple request configuration
type PairingConfig struct {
	RequestTTL    time.Duration `yaml:"request_ttl" env:"REQUEST_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// TracingConfig holds OpenTelemetry configuration. Tracing is off when Endpoint is empty.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"INSECURE"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Storage:   StorageConfig{Driver: "postgres"},
		Database:  DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable", Migrate: true},
		AWS:       AWSConfig{MaxImageSide: 8192},
		JWT:       JWTConfig{TTL: 30 * 24 * time.Hour},
		Log:       LogConfig{Level: "info"},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Questions: QuestionsConfig{Timezone: "UTC"},
		Pairing:   PairingConfig{RequestTTL: 14 * 24 * time.Hour, SweepInterval: 10 * time.Minute},
		Metrics:   MetricsConfig{Enabled: true, Path: "/metrics"},
		Tracing:   TracingConfig{ServiceName: "bloom-backend"},
	}
}

// Load reads configuration from a YAML file on top of the defaults and then
// applies BLOOM_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := time.LoadLocation(c.Questions.Timezone); err != nil {
		return fmt.Errorf("invalid questions.timezone: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrationURL returns the database URL in the form golang-migrate's pgx/v5 driver expects
func (c *DatabaseConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	AWS      AWSConfig      `yaml:"aws" envPrefix:"AWS_"`
	JWT      JWTConfig      `yaml:"jwt" envPrefix:"JWT_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Shopify  ShopifyConfig  `yaml:"shopify" envPrefix:"SHOPIFY_"`
	APNs     APNsConfig     `yaml:"apns" envPrefix:"APNS_"`
	Admin    AdminConfig    `yaml:"admin" envPrefix:"ADMIN_"`
	Quest    QuestConfig    `yaml:"quest" envPrefix:"QUEST_"`
	Points   PointsConfig   `yaml:"points" envPrefix:"POINTS_"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	Host            string        `yaml:"host" env:"HOST"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set
	URL      string `yaml:"url" env:"URL"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

// AWSConfig holds S3 configuration for photo uploads
type AWSConfig struct {
	Region        string `yaml:"region" env:"REGION"`
	S3Bucket      string `yaml:"s3_bucket" env:"S3_BUCKET"`
	AccessKey     string `yaml:"access_key" env:"ACCESS_KEY_ID"`
	SecretKey     string `yaml:"secret_key" env:"SECRET_ACCESS_KEY"`
	Endpoint      string `yaml:"endpoint" env:"ENDPOINT"`
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret" env:"SECRET"`
	TTL    time.Duration `yaml:"ttl" env:"TTL"`
}

// LogConfig holds logging configuration. File enables a rotated log file
// next to stderr output.
type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
}

// ShopifyConfig holds Admin API access for customer lookup
type ShopifyConfig struct {
	ShopDomain  string `yaml:"shop_domain" env:"SHOP_DOMAIN"`
	AccessToken string `yaml:"access_token" env:"ACCESS_TOKEN"`
	APIVersion  string `yaml:"api_version" env:"API_VERSION"`
}

// APNsConfig holds push notification credentials. Pushes are disabled when
// the key file is empty.
type APNsConfig struct {
	KeyFile    string `yaml:"key_file" env:"KEY_FILE"`
	KeyID      string `yaml:"key_id" env:"KEY_ID"`
	TeamID     string `yaml:"team_id" env:"TEAM_ID"`
	Topic      string `yaml:"topic" env:"TOPIC"`
	Production bool   `yaml:"production" env:"PRODUCTION"`
}

// AdminConfig guards the admin routes. An empty token disables them.
type AdminConfig struct {
	Token string `yaml:"token" env:"TOKEN"`
}

// QuestConfig holds quest progression rules
type QuestConfig struct {
	SequentialSteps bool `yaml:"sequential_steps" env:"SEQUENTIAL_STEPS"`
}

// PointsConfig holds point rewards not stored on places or quests
type PointsConfig struct {
	PhotoReward int `yaml:"photo_reward" env:"PHOTO_REWARD"`
}

// Default returns the configuration used for anything not set elsewhere
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "adventure",
			SSLMode: "disable",
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		JWT: JWTConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Shopify: ShopifyConfig{
			APIVersion: "2024-01",
		},
		Points: PointsConfig{
			PhotoReward: 5,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when missing), then environment variables, which may come from a
// .env file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and sane
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Points.PhotoReward < 0 {
		errs = append(errs, errors.New("points.photo_reward must not be negative"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	ArchiveNone = "none"
	ArchiveGCS  = "gcs"
	ArchiveR2   = "r2"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	MongoURI     string `mapstructure:"MONGODB_URI"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	TokenTTL   time.Duration `mapstructure:"TOKEN_TTL"`
	BcryptCost int           `mapstructure:"BCRYPT_COST"`

	// VisionCredentialsFile is the service-account key for the Vision API.
	// Empty means application default credentials.
	VisionCredentialsFile string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`

	AllowedOrigins  string `mapstructure:"ALLOWED_ORIGINS"`
	MaxUploadSizeMB int    `mapstructure:"MAX_UPLOAD_SIZE_MB"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	AdminEmail            string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword         string `mapstructure:"ADMIN_PASSWORD"`
	AdminSelfRegistration bool   `mapstructure:"ADMIN_SELF_REGISTRATION"`

	ScanArchive       string `mapstructure:"SCAN_ARCHIVE"`
	GCSBucket         string `mapstructure:"GCS_BUCKET"`
	R2Bucket          string `mapstructure:"R2_BUCKET"`
	R2AccessKeyID     string `mapstructure:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `mapstructure:"R2_SECRET_ACCESS_KEY"`
	R2Endpoint        string `mapstructure:"R2_ENDPOINT"`
	R2PublicDomain    string `mapstructure:"R2_PUBLIC_DOMAIN"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT", "MONGODB_URI", "DATABASE_NAME",
	"JWT_SECRET", "TOKEN_TTL", "BCRYPT_COST",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"ALLOWED_ORIGINS", "MAX_UPLOAD_SIZE_MB",
	"LOG_LEVEL", "LOG_FORMAT",
	"ADMIN_EMAIL", "ADMIN_PASSWORD", "ADMIN_SELF_REGISTRATION",
	"SCAN_ARCHIVE", "GCS_BUCKET",
	"R2_BUCKET", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_ENDPOINT", "R2_PUBLIC_DOMAIN",
	"SHUTDOWN_TIMEOUT",
}

// Load reads .env (if present) and the process environment. Real env vars
// win over .env values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_NAME", "quickcert")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ADMIN_SELF_REGISTRATION", true)
	v.SetDefault("SCAN_ARCHIVE", ArchiveNone)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.MongoURI) == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.BcryptCost < bcrypt.MinCost {
		c.BcryptCost = bcrypt.MinCost
	}
	if c.BcryptCost > bcrypt.MaxCost {
		c.BcryptCost = bcrypt.MaxCost
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_MB must be positive, got %d", c.MaxUploadSizeMB)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT: unsupported format %q (json, text)", c.LogFormat)
	}

	c.ScanArchive = strings.ToLower(strings.TrimSpace(c.ScanArchive))
	switch c.ScanArchive {
	case "", ArchiveNone:
		c.ScanArchive = ArchiveNone
	case ArchiveGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required when SCAN_ARCHIVE=gcs")
		}
	case ArchiveR2:
		if c.R2Bucket == "" || c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" || c.R2Endpoint == "" {
			return errors.New("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
		}
	default:
		return fmt.Errorf("SCAN_ARCHIVE: unsupported value %q (none, gcs, r2)", c.ScanArchive)
	}

	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS into a lookup set.
func (c *Config) Origins() map[string]bool {
	allowed := map[string]bool{}
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}
	return allowed
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
}

// SetupLogger installs the configured slog handler as the default logger.
func SetupLogger(c *Config) *slog.Logger {
	level, _ := ParseLogLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Media drivers
const (
	MediaNone       = "none"
	MediaCloudinary = "cloudinary"
	MediaS3         = "s3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `env:"PORT" envDefault:"8080" json:"port"`
	Env             string        `env:"APP_ENV" envDefault:"development" json:"env"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s" json:"http_timeout"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080" json:"public_base_url"`

	// Document store
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"sqlite" json:"store_driver"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"./data/firenews.db" json:"sqlite_path"`
	MongoURI      string `env:"MONGO_URI" json:"-"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"firenews" json:"mongo_database"`

	// Redis configuration. An empty URL selects the in-process cache.
	RedisURL         string        `env:"REDIS_URL" json:"-"`
	RedisPrefix      string        `env:"REDIS_PREFIX" envDefault:"firenews:" json:"redis_prefix"`
	CategoryCountTTL time.Duration `env:"CATEGORY_COUNT_TTL" envDefault:"1m" json:"category_count_ttl"`

	// Identity
	JWTSecret              string        `env:"JWT_SECRET" json:"-"`
	SessionTTL             time.Duration `env:"SESSION_TTL" envDefault:"720h" json:"session_ttl"`
	BootstrapAdminEmail    string        `env:"BOOTSTRAP_ADMIN_EMAIL" envDefault:"admin@firenews.com" json:"bootstrap_admin_email"`
	BootstrapAdminPassword string        `env:"BOOTSTRAP_ADMIN_PASSWORD" json:"-"`
	GoogleClientID         string        `env:"GOOGLE_CLIENT_ID" json:"-"`
	GoogleClientSecret     string        `env:"GOOGLE_CLIENT_SECRET" json:"-"`
	GitHubClientID         string        `env:"GITHUB_CLIENT_ID" json:"-"`
	GitHubClientSecret     string        `env:"GITHUB_CLIENT_SECRET" json:"-"`

	// Mail
	SMTPHost string `env:"SMTP_HOST" json:"smtp_host"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587" json:"smtp_port"`
	SMTPUser string `env:"SMTP_USER" json:"-"`
	SMTPPass string `env:"SMTP_PASS" json:"-"`
	MailFrom string `env:"MAIL_FROM" envDefault:"FireNews <no-reply@firenews.com>" json:"mail_from"`

	// Media
	MediaDriver             string `env:"MEDIA_DRIVER" envDefault:"none" json:"media_driver"`
	CloudinaryCloudName     string `env:"CLOUDINARY_CLOUD_NAME" json:"cloudinary_cloud_name"`
	CloudinaryUploadPreset  string `env:"CLOUDINARY_UPLOAD_PRESET" json:"cloudinary_upload_preset"`
	CloudinaryFolder        string `env:"CLOUDINARY_FOLDER" json:"cloudinary_folder"`
	MaxFileSize             int64  `env:"MAX_FILE_SIZE" envDefault:"10485760" json:"max_file_size"`
	DefaultImageURL         string `env:"DEFAULT_IMAGE_URL" envDefault:"https://source.unsplash.com/random/800x600/?news" json:"default_image_url"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `env:"R2_ENDPOINT" json:"r2_endpoint"`
	R2AccessKey string `env:"R2_ACCESS_KEY" json:"-"`
	R2SecretKey string `env:"R2_SECRET_ACCESS_KEY" json:"-"`
	R2Bucket    string `env:"R2_BUCKET" envDefault:"firenews" json:"r2_bucket"`
	R2PublicURL string `env:"R2_PUBLIC_URL" json:"r2_public_url"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" json:"log_level"`
	LogFile   string `env:"LOG_FILE" json:"log_file"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true" json:"log_pretty"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg, err := Parse()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// Parse reads the process environment into a Config and validates it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "test"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case StoreMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.MediaDriver {
	case MediaNone:
	case MediaCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryUploadPreset == "" {
			errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME and CLOUDINARY_UPLOAD_PRESET are required for cloudinary uploads"))
		}
	case MediaS3:
		if c.R2Endpoint == "" || c.R2AccessKey == "" || c.R2SecretKey == "" || c.R2PublicURL == "" {
			errs = append(errs, errors.New("R2_ENDPOINT, R2_ACCESS_KEY, R2_SECRET_ACCESS_KEY and R2_PUBLIC_URL are required for s3 uploads"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver))
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			errs = append(errs, errors.New("JWT_SECRET is required outside development"))
		} else {
			c.JWTSecret = "dev-secret-change-me"
		}
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	c.BootstrapAdminEmail = strings.ToLower(strings.TrimSpace(c.BootstrapAdminEmail))

	return errors.Join(errs...)
}

// OAuthEnabled reports whether the named provider has client credentials.
func (c *Config) OAuthEnabled(provider string) bool {
	switch provider {
	case "google":
		return c.GoogleClientID != "" && c.GoogleClientSecret != ""
	case "github":
		return c.GitHubClientID != "" && c.GitHubClientSecret != ""
	}
	return false
}

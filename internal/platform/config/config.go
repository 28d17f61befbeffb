package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Addr                 string
	DatabaseURL          string
	JWTSecret            string
	DataEncryptionKey    string
	Environment          string
	SeedAdminEmail       string
	SeedAdminPassword    string
	EmailEnabled         bool
	EmailFrom            string
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPUseTLS           bool
	ResetBaseURL         string
	StorageDriver        string
	StorageDir           string
	S3Bucket             string
	S3Region             string
	S3Endpoint           string
	SignedURLTTL         time.Duration
	RunMigrations        bool
	RunSeed              bool
	MaxBodyBytes         int64
	MaxUploadBytes       int64
	RateLimitPerMinute   int
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	MetricsEnabled       bool
}

// Load reads configuration from the environment. When APP_CONFIG points at a
// TOML file its values act as defaults; set environment variables always win.
func Load() Config {
	if path := os.Getenv("APP_CONFIG"); path != "" {
		applyFileConfig(path)
	}

	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		DataEncryptionKey:    getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:          getEnv("APP_ENV", "development"),
		SeedAdminEmail:       getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:    getEnv("SEED_ADMIN_PASSWORD", ""),
		EmailEnabled:         getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:            getEnv("EMAIL_FROM", "no-reply@datarhaya.com"),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:           getEnvBool("SMTP_USE_TLS", true),
		ResetBaseURL:         getEnv("RESET_BASE_URL", "http://localhost:8080"),
		StorageDriver:        getEnv("STORAGE_DRIVER", "local"),
		StorageDir:           getEnv("STORAGE_DIR", "storage"),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Region:             getEnv("S3_REGION", "ap-southeast-1"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		SignedURLTTL:         getEnvDuration("SIGNED_URL_TTL", 24*time.Hour),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:              getEnvBool("RUN_SEED", true),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		SessionTTL:           getEnvDuration("SESSION_TTL", 8*time.Hour),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
	}
}

type fileConfig struct {
	Server struct {
		Addr        string `toml:"addr"`
		Environment string `toml:"environment"`
	} `toml:"server"`
	Database struct {
		URL string `toml:"url"`
	} `toml:"database"`
	Auth struct {
		JWTSecret         string `toml:"jwt_secret"`
		DataEncryptionKey string `toml:"data_encryption_key"`
		ResetBaseURL      string `toml:"reset_base_url"`
	} `toml:"auth"`
	SMTP struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		From     string `toml:"from"`
	} `toml:"smtp"`
	Storage struct {
		Driver   string `toml:"driver"`
		Dir      string `toml:"dir"`
		Bucket   string `toml:"bucket"`
		Region   string `toml:"region"`
		Endpoint string `toml:"endpoint"`
	} `toml:"storage"`
}

// applyFileConfig seeds unset environment variables from a TOML file so the
// normal env lookups below pick them up.
func applyFileConfig(path string) {
	var file fileConfig
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return
	}

	setIfUnset("APP_ADDR", file.Server.Addr)
	setIfUnset("APP_ENV", file.Server.Environment)
	setIfUnset("DATABASE_URL", file.Database.URL)
	setIfUnset("JWT_SECRET", file.Auth.JWTSecret)
	setIfUnset("DATA_ENCRYPTION_KEY", file.Auth.DataEncryptionKey)
	setIfUnset("RESET_BASE_URL", file.Auth.ResetBaseURL)
	setIfUnset("SMTP_HOST", file.SMTP.Host)
	setIfUnset("SMTP_USER", file.SMTP.User)
	setIfUnset("SMTP_PASSWORD", file.SMTP.Password)
	setIfUnset("EMAIL_FROM", file.SMTP.From)
	if file.SMTP.Port > 0 {
		setIfUnset("SMTP_PORT", strconv.Itoa(file.SMTP.Port))
	}
	setIfUnset("STORAGE_DRIVER", file.Storage.Driver)
	setIfUnset("STORAGE_DIR", file.Storage.Dir)
	setIfUnset("S3_BUCKET", file.Storage.Bucket)
	setIfUnset("S3_REGION", file.Storage.Region)
	setIfUnset("S3_ENDPOINT", file.Storage.Endpoint)
}

func setIfUnset(key, value string) {
	if value == "" {
		return
	}
	if os.Getenv(key) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.MaxUploadBytes < c.MaxBodyBytes {
		return fmt.Errorf("MAX_UPLOAD_BYTES must not be below MAX_BODY_BYTES")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	switch c.StorageDriver {
	case "local":
		if strings.TrimSpace(c.StorageDir) == "" {
			return fmt.Errorf("STORAGE_DIR must be set for the local storage driver")
		}
	case "s3":
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("S3_BUCKET must be set for the s3 storage driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be local or s3")
	}
	return nil
}

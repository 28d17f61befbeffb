package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	base := Config{
		DatabaseURL:        "postgres://localhost/rhaya",
		MaxBodyBytes:       1048576,
		MaxUploadBytes:     10 * 1024 * 1024,
		RateLimitPerMinute: 60,
		StorageDriver:      "local",
		StorageDir:         "storage",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid development config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: true,
		},
		{
			name: "production requires jwt secret",
			mutate: func(c *Config) {
				c.Environment = "production"
			},
			wantErr: true,
		},
		{
			name:    "body limit too small",
			mutate:  func(c *Config) { c.MaxBodyBytes = 100 },
			wantErr: true,
		},
		{
			name: "s3 driver requires bucket",
			mutate: func(c *Config) {
				c.StorageDriver = "s3"
				c.S3Bucket = ""
			},
			wantErr: true,
		},
		{
			name: "s3 driver with bucket",
			mutate: func(c *Config) {
				c.StorageDriver = "s3"
				c.S3Bucket = "rhaya-hr-files"
			},
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.StorageDriver = "ftp" },
			wantErr: true,
		},
		{
			name: "email enabled requires smtp host",
			mutate: func(c *Config) {
				c.EmailEnabled = true
				c.SMTPHost = ""
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	t.Setenv("SIGNED_URL_TTL", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")

	cfg := Load()
	if cfg.Addr == "" {
		t.Fatal("expected default addr")
	}
	if cfg.SignedURLTTL != 24*time.Hour {
		t.Fatalf("expected 24h signed url ttl, got %v", cfg.SignedURLTTL)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Fatalf("expected 10MiB upload limit, got %d", cfg.MaxUploadBytes)
	}
}

func TestApplyFileConfigEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[server]
addr = ":9999"

[database]
url = "postgres://file-host/rhaya"

[storage]
driver = "s3"
bucket = "file-bucket"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://env-host/rhaya")
	t.Setenv("APP_ADDR", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("S3_BUCKET", "")

	applyFileConfig(path)

	if got := os.Getenv("DATABASE_URL"); got != "postgres://env-host/rhaya" {
		t.Fatalf("env value should win, got %q", got)
	}
	if got := os.Getenv("APP_ADDR"); got != ":9999" {
		t.Fatalf("file value should fill unset key, got %q", got)
	}
	if got := os.Getenv("S3_BUCKET"); got != "file-bucket" {
		t.Fatalf("file bucket should apply, got %q", got)
	}
}

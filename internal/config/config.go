// Package config loads settings from the environment and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	JournalNone     = "none"
	JournalPostgres = "postgres"
	JournalSQLite   = "sqlite"
)

type Config struct {
	Port     string `mapstructure:"port"`
	APIBase  string `mapstructure:"api_base"`
	Timezone string `mapstructure:"timezone"`

	HTTPTimeout          time.Duration `mapstructure:"http_timeout"`
	ScanInterval         time.Duration `mapstructure:"scan_interval"`
	CameraAcquireTimeout time.Duration `mapstructure:"camera_acquire_timeout"`
	SubmitResetDelay     time.Duration `mapstructure:"submit_reset_delay"`
	SessionTTL           time.Duration `mapstructure:"session_ttl"`

	JournalDriver string `mapstructure:"journal_driver"`
	DatabaseURL   string `mapstructure:"database_url"`
	SQLitePath    string `mapstructure:"sqlite_path"`

	UploadsDir         string `mapstructure:"uploads_dir"`
	S3Endpoint         string `mapstructure:"s3_endpoint"`
	S3Bucket           string `mapstructure:"s3_bucket_name"`
	AWSRegion          string `mapstructure:"aws_region"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`

	OCREnabled   bool   `mapstructure:"ocr_enabled"`
	OCRIDPattern string `mapstructure:"ocr_id_pattern"`

	CSRFKey    string `mapstructure:"csrf_key"`
	CSRFSecure bool   `mapstructure:"csrf_secure"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]interface{}{
	"port":                   "8080",
	"api_base":               "http://localhost:8090/exec",
	"timezone":               "Local",
	"http_timeout":           15 * time.Second,
	"scan_interval":          100 * time.Millisecond,
	"camera_acquire_timeout": 20 * time.Second,
	"submit_reset_delay":     2 * time.Second,
	"session_ttl":            12 * time.Hour,
	"journal_driver":         JournalNone,
	"database_url":           "",
	"sqlite_path":            "journal.db",
	"uploads_dir":            "uploads",
	"s3_endpoint":            "",
	"s3_bucket_name":         "extinguisher-scans",
	"aws_region":             "us-east-1",
	"aws_access_key_id":      "",
	"aws_secret_access_key":  "",
	"ocr_enabled":            false,
	"ocr_id_pattern":         "",
	"csrf_key":               "",
	"csrf_secure":            false,
	"log_level":              "info",
	"log_format":             "text",
}

// Load reads the environment (PORT, API_BASE, DATABASE_URL, ...) and, when path is
// not empty, a config file whose keys are the lowercase names.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("api_base is required")
	}
	switch c.JournalDriver {
	case JournalNone, JournalSQLite:
	case JournalPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the postgres journal")
		}
	default:
		return fmt.Errorf("unknown journal_driver %q", c.JournalDriver)
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return fmt.Errorf("csrf_key must be 32 bytes, got %d", len(c.CSRFKey))
	}
	return nil
}

// Location resolves Timezone; "Local" or empty means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UseS3 reports whether snapshots go to S3 rather than the uploads folder.
func (c *Config) UseS3() bool {
	return c.S3Endpoint != "" || c.AWSAccessKeyID != ""
}

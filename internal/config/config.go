// Package config holds the pipeline configuration threaded through every stage.
//
// Values are resolved in three layers: Default, an optional YAML file, and
// environment variables. Credentials are only read from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceKaggle = "kaggle"
	SourceS3     = "s3"
)

// Environment variables holding the dataset host credentials.
const (
	EnvUsername = "KAGGLE_USERNAME"
	EnvKey      = "KAGGLE_KEY"
)

// Common errors.
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("missing dataset credentials")
)

// ConfigError describes a single invalid configuration value.
//
//nolint:revive // config.ConfigError reads better at call sites than config.Error
type ConfigError struct {
	Field   string
	Details string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Details)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Config is the full pipeline configuration.
type Config struct {
	Paths       Paths       `yaml:"paths"`
	Columns     Columns     `yaml:"columns"`
	Split       Split       `yaml:"split"`
	Batch       Batch       `yaml:"batch"`
	Source      Source      `yaml:"source"`
	Credentials Credentials `yaml:"-"`
	Metrics     Metrics     `yaml:"metrics"`
	Ledger      Ledger      `yaml:"ledger"`
	Log         Log         `yaml:"log"`
}

// Paths are the on-disk locations of each stage's artifacts.
type Paths struct {
	Raw       string `yaml:"raw"`
	Processed string `yaml:"processed"`
	Interim   string `yaml:"interim"`
	Report    string `yaml:"report"`
}

// Columns names the identifier, input and label columns.
type Columns struct {
	ID     string   `yaml:"id"`
	Inputs []string `yaml:"inputs"`
	Labels []string `yaml:"labels"`
}

// Split controls the train/validation split.
type Split struct {
	ValFraction float64 `yaml:"val_fraction"`
	Seed        uint64  `yaml:"seed"`
}

// Batch controls tensor conversion.
type Batch struct {
	Size     int    `yaml:"size"`
	Shuffle  bool   `yaml:"shuffle"`
	Seed     uint64 `yaml:"seed"`
	Encoding string `yaml:"encoding"` // tiktoken encoding; empty disables tokenization
	Compress bool   `yaml:"compress"` // gzip the saved data section
}

// Source selects where raw tables are fetched from.
type Source struct {
	Kind       string `yaml:"kind"`
	Handle     string `yaml:"handle"`
	BaseURL    string `yaml:"base_url"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"` // MinIO and tests
}

// Credentials authenticate against the dataset host.
type Credentials struct {
	Username string
	Key      string
}

// Metrics configures the optional Pushgateway export.
type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Ledger configures the optional run ledger.
type Ledger struct {
	DatabaseURL string `yaml:"database_url"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration for the Jigsaw toxic comment dataset.
func Default() *Config {
	return &Config{
		Paths: Paths{
			Raw:       "data/raw",
			Processed: "data/processed",
			Interim:   "data/interim",
			Report:    "reports/exploration.xlsx",
		},
		Columns: Columns{
			ID:     "id",
			Inputs: []string{"comment_text"},
			Labels: []string{"toxic", "severe_toxic", "obscene", "threat", "insult", "identity_hate"},
		},
		Split: Split{
			ValFraction: 0.2,
			Seed:        0,
		},
		Batch: Batch{
			Size:     32,
			Shuffle:  true,
			Compress: true,
		},
		Source: Source{
			Kind:     SourceKaggle,
			Handle:   "julian3833/jigsaw-toxic-comment-classification-challenge",
			BaseURL:  "https://www.kaggle.com/api/v1",
			S3Region: "us-east-1",
		},
		Metrics: Metrics{
			Job: "toxicprep",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a configuration from defaults, the YAML file at path (if not
// empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // G304: config path is supplied by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Paths.Raw = getEnvOrDefault("TOXICPREP_RAW_DIR", c.Paths.Raw)
	c.Paths.Processed = getEnvOrDefault("TOXICPREP_PROCESSED_DIR", c.Paths.Processed)
	c.Paths.Interim = getEnvOrDefault("TOXICPREP_INTERIM_DIR", c.Paths.Interim)
	c.Paths.Report = getEnvOrDefault("TOXICPREP_REPORT", c.Paths.Report)

	c.Source.Kind = getEnvOrDefault("TOXICPREP_SOURCE", c.Source.Kind)
	c.Source.Handle = getEnvOrDefault("TOXICPREP_DATASET", c.Source.Handle)
	c.Source.S3Bucket = getEnvOrDefault("S3_BUCKET", c.Source.S3Bucket)
	c.Source.S3Prefix = getEnvOrDefault("S3_PREFIX", c.Source.S3Prefix)
	c.Source.S3Region = getEnvOrDefault("S3_REGION", c.Source.S3Region)
	c.Source.S3Endpoint = getEnvOrDefault("S3_ENDPOINT", c.Source.S3Endpoint)

	c.Credentials.Username = os.Getenv(EnvUsername)
	c.Credentials.Key = os.Getenv(EnvKey)

	c.Metrics.PushgatewayURL = getEnvOrDefault("PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
	c.Ledger.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.Ledger.DatabaseURL)
	c.Log.Level = getEnvOrDefault("TOXICPREP_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("TOXICPREP_LOG_FORMAT", c.Log.Format)

	var err error
	if c.Batch.Size, err = getIntEnvOrDefault("TOXICPREP_BATCH_SIZE", c.Batch.Size); err != nil {
		return err
	}
	if c.Batch.Shuffle, err = getBoolEnvOrDefault("TOXICPREP_SHUFFLE", c.Batch.Shuffle); err != nil {
		return err
	}
	if c.Batch.Compress, err = getBoolEnvOrDefault("TOXICPREP_COMPRESS", c.Batch.Compress); err != nil {
		return err
	}
	if v := os.Getenv("TOXICPREP_VAL_FRACTION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &ConfigError{Field: "TOXICPREP_VAL_FRACTION", Details: fmt.Sprintf("not a number: %q", v)}
		}
		c.Split.ValFraction = f
	}
	if v := os.Getenv("TOXICPREP_SEED"); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &ConfigError{Field: "TOXICPREP_SEED", Details: fmt.Sprintf("not an unsigned integer: %q", v)}
		}
		c.Split.Seed = s
	}
	return nil
}

// Validate checks parameter types and ranges.
func (c *Config) Validate() error {
	switch {
	case c.Columns.ID == "":
		return &ConfigError{Field: "columns.id", Details: "must not be empty"}
	case len(c.Columns.Inputs) == 0:
		return &ConfigError{Field: "columns.inputs", Details: "must list at least one column"}
	case len(c.Columns.Labels) == 0:
		return &ConfigError{Field: "columns.labels", Details: "must list at least one column"}
	case c.Batch.Size < 1:
		return &ConfigError{Field: "batch.size", Details: fmt.Sprintf("must be positive, got %d", c.Batch.Size)}
	case c.Split.ValFraction < 0 || c.Split.ValFraction >= 1:
		return &ConfigError{Field: "split.val_fraction", Details: fmt.Sprintf("must be in [0, 1), got %g", c.Split.ValFraction)}
	}

	switch c.Source.Kind {
	case SourceKaggle:
		if c.Source.Handle == "" {
			return &ConfigError{Field: "source.handle", Details: "must not be empty"}
		}
	case SourceS3:
		if c.Source.S3Bucket == "" {
			return &ConfigError{Field: "source.s3_bucket", Details: "required for the s3 source"}
		}
	default:
		return &ConfigError{Field: "source.kind", Details: fmt.Sprintf("unknown source %q", c.Source.Kind)}
	}
	return nil
}

// RequireCredentials reports missing dataset host credentials.
//
// Only the kaggle source needs them; S3 uses the AWS credential chain.
func (c *Config) RequireCredentials() error {
	if c.Source.Kind != SourceKaggle {
		return nil
	}
	var missing []string
	if c.Credentials.Username == "" {
		missing = append(missing, EnvUsername)
	}
	if c.Credentials.Key == "" {
		missing = append(missing, EnvKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, " and "))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConfigError{Field: key, Details: fmt.Sprintf("not an integer: %q", value)}
	}
	return n, nil
}

func getBoolEnvOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &ConfigError{Field: key, Details: fmt.Sprintf("not a boolean: %q", value)}
	}
	return b, nil
}

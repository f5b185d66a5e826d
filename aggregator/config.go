// Package aggregator implements collector mode: signature requests arrive
// over HTTP, are buffered in arrival order and closed into fixed-size
// batches that a bounded pool of workers proves in the background.
package aggregator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tesserax/reml/core/types"
)

// EnvPrefix prefixes the environment variables overriding the config, for
// example REML_BATCH_SIZE or REML_LISTEN_ADDR.
const EnvPrefix = "REML"

// Config holds the collector configuration.
type Config struct {
	// ListenAddr is the TCP address of the collector protocol server.
	ListenAddr string

	// BatchSize is the number of requests that closes a batch.
	BatchSize int

	// OutputDir receives one proof_<batch_id>.json per proved batch.
	OutputDir string

	// MaxProvers bounds both the proving queue and the worker count.
	MaxProvers int

	// MaxPending bounds the pending buffer. Submissions beyond it are
	// refused until queued batches drain.
	MaxPending int

	// Mock selects the mock proof backend.
	Mock bool

	// MaxRequestSize bounds the body of a submission in bytes.
	MaxRequestSize int64

	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout time.Duration

	// ReportInterval is the period of metrics log reports. Zero disables
	// them.
	ReportInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      "0.0.0.0:8080",
		BatchSize:       100,
		OutputDir:       "./proofs",
		MaxProvers:      2,
		MaxPending:      1000,
		MaxRequestSize:  64 * 1024,
		ShutdownTimeout: 10 * time.Second,
		ReportInterval:  time.Minute,
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("config: listen address must not be empty")
	}
	if c.BatchSize <= 0 || c.BatchSize > types.MaxBatchSize {
		return fmt.Errorf("config: batch size %d outside [1, %d]", c.BatchSize, types.MaxBatchSize)
	}
	if c.OutputDir == "" {
		return errors.New("config: output directory must not be empty")
	}
	if c.MaxProvers <= 0 {
		return fmt.Errorf("config: invalid max provers: %d", c.MaxProvers)
	}
	if c.MaxPending < c.BatchSize {
		return fmt.Errorf("config: max pending %d below batch size %d", c.MaxPending, c.BatchSize)
	}
	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("config: invalid max request size: %d", c.MaxRequestSize)
	}
	if c.ReportInterval < 0 {
		return fmt.Errorf("config: invalid report interval: %s", c.ReportInterval)
	}
	return nil
}

// LoadConfig reads the configuration from an optional file (TOML, YAML or
// JSON, by extension) and REML_* environment variables on top of
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("batch_size", def.BatchSize)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("max_provers", def.MaxProvers)
	v.SetDefault("max_pending", def.MaxPending)
	v.SetDefault("mock", def.Mock)
	v.SetDefault("max_request_size", def.MaxRequestSize)
	v.SetDefault("shutdown_timeout", def.ShutdownTimeout)
	v.SetDefault("report_interval", def.ReportInterval)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := Config{
		ListenAddr:      v.GetString("listen_addr"),
		BatchSize:       v.GetInt("batch_size"),
		OutputDir:       v.GetString("output_dir"),
		MaxProvers:      v.GetInt("max_provers"),
		MaxPending:      v.GetInt("max_pending"),
		Mock:            v.GetBool("mock"),
		MaxRequestSize:  v.GetInt64("max_request_size"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		ReportInterval:  v.GetDuration("report_interval"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

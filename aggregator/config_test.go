package aggregator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 100, cfg.BatchSize)
	require.Equal(t, "./proofs", cfg.OutputDir)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty addr", func(c *Config) { c.ListenAddr = "" }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"batch above max", func(c *Config) { c.BatchSize = 257 }},
		{"empty output", func(c *Config) { c.OutputDir = "" }},
		{"zero provers", func(c *Config) { c.MaxProvers = 0 }},
		{"pending below batch", func(c *Config) { c.MaxPending = c.BatchSize - 1 }},
		{"zero request size", func(c *Config) { c.MaxRequestSize = 0 }},
		{"negative report interval", func(c *Config) { c.ReportInterval = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = "127.0.0.1:9000"
batch_size = 16
max_provers = 4
max_pending = 64
mock = true
shutdown_timeout = "3s"
report_interval = "0s"
`), 0o644))
	t.Setenv("REML_BATCH_SIZE", "32")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	require.Equal(t, 32, cfg.BatchSize)
	require.Equal(t, 4, cfg.MaxProvers)
	require.Equal(t, 64, cfg.MaxPending)
	require.True(t, cfg.Mock)
	require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	require.Zero(t, cfg.ReportInterval)
	require.Equal(t, DefaultConfig().OutputDir, cfg.OutputDir)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	t.Setenv("REML_BATCH_SIZE", "0")
	_, err = LoadConfig("")
	require.Error(t, err)
}

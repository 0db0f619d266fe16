package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, ";", cfg.Ingest.Delimiter)
	assert.Equal(t, int64(32<<20), cfg.Ingest.MaxUploadBytes)
	assert.True(t, cfg.Security.RateLimit.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: "read timeout",
		},
		{
			name:    "no origins",
			mutate:  func(c *Config) { c.Security.AllowedOrigins = nil },
			wantErr: "allowed origin",
		},
		{
			name:    "multi-character delimiter",
			mutate:  func(c *Config) { c.Ingest.Delimiter = ";;" },
			wantErr: "single character",
		},
		{
			name:    "zero upload cap",
			mutate:  func(c *Config) { c.Ingest.MaxUploadBytes = 0 },
			wantErr: "upload bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CorrectsLoggingShape(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}

func TestMergeConfigs_EnvWins(t *testing.T) {
	fileCfg := Config{}
	fileCfg.Server.Port = 9000
	fileCfg.Ingest.Delimiter = ","
	fileCfg.Logging.Level = "debug"

	envCfg := Config{}
	envCfg.Server.Port = 8081

	merged := mergeConfigs(fileCfg, envCfg)

	assert.Equal(t, 8081, merged.Server.Port)     // env value kept
	assert.Equal(t, ",", merged.Ingest.Delimiter) // file fills the gap
	assert.Equal(t, "debug", merged.Logging.Level)
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Paths.ExecutableDir = dir
	cfg.Paths.DataDir = "data"
	cfg.Paths.ReportsDir = "/absolute/reports"

	require.NoError(t, cfg.resolvePaths())
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Paths.DataDir)
	assert.Equal(t, "/absolute/reports", cfg.Paths.ReportsDir)
	assert.Equal(t, filepath.Join(dir, "logs/app.log"), cfg.Logging.FilePath)
}

func TestDelimiterRune(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ';', cfg.DelimiterRune())

	cfg.Ingest.Delimiter = "\t"
	assert.Equal(t, '\t', cfg.DelimiterRune())

	cfg.Ingest.Delimiter = ""
	assert.Equal(t, ';', cfg.DelimiterRune())
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ReportsDir = filepath.Join(dir, "reports")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Paths.DataDir)
	assert.DirExists(t, cfg.Paths.ReportsDir)
	assert.DirExists(t, cfg.Paths.LogsDir)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray config.yaml is found
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(ConfigFileEnv, "")
	return dir
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "data/ticks.csv", cfg.Dataset.Path)
				assert.Equal(t, "2023-01-01", cfg.Dataset.DefaultDate)
				assert.Equal(t, 14, cfg.Pipeline.RSIPeriod)
				assert.Equal(t, 20, cfg.Pipeline.VolatilityWindow)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"TICKPULSE_SERVER_PORT":                 "9090",
				"TICKPULSE_DATASET_FILE":                "/srv/ticks.xlsx",
				"TICKPULSE_PIPELINE_RSI_PERIOD":         "21",
				"TICKPULSE_SECURITY_ALLOWED_ORIGINS":    "https://a.example,https://b.example",
				"TICKPULSE_SECURITY_RATE_LIMIT_ENABLED": "false",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "/srv/ticks.xlsx", cfg.Dataset.Path)
				assert.Equal(t, 21, cfg.Pipeline.RSIPeriod)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
				assert.False(t, cfg.Security.RateLimit.Enabled)
			},
		},
		{
			name: "yaml file overlays defaults",
			file: `
server:
  port: 7070
  read_timeout: 5s
dataset:
  path: capture.csv
  timezone: Asia/Kolkata
pipeline:
  volatility_window: 30
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "untouched keys keep defaults")
				assert.Equal(t, "capture.csv", cfg.Dataset.Path)
				assert.Equal(t, 30, cfg.Pipeline.VolatilityWindow)
				assert.Equal(t, 14, cfg.Pipeline.RSIPeriod)
			},
		},
		{
			name: "environment beats file",
			env:  map[string]string{"TICKPULSE_SERVER_PORT": "6060"},
			file: "server:\n  port: 7070\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"TICKPULSE_SERVER_PORT": "70000"},
			wantErr: "Server.Port",
		},
		{
			name:    "volatility window too small",
			env:     map[string]string{"TICKPULSE_PIPELINE_VOLATILITY_WINDOW": "2"},
			wantErr: "VolatilityWindow",
		},
		{
			name:    "bad default date",
			env:     map[string]string{"TICKPULSE_DATASET_DEFAULT_DATE": "01/01/2023"},
			wantErr: "DefaultDate",
		},
		{
			name:    "unknown log output",
			env:     map[string]string{"TICKPULSE_LOGGING_OUTPUT": "syslog"},
			wantErr: "Logging.Output",
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"TICKPULSE_SERVER_PORT": "eighty"},
			wantErr: "env",
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: "file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				path := filepath.Join(dir, "custom.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o644))
				t.Setenv(ConfigFileEnv, path)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_FindsConfigYAMLInWorkingDir(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("dataset:\n  path: local.csv\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local.csv", cfg.Dataset.Path)
}

func TestValidate_CrossField(t *testing.T) {
	cfg := Default()
	cfg.Server.RequestTimeout = time.Minute
	cfg.Server.WriteTimeout = 10 * time.Second
	assert.ErrorContains(t, cfg.Validate(), "request timeout")

	cfg = Default()
	cfg.WebSocket.PingPeriod = 2 * time.Minute
	assert.ErrorContains(t, cfg.Validate(), "PingPeriod")

	cfg = Default()
	cfg.Security.AllowedOrigins = nil
	assert.Error(t, cfg.Validate())
	cfg.Security.EnableCORS = false
	assert.NoError(t, cfg.Validate())
}

func TestDatasetConfig_Conversions(t *testing.T) {
	d := Default().Dataset
	loc, err := d.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	date, err := d.StartDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), date)

	d.Timezone = "Asia/Kolkata"
	loc, err = d.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	assert.Equal(t, ":8080", Default().Server.Addr())
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(WithEnvFiles())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name: "full",
			yaml: `listen: ":9090"
landmarks: landmarks.yaml
policy: rearm
resolve_timeout: 5s
reconcile_interval: 1m
log:
  level: debug
  format: json
flags:
  backend: redis
  redis:
    addr: localhost:6379
    ttl: 24h
sim:
  latency: 250ms
tracing:
  enabled: true
  sample_ratio: 0.5
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":9090", cfg.Listen)
				assert.Equal(t, "landmarks.yaml", cfg.Landmarks)
				assert.Equal(t, "rearm", cfg.Policy)
				assert.Equal(t, 5*time.Second, cfg.ResolveTimeout)
				assert.Equal(t, time.Minute, cfg.ReconcileInterval)
				assert.Equal(t, "json", cfg.Log.Format)
				assert.Equal(t, BackendRedis, cfg.Flags.Backend)
				assert.Equal(t, 24*time.Hour, cfg.Flags.Redis.TTL)
				assert.Equal(t, 250*time.Millisecond, cfg.Sim.Latency)
				assert.Equal(t, 100, cfg.Sim.MaxRegions, "unset keys keep their defaults")
				assert.True(t, cfg.Tracing.Enabled)
				assert.InDelta(t, 0.5, cfg.Tracing.SampleRatio, 1e-9)
			},
		},
		{
			name: "empty file",
			yaml: "",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{name: "unknown key", yaml: "listn: :1\n", wantErr: "failed to parse YAML config"},
		{name: "bad policy", yaml: "policy: sometimes\n", wantErr: "invalid configuration"},
		{name: "redis without addr", yaml: "flags:\n  backend: redis\n", wantErr: "flags.redis.addr"},
		{name: "bad backend", yaml: "flags:\n  backend: etcd\n", wantErr: "flags.backend"},
		{name: "bad level", yaml: "log:\n  level: loud\n", wantErr: "invalid log level"},
		{name: "bad ratio", yaml: "tracing:\n  sample_ratio: 2\n", wantErr: "sample_ratio"},
		{name: "negative timeout", yaml: "resolve_timeout: -1s\n", wantErr: "resolve_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(WithEnvFiles(), WithConfigPath(writeFile(t, "geofence.yaml", tt.yaml)))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(WithEnvFiles(), WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "geofence.yaml", "listen: \":9090\"\npolicy: rearm\n")
	t.Setenv("GEOFENCE_POLICY", "exclude")
	t.Setenv("GEOFENCE_SIM_LATENCY", "1s")
	t.Setenv("GEOFENCE_FLAGS_BACKEND", "file")

	cfg, err := Load(WithEnvFiles(), WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "exclude", cfg.Policy)
	assert.Equal(t, time.Second, cfg.Sim.Latency)
	assert.Equal(t, BackendFile, cfg.Flags.Backend)
}

func TestLoad_EnvOverridesEmptyDefaults(t *testing.T) {
	t.Setenv("GEOFENCE_LANDMARKS", "/etc/geofence/landmarks.yaml")
	t.Setenv("GEOFENCE_METRICS", "false")
	t.Setenv("GEOFENCE_FLAGS_REDIS_CHANNEL", "retired")
	t.Setenv("GEOFENCE_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := Load(WithEnvFiles())
	require.NoError(t, err)
	assert.Equal(t, "/etc/geofence/landmarks.yaml", cfg.Landmarks)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, "retired", cfg.Flags.Redis.Channel)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
}

func TestLoad_DotEnv(t *testing.T) {
	env := writeFile(t, ".env", "GEOFENCE_LOG_FORMAT=json\n")
	t.Setenv("GEOFENCE_LOG_FORMAT", "")
	require.NoError(t, os.Unsetenv("GEOFENCE_LOG_FORMAT"))

	cfg, err := Load(WithEnvFiles(env))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("GEOFENCE_LISTEN", ":7000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("listen", ":8080", "")
	v := viper.New()
	require.NoError(t, v.BindPFlag("listen", fs.Lookup("listen")))

	cfg, err := Load(WithEnvFiles(), WithViper(v))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen, "unchanged flags do not override")

	require.NoError(t, fs.Parse([]string{"--listen", ":9000"}))
	cfg, err = Load(WithEnvFiles(), WithViper(v))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "GEOFENCE_FLAGS_REDIS_ADDR", EnvName("flags.redis.addr"))
}

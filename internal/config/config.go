// Package config loads the geofence service configuration.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, the YAML file, GEOFENCE_* environment variables (a .env file is
// loaded into the environment first) and command-line flags bound to the
// viper instance passed with WithViper.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/geofence/internal/logging"
	"github.com/aretw0/geofence/pkg/observability"
	"github.com/aretw0/geofence/pkg/router"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GEOFENCE"

// Flag store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config represents the root configuration structure.
type Config struct {
	Listen            string        `yaml:"listen" mapstructure:"listen"`
	Landmarks         string        `yaml:"landmarks" mapstructure:"landmarks"`
	Policy            string        `yaml:"policy" mapstructure:"policy"`
	ResolveTimeout    time.Duration `yaml:"resolve_timeout" mapstructure:"resolve_timeout"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval" mapstructure:"reconcile_interval"`
	EventBuffer       int           `yaml:"event_buffer" mapstructure:"event_buffer"`
	Metrics           bool          `yaml:"metrics" mapstructure:"metrics"`
	Restore           bool          `yaml:"restore" mapstructure:"restore"`

	Log     LogConfig                   `yaml:"log" mapstructure:"log"`
	Flags   FlagStoreConfig             `yaml:"flags" mapstructure:"flags"`
	Sim     SimConfig                   `yaml:"sim" mapstructure:"sim"`
	Tracing observability.TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FlagStoreConfig selects where the "regions registered" flag lives.
type FlagStoreConfig struct {
	Backend string      `yaml:"backend" mapstructure:"backend"`
	Path    string      `yaml:"path" mapstructure:"path"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis flag store and retirement publisher.
type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Channel  string        `yaml:"channel" mapstructure:"channel"`
}

// SimConfig tunes the simulated monitoring service.
type SimConfig struct {
	Latency    time.Duration `yaml:"latency" mapstructure:"latency"`
	MaxRegions int           `yaml:"max_regions" mapstructure:"max_regions"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Listen:            ":8080",
		Policy:            router.RotateExclude.String(),
		ReconcileInterval: 30 * time.Second,
		EventBuffer:       64,
		Metrics:           true,
		Restore:           true,
		Log:               LogConfig{Level: "info", Format: "text"},
		Flags:             FlagStoreConfig{Backend: BackendMemory},
		Sim:               SimConfig{MaxRegions: 100},
		Tracing: observability.TracingConfig{
			ServiceName: "geofence",
			Exporter:    "stderr",
			SampleRatio: 1,
		},
	}
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	path     string
	envFiles []string
	v        *viper.Viper
}

// WithConfigPath reads the YAML file at path. A missing path is an error.
func WithConfigPath(path string) Option {
	return func(l *loader) {
		l.path = path
	}
}

// WithEnvFiles loads the given dotenv files before reading overrides.
// Missing files are skipped. Defaults to ".env".
func WithEnvFiles(files ...string) Option {
	return func(l *loader) {
		l.envFiles = files
	}
}

// WithViper reads overrides from v, so flags bound with v.BindPFlag win over
// the environment.
func WithViper(v *viper.Viper) Option {
	return func(l *loader) {
		l.v = v
	}
}

// Load builds a validated Config.
func Load(opts ...Option) (*Config, error) {
	l := &loader{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(l)
	}
	if l.v == nil {
		l.v = viper.New()
	}

	for _, f := range l.envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := l.v
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The defaults are read as the base layer so every key is known to viper
	// and can be overridden from the environment.
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	cfg := Default()
	if err := v.UnmarshalExact(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if _, err := router.ParseRotationPolicy(c.Policy); err != nil {
		return err
	}
	if c.ResolveTimeout < 0 {
		return errors.New("resolve_timeout cannot be negative")
	}
	if c.ReconcileInterval < 0 {
		return errors.New("reconcile_interval cannot be negative")
	}
	if c.EventBuffer < 0 {
		return errors.New("event_buffer cannot be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.Flags.Backend {
	case "", BackendMemory, BackendFile:
	case BackendRedis:
		if c.Flags.Redis.Addr == "" {
			return errors.New("flags.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("flags.backend must be memory, file or redis, got %q", c.Flags.Backend)
	}
	if c.Sim.Latency < 0 {
		return errors.New("sim.latency cannot be negative")
	}
	if c.Sim.MaxRegions < 0 {
		return errors.New("sim.max_regions cannot be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0,1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() slog.Level {
	l, _ := logging.ParseLevel(c.Log.Level)
	return l
}

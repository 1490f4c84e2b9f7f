package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/geofence/internal/cli"
	"github.com/aretw0/geofence/internal/config"
	"github.com/aretw0/geofence/pkg/observability"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// v holds flag bindings; config.Load reads overrides from it.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "geofence",
	Short: "Rotate landmark geofences as the device dwells in them",
	Long: `geofence keeps a set of landmark regions registered with a location
monitoring service, notifies on ENTER, EXIT and DWELL transitions, and retires
a landmark once the device has dwelled in it.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML configuration file")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (text, json)")
	pf.String("landmarks", "", "Landmark catalogue YAML (defaults to the built-in landmarks)")
	pf.String("policy", "", "Dwell rotation policy (exclude, rearm)")
	pf.String("flags-backend", "", "Where the registration flag is kept (memory, file, redis)")
	pf.Duration("sim-latency", 0, "Latency of the simulated monitoring service")

	bind(pf, "log.level", "log-level")
	bind(pf, "log.format", "log-format")
	bind(pf, "landmarks", "landmarks")
	bind(pf, "policy", "policy")
	bind(pf, "flags.backend", "flags-backend")
	bind(pf, "sim.latency", "sim-latency")
}

func bind(fs *pflag.FlagSet, key, name string) {
	if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
		slog.Error("Error binding flag", "flag", name, "error", err)
	}
}

// session is a built runtime plus the cleanup that goes with it.
type session struct {
	*cli.Runtime
	shutdownTracing observability.ShutdownFunc
}

func (s *session) Close() {
	observability.ShutdownWithTimeout(context.Background(), s.shutdownTracing, s.Logger)
	if err := s.Runtime.Close(); err != nil {
		s.Logger.Warn("close failed", "error", err)
	}
}

// start loads the configuration, installs tracing and builds the runtime.
func start(ctx context.Context, cmd *cobra.Command, opts ...cli.BuildOption) (*session, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.WithConfigPath(path), config.WithViper(v))
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(cfg)

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, err
	}
	rt, err := cli.Build(ctx, cfg, logger, opts...)
	if err != nil {
		observability.ShutdownWithTimeout(ctx, shutdown, logger)
		return nil, err
	}
	return &session{Runtime: rt, shutdownTracing: shutdown}, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

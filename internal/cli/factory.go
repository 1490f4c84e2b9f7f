package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/geofence"
	"github.com/aretw0/geofence/internal/config"
	"github.com/aretw0/geofence/pkg/adapters/file"
	gfhttp "github.com/aretw0/geofence/pkg/adapters/http"
	"github.com/aretw0/geofence/pkg/adapters/landmarks"
	"github.com/aretw0/geofence/pkg/adapters/memory"
	"github.com/aretw0/geofence/pkg/adapters/redis"
	"github.com/aretw0/geofence/pkg/adapters/sim"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/observability"
	"github.com/aretw0/geofence/pkg/ports"
	"github.com/aretw0/geofence/pkg/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime bundles a Service with the adapters built for it.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Service  *geofence.Service
	Monitor  *sim.Monitor
	Streams  *gfhttp.StreamManager
	Registry *prometheus.Registry // nil when metrics are disabled
	Template domain.RegionTemplate

	closers []func() error
}

// BuildOption adds an adapter chosen by the command rather than the config.
type BuildOption func(*buildOptions)

type buildOptions struct {
	sinks     []ports.DisplaySink
	listeners []ports.RetirementListener
}

// WithDisplay adds a sink every notification is shown on.
func WithDisplay(s ports.DisplaySink) BuildOption {
	return func(o *buildOptions) {
		o.sinks = append(o.sinks, s)
	}
}

// WithRetirementListener adds a listener told about every retired region.
func WithRetirementListener(l ports.RetirementListener) BuildOption {
	return func(o *buildOptions) {
		o.listeners = append(o.listeners, l)
	}
}

// Build initializes a Service and its adapters from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*Runtime, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Template: domain.DefaultRegionTemplate(),
		Streams:  gfhttp.NewStreamManager(logger.With("component", "streams")),
	}

	// 1. Monitor
	rt.Monitor = sim.New(
		sim.WithLatency(cfg.Sim.Latency),
		sim.WithMaxRegions(cfg.Sim.MaxRegions),
		sim.WithLogger(logger.With("component", "monitor")),
	)

	// 2. Landmarks
	var source ports.RegionSource
	if cfg.Landmarks != "" {
		catalog, err := landmarks.Load(cfg.Landmarks)
		if err != nil {
			return nil, err
		}
		rt.Template = catalog.Template
		source = landmarks.NewFile(cfg.Landmarks)
	} else {
		source = memory.NewSource(memory.DefaultLandmarks())
	}

	// 3. Flag store
	flags, listener, err := rt.flagStore(ctx)
	if err != nil {
		return nil, err
	}

	policy, err := router.ParseRotationPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	svcOpts := []geofence.Option{
		geofence.WithLogger(logger),
		geofence.WithSource(source),
		geofence.WithSink(fanOut(append([]ports.DisplaySink{rt.Streams}, bo.sinks...))),
		geofence.WithListener(rt.Streams),
		geofence.WithFlagStore(flags),
		geofence.WithRotationPolicy(policy),
		geofence.WithRegionTemplate(rt.Template),
		geofence.WithResolveTimeout(cfg.ResolveTimeout),
		geofence.WithLifecycleHooks(observability.LoggingHooks(logger.With("component", "hooks"))),
	}
	if listener != nil {
		svcOpts = append(svcOpts, geofence.WithListener(listener))
	}
	for _, l := range bo.listeners {
		svcOpts = append(svcOpts, geofence.WithListener(l))
	}

	// 4. Metrics
	if cfg.Metrics {
		rt.Registry = prometheus.NewRegistry()
		rt.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := observability.NewMetrics(rt.Registry)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		svcOpts = append(svcOpts, geofence.WithLifecycleHooks(m.Hooks()))
	}

	svc, err := geofence.New(rt.Monitor, svcOpts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("error initializing service: %w", err)
	}
	rt.Service = svc
	return rt, nil
}

// flagStore builds the configured store. The redis backend also returns a
// listener publishing retirements on the configured channel.
func (rt *Runtime) flagStore(ctx context.Context) (ports.FlagStore, ports.RetirementListener, error) {
	cfg := rt.Config.Flags
	switch cfg.Backend {
	case config.BackendFile:
		return file.NewFlagStore(cfg.Path), nil, nil
	case config.BackendRedis:
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		if cfg.Redis.Channel != "" {
			opts = append(opts, redis.WithChannel(cfg.Redis.Channel))
		}
		client := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		rt.closers = append(rt.closers, client.Close)
		store := redis.NewFromClient(client, opts...)
		if err := store.Ping(ctx); err != nil {
			rt.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store, redis.NewPublisher(client, rt.Logger.With("component", "publisher"), opts...), nil
	default:
		return memory.NewFlagStore(), nil, nil
	}
}

// Close releases connections opened by Build.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c())
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// multiSink shows every notification on each sink in turn.
type multiSink []ports.DisplaySink

func fanOut(sinks []ports.DisplaySink) ports.DisplaySink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return multiSink(sinks)
}

func (m multiSink) Display(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Display(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

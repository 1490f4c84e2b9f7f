package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/geofence/internal/logging"
	"github.com/aretw0/geofence/pkg/adapters/memory"
	"github.com/aretw0/geofence/pkg/coordinator"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/ports"
	"github.com/aretw0/geofence/pkg/registry"
	"github.com/aretw0/geofence/pkg/router"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/geofence"

// Service wires the registry, router and coordinator together.
// It is the high-level entry point for the library.
type Service struct {
	registry    *registry.Registry
	coordinator *coordinator.Coordinator
	router      *router.Router
	source      ports.RegionSource
	flags       ports.FlagStore
	tracer      trace.Tracer
	logger      *slog.Logger

	sink           ports.DisplaySink
	listeners      []ports.RetirementListener
	hooks          domain.LifecycleHooks
	policy         router.RotationPolicy
	template       domain.RegionTemplate
	resolveTimeout time.Duration
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithSource sets the landmark catalogue. Defaults to the built-in landmarks.
func WithSource(src ports.RegionSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithSink sets where notifications are displayed. Defaults to a recording memory sink.
func WithSink(sink ports.DisplaySink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithListener adds a listener told about every retired region.
func WithListener(l ports.RetirementListener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, l)
	}
}

// WithFlagStore persists the "regions registered" flag. Defaults to memory.
func WithFlagStore(f ports.FlagStore) Option {
	return func(s *Service) {
		s.flags = f
	}
}

// WithRotationPolicy selects what a DWELL rotation re-registers.
func WithRotationPolicy(p router.RotationPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithRegionTemplate sets the settings used for every landmark region.
func WithRegionTemplate(t domain.RegionTemplate) Option {
	return func(s *Service) {
		s.template = t
	}
}

// WithResolveTimeout maps unresolved monitor calls to failures after d.
func WithResolveTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.resolveTimeout = d
	}
}

// New builds a Service on top of monitor.
func New(monitor ports.Monitor, opts ...Option) (*Service, error) {
	if monitor == nil {
		return nil, errors.New("monitor is required")
	}
	s := &Service{
		registry: registry.NewRegistry(),
		template: domain.DefaultRegionTemplate(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.source == nil {
		s.source = memory.NewSource(memory.DefaultLandmarks())
	}
	if s.sink == nil {
		s.sink = memory.NewSink()
	}
	if s.flags == nil {
		s.flags = memory.NewFlagStore()
	}
	s.tracer = otel.Tracer(tracerName)

	s.coordinator = coordinator.New(monitor, s.registry,
		coordinator.WithLogger(s.logger.With("component", "coordinator")),
		coordinator.WithHooks(s.hooks),
		coordinator.WithFlagStore(s.flags),
		coordinator.WithResolveTimeout(s.resolveTimeout),
	)

	routerOpts := []router.Option{
		router.WithLogger(s.logger.With("component", "router")),
		router.WithHooks(s.hooks),
		router.WithPolicy(s.policy),
		router.WithTemplate(s.template),
		router.WithLookup(s.registry.Get),
	}
	for _, l := range s.listeners {
		routerOpts = append(routerOpts, router.WithListener(l))
	}
	s.router = router.New(s.coordinator, s.source, s.sink, routerOpts...)

	return s, nil
}

// Handle routes a single transition event. Errors are already logged and
// returned for callers that want to surface them.
func (s *Service) Handle(ctx context.Context, ev domain.TransitionEvent) error {
	ctx, span := s.tracer.Start(ctx, "geofence.Handle", trace.WithAttributes(
		attribute.String("transition.kind", ev.Kind.String()),
		attribute.StringSlice("transition.regions", ev.RegionIDs),
	))
	defer span.End()

	err := s.router.Route(ctx, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Run handles events one at a time, in arrival order, until events is closed
// or ctx is done. Routing errors never stop the loop.
func (s *Service) Run(ctx context.Context, events <-chan domain.TransitionEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			_ = s.Handle(ctx, ev)
		}
	}
}

// Register adds a region for every landmark.
func (s *Service) Register(ctx context.Context) (domain.Mutation, error) {
	landmarks, err := s.source.AllLandmarks(ctx)
	if err != nil {
		return domain.Mutation{}, fmt.Errorf("load landmarks: %w", err)
	}
	additions := s.router.Replacements(landmarks, "")
	if len(additions) == 0 {
		return domain.Mutation{}, errors.New("no valid landmarks to register")
	}
	m := domain.NewMutation(domain.ReasonRegister, nil, additions)
	s.logger.Info("registering landmarks", "mutation_id", m.ID, "ids", m.AdditionIDs())
	s.coordinator.RequestMutation(ctx, m)
	return m, nil
}

// Unregister removes every desired or confirmed region.
func (s *Service) Unregister(ctx context.Context) domain.Mutation {
	ids := s.registry.IDs()
	for _, r := range s.coordinator.Confirmed() {
		ids = append(ids, r.ID)
	}
	m := domain.NewMutation(domain.ReasonUnregister, ids, nil)
	s.logger.Info("unregistering regions", "mutation_id", m.ID, "ids", m.Removals)
	s.coordinator.RequestMutation(ctx, m)
	return m
}

// Restore re-registers the landmarks when the persistent flag says they were
// registered before the process restarted. It reports whether it did so.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	registered, err := s.flags.GetFlag(ctx, domain.KeyRegionsAdded)
	if err != nil {
		return false, fmt.Errorf("read registration flag: %w", err)
	}
	if !registered {
		return false, nil
	}
	if _, err := s.Register(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Reconcile resubmits whatever separates the desired set from the confirmed set.
func (s *Service) Reconcile(ctx context.Context) (domain.Mutation, bool) {
	return s.coordinator.Reconcile(ctx)
}

// NewReconciler returns a background reconciler for this service.
func (s *Service) NewReconciler(opts ...coordinator.ReconcilerOption) *coordinator.Reconciler {
	opts = append([]coordinator.ReconcilerOption{
		coordinator.WithReconcilerLogger(s.logger.With("component", "reconciler")),
	}, opts...)
	return coordinator.NewReconciler(s.coordinator, opts...)
}

// Snapshot returns the desired regions sorted by ID.
func (s *Service) Snapshot() []domain.Region {
	return s.registry.Snapshot()
}

// Confirmed returns the regions the monitor has confirmed, sorted by ID.
func (s *Service) Confirmed() []domain.Region {
	return s.coordinator.Confirmed()
}

// Status reports the coordinator state.
func (s *Service) Status() coordinator.Status {
	return s.coordinator.Status()
}

// Registered reads the persistent flag.
func (s *Service) Registered(ctx context.Context) (bool, error) {
	return s.flags.GetFlag(ctx, domain.KeyRegionsAdded)
}

// WaitIdle blocks until no mutation is in flight or queued.
func (s *Service) WaitIdle(ctx context.Context) error {
	return s.coordinator.WaitIdle(ctx)
}

// Landmarks returns the landmark catalogue.
func (s *Service) Landmarks(ctx context.Context) (domain.Landmarks, error) {
	return s.source.AllLandmarks(ctx)
}

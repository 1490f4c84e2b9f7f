// Package router classifies transition events and decides registry mutations.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/geofence/internal/logging"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/notify"
	"github.com/aretw0/geofence/pkg/ports"
)

// RotationPolicy decides what a DWELL rotation re-registers.
type RotationPolicy int

const (
	// RotateExclude re-registers every landmark except the retired one.
	RotateExclude RotationPolicy = iota
	// RotateReArm re-registers every landmark, including a fresh instance of the retired one.
	RotateReArm
)

func (p RotationPolicy) String() string {
	switch p {
	case RotateExclude:
		return "exclude"
	case RotateReArm:
		return "rearm"
	default:
		return fmt.Sprintf("RotationPolicy(%d)", int(p))
	}
}

// ParseRotationPolicy accepts "exclude" or "rearm".
func ParseRotationPolicy(s string) (RotationPolicy, error) {
	switch s {
	case "", "exclude":
		return RotateExclude, nil
	case "rearm", "re-arm":
		return RotateReArm, nil
	default:
		return 0, fmt.Errorf("unknown rotation policy %q", s)
	}
}

// MutationRequester accepts mutation requests without blocking.
type MutationRequester interface {
	RequestMutation(ctx context.Context, m domain.Mutation)
}

// Router handles one transition event at a time.
type Router struct {
	requester MutationRequester
	source    ports.RegionSource
	sink      ports.DisplaySink
	listeners []ports.RetirementListener
	lookup    notify.Lookup
	notifier  *notify.Notifier
	template  domain.RegionTemplate
	policy    RotationPolicy
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(r *Router) {
		r.hooks = h
	}
}

// WithPolicy sets the rotation policy. The default is RotateExclude.
func WithPolicy(p RotationPolicy) Option {
	return func(r *Router) {
		r.policy = p
	}
}

// WithTemplate sets the settings used to build fresh regions.
func WithTemplate(t domain.RegionTemplate) Option {
	return func(r *Router) {
		r.template = t
	}
}

// WithLookup lets notifications describe the regions currently desired.
func WithLookup(l notify.Lookup) Option {
	return func(r *Router) {
		r.lookup = l
	}
}

// WithNotifier replaces the default notifier.
func WithNotifier(n *notify.Notifier) Option {
	return func(r *Router) {
		r.notifier = n
	}
}

// WithListener adds a listener told about every retired region.
func WithListener(l ports.RetirementListener) Option {
	return func(r *Router) {
		r.listeners = append(r.listeners, l)
	}
}

// New creates a Router.
func New(requester MutationRequester, source ports.RegionSource, sink ports.DisplaySink, opts ...Option) *Router {
	r := &Router{
		requester: requester,
		source:    source,
		sink:      sink,
		notifier:  notify.New(),
		template:  domain.DefaultRegionTemplate(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route handles a single event. The returned error is informational: every
// failure has already been logged and nothing is retried.
func (r *Router) Route(ctx context.Context, ev domain.TransitionEvent) (err error) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	defer func() {
		if r.hooks.OnTransition != nil {
			r.hooks.OnTransition(ctx, &domain.TransitionRouted{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTransition},
				Event:     ev,
				Err:       err,
			})
		}
	}()

	if err := ev.Validate(); err != nil {
		r.logger.Error("dropping transition event", "error", err, "kind", ev.Kind)
		return err
	}

	switch ev.Kind {
	case domain.TransitionEnter, domain.TransitionExit:
		r.display(ctx, ev)
		r.logger.Info("transition", "details", ev.Details())
		return nil
	case domain.TransitionDwell:
		return r.rotate(ctx, ev)
	default:
		err := fmt.Errorf("%w: %s", domain.ErrUnknownTransition, ev.Kind)
		r.logger.Error("dropping transition event", "error", err, "ids", ev.RegionIDs)
		return err
	}
}

// rotate retires the first triggered region and re-registers the landmarks.
func (r *Router) rotate(ctx context.Context, ev domain.TransitionEvent) error {
	retired := ev.RegionIDs[0]
	r.display(ctx, ev)
	r.logger.Info("transition", "details", ev.Details(), "retiring", retired)

	landmarks, err := r.source.AllLandmarks(ctx)
	if err != nil {
		err = fmt.Errorf("load landmarks: %w", err)
		r.logger.Error("rotation skipped", "error", err, "region", retired)
		return err
	}

	m := domain.NewMutation(domain.ReasonDwell, []string{retired}, r.Replacements(landmarks, retired))
	r.requester.RequestMutation(ctx, m)

	for _, l := range r.listeners {
		l.Retired(ctx, retired)
	}
	if r.hooks.OnRetired != nil {
		r.hooks.OnRetired(ctx, &domain.RetiredEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRegionRetired},
			RegionID:  retired,
		})
	}
	return nil
}

// Replacements builds the fresh regions a rotation retiring id re-registers.
// Landmarks that cannot form a valid region are logged and skipped.
func (r *Router) Replacements(landmarks domain.Landmarks, id string) []domain.Region {
	out := make([]domain.Region, 0, len(landmarks))
	for _, lid := range landmarks.IDs() {
		if lid == id && r.policy == RotateExclude {
			continue
		}
		region, err := r.template.Build(lid, landmarks[lid])
		if err != nil {
			r.logger.Warn("skipping landmark", "landmark", lid, "error", err)
			continue
		}
		out = append(out, region)
	}
	return out
}

func (r *Router) display(ctx context.Context, ev domain.TransitionEvent) {
	n := r.notifier.Summarize(ev, r.lookup)
	if err := r.sink.Display(ctx, n); err != nil {
		r.logger.Warn("display failed", "error", err, "title", n.Title)
	}
}

package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/geofence/internal/logging"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/cenkalti/backoff/v5"
)

// Reconcile requests the mutation that brings the confirmed set back in line
// with the registry: confirmed regions no longer desired are removed and
// desired regions that are missing or stale are re-added.
//
// It does nothing while a mutation is in flight, so a queued request is never
// displaced. The diff and the start of the mutation happen under one lock, so
// a request arriving meanwhile queues behind it and sees its outcome. The
// boolean reports whether a mutation was requested.
func (c *Coordinator) Reconcile(ctx context.Context) (domain.Mutation, bool) {
	c.mu.Lock()
	if c.phase != domain.PhaseIdle || !c.divergedLocked() {
		c.mu.Unlock()
		return domain.Mutation{}, false
	}
	desired := c.registry.Snapshot()
	want := make(map[string]struct{}, len(desired))
	var additions []domain.Region
	for _, r := range desired {
		want[r.ID] = struct{}{}
		if got, ok := c.confirmed[r.ID]; !ok || got != r {
			additions = append(additions, r)
		}
	}
	var removals []string
	for id := range c.confirmed {
		if _, ok := want[id]; !ok {
			removals = append(removals, id)
		}
	}
	m := domain.NewMutation(domain.ReasonReconcile, removals, additions)
	if m.IsEmpty() {
		c.mu.Unlock()
		return domain.Mutation{}, false
	}
	s := c.beginLocked(m)
	c.mu.Unlock()

	c.logger.Info("reconciling registry", "mutation_id", m.ID,
		"removals", m.Removals, "additions", m.AdditionIDs())
	c.drive(context.WithoutCancel(ctx), s)
	return m, true
}

// Reconciler periodically calls Reconcile while the coordinator is diverged,
// backing off exponentially between attempts.
type Reconciler struct {
	coordinator *Coordinator
	interval    time.Duration
	backoff     *backoff.ExponentialBackOff
	logger      *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithInterval sets how often a healthy coordinator is checked.
func WithInterval(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		r.interval = d
	}
}

// WithBackOff replaces the retry schedule used while diverged.
func WithBackOff(b *backoff.ExponentialBackOff) ReconcilerOption {
	return func(r *Reconciler) {
		r.backoff = b
	}
}

// WithReconcilerLogger sets the logger.
func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// NewReconciler creates a reconciler for c.
func NewReconciler(c *Coordinator, opts ...ReconcilerOption) *Reconciler {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 5 * time.Minute

	r := &Reconciler{
		coordinator: c,
		interval:    30 * time.Second,
		backoff:     b,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tick performs one reconciliation check and returns the delay before the next.
func (r *Reconciler) Tick(ctx context.Context) time.Duration {
	if !r.coordinator.Diverged() {
		r.backoff.Reset()
		return r.interval
	}
	if _, ok := r.coordinator.Reconcile(ctx); !ok {
		// Busy: look again soon without growing the schedule.
		return r.backoff.InitialInterval
	}
	next := r.backoff.NextBackOff()
	if next == backoff.Stop {
		next = r.backoff.MaxInterval
	}
	r.logger.Debug("reconcile attempt issued", "next_check", next)
	return next
}

// Run calls Tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	timer := time.NewTimer(r.Tick(ctx))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(r.Tick(ctx))
		}
	}
}

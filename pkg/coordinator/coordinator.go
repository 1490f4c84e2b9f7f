package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/geofence/internal/logging"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/ports"
	"github.com/aretw0/geofence/pkg/registry"
)

// Coordinator serialises mutations against the monitoring service.
//
// At most one mutation is in flight. A request made while busy is parked in a
// single queued slot; a newer request replaces the parked one. Monitor calls are
// made without holding the lock, and every issued step carries a token so a
// late, duplicate or timed-out resolution is ignored.
type Coordinator struct {
	monitor  ports.Monitor
	registry *registry.Registry
	flags    ports.FlagStore
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	timeout  time.Duration

	mu        sync.Mutex
	phase     domain.Phase
	current   *domain.Mutation
	queued    *domain.Mutation
	token     uint64
	timer     *time.Timer
	idle      chan struct{}
	confirmed map[string]domain.Region
	diverged  bool
	lastErr   error
	stats     Stats
}

// Stats counts mutation outcomes since the coordinator was created.
type Stats struct {
	Issued     int `json:"issued"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Superseded int `json:"superseded"`
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	Phase     domain.Phase `json:"phase"`
	Current   string       `json:"current,omitempty"`
	Queued    string       `json:"queued,omitempty"`
	Desired   int          `json:"desired"`
	Confirmed int          `json:"confirmed"`
	Diverged  bool         `json:"diverged"`
	LastError string       `json:"last_error,omitempty"`
	Stats     Stats        `json:"stats"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(c *Coordinator) {
		c.hooks = h
	}
}

// WithFlagStore persists the "regions registered" flag after every round.
func WithFlagStore(s ports.FlagStore) Option {
	return func(c *Coordinator) {
		c.flags = s
	}
}

// WithResolveTimeout fails a step with domain.ErrResolutionTimeout when the
// monitor has not resolved it within d. Zero disables the timeout.
func WithResolveTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// New creates an idle coordinator writing confirmed outcomes into reg.
func New(monitor ports.Monitor, reg *registry.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		monitor:   monitor,
		registry:  reg,
		logger:    logging.NewNop(),
		phase:     domain.PhaseIdle,
		idle:      make(chan struct{}),
		confirmed: make(map[string]domain.Region),
	}
	close(c.idle)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// step is one monitor call the coordinator decided to issue.
type step struct {
	token    uint64
	phase    domain.Phase
	mutation domain.Mutation
}

func (s step) valid() bool { return s.token != 0 }

// RequestMutation issues m when idle, or queues it when a mutation is in flight.
// It never waits for the monitor.
func (c *Coordinator) RequestMutation(ctx context.Context, m domain.Mutation) {
	if m.IsEmpty() {
		c.logger.Debug("ignoring empty mutation", "reason", m.Reason)
		return
	}
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	if c.phase != domain.PhaseIdle {
		replaced := c.queued
		c.queued = &m
		if replaced != nil {
			c.stats.Superseded++
		}
		c.mu.Unlock()

		c.logger.Debug("mutation queued", "mutation_id", m.ID, "reason", m.Reason)
		if replaced != nil {
			c.logger.Info("queued mutation superseded", "mutation_id", replaced.ID, "by", m.ID)
			if c.hooks.OnMutationSuperseded != nil {
				c.hooks.OnMutationSuperseded(ctx, domain.NewMutationEvent(domain.EventMutationSuperseded, *replaced, domain.PhaseIdle, nil))
			}
		}
		return
	}
	s := c.beginLocked(m)
	c.mu.Unlock()

	c.drive(ctx, s)
}

// beginLocked makes m the current mutation. Without removals it goes straight
// to the addition step and the registry takes the additions immediately.
func (c *Coordinator) beginLocked(m domain.Mutation) step {
	c.current = &m
	c.stats.Issued++
	if c.phase == domain.PhaseIdle {
		c.idle = make(chan struct{})
	}
	if len(m.Removals) > 0 {
		return c.stepLocked(domain.PhaseRemoving)
	}
	c.registry.Apply(nil, m.Additions)
	return c.stepLocked(domain.PhaseAdding)
}

func (c *Coordinator) stepLocked(phase domain.Phase) step {
	c.phase = phase
	c.token++
	return step{token: c.token, phase: phase, mutation: *c.current}
}

// drive issues s and every follow-up step that fails synchronously.
func (c *Coordinator) drive(ctx context.Context, s step) {
	for s.valid() {
		issued, err := c.submit(ctx, s)
		if err == nil {
			return
		}
		s = c.resolve(ctx, s.token, err, issued)
	}
}

// submit hands s to the monitor. issued is false when the step was refused
// before reaching it, in which case no lifecycle hook has fired.
func (c *Coordinator) submit(ctx context.Context, s step) (issued bool, err error) {
	if r, ok := c.monitor.(ports.Readiness); ok && !r.Ready() {
		return false, domain.ErrNotReady
	}
	if c.hooks.OnMutationIssued != nil {
		c.hooks.OnMutationIssued(ctx, domain.NewMutationEvent(domain.EventMutationIssued, s.mutation, s.phase, nil))
	}

	if c.timeout > 0 {
		timer := time.AfterFunc(c.timeout, func() {
			c.drive(ctx, c.resolve(ctx, s.token, domain.ErrResolutionTimeout, true))
		})
		c.mu.Lock()
		if c.token == s.token {
			c.timer = timer
		} else {
			timer.Stop()
		}
		c.mu.Unlock()
	}

	done := func(err error) {
		c.drive(ctx, c.resolve(ctx, s.token, err, true))
	}

	switch s.phase {
	case domain.PhaseRemoving:
		c.logger.Debug("submitting removals", "mutation_id", s.mutation.ID, "ids", s.mutation.Removals)
		return true, c.monitor.SubmitRemovals(ctx, s.mutation.Removals, done)
	default:
		c.logger.Debug("submitting additions", "mutation_id", s.mutation.ID, "ids", s.mutation.AdditionIDs())
		return true, c.monitor.SubmitAdditions(ctx, s.mutation.Additions, done)
	}
}

// resolve applies the outcome of the step identified by token and returns the
// next step to issue, if any. OnMutationResolved fires only for issued steps.
func (c *Coordinator) resolve(ctx context.Context, token uint64, err error, issued bool) step {
	c.mu.Lock()
	if c.phase == domain.PhaseIdle || token != c.token {
		c.mu.Unlock()
		c.logger.Debug("ignoring stale resolution", "token", token, "error", err)
		return step{}
	}
	c.token++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	m := *c.current
	phase := c.phase
	var (
		next     step
		finished bool
		failure  error
	)

	switch {
	case phase == domain.PhaseRemoving && err != nil:
		failure = fmt.Errorf("%w: %w", domain.ErrRemovalFailed, err)
		finished = true
	case phase == domain.PhaseRemoving:
		c.registry.Apply(m.Removals, m.Additions)
		for _, id := range m.Removals {
			delete(c.confirmed, id)
		}
		if len(m.Additions) > 0 {
			next = c.stepLocked(domain.PhaseAdding)
		} else {
			finished = true
		}
	case err != nil:
		failure = fmt.Errorf("%w: %w", domain.ErrAdditionFailed, err)
		finished = true
	default:
		for _, r := range m.Additions {
			c.confirmed[r.ID] = r
		}
		finished = true
	}

	registered := len(c.confirmed) > 0
	c.diverged = c.divergedLocked()
	if finished {
		if failure != nil {
			c.stats.Failed++
			c.lastErr = failure
		} else {
			c.stats.Completed++
			c.lastErr = nil
		}
		next = c.finishLocked()
	}
	c.mu.Unlock()

	switch {
	case failure != nil && errors.Is(failure, domain.ErrAdditionFailed):
		c.logger.Error("addition failed, registry left diverged", "mutation_id", m.ID, "reason", m.Reason, "error", failure)
	case failure != nil:
		c.logger.Error("removal failed, mutation abandoned", "mutation_id", m.ID, "reason", m.Reason, "error", failure)
	case finished:
		c.logger.Info("mutation confirmed", "mutation_id", m.ID, "reason", m.Reason,
			"removed", m.Removals, "added", m.AdditionIDs())
	}

	if issued && c.hooks.OnMutationResolved != nil {
		c.hooks.OnMutationResolved(ctx, domain.NewMutationEvent(domain.EventMutationResolved, m, phase, failure))
	}
	if finished && failure == nil {
		c.persist(ctx, registered)
	}
	return next
}

// finishLocked starts the queued mutation or returns to idle.
func (c *Coordinator) finishLocked() step {
	if c.queued != nil {
		m := *c.queued
		c.queued = nil
		return c.beginLocked(m)
	}
	c.phase = domain.PhaseIdle
	c.current = nil
	close(c.idle)
	return step{}
}

func (c *Coordinator) divergedLocked() bool {
	desired := c.registry.Snapshot()
	if len(desired) != len(c.confirmed) {
		return true
	}
	for _, r := range desired {
		if got, ok := c.confirmed[r.ID]; !ok || got != r {
			return true
		}
	}
	return false
}

func (c *Coordinator) persist(ctx context.Context, registered bool) {
	if c.flags == nil {
		return
	}
	if err := c.flags.SetFlag(ctx, domain.KeyRegionsAdded, registered); err != nil {
		c.logger.Warn("failed to persist registration flag", "error", err)
	}
}

// Status reports the current phase, queue and divergence.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Phase:     c.phase,
		Desired:   c.registry.Len(),
		Confirmed: len(c.confirmed),
		Diverged:  c.diverged,
		Stats:     c.stats,
	}
	if c.current != nil {
		st.Current = c.current.ID
	}
	if c.queued != nil {
		st.Queued = c.queued.ID
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

// Idle reports whether no mutation is in flight.
func (c *Coordinator) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == domain.PhaseIdle
}

// Confirmed returns the regions the monitor acknowledged, sorted by ID.
func (c *Coordinator) Confirmed() []domain.Region {
	c.mu.Lock()
	out := make([]domain.Region, 0, len(c.confirmed))
	for _, r := range c.confirmed {
		out = append(out, r)
	}
	c.mu.Unlock()
	domain.SortRegions(out)
	return out
}

// Diverged reports whether the desired set differs from the confirmed set.
func (c *Coordinator) Diverged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diverged
}

// WaitIdle blocks until no mutation is in flight or queued, or ctx is done.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		ch := c.idle
		idle := c.phase == domain.PhaseIdle
		c.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

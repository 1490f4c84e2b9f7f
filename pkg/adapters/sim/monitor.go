// Package sim provides a simulated location monitoring service.
//
// It keeps the registered regions in memory, resolves calls after a
// configurable latency, and derives ENTER, EXIT and DWELL events from
// positions fed through Move.
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/geofence/internal/logging"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/ports"
)

// DefaultMaxRegions is the per-application region limit of common platforms.
const DefaultMaxRegions = 100

// Monitor implements ports.Monitor and ports.Readiness.
type Monitor struct {
	mu         sync.Mutex
	regions    map[string]domain.Region
	entered    map[string]time.Time
	dwelled    map[string]bool
	position   *domain.Coordinate
	ready      bool
	failRemove error
	failAdd    error

	latency    time.Duration
	maxRegions int
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLatency delays every resolution by d. With zero latency calls resolve
// before Submit returns.
func WithLatency(d time.Duration) Option {
	return func(m *Monitor) {
		m.latency = d
	}
}

// WithMaxRegions sets the region limit; additions beyond it fail with
// domain.ErrorTooManyGeofences.
func WithMaxRegions(n int) Option {
	return func(m *Monitor) {
		m.maxRegions = n
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// New creates a ready, empty monitor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		regions:    make(map[string]domain.Region),
		entered:    make(map[string]time.Time),
		dwelled:    make(map[string]bool),
		ready:      true,
		maxRegions: DefaultMaxRegions,
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ready reports whether the simulated connection is up.
func (m *Monitor) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// SetReady toggles the simulated connection.
func (m *Monitor) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// FailNextRemoval makes the next removal resolve with err.
func (m *Monitor) FailNextRemoval(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRemove = err
}

// FailNextAddition makes the next addition resolve with err.
func (m *Monitor) FailNextAddition(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAdd = err
}

// SubmitRemovals implements ports.Monitor.
func (m *Monitor) SubmitRemovals(ctx context.Context, ids []string, done ports.ResultFunc) error {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return domain.ErrNotReady
	}
	m.mu.Unlock()

	m.later(func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := m.failRemove; err != nil {
			m.failRemove = nil
			return err
		}
		for _, id := range ids {
			delete(m.regions, id)
			delete(m.entered, id)
			delete(m.dwelled, id)
		}
		m.logger.Debug("regions removed", "ids", ids, "total", len(m.regions))
		return nil
	}, done)
	return nil
}

// SubmitAdditions implements ports.Monitor.
func (m *Monitor) SubmitAdditions(ctx context.Context, regions []domain.Region, done ports.ResultFunc) error {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return domain.ErrNotReady
	}
	m.mu.Unlock()

	m.later(func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := m.failAdd; err != nil {
			m.failAdd = nil
			return err
		}
		fresh := 0
		for _, r := range regions {
			if _, ok := m.regions[r.ID]; !ok {
				fresh++
			}
		}
		if len(m.regions)+fresh > m.maxRegions {
			return &domain.MonitorError{Code: domain.ErrorTooManyGeofences}
		}
		for _, r := range regions {
			if err := r.Validate(); err != nil {
				return err
			}
		}
		for _, r := range regions {
			m.regions[r.ID] = r
			delete(m.entered, r.ID)
			delete(m.dwelled, r.ID)
		}
		m.logger.Debug("regions added", "count", len(regions), "total", len(m.regions))
		return nil
	}, done)
	return nil
}

// later runs apply and reports its result to done, after the configured latency.
// The lock is never held while done runs.
func (m *Monitor) later(apply func() error, done ports.ResultFunc) {
	if m.latency <= 0 {
		done(apply())
		return
	}
	time.AfterFunc(m.latency, func() {
		done(apply())
	})
}

// Regions returns the registered regions sorted by ID.
func (m *Monitor) Regions() []domain.Region {
	m.mu.Lock()
	out := make([]domain.Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	m.mu.Unlock()
	domain.SortRegions(out)
	return out
}

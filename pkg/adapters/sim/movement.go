package sim

import (
	"context"
	"time"

	"github.com/aretw0/geofence/pkg/domain"
)

// Move places the simulated device at c and returns the transitions that
// causes, at most one event per kind in ENTER, EXIT, DWELL order.
func (m *Monitor) Move(ctx context.Context, c domain.Coordinate) []domain.TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos := c
	m.position = &pos
	now := m.now()

	var enter, exit []string
	for _, r := range m.sortedLocked() {
		_, wasInside := m.entered[r.ID]
		inside := r.Contains(c)
		switch {
		case inside && !wasInside:
			m.entered[r.ID] = now
			if r.Transitions.Has(domain.TransitionEnter) {
				enter = append(enter, r.ID)
			}
		case !inside && wasInside:
			delete(m.entered, r.ID)
			delete(m.dwelled, r.ID)
			if r.Transitions.Has(domain.TransitionExit) {
				exit = append(exit, r.ID)
			}
		}
	}

	var out []domain.TransitionEvent
	out = appendEvent(out, domain.TransitionEnter, enter, pos, now)
	out = appendEvent(out, domain.TransitionExit, exit, pos, now)
	return append(out, m.dwellLocked()...)
}

// Tick reports DWELL for regions the device has stayed inside long enough.
func (m *Monitor) Tick(ctx context.Context) []domain.TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dwellLocked()
}

func (m *Monitor) dwellLocked() []domain.TransitionEvent {
	if m.position == nil {
		return nil
	}
	now := m.now()
	var ids []string
	for _, r := range m.sortedLocked() {
		since, inside := m.entered[r.ID]
		if !inside || m.dwelled[r.ID] || !r.Transitions.Has(domain.TransitionDwell) {
			continue
		}
		if now.Sub(since) >= r.DwellDelay {
			m.dwelled[r.ID] = true
			ids = append(ids, r.ID)
		}
	}
	return appendEvent(nil, domain.TransitionDwell, ids, *m.position, now)
}

func (m *Monitor) sortedLocked() []domain.Region {
	out := make([]domain.Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	domain.SortRegions(out)
	return out
}

func appendEvent(out []domain.TransitionEvent, kind domain.TransitionKind, ids []string, at domain.Coordinate, now time.Time) []domain.TransitionEvent {
	if len(ids) == 0 {
		return out
	}
	loc := at
	return append(out, domain.TransitionEvent{
		Kind:      kind,
		RegionIDs: ids,
		Location:  &loc,
		Time:      now,
	})
}

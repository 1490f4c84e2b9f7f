package domain

import (
	"context"
	"time"
)

// Phase is the coordinator's position in the Idle → Removing → Adding cycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRemoving Phase = "removing"
	PhaseAdding   Phase = "adding"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventTransition         EventType = "transition"
	EventMutationIssued     EventType = "mutation_issued"
	EventMutationResolved   EventType = "mutation_resolved"
	EventMutationSuperseded EventType = "mutation_superseded"
	EventRegionRetired      EventType = "region_retired"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// TransitionRouted is emitted once per routed transition event.
type TransitionRouted struct {
	EventBase
	Event TransitionEvent `json:"event"`
	Err   error           `json:"-"`
}

// MutationEvent describes a step of a mutation round trip.
type MutationEvent struct {
	EventBase
	MutationID string `json:"mutation_id"`
	Reason     string `json:"reason"`
	Phase      Phase  `json:"phase"`
	Removals   int    `json:"removals"`
	Additions  int    `json:"additions"`
	Err        error  `json:"-"`
}

// RetiredEvent names the region retired by a DWELL rotation.
type RetiredEvent struct {
	EventBase
	RegionID string `json:"region_id"`
}

// LifecycleHooks defines callbacks for observability.
// Hooks run synchronously on the goroutine that produced the event and must not block.
type LifecycleHooks struct {
	OnTransition         func(context.Context, *TransitionRouted)
	OnMutationIssued     func(context.Context, *MutationEvent)
	OnMutationResolved   func(context.Context, *MutationEvent)
	OnMutationSuperseded func(context.Context, *MutationEvent)
	OnRetired            func(context.Context, *RetiredEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition:         chain(h.OnTransition, other.OnTransition),
		OnMutationIssued:     chain(h.OnMutationIssued, other.OnMutationIssued),
		OnMutationResolved:   chain(h.OnMutationResolved, other.OnMutationResolved),
		OnMutationSuperseded: chain(h.OnMutationSuperseded, other.OnMutationSuperseded),
		OnRetired:            chain(h.OnRetired, other.OnRetired),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e T) {
		a(ctx, e)
		b(ctx, e)
	}
}

// NewMutationEvent fills a MutationEvent from a mutation.
func NewMutationEvent(t EventType, m Mutation, phase Phase, err error) *MutationEvent {
	return &MutationEvent{
		EventBase:  EventBase{Timestamp: time.Now(), Type: t},
		MutationID: m.ID,
		Reason:     m.Reason,
		Phase:      phase,
		Removals:   len(m.Removals),
		Additions:  len(m.Additions),
		Err:        err,
	}
}

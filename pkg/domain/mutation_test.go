package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMutation_Normalises(t *testing.T) {
	a1, _ := NewRegion("A", Coordinate{Latitude: 1, Longitude: 1})
	a2, _ := NewRegion("A", Coordinate{Latitude: 2, Longitude: 2})
	b, _ := NewRegion("B", Coordinate{Latitude: 3, Longitude: 3})

	m := NewMutation(ReasonDwell, []string{"B", "A", "B", ""}, []Region{b, a1, a2})

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, ReasonDwell, m.Reason)
	assert.Equal(t, []string{"A", "B"}, m.Removals)
	assert.Equal(t, []string{"A", "B"}, m.AdditionIDs())
	assert.Equal(t, a2, m.Additions[0], "last addition for an id wins")
	assert.False(t, m.IsEmpty())

	other := NewMutation(ReasonDwell, nil, nil)
	assert.True(t, other.IsEmpty())
	assert.NotEqual(t, m.ID, other.ID)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	first := LifecycleHooks{
		OnRetired: func(ctx context.Context, e *RetiredEvent) { calls = append(calls, "first:"+e.RegionID) },
	}
	second := LifecycleHooks{
		OnRetired: func(ctx context.Context, e *RetiredEvent) { calls = append(calls, "second:"+e.RegionID) },
		OnTransition: func(ctx context.Context, e *TransitionRouted) {
			calls = append(calls, "transition")
		},
	}

	merged := first.Merge(second)
	merged.OnRetired(context.Background(), &RetiredEvent{RegionID: "A"})
	merged.OnTransition(context.Background(), &TransitionRouted{})

	assert.Equal(t, []string{"first:A", "second:A", "transition"}, calls)
	assert.Nil(t, merged.OnMutationIssued)
}

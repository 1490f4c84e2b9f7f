package router_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/geofence/pkg/adapters/memory"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/registry"
	"github.com/aretw0/geofence/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mutations []domain.Mutation
}

func (r *recorder) RequestMutation(_ context.Context, m domain.Mutation) {
	r.mutations = append(r.mutations, m)
}

type failingSource struct{}

func (failingSource) AllLandmarks(context.Context) (domain.Landmarks, error) {
	return nil, errors.New("catalogue offline")
}

var scenario = domain.Landmarks{
	"A": {Latitude: 37.1, Longitude: -122.1},
	"B": {Latitude: 37.2, Longitude: -122.2},
}

func newRouter(opts ...router.Option) (*router.Router, *recorder, *memory.Sink) {
	rec := &recorder{}
	sink := memory.NewSink()
	opts = append([]router.Option{router.WithListener(sink)}, opts...)
	return router.New(rec, memory.NewSource(scenario), sink, opts...), rec, sink
}

func TestRoute_EnterExitNeverMutates(t *testing.T) {
	reg := registry.NewRegistry()
	a, err := domain.NewRegion("A", scenario["A"])
	require.NoError(t, err)
	reg.Upsert(a)
	before := reg.Snapshot()

	r, rec, sink := newRouter(router.WithLookup(reg.Get))
	ctx := context.Background()

	events := []domain.TransitionEvent{
		{Kind: domain.TransitionEnter, RegionIDs: []string{"A"}},
		{Kind: domain.TransitionExit, RegionIDs: []string{"A"}},
		{Kind: domain.TransitionEnter, RegionIDs: []string{"A", "B"}},
	}
	for _, ev := range events {
		require.NoError(t, r.Route(ctx, ev))
	}

	assert.Empty(t, rec.mutations)
	assert.Equal(t, before, reg.Snapshot())
	assert.Len(t, sink.Notifications(), len(events), "one summary per event")
	assert.Empty(t, sink.RetiredIDs())
}

func TestRoute_EnterWithLocation(t *testing.T) {
	r, rec, sink := newRouter()
	loc := domain.Coordinate{Latitude: 37.15, Longitude: -122.15}

	err := r.Route(context.Background(), domain.TransitionEvent{
		Kind:      domain.TransitionEnter,
		RegionIDs: []string{"X", "Y"},
		Location:  &loc,
	})
	require.NoError(t, err)

	require.Len(t, sink.Notifications(), 1)
	n := sink.Notifications()[0]
	assert.Contains(t, n.Title, "X")
	assert.Contains(t, n.Title, "Y")
	assert.Contains(t, n.Body, loc.String())
	assert.Empty(t, rec.mutations)
}

func TestRoute_DwellExcludesRetired(t *testing.T) {
	var hooked []string
	hooks := domain.LifecycleHooks{
		OnRetired: func(_ context.Context, e *domain.RetiredEvent) { hooked = append(hooked, e.RegionID) },
	}
	r, rec, sink := newRouter(router.WithHooks(hooks))

	require.NoError(t, r.Route(context.Background(), domain.TransitionEvent{
		Kind:      domain.TransitionDwell,
		RegionIDs: []string{"A"},
	}))

	require.Len(t, rec.mutations, 1)
	m := rec.mutations[0]
	assert.Equal(t, []string{"A"}, m.Removals)
	assert.Equal(t, []string{"B"}, m.AdditionIDs())
	assert.Equal(t, domain.ReasonDwell, m.Reason)

	require.Len(t, sink.Notifications(), 1)
	assert.True(t, sink.Notifications()[0].Dwell)
	assert.Equal(t, "Dwelling: A", sink.Notifications()[0].Title)
	assert.Equal(t, []string{"A"}, sink.RetiredIDs())
	assert.Equal(t, []string{"A"}, hooked)
}

func TestRoute_DwellReArmAddsFreshRetired(t *testing.T) {
	r, rec, _ := newRouter(router.WithPolicy(router.RotateReArm))

	require.NoError(t, r.Route(context.Background(), domain.TransitionEvent{
		Kind:      domain.TransitionDwell,
		RegionIDs: []string{"A"},
	}))

	require.Len(t, rec.mutations, 1)
	m := rec.mutations[0]
	assert.Equal(t, []string{"A"}, m.Removals)
	require.Equal(t, []string{"A", "B"}, m.AdditionIDs())

	fresh, err := domain.NewRegion("A", scenario["A"])
	require.NoError(t, err)
	assert.Equal(t, fresh, m.Additions[0], "A' is rebuilt from the landmark coordinates")
}

func TestRoute_DwellRetiresOnlyFirst(t *testing.T) {
	r, rec, sink := newRouter()

	require.NoError(t, r.Route(context.Background(), domain.TransitionEvent{
		Kind:      domain.TransitionDwell,
		RegionIDs: []string{"B", "A"},
	}))

	require.Len(t, rec.mutations, 1)
	assert.Equal(t, []string{"B"}, rec.mutations[0].Removals)
	assert.Equal(t, []string{"A"}, rec.mutations[0].AdditionIDs())
	assert.Equal(t, []string{"B"}, sink.RetiredIDs())
}

func TestRoute_DwellWithCustomTemplate(t *testing.T) {
	tmpl := domain.DefaultRegionTemplate()
	tmpl.RadiusMeters = 250
	r, rec, _ := newRouter(router.WithTemplate(tmpl))

	require.NoError(t, r.Route(context.Background(), domain.TransitionEvent{
		Kind:      domain.TransitionDwell,
		RegionIDs: []string{"A"},
	}))
	require.Len(t, rec.mutations, 1)
	assert.Equal(t, 250.0, rec.mutations[0].Additions[0].RadiusMeters)
}

func TestRoute_Rejections(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.TransitionEvent
		want error
	}{
		{"monitor error", domain.TransitionEvent{ErrorCode: domain.ErrorTooManyGeofences}, domain.ErrMonitoringService},
		{"unknown kind", domain.TransitionEvent{Kind: domain.TransitionKind(8), RegionIDs: []string{"A"}}, domain.ErrUnknownTransition},
		{"empty ids", domain.TransitionEvent{Kind: domain.TransitionDwell}, domain.ErrEmptyTrigger},
		{"blank id", domain.TransitionEvent{Kind: domain.TransitionEnter, RegionIDs: []string{" "}}, domain.ErrEmptyTrigger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var routed []*domain.TransitionRouted
			hooks := domain.LifecycleHooks{
				OnTransition: func(_ context.Context, e *domain.TransitionRouted) { routed = append(routed, e) },
			}
			r, rec, sink := newRouter(router.WithHooks(hooks))

			err := r.Route(context.Background(), tt.ev)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, rec.mutations)
			assert.Empty(t, sink.Notifications())
			assert.Empty(t, sink.RetiredIDs())
			require.Len(t, routed, 1)
			assert.ErrorIs(t, routed[0].Err, tt.want)
		})
	}
}

func TestRoute_SourceFailureSkipsRotation(t *testing.T) {
	rec := &recorder{}
	sink := memory.NewSink()
	r := router.New(rec, failingSource{}, sink, router.WithListener(sink))

	err := r.Route(context.Background(), domain.TransitionEvent{Kind: domain.TransitionDwell, RegionIDs: []string{"A"}})
	require.Error(t, err)
	assert.Empty(t, rec.mutations)
	assert.Empty(t, sink.RetiredIDs())
	assert.Len(t, sink.Notifications(), 1, "the dwell itself is still shown")
}

func TestParseRotationPolicy(t *testing.T) {
	p, err := router.ParseRotationPolicy("rearm")
	require.NoError(t, err)
	assert.Equal(t, router.RotateReArm, p)

	p, err = router.ParseRotationPolicy("")
	require.NoError(t, err)
	assert.Equal(t, router.RotateExclude, p)

	_, err = router.ParseRotationPolicy("sideways")
	assert.Error(t, err)
}

package geofence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/geofence"
	"github.com/aretw0/geofence/pkg/adapters/memory"
	"github.com/aretw0/geofence/pkg/adapters/sim"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var landmarks = domain.Landmarks{
	"A": {Latitude: 37.1, Longitude: -122.1},
	"B": {Latitude: 37.2, Longitude: -122.2},
}

func newService(t *testing.T, mon *sim.Monitor, opts ...geofence.Option) (*geofence.Service, *memory.Sink, *memory.FlagStore) {
	t.Helper()
	sink := memory.NewSink()
	flags := memory.NewFlagStore()
	opts = append([]geofence.Option{
		geofence.WithSource(memory.NewSource(landmarks)),
		geofence.WithSink(sink),
		geofence.WithListener(sink),
		geofence.WithFlagStore(flags),
	}, opts...)
	svc, err := geofence.New(mon, opts...)
	require.NoError(t, err)
	return svc, sink, flags
}

func ids(regions []domain.Region) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.ID
	}
	return out
}

func TestNew_RequiresMonitor(t *testing.T) {
	_, err := geofence.New(nil)
	assert.Error(t, err)
}

func TestService_RegisterAndDwellRotation(t *testing.T) {
	mon := sim.New()
	svc, sink, flags := newService(t, mon)
	ctx := context.Background()

	_, err := svc.Register(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.WaitIdle(ctx))
	assert.Equal(t, []string{"A", "B"}, ids(svc.Snapshot()))
	assert.Equal(t, []string{"A", "B"}, ids(mon.Regions()))

	registered, err := flags.GetFlag(ctx, domain.KeyRegionsAdded)
	require.NoError(t, err)
	assert.True(t, registered)

	require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionDwell, RegionIDs: []string{"A"}}))
	require.NoError(t, svc.WaitIdle(ctx))

	assert.Equal(t, []string{"B"}, ids(svc.Snapshot()))
	assert.Equal(t, []string{"B"}, ids(mon.Regions()))
	assert.Equal(t, []string{"A"}, sink.RetiredIDs())
	assert.False(t, svc.Status().Diverged)
}

func TestService_ReArmKeepsEveryLandmark(t *testing.T) {
	mon := sim.New()
	svc, _, _ := newService(t, mon, geofence.WithRotationPolicy(router.RotateReArm))
	ctx := context.Background()

	_, err := svc.Register(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionDwell, RegionIDs: []string{"A"}}))
	require.NoError(t, svc.WaitIdle(ctx))

	assert.Equal(t, []string{"A", "B"}, ids(mon.Regions()))
	assert.Equal(t, 2, svc.Status().Stats.Completed)
}

func TestService_EnterExitLeaveRegistryAlone(t *testing.T) {
	mon := sim.New()
	svc, sink, _ := newService(t, mon)
	ctx := context.Background()
	_, err := svc.Register(ctx)
	require.NoError(t, err)
	before := svc.Snapshot()

	loc := domain.Coordinate{Latitude: 37.1, Longitude: -122.1}
	require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionEnter, RegionIDs: []string{"A", "B"}, Location: &loc}))
	require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionExit, RegionIDs: []string{"A"}}))

	assert.Equal(t, before, svc.Snapshot())
	require.Len(t, sink.Notifications(), 2)
	assert.Equal(t, "Entered: A, B", sink.Notifications()[0].Title)
	assert.Contains(t, sink.Notifications()[0].Body, "1609 m")
}

func TestService_SupersedeWithLatency(t *testing.T) {
	mon := sim.New(sim.WithLatency(20 * time.Millisecond))
	svc, _, _ := newService(t, mon)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := svc.Register(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.WaitIdle(ctx))

	// Three dwells before the first resolves: the second is superseded by the third.
	for _, id := range []string{"A", "B", "A"} {
		require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionDwell, RegionIDs: []string{id}}))
	}
	require.NoError(t, svc.WaitIdle(ctx))

	st := svc.Status()
	assert.Equal(t, 1, st.Stats.Superseded)
	assert.Equal(t, 3, st.Stats.Completed)
	assert.Equal(t, []string{"B"}, ids(svc.Snapshot()), "last rotation retired A")
	assert.Equal(t, ids(svc.Snapshot()), ids(mon.Regions()))
}

func TestService_AdditionFailureThenReconcile(t *testing.T) {
	mon := sim.New()
	svc, _, _ := newService(t, mon)
	ctx := context.Background()

	mon.FailNextAddition(errors.New("service unavailable"))
	_, err := svc.Register(ctx)
	require.NoError(t, err)

	st := svc.Status()
	assert.True(t, st.Diverged)
	assert.Contains(t, st.LastError, domain.ErrAdditionFailed.Error())
	assert.Empty(t, mon.Regions())

	_, ok := svc.Reconcile(ctx)
	require.True(t, ok)
	assert.False(t, svc.Status().Diverged)
	assert.Equal(t, []string{"A", "B"}, ids(mon.Regions()))
}

func TestService_UnregisterAndRestore(t *testing.T) {
	mon := sim.New()
	flags := memory.NewFlagStore()
	svc, _, _ := newService(t, mon, geofence.WithFlagStore(flags))
	ctx := context.Background()

	restored, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, restored, "nothing registered yet")

	_, err = svc.Register(ctx)
	require.NoError(t, err)

	// A new process sharing the same flag store restores the landmarks.
	mon2 := sim.New()
	svc2, _, _ := newService(t, mon2, geofence.WithFlagStore(flags))
	restored, err = svc2.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, []string{"A", "B"}, ids(mon2.Regions()))

	svc2.Unregister(ctx)
	require.NoError(t, svc2.WaitIdle(ctx))
	assert.Empty(t, svc2.Snapshot())
	assert.Empty(t, mon2.Regions())
	registered, err := svc2.Registered(ctx)
	require.NoError(t, err)
	assert.False(t, registered)
}

func TestService_RunProcessesInOrder(t *testing.T) {
	mon := sim.New()
	svc, sink, _ := newService(t, mon)
	events := make(chan domain.TransitionEvent, 3)
	events <- domain.TransitionEvent{Kind: domain.TransitionEnter, RegionIDs: []string{"A"}}
	events <- domain.TransitionEvent{Kind: domain.TransitionKind(16), RegionIDs: []string{"A"}}
	events <- domain.TransitionEvent{Kind: domain.TransitionExit, RegionIDs: []string{"A"}}
	close(events)

	require.NoError(t, svc.Run(context.Background(), events))

	require.Len(t, sink.Notifications(), 2, "the unknown kind is dropped without stopping the loop")
	assert.Equal(t, "Entered: A", sink.Notifications()[0].Title)
	assert.Equal(t, "Exited: A", sink.Notifications()[1].Title)
}

func TestService_RunStopsOnCancel(t *testing.T) {
	svc, _, _ := newService(t, sim.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx, make(chan domain.TransitionEvent)), context.Canceled)
}

func TestService_MonitorErrorEvent(t *testing.T) {
	svc, sink, _ := newService(t, sim.New())
	err := svc.Handle(context.Background(), domain.TransitionEvent{ErrorCode: domain.ErrorGeofenceNotAvailable})
	assert.ErrorIs(t, err, domain.ErrMonitoringService)
	assert.Empty(t, sink.Notifications())
}

func TestService_EndToEndWithMovement(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	mon := sim.New(sim.WithClock(func() time.Time { return now }))
	svc, sink, _ := newService(t, mon)
	ctx := context.Background()
	_, err := svc.Register(ctx)
	require.NoError(t, err)

	for _, ev := range mon.Move(ctx, landmarks["A"]) {
		_ = svc.Handle(ctx, ev)
	}
	now = now.Add(domain.DefaultDwellDelay)
	for _, ev := range mon.Tick(ctx) {
		_ = svc.Handle(ctx, ev)
	}
	require.NoError(t, svc.WaitIdle(ctx))

	assert.Equal(t, []string{"A"}, sink.RetiredIDs())
	assert.Equal(t, []string{"B"}, ids(mon.Regions()))
}

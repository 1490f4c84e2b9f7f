package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/geofence"
	"github.com/aretw0/geofence/pkg/adapters/memory"
	"github.com/aretw0/geofence/pkg/adapters/sim"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/aretw0/geofence/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, hooks domain.LifecycleHooks) *geofence.Service {
	t.Helper()
	svc, err := geofence.New(sim.New(),
		geofence.WithSource(memory.NewSource(domain.Landmarks{
			"A": {Latitude: 37.1, Longitude: -122.1},
			"B": {Latitude: 37.2, Longitude: -122.2},
		})),
		geofence.WithLifecycleHooks(hooks),
	)
	require.NoError(t, err)
	return svc
}

func TestMetrics_FedByHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	svc := newService(t, m.Hooks())
	ctx := context.Background()

	_, err = svc.Register(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionEnter, RegionIDs: []string{"A"}}))
	require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionDwell, RegionIDs: []string{"A"}}))
	assert.Error(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionExit}))
	require.NoError(t, svc.WaitIdle(ctx))

	assert.Equal(t, 1.0, value(t, reg, "geofence_regions_retired_total"))
	assert.Equal(t, 3.0, value(t, reg, "geofence_mutation_steps_issued_total"))

	count, err := testutil.GatherAndCount(reg, "geofence_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "ENTER ok, DWELL ok, EXIT error")

	// Register adds; the rotation removes then adds.
	count, err = testutil.GatherAndCount(reg, "geofence_mutation_steps_resolved_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "adding/ok and removing/ok series")

	count, err = testutil.GatherAndCount(reg, "geofence_mutation_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc := newService(t, observability.LoggingHooks(logger))
	ctx := context.Background()
	_, err := svc.Register(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, domain.TransitionEvent{Kind: domain.TransitionDwell, RegionIDs: []string{"B"}}))

	out := buf.String()
	assert.Contains(t, out, "mutation_issued")
	assert.Contains(t, out, "mutation_resolved")
	assert.Contains(t, out, "region_retired")
	assert.Contains(t, out, "region_id=B")
}

func value(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/geofence"
	"github.com/aretw0/geofence/pkg/adapters/memory"
	"github.com/aretw0/geofence/pkg/adapters/sim"
	"github.com/aretw0/geofence/pkg/coordinator"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, events chan domain.TransitionEvent, opts ...Option) (http.Handler, *geofence.Service) {
	t.Helper()
	svc, err := geofence.New(sim.New(), geofence.WithSource(memory.NewSource(domain.Landmarks{
		"A": {Latitude: 37.1, Longitude: -122.1},
		"B": {Latitude: 37.2, Longitude: -122.2},
	})))
	require.NoError(t, err)
	return NewHandler(svc, events, opts...), svc
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostEvent_Enqueues(t *testing.T) {
	events := make(chan domain.TransitionEvent, 1)
	h, _ := newTestHandler(t, events)

	w := do(h, "POST", "/events", `{"kind":"DWELL","region_ids":["A"]}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case ev := <-events:
		assert.Equal(t, domain.TransitionDwell, ev.Kind)
		assert.Equal(t, []string{"A"}, ev.RegionIDs)
		assert.False(t, ev.Time.IsZero())
	default:
		t.Fatal("event not enqueued")
	}
}

func TestPostEvent_Rejections(t *testing.T) {
	h, _ := newTestHandler(t, make(chan domain.TransitionEvent))

	assert.Equal(t, http.StatusBadRequest, do(h, "POST", "/events", `{"kind":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, "POST", "/events", `{"kind":"LEAP"}`).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, "POST", "/events", `{"kind":"ENTER","region_ids":["A"]}`).Code, "nobody is draining the queue")
}

func TestRegisterRegionsStatus(t *testing.T) {
	h, svc := newTestHandler(t, make(chan domain.TransitionEvent, 1))

	w := do(h, "POST", "/register", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var m domain.Mutation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, []string{"A", "B"}, m.AdditionIDs())
	require.NoError(t, svc.WaitIdle(context.Background()))

	w = do(h, "GET", "/regions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var regions []domain.Region
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regions))
	assert.Len(t, regions, 2)

	w = do(h, "GET", "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st coordinator.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Equal(t, 2, st.Confirmed)

	assert.Equal(t, http.StatusOK, do(h, "POST", "/reconcile", "").Code, "nothing to reconcile")

	require.Equal(t, http.StatusAccepted, do(h, "POST", "/unregister", "").Code)
	assert.Empty(t, svc.Snapshot())
}

func TestGetDiagram(t *testing.T) {
	h, svc := newTestHandler(t, make(chan domain.TransitionEvent, 1))
	_, err := svc.Register(context.Background())
	require.NoError(t, err)

	w := do(h, "GET", "/diagram", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stateDiagram-v2")
	assert.Contains(t, w.Body.String(), "class idle current")

	w = do(h, "GET", "/diagram?view=regions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "r_A --> monitor")
	assert.NotContains(t, w.Body.String(), "pending")

	assert.Equal(t, http.StatusBadRequest, do(h, "GET", "/diagram?view=sankey", "").Code)
}

func TestHealthInfoMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, _ := newTestHandler(t, nil, WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	w := do(h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, "GET", "/info", "")
	assert.Contains(t, w.Body.String(), geofence.Version)

	assert.Equal(t, http.StatusOK, do(h, "GET", "/metrics", "").Code)

	w = do(h, "OPTIONS", "/events", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeStream(t *testing.T) {
	streams := NewStreamManager(nil)
	h, _ := newTestHandler(t, nil, WithStreams(streams))
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/stream?topics=retired", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	line, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	_, _ = lines.ReadString('\n')
	_, _ = lines.ReadString('\n')

	require.Eventually(t, func() bool { return streams.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, streams.Display(ctx, domain.Notification{Title: "filtered out"}))
	streams.Retired(ctx, "SFO")

	line, err = lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: retired\n", line)
	line, err = lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: {\"region_id\":\"SFO\"}\n", line)
}

func TestStreamManager_RetiredPayload(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe()
	defer cancel()

	sm.Retired(context.Background(), `Pier "39"`)

	msg := <-ch
	assert.Equal(t, TopicRetired, msg.Topic)
	var got retirement
	require.NoError(t, json.Unmarshal([]byte(msg.Data), &got))
	assert.Equal(t, `Pier "39"`, got.RegionID)
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe()
	assert.Equal(t, 1, sm.Subscribers())
	cancel()
	cancel()
	assert.Zero(t, sm.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

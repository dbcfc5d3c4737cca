package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"syscheck/internal/backend"
	"syscheck/internal/camera"
	"syscheck/internal/geo"
	"syscheck/internal/metrics"
	"syscheck/internal/qr"
	"syscheck/internal/sim"
	"syscheck/internal/status"
	"syscheck/internal/system"
)

func newTestServer(t *testing.T) (*Server, *camera.Check) {
	t.Helper()

	deviceProvider := sim.DefaultDeviceProvider()
	cam := camera.NewCheck(deviceProvider, camera.Resolution{Width: 1280, Height: 720}, time.Second)
	geoCheck := geo.NewCheck(sim.DefaultPositionProvider(), geo.DefaultCheckpoints(), time.Second)
	qrCheck := qr.NewCheck(
		sim.OpenFrameSource(deviceProvider),
		&sim.Decoder{Payload: "checkpoint:1", AfterFrames: 1},
		10*time.Millisecond,
	)
	backendCheck := backend.NewCheck("http://127.0.0.1:1", nil, time.Second)

	agg := system.NewAggregator(cam, geoCheck, qrCheck, backendCheck)
	srv := New(":0", agg, cam, metrics.NewRegistry(agg), time.Second)

	t.Cleanup(func() {
		_ = cam.Disable()
		_ = geoCheck.Disable()
		_ = qrCheck.Disable()
		_ = backendCheck.Disable()
	})
	return srv, cam
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	payload := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	}
	return rec, payload
}

func TestServer_Ping(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, payload := doJSON(t, srv.Handler(), http.MethodGet, "/api/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pong", payload["message"])
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServer_Status(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, payload := doJSON(t, srv.Handler(), http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	checks, ok := payload["checks"].([]any)
	require.True(t, ok)
	require.Len(t, checks, 4)

	first := checks[0].(map[string]any)
	require.Equal(t, "camera", first["name"])
	require.Equal(t, string(status.Pending), first["state"])
}

func TestServer_EnableUnknownCheck(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, payload := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks/bogus/enable", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, payload["error"], "unknown check")
}

func TestServer_EnableAndDisableCamera(t *testing.T) {
	srv, cam := newTestServer(t)

	rec, _ := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks/camera/enable", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return cam.Snapshot().Status == camera.StatusDeviceStarted
	}, time.Second, 5*time.Millisecond)

	rec, _ = doJSON(t, srv.Handler(), http.MethodPost, "/api/checks/camera/disable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, camera.StatusUnknown, cam.Snapshot().Status)
}

func TestServer_CameraFlow(t *testing.T) {
	srv, cam := newTestServer(t)
	handler := srv.Handler()

	doJSON(t, handler, http.MethodPost, "/api/checks/camera/enable", "")
	require.Eventually(t, func() bool {
		return cam.Snapshot().Status == camera.StatusDeviceStarted
	}, time.Second, 5*time.Millisecond)

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/checks/camera/device", `{"device_id":"sim-cam-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Eventually(t, func() bool {
		snap := cam.Snapshot()
		return snap.SelectedDeviceID == "sim-cam-1" && snap.Status == camera.StatusDeviceStarted
	}, time.Second, 5*time.Millisecond)

	rec, payload := doJSON(t, handler, http.MethodPost, "/api/checks/camera/resolution", `{"width":640,"height":480}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.InDelta(t, 400, payload["preview_width"].(float64), 1e-9)
	require.InDelta(t, 300, payload["preview_height"].(float64), 1e-9)

	require.Eventually(t, func() bool {
		return cam.Snapshot().Status == camera.StatusDeviceStarted
	}, time.Second, 5*time.Millisecond)

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/checks/camera/capture", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, status.Success, cam.Projection())
}

func TestServer_ResolutionValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, _ := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks/camera/resolution", `{"width":0,"height":480}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, srv.Handler(), http.MethodPost, "/api/checks/camera/resolution", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CaptureWithoutStream(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, payload := doJSON(t, srv.Handler(), http.MethodPost, "/api/checks/camera/capture", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NotEmpty(t, payload["error"])
}

func TestServer_EnableOverHTTPOutlivesTheRequest(t *testing.T) {
	deviceProvider := sim.DefaultDeviceProvider()
	geoCheck := geo.NewCheck(sim.DefaultPositionProvider(), geo.DefaultCheckpoints(), time.Second)
	qrCheck := qr.NewCheck(
		sim.OpenFrameSource(deviceProvider),
		&sim.Decoder{Payload: "checkpoint:1", AfterFrames: 1},
		10*time.Millisecond,
	)
	cam := camera.NewCheck(deviceProvider, camera.Resolution{Width: 1280, Height: 720}, time.Second)
	agg := system.NewAggregator(cam, geoCheck, qrCheck)
	srv := New(":0", agg, cam, nil, time.Second)
	t.Cleanup(func() {
		_ = geoCheck.Disable()
		_ = qrCheck.Disable()
		_ = cam.Disable()
	})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Real round trips: the request context is canceled once each handler
	// returns, and the async work must keep going regardless.
	for _, name := range []string{"geolocation", "qr"} {
		resp, err := http.Post(ts.URL+"/api/checks/"+name+"/enable", "application/json", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}

	require.Eventually(t, func() bool {
		return geoCheck.Snapshot().Status == geo.StatusRequestSucceeded
	}, 2*time.Second, 10*time.Millisecond, "position request must survive the enable request")

	require.Eventually(t, func() bool {
		return qrCheck.Snapshot().LastResult == "checkpoint:1"
	}, 2*time.Second, 10*time.Millisecond, "scan loop must survive the enable request")
}

func TestServer_ShutdownCancelsEnabledChecks(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	provider := &blockingPositionProvider{release: release}
	geoCheck := geo.NewCheck(provider, nil, time.Minute)
	cam := camera.NewCheck(sim.DefaultDeviceProvider(), camera.Resolution{Width: 1280, Height: 720}, time.Second)
	agg := system.NewAggregator(cam, geoCheck)
	srv := New(":0", agg, cam, nil, time.Second)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/checks/geolocation/enable", "application/json", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, geo.StatusRequestInitiated, geoCheck.Snapshot().Status)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(shutdownCtx))

	require.Eventually(t, func() bool {
		return geoCheck.Snapshot().Status == geo.StatusNoResponse
	}, time.Second, 5*time.Millisecond, "shutdown must cancel the in-flight request")
}

type blockingPositionProvider struct {
	release chan struct{}
}

func (p *blockingPositionProvider) Available() bool { return true }

func (p *blockingPositionProvider) CurrentPosition(ctx context.Context) (geo.Position, error) {
	select {
	case <-p.release:
	case <-ctx.Done():
		return geo.Position{}, &geo.PositionError{Code: 3, Reason: "request timed out"}
	}
	return geo.Position{}, nil
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "syscheck_prerequisite_state")
}

func TestServer_StaticIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "System status")
}

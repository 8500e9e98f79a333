package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"keybridge/internal/controller"
	"keybridge/internal/network"
)

type stubStatus struct {
	snap controller.Snapshot
}

func (s stubStatus) Snapshot() controller.Snapshot { return s.snap }

type stubLink struct{}

func (stubLink) Handle(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusConflict)
}

func newTestAPI(t *testing.T, token string) *httptest.Server {
	t.Helper()
	status := stubStatus{snap: controller.Snapshot{
		Mode:          "mouse_mover",
		EffectiveMode: "keyboard_bridge",
		QueueDepth:    3,
		KeyCount:      42,
	}}
	srv := NewServer(status, stubLink{}, token, "1.2.3", zap.NewNop().Sugar())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestAPI(t, "")

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "mouse_mover", body["mode"])
	assert.Equal(t, "keyboard_bridge", body["effective_mode"])
	assert.Equal(t, float64(3), body["queue_depth"])
	assert.Equal(t, float64(42), body["key_count"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestStatusMethodNotAllowed(t *testing.T) {
	ts := newTestAPI(t, "")

	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestAPI(t, "sekrit")

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthSkipsAuth(t *testing.T) {
	ts := newTestAPI(t, "sekrit")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestReachableIPs(t *testing.T) {
	assert.Nil(t, reachableIPs("127.0.0.1:18089"))
	assert.Nil(t, reachableIPs("192.168.1.5:18089"))
	assert.Nil(t, reachableIPs("not-an-addr"))

	want, err := network.GetLocalIPs()
	require.NoError(t, err)
	assert.Equal(t, want, reachableIPs("0.0.0.0:18089"))
	assert.Equal(t, want, reachableIPs(":18089"))
}

func TestLinkRouteWired(t *testing.T) {
	ts := newTestAPI(t, "")

	resp, err := http.Get(ts.URL + "/link")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

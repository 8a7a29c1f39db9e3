package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1-visualizer/backend/internal/api"
	"github.com/f1-visualizer/backend/internal/f1data"
	"github.com/f1-visualizer/backend/internal/metrics"
	"github.com/f1-visualizer/backend/internal/models"
	"github.com/f1-visualizer/backend/internal/session"
	"github.com/f1-visualizer/backend/internal/testutil"
)

type testEnv struct {
	server *httptest.Server
	store  *testutil.MockStorage
	mgr    *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stub := testutil.NewStubProvider()
	t.Cleanup(stub.Close)

	client, err := f1data.NewClient(stub.URL(), "", 5*time.Second)
	require.NoError(t, err)
	loader := f1data.NewLoader(client)

	mgr := session.NewManager(loader, t.TempDir(), 10)
	t.Cleanup(mgr.Shutdown)

	store := testutil.NewMockStorage()

	e := echo.New()
	api.SetupMiddleware(e)
	handlers := api.NewHandlers(&api.Dependencies{
		Store:      store,
		SessionMgr: mgr,
		Schedule:   loader,
		Version:    "test",
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: store, mgr: mgr}
}

func (env *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(env.server.URL + path)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func (env *testEnv) postJSON(t *testing.T, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(env.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

// startSession creates a session and waits for the background load.
func (env *testEnv) startSession(t *testing.T) string {
	t.Helper()

	resp, body := env.postJSON(t, "/api/sessions", map[string]any{
		"year": 2024, "track": "monaco", "session": "Q",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var sess models.AnalysisSession
	require.NoError(t, json.Unmarshal(body, &sess))
	require.NotEmpty(t, sess.ID)

	require.Eventually(t, func() bool {
		resp, body := env.get(t, "/api/sessions/"+sess.ID)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var s models.AnalysisSession
		if err := json.Unmarshal(body, &s); err != nil {
			return false
		}
		return s.Status == models.StatusComplete || s.Status == models.StatusError
	}, 5*time.Second, 20*time.Millisecond)

	resp, body = env.get(t, "/api/sessions/"+sess.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s models.AnalysisSession
	require.NoError(t, json.Unmarshal(body, &s))
	require.Equal(t, models.StatusComplete, s.Status, "load failed: %s", s.Error)

	return sess.ID
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestGetTracks(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/tracks/2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []models.Event
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 2)
	assert.Equal(t, "Bahrain Grand Prix", events[0].Name)
	assert.Equal(t, 1, events[0].Round)
}

func TestGetTracksBadYear(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/api/tracks/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSessionCodes(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/session-codes")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var codes []string
	require.NoError(t, json.Unmarshal(body, &codes))
	assert.Contains(t, codes, "Q")
	assert.Contains(t, codes, "R")
}

func TestStartSessionValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []map[string]any{
		{"track": "monaco", "session": "Q"},          // missing year
		{"year": 2024, "session": "Q"},               // missing track
		{"year": 2024, "track": "monaco"},            // missing session
	}
	for _, payload := range cases {
		resp, _ := env.postJSON(t, "/api/sessions", payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	// List includes the session.
	resp, body := env.get(t, "/api/sessions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessions []models.AnalysisSession
	require.NoError(t, json.Unmarshal(body, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)

	// Keep-alive.
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/sessions/"+id+"/keepalive", nil)
	require.NoError(t, err)
	kaResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	kaResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, kaResp.StatusCode)

	// Delete.
	req, err = http.NewRequest(http.MethodDelete, env.server.URL+"/api/sessions/"+id, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, _ = env.get(t, "/api/sessions/"+id)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionStatusNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/sessions/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestGetDrivers(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/drivers", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var drivers []models.Driver
	require.NoError(t, json.Unmarshal(body, &drivers))
	require.Len(t, drivers, 2)
	assert.Equal(t, "HAM", drivers[0].Code)
	assert.Equal(t, "VER", drivers[1].Code)
}

func TestGetLaps(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/laps?driver=VER", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Driver models.Driver         `json:"driver"`
		Laps   []models.Lap          `json:"laps"`
		Stats  *metrics.LapTimeStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Driver.Number)
	assert.Len(t, out.Laps, 3)

	// Lap 1 is a pit-out lap, laps 2 and 3 are timed.
	require.NotNil(t, out.Stats)
	assert.Equal(t, 3, out.Stats.Laps)
	assert.Equal(t, 2, out.Stats.TimedLaps)
	assert.Equal(t, 3, out.Stats.FastestLap)
	assert.Equal(t, 71.2, out.Stats.Fastest)
	assert.Equal(t, 71.85, out.Stats.Average)
}

func TestGetLapsUnknownDriver(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, _ := env.get(t, fmt.Sprintf("/api/sessions/%s/laps?driver=XXX", id))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.get(t, fmt.Sprintf("/api/sessions/%s/laps", id))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionProgressStream(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/progress", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.Contains(t, string(body), `"status":"complete"`)
}

package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/f1-visualizer/backend/internal/metrics"
	"github.com/f1-visualizer/backend/internal/models"
)

func TestAnalyzeFastestLap(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/analysis?driver=VER&lap=fastest", id))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Driver         models.Driver       `json:"driver"`
		Lap            models.Lap          `json:"lap"`
		Summary        *metrics.Summary    `json:"summary"`
		BrakingZones   []metrics.Zone      `json:"brakingZones"`
		GearShifts     []metrics.GearShift `json:"gearShifts"`
		DRSActivations int                 `json:"drsActivations"`
	}
	require.NoError(t, json.Unmarshal(body, &out))

	assert.Equal(t, "VER", out.Driver.Code)
	assert.Equal(t, 3, out.Lap.Number)

	require.NotNil(t, out.Summary)
	// The stub lap: 20 full-throttle samples, 8 braking, 12 coasting of 40.
	assert.Equal(t, 250.0, out.Summary.MaxSpeed)
	assert.Equal(t, 130.0, out.Summary.MinSpeed)
	assert.Equal(t, 100.0, out.Summary.MaxThrottle)
	assert.Equal(t, 90.0, out.Summary.MaxBrake)
	assert.Equal(t, 50.0, out.Summary.FullThrottlePct)
	assert.Equal(t, 20.0, out.Summary.BrakingPct)
	assert.Equal(t, 30.0, out.Summary.CoastingPct)

	assert.Len(t, out.BrakingZones, 1)
	assert.Equal(t, 6, out.DRSActivations)
}

func TestAnalyzeByLapNumber(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/analysis?driver=VER&lap=2", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Lap models.Lap `json:"lap"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 2, out.Lap.Number)
}

func TestAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, _ := env.get(t, fmt.Sprintf("/api/sessions/%s/analysis", id))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, fmt.Sprintf("/api/sessions/%s/analysis?driver=VER&lap=bogus", id))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, fmt.Sprintf("/api/sessions/%s/analysis?driver=VER&lap=99", id))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTelemetryJSON(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/telemetry?driver=VER", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Driver models.Driver         `json:"driver"`
		Frame  models.TelemetryFrame `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Driver.Number)
	require.NotEmpty(t, out.Frame)
	assert.Zero(t, out.Frame[0].Time)
}

func TestTelemetryDistanceRange(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	_, full := env.get(t, fmt.Sprintf("/api/sessions/%s/telemetry?driver=VER", id))
	var whole struct {
		Frame models.TelemetryFrame `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(full, &whole))
	require.NotEmpty(t, whole.Frame)
	mid := whole.Frame[len(whole.Frame)/2].Distance

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/telemetry?driver=VER&maxDistance=%f", id, mid))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Frame models.TelemetryFrame `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Frame)
	assert.Less(t, len(out.Frame), len(whole.Frame))
	for _, s := range out.Frame {
		assert.LessOrEqual(t, s.Distance, mid)
	}

	resp, _ = env.get(t, fmt.Sprintf("/api/sessions/%s/telemetry?driver=VER&minDistance=abc", id))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTelemetryMsgpack(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/telemetry/msgpack?driver=HAM&lap=first", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-msgpack", resp.Header.Get("Content-Type"))

	// Mirrors the handler's response struct shape, tags included.
	var out struct {
		Driver models.Driver         `json:"driver"`
		Lap    models.Lap            `json:"lap"`
		Frame  models.TelemetryFrame `json:"frame"`
	}
	require.NoError(t, msgpack.Unmarshal(body, &out))
	assert.Equal(t, 44, out.Driver.Number)
	assert.Equal(t, 1, out.Lap.Number)
	assert.NotEmpty(t, out.Frame)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.get(t, fmt.Sprintf("/api/sessions/%s/export?driver=VER&lap=fastest", id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ver_lap3.csv")
	assert.Contains(t, string(body), "Time,Distance,Speed,Throttle,Brake,RPM,nGear,X,Y,Z")

	// The export is also recorded as an artifact.
	assert.Equal(t, 1, env.store.GetFileCount())
	files, err := env.store.List(10)
	require.NoError(t, err)
	assert.Equal(t, models.ArtifactCSV, files[0].Kind)
}

func TestCreatePlot(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "trace", "driver": "VER", "lap": "fastest",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var info models.FileInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, models.ArtifactPlot, info.Kind)
	assert.Equal(t, "trace_ver_lap3.png", info.Name)

	data, err := env.store.GetFileData(info.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestCreateComparisonPlot(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "compare", "driver": "VER", "otherDriver": "HAM",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestCreatePlotErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	// Unknown kind.
	resp, _ := env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "spectrogram", "driver": "VER",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Two-lap kind without second driver.
	resp, _ = env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "delta", "driver": "VER",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing driver.
	resp, _ = env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "trace",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePlotColorBy(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "trackmap", "driver": "VER", "colorBy": "rpm", "inline": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body[:4])

	resp, _ = env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "trackmap", "driver": "VER", "colorBy": "tyre_temp",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePlotInline(t *testing.T) {
	env := newTestEnv(t)
	id := env.startSession(t)

	resp, body := env.postJSON(t, fmt.Sprintf("/api/sessions/%s/plots", id), map[string]any{
		"kind": "trackmap", "driver": "VER", "inline": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body[:4])
}

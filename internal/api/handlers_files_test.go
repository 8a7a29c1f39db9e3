package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f1-visualizer/backend/internal/models"
)

func TestRecentFiles(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		_, err := env.store.SaveBytes("plot.png", models.ArtifactPlot, []byte("png"))
		require.NoError(t, err)
	}

	resp, body := env.get(t, "/api/files/recent?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var files []models.FileInfo
	require.NoError(t, json.Unmarshal(body, &files))
	assert.Len(t, files, 2)
}

func TestGetFileMetadata(t *testing.T) {
	env := newTestEnv(t)

	info, err := env.store.SaveBytes("export.csv", models.ArtifactCSV, []byte("a,b\n"))
	require.NoError(t, err)

	resp, body := env.get(t, "/api/files/"+info.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.FileInfo
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, models.ArtifactCSV, got.Kind)

	resp, _ = env.get(t, "/api/files/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenameFile(t *testing.T) {
	env := newTestEnv(t)

	info, err := env.store.SaveBytes("old.png", models.ArtifactPlot, []byte("png"))
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]string{"name": "new.png"})
	req, err := http.NewRequest(http.MethodPut, env.server.URL+"/api/files/"+info.ID, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := env.store.Get(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "new.png", updated.Name)
}

func TestDeleteFile(t *testing.T) {
	env := newTestEnv(t)

	info, err := env.store.SaveBytes("gone.png", models.ArtifactPlot, []byte("png"))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/api/files/"+info.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 0, env.store.GetFileCount())

	req, err = http.NewRequest(http.MethodDelete, env.server.URL+"/api/files/"+info.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

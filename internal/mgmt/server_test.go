package mgmt

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/store"
)

func testServer(t *testing.T, apiKey string) (*Server, *store.Store) {
	t.Helper()
	logger := zerolog.Nop()

	s, err := store.New(filepath.Join(t.TempDir(), "mgmt-test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := NewServer(Config{ListenAddr: ":0", APIKey: apiKey}, s, metrics.New(), logger)
	return srv, s
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t, "")

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t, "")

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "scribe_")
}

func TestListTasks(t *testing.T) {
	srv, s := testServer(t, "")

	_, err := s.ScheduleTask("sprint:end", 2000, "sprint", 7)
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int        `json:"count"`
		Tasks []taskView `json:"tasks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "sprint:end", body.Tasks[0].Type)
	assert.Equal(t, int64(7), body.Tasks[0].ObjectID)
}

func TestAPIKeyAuth(t *testing.T) {
	srv, _ := testServer(t, "sekrit")

	// Probes stay open.
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// API routes require the bearer token.
	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = srv.App().Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

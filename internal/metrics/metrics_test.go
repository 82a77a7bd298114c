package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.TasksProcessed)
	assert.NotNil(t, m.TaskErrors)
	assert.NotNil(t, m.SprintsStarted)
	assert.NotNil(t, m.SprintsCompleted)
	assert.NotNil(t, m.SprintsActive)
	assert.NotNil(t, m.RemindersSent)
	assert.NotNil(t, m.GoalResets)
	assert.NotNil(t, m.CommandsTotal)
}

func TestMetrics_RecordTask(t *testing.T) {
	m := New()
	m.RecordTask("sprint:end")
	m.RecordTask("sprint:end")
	m.RecordTaskError("sprint:start")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `scribe_tasks_processed_total{type="sprint:end"} 2`)
	assert.Contains(t, body, `scribe_task_errors_total{type="sprint:start"} 1`)
}

func TestMetrics_RecordCommand(t *testing.T) {
	m := New()
	m.RecordCommand("sprint", "ok")
	m.RecordCommand("sprint", "user_error")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `scribe_commands_total{command="sprint",status="ok"} 1`)
	assert.Contains(t, body, `scribe_commands_total{command="sprint",status="user_error"} 1`)
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()
	m.SprintsActive.Set(2)
	m.RemindersStale.Inc()

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "scribe_sprints_active 2")
	assert.Contains(t, body, "scribe_reminders_stale_total 1")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	handler := m.Handler()
	assert.NotNil(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	return strings.TrimSpace(string(body))
}

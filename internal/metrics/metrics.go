// Package metrics provides Prometheus metrics for the scribe bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	TasksProcessed   *prometheus.CounterVec
	TaskErrors       *prometheus.CounterVec
	SprintsStarted   prometheus.Counter
	SprintsCompleted prometheus.Counter
	SprintsActive    prometheus.Gauge
	RemindersSent    prometheus.Counter
	RemindersStale   prometheus.Counter
	GoalResets       prometheus.Counter
	CommandsTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TasksProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_tasks_processed_total",
				Help: "Scheduled tasks processed by the dispatcher, by task type.",
			},
			[]string{"type"},
		),
		TaskErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_task_errors_total",
				Help: "Scheduled task handler failures, by task type.",
			},
			[]string{"type"},
		),
		SprintsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scribe_sprints_started_total",
				Help: "Sprints created across all guilds.",
			},
		),
		SprintsCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scribe_sprints_completed_total",
				Help: "Sprints that ran to completion with results posted.",
			},
		),
		SprintsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scribe_sprints_active",
				Help: "Number of non-completed sprints.",
			},
		),
		RemindersSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scribe_reminders_sent_total",
				Help: "Reminders delivered (or attempted and consumed).",
			},
		),
		RemindersStale: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scribe_reminders_stale_total",
				Help: "One-shot reminders dropped for exceeding the staleness cutoff.",
			},
		),
		GoalResets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scribe_goal_resets_total",
				Help: "Goal rows reset by the periodic sweep.",
			},
		),
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_commands_total",
				Help: "Commands executed, by name and status.",
			},
			[]string{"command", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.TasksProcessed,
		m.TaskErrors,
		m.SprintsStarted,
		m.SprintsCompleted,
		m.SprintsActive,
		m.RemindersSent,
		m.RemindersStale,
		m.GoalResets,
		m.CommandsTotal,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTask increments the processed-task counter.
func (m *Metrics) RecordTask(taskType string) {
	m.TasksProcessed.WithLabelValues(taskType).Inc()
}

// RecordTaskError increments the task error counter.
func (m *Metrics) RecordTaskError(taskType string) {
	m.TaskErrors.WithLabelValues(taskType).Inc()
}

// RecordCommand increments the command counter.
func (m *Metrics) RecordCommand(command, status string) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
}

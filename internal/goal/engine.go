package goal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/scheduler"
	"github.com/scribe-bot/scribe/internal/store"
	"github.com/scribe-bot/scribe/internal/tzcache"
)

// Task identity for the recurring rollover sweep.
const (
	TaskReset  = "goal:reset"
	TaskObject = "goal"
)

// checkInterval is how often the sweep task reschedules itself. Rollovers
// land on midnight boundaries, so a short interval only bounds how late a
// reset can be.
const checkInterval = time.Minute

// Engine rolls over due goals. It runs as a self-rescheduling task on the
// dispatcher so a restart picks the sweep back up from the persisted queue.
type Engine struct {
	store   *store.Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(s *store.Store, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		store:   s,
		metrics: m,
		logger:  logger.With().Str("component", "goal-engine").Logger(),
		now:     time.Now,
	}
}

// Register wires the rollover handler into the dispatcher and makes sure
// exactly one sweep task is queued.
func (e *Engine) Register(d *scheduler.Dispatcher) error {
	d.Register(TaskReset, e.HandleReset)

	// Re-arm from scratch: duplicates from a crashed run would multiply
	// the sweep otherwise.
	if err := e.store.CancelTasks(TaskObject, 0); err != nil {
		return fmt.Errorf("clearing stale sweep tasks: %w", err)
	}
	if _, err := e.store.ScheduleTask(TaskReset, e.now().Unix(), TaskObject, 0); err != nil {
		return fmt.Errorf("scheduling sweep task: %w", err)
	}
	return nil
}

// HandleReset archives and resets every goal whose boundary has passed, then
// queues the next sweep. One bad record does not stop the rest.
func (e *Engine) HandleReset(ctx context.Context, object string, objectID int64) error {
	now := e.now()
	due, err := e.store.DueGoals(now.Unix())
	if err != nil {
		e.rearm(now)
		return fmt.Errorf("loading due goals: %w", err)
	}

	for _, g := range due {
		if err := e.rollover(g, now); err != nil {
			e.logger.Error().Err(err).Str("user", g.UserID).Str("type", g.Type).Msg("goal rollover failed")
		}
	}
	if len(due) > 0 {
		e.logger.Info().Int("count", len(due)).Msg("rolled over goals")
	}

	e.rearm(now)
	return nil
}

func (e *Engine) rollover(g *store.Goal, now time.Time) error {
	loc := e.userLocation(g.UserID)

	// The archive row is dated with the last day of the period that just
	// ended.
	date := time.Unix(g.Reset, 0).In(loc).AddDate(0, 0, -1).Format("2006-01-02")
	if err := e.store.InsertGoalHistory(g.UserID, g.Type, date, g.Goal, g.Current, g.Completed); err != nil {
		return fmt.Errorf("archiving period: %w", err)
	}

	// Catch up across missed boundaries: a bot that was down for a week
	// must not schedule the next reset in the past.
	next := g.Reset
	for next <= now.Unix() {
		next = NextReset(g.Type, time.Unix(next, 0), loc)
	}
	if err := e.store.ResetGoal(g.ID, next); err != nil {
		return fmt.Errorf("resetting goal: %w", err)
	}

	e.metrics.GoalResets.Inc()
	return nil
}

func (e *Engine) rearm(now time.Time) {
	if _, err := e.store.ScheduleTask(TaskReset, now.Add(checkInterval).Unix(), TaskObject, 0); err != nil {
		e.logger.Error().Err(err).Msg("failed to reschedule goal sweep")
	}
}

func (e *Engine) userLocation(user string) *time.Location {
	tz, err := e.store.GetUserSetting(user, store.SettingTimezone)
	if err != nil || tz == "" {
		return time.UTC
	}
	loc, err := tzcache.Location(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Package reminder delivers scheduled one-shot and repeating messages.
// Delivery runs as a periodic sweep on the task dispatcher; reminders that
// sat undelivered past the staleness cutoff (a bot outage) are dropped
// rather than fired long after they stopped being useful.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/scheduler"
	"github.com/scribe-bot/scribe/internal/store"
	"github.com/scribe-bot/scribe/internal/tzcache"
)

// Task identity for the delivery sweep.
const (
	TaskSweep  = "reminder:sweep"
	TaskObject = "reminder"
)

const (
	sweepInterval = time.Minute
	maxMessageLen = 255
)

// Repeat intervals accepted for recurring reminders.
const (
	IntervalHour = int64(time.Hour / time.Second)
	IntervalDay  = 24 * IntervalHour
	IntervalWeek = 7 * IntervalDay
)

// Notifier posts a message to a channel.
type Notifier interface {
	Send(channel, text string) error
}

// Engine owns reminder creation and delivery.
type Engine struct {
	store       *store.Store
	metrics     *metrics.Metrics
	lang        *lang.Store
	notifier    Notifier
	logger      zerolog.Logger
	staleCutoff time.Duration
	now         func() time.Time
}

// New creates an Engine. staleCutoff bounds how late a reminder may still be
// delivered.
func New(s *store.Store, m *metrics.Metrics, l *lang.Store, notifier Notifier, staleCutoff time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		store:       s,
		metrics:     m,
		lang:        l,
		notifier:    notifier,
		logger:      logger.With().Str("component", "reminder").Logger(),
		staleCutoff: staleCutoff,
		now:         time.Now,
	}
}

// Register wires the sweep handler into the dispatcher and queues a single
// sweep task.
func (e *Engine) Register(d *scheduler.Dispatcher) error {
	d.Register(TaskSweep, e.HandleSweep)

	if err := e.store.CancelTasks(TaskObject, 0); err != nil {
		return fmt.Errorf("clearing stale sweep tasks: %w", err)
	}
	if _, err := e.store.ScheduleTask(TaskSweep, e.now().Unix(), TaskObject, 0); err != nil {
		return fmt.Errorf("scheduling sweep task: %w", err)
	}
	return nil
}

// HandleSweep delivers every due reminder, then queues the next sweep. A
// failed delivery is logged and the reminder consumed anyway; delivery is
// best-effort, not guaranteed.
func (e *Engine) HandleSweep(ctx context.Context, object string, objectID int64) error {
	now := e.now().Unix()
	due, err := e.store.DueReminders(now)
	if err != nil {
		e.rearm()
		return fmt.Errorf("loading due reminders: %w", err)
	}

	for _, r := range due {
		e.deliver(r, now)
	}

	e.rearm()
	return nil
}

func (e *Engine) deliver(r *store.Reminder, now int64) {
	stale := now-r.Time > int64(e.staleCutoff.Seconds())

	if !stale {
		text := mention(r.UserID) + " " + r.Message
		if err := e.notifier.Send(r.Channel, text); err != nil {
			// Swallowed: a dead channel must not wedge the sweep, and
			// the reminder is consumed either way.
			e.logger.Error().Err(err).Int64("reminder", r.ID).Str("channel", r.Channel).Msg("reminder delivery failed")
		} else {
			e.metrics.RemindersSent.Inc()
		}
	} else {
		e.metrics.RemindersStale.Inc()
		e.logger.Warn().Int64("reminder", r.ID).Int64("late_seconds", now-r.Time).Msg("dropping stale reminder")
	}

	if r.Interval > 0 {
		next := r.Time + r.Interval
		for next <= now {
			next += r.Interval
		}
		if err := e.store.RescheduleReminder(r.ID, next); err != nil {
			e.logger.Error().Err(err).Int64("reminder", r.ID).Msg("failed to reschedule reminder")
		}
		return
	}
	if err := e.store.DeleteReminder(r.ID); err != nil {
		e.logger.Error().Err(err).Int64("reminder", r.ID).Msg("failed to delete reminder")
	}
}

func (e *Engine) rearm() {
	if _, err := e.store.ScheduleTask(TaskSweep, e.now().Add(sweepInterval).Unix(), TaskObject, 0); err != nil {
		e.logger.Error().Err(err).Msg("failed to reschedule reminder sweep")
	}
}

// ValidInterval reports whether seconds is an accepted repeat period.
func ValidInterval(seconds int64) bool {
	switch seconds {
	case IntervalHour, IntervalDay, IntervalWeek:
		return true
	}
	return false
}

// CreateIn schedules a reminder a number of minutes from now. interval is 0
// for a one-shot or one of the accepted repeat periods.
func (e *Engine) CreateIn(guild, channel, user string, minutes int64, message string, interval int64) (string, error) {
	if minutes <= 0 {
		return e.lang.Get("remind:err:time", guild), errors.ErrInvalidInput
	}
	return e.create(guild, channel, user, e.now().Unix()+minutes*60, message, interval)
}

// CreateAt schedules a reminder for the next occurrence of HH:MM in the
// user's timezone.
func (e *Engine) CreateAt(guild, channel, user string, hour, minute int, message string, interval int64) (string, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return e.lang.Get("remind:err:format", guild), errors.ErrInvalidInput
	}

	loc := e.userLocation(user)
	now := e.now().In(loc)
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return e.create(guild, channel, user, at.Unix(), message, interval)
}

func (e *Engine) create(guild, channel, user string, fireAt int64, message string, interval int64) (string, error) {
	if len(message) > maxMessageLen {
		return e.lang.Getf("remind:err:message", guild, len(message), maxMessageLen), errors.ErrInvalidInput
	}
	if interval != 0 && !ValidInterval(interval) {
		return e.lang.Get("remind:err:interval", guild), errors.ErrInvalidInput
	}

	if _, err := e.store.CreateReminder(&store.Reminder{
		UserID:   user,
		Guild:    guild,
		Time:     fireAt,
		Channel:  channel,
		Message:  message,
		Interval: interval,
	}); err != nil {
		return "", fmt.Errorf("creating reminder: %w", err)
	}

	left := time.Duration(fireAt-e.now().Unix()) * time.Second
	return e.lang.Getf("remind:created", guild, formatDuration(left)), nil
}

// List shows the user's reminders on this guild.
func (e *Engine) List(guild, user string) (string, error) {
	reminders, err := e.store.UserReminders(user, guild)
	if err != nil {
		return "", fmt.Errorf("loading reminders: %w", err)
	}
	if len(reminders) == 0 {
		return e.lang.Get("remind:none", guild), nil
	}

	now := e.now().Unix()
	var b strings.Builder
	b.WriteString(e.lang.Get("remind:list", guild))
	for _, r := range reminders {
		left := time.Duration(r.Time-now) * time.Second
		when := formatDuration(left)
		if left <= 0 {
			when = e.lang.Get("remind:anytimenow", guild)
		}
		b.WriteString(fmt.Sprintf("%d. %s (%s)\n", r.ID, r.Message, when))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// DeleteAll removes every reminder the user has on this guild.
func (e *Engine) DeleteAll(guild, user string) (string, error) {
	reminders, err := e.store.UserReminders(user, guild)
	if err != nil {
		return "", fmt.Errorf("loading reminders: %w", err)
	}
	for _, r := range reminders {
		if err := e.store.DeleteReminder(r.ID); err != nil {
			return "", fmt.Errorf("deleting reminder %d: %w", r.ID, err)
		}
	}
	return e.lang.Getf("remind:deleted", guild, len(reminders)), nil
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

func mention(user string) string {
	return "<@" + user + ">"
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

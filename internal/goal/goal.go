// Package goal manages recurring word-count goals. Each goal rolls over at
// midnight in the user's timezone: daily every night, weekly on Monday,
// monthly on the 1st and yearly on January 1st. The rollover archives the
// period's result and zeroes the progress counter.
package goal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/store"
	"github.com/scribe-bot/scribe/internal/tzcache"
)

// historyLimit caps how many archived periods are shown.
const historyLimit = 10

// ValidType reports whether the goal type is one of the four periods.
func ValidType(goalType string) bool {
	switch goalType {
	case store.GoalDaily, store.GoalWeekly, store.GoalMonthly, store.GoalYearly:
		return true
	}
	return false
}

// NextReset returns the epoch of the next rollover boundary for a goal type,
// strictly after from, in the given location.
func NextReset(goalType string, from time.Time, loc *time.Location) int64 {
	local := from.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch goalType {
	case store.GoalWeekly:
		// Next Monday midnight.
		days := (8 - int(midnight.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		return midnight.AddDate(0, 0, days).Unix()
	case store.GoalMonthly:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0).Unix()
	case store.GoalYearly:
		return time.Date(local.Year()+1, time.January, 1, 0, 0, 0, 0, loc).Unix()
	default:
		return midnight.AddDate(0, 0, 1).Unix()
	}
}

// Manager implements the user-facing goal operations.
type Manager struct {
	store  *store.Store
	lang   *lang.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a Manager.
func NewManager(s *store.Store, l *lang.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  s,
		lang:   l,
		logger: logger.With().Str("component", "goal").Logger(),
		now:    time.Now,
	}
}

// Set creates or replaces a goal. Progress already made this period is kept
// when the target changes.
func (m *Manager) Set(guild, user, goalType string, amount int64) (string, error) {
	if !ValidType(goalType) {
		return m.lang.Get("goal:invalidtype", guild), errors.ErrInvalidInput
	}
	if amount <= 0 {
		return m.lang.Get("goal:invalidtype", guild), errors.ErrInvalidInput
	}

	loc := m.userLocation(user)
	if err := m.store.SetGoal(&store.Goal{
		UserID: user,
		Type:   goalType,
		Goal:   amount,
		Reset:  NextReset(goalType, m.now(), loc),
	}); err != nil {
		return "", fmt.Errorf("saving goal: %w", err)
	}
	return m.lang.Getf("goal:set", guild, goalType, amount), nil
}

// Cancel removes a goal entirely.
func (m *Manager) Cancel(guild, user, goalType string) (string, error) {
	if !ValidType(goalType) {
		return m.lang.Get("goal:invalidtype", guild), errors.ErrInvalidInput
	}

	g, err := m.store.GetGoal(user, goalType)
	if err != nil {
		return "", fmt.Errorf("loading goal: %w", err)
	}
	if g == nil {
		return m.lang.Getf("goal:none", guild, goalType), errors.ErrNotFound
	}
	if err := m.store.DeleteGoal(user, goalType); err != nil {
		return "", fmt.Errorf("deleting goal: %w", err)
	}
	return m.lang.Getf("goal:cancelled", guild, goalType), nil
}

// Check reports progress on one goal.
func (m *Manager) Check(guild, user, goalType string) (string, error) {
	if !ValidType(goalType) {
		return m.lang.Get("goal:invalidtype", guild), errors.ErrInvalidInput
	}

	g, err := m.store.GetGoal(user, goalType)
	if err != nil {
		return "", fmt.Errorf("loading goal: %w", err)
	}
	if g == nil {
		return m.lang.Getf("goal:none", guild, goalType), errors.ErrNotFound
	}

	pct := int64(0)
	if g.Goal > 0 {
		pct = g.Current * 100 / g.Goal
	}
	return m.lang.Getf("goal:check", guild, g.Current, g.Goal, g.Type, pct), nil
}

// CheckAll reports progress on every goal the user has, daily first.
func (m *Manager) CheckAll(guild, user string) (string, error) {
	goals, err := m.store.UserGoals(user)
	if err != nil {
		return "", fmt.Errorf("loading goals: %w", err)
	}
	if len(goals) == 0 {
		return m.lang.Getf("goal:none", guild, "daily"), errors.ErrNotFound
	}

	lines := make([]string, 0, len(goals))
	for _, g := range goals {
		pct := int64(0)
		if g.Goal > 0 {
			pct = g.Current * 100 / g.Goal
		}
		lines = append(lines, m.lang.Getf("goal:check", guild, g.Current, g.Goal, g.Type, pct))
	}
	return strings.Join(lines, "\n"), nil
}

// TimeLeft reports how long until a goal rolls over.
func (m *Manager) TimeLeft(guild, user, goalType string) (string, error) {
	if !ValidType(goalType) {
		return m.lang.Get("goal:invalidtype", guild), errors.ErrInvalidInput
	}

	g, err := m.store.GetGoal(user, goalType)
	if err != nil {
		return "", fmt.Errorf("loading goal: %w", err)
	}
	if g == nil {
		return m.lang.Getf("goal:none", guild, goalType), errors.ErrNotFound
	}

	left := time.Duration(g.Reset-m.now().Unix()) * time.Second
	if left < 0 {
		left = 0
	}
	return m.lang.Getf("goal:time", guild, g.Type, formatDuration(left)), nil
}

// History lists the archived results of past periods.
func (m *Manager) History(guild, user, goalType string) (string, error) {
	if !ValidType(goalType) {
		return m.lang.Get("goal:invalidtype", guild), errors.ErrInvalidInput
	}

	entries, err := m.store.GoalHistory(user, goalType, historyLimit)
	if err != nil {
		return "", fmt.Errorf("loading goal history: %w", err)
	}
	if len(entries) == 0 {
		return m.lang.Getf("goal:history:none", guild, goalType), nil
	}

	var b strings.Builder
	b.WriteString(m.lang.Getf("goal:history", guild, goalType))
	for _, e := range entries {
		mark := "✗"
		if e.Completed {
			mark = "✓"
		}
		b.WriteString("\n")
		b.WriteString(m.lang.Getf("goal:history:row", guild, e.Date, e.Result, e.Goal, mark))
	}
	return b.String(), nil
}

// userLocation loads the user's timezone, falling back to UTC.
func (m *Manager) userLocation(user string) *time.Location {
	tz, err := m.store.GetUserSetting(user, store.SettingTimezone)
	if err != nil || tz == "" {
		return time.UTC
	}
	loc, err := tzcache.Location(tz)
	if err != nil {
		m.logger.Warn().Str("user", user).Str("tz", tz).Msg("invalid timezone setting")
		return time.UTC
	}
	return loc
}

func formatDuration(d time.Duration) string {
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

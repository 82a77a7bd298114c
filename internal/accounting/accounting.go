// Package accounting holds the pure word-count, WPM and XP calculations, and
// the applier that folds declared words into stats and goal progress.
package accounting

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/scribe-bot/scribe/internal/store"
)

// CalculateWPM returns words per minute for a written count over an elapsed
// duration in seconds, rounded to one decimal place. Zero elapsed time yields
// zero rather than infinity.
func CalculateWPM(written, seconds int64) float64 {
	if seconds <= 0 || written <= 0 {
		return 0
	}
	wpm := float64(written) / (float64(seconds) / 60.0)
	return math.Round(wpm*10) / 10
}

// ChallengeXP returns the XP a challenge grants, tiered by its target WPM.
func ChallengeXP(wpm int) int64 {
	switch {
	case wpm <= 5:
		return 20
	case wpm <= 15:
		return 40
	case wpm <= 30:
		return 75
	case wpm <= 45:
		return 100
	default:
		return 150
	}
}

// ProjectXP returns the XP granted the first time a project reaches a
// finished or published status, tiered by its word count.
func ProjectXP(words int64) int64 {
	switch {
	case words <= 1000:
		return 50
	case words <= 10000:
		return 100
	case words <= 50000:
		return 250
	default:
		return 500
	}
}

// GoalXP returns the XP granted when a goal of the given type is completed.
func GoalXP(goalType string) int64 {
	switch goalType {
	case store.GoalDaily:
		return 100
	case store.GoalWeekly:
		return 250
	case store.GoalMonthly:
		return 500
	case store.GoalYearly:
		return 1000
	default:
		return 0
	}
}

// Level converts cumulative XP into a level. Level n starts at 50*(n-1)^2 XP,
// so levels get progressively harder: 0, 50, 200, 450, 800, ...
func Level(xp int64) int64 {
	if xp < 0 {
		return 1
	}
	return int64(math.Sqrt(float64(xp)/50.0)) + 1
}

// NextLevelXP returns the cumulative XP at which the next level begins.
func NextLevelXP(xp int64) int64 {
	level := Level(xp)
	return 50 * level * level
}

// Applier folds words-written deltas into cumulative stats and goal
// progress. Sprint completion feeds it, as do the wrote and challenge flows.
type Applier struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewApplier creates an Applier.
func NewApplier(s *store.Store, logger zerolog.Logger) *Applier {
	return &Applier{
		store:  s,
		logger: logger.With().Str("component", "accounting").Logger(),
	}
}

// AddWords records a words-written delta for the user: cumulative stat, then
// progress on every goal, granting goal-completion XP when a goal first
// crosses its target this period. Negative deltas are ignored.
func (a *Applier) AddWords(userID, guild string, delta int64) error {
	if delta <= 0 {
		return nil
	}

	if err := a.store.AddUserStat(userID, guild, store.StatTotalWordsWritten, delta); err != nil {
		return fmt.Errorf("adding words stat: %w", err)
	}

	goals, err := a.store.UserGoals(userID)
	if err != nil {
		return fmt.Errorf("loading goals: %w", err)
	}

	for _, g := range goals {
		current := g.Current + delta
		completed := g.Completed
		if !completed && current >= g.Goal {
			completed = true
			if err := a.store.AddXP(userID, guild, GoalXP(g.Type)); err != nil {
				a.logger.Error().Err(err).Str("user", userID).Str("type", g.Type).Msg("failed to grant goal xp")
			}
		}
		if err := a.store.UpdateGoalProgress(g.ID, current, completed); err != nil {
			return fmt.Errorf("updating %s goal: %w", g.Type, err)
		}
	}

	return nil
}

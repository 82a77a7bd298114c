package store

import (
	"database/sql"
	"fmt"
)

// Goal types. Each user can hold at most one goal per type.
const (
	GoalDaily   = "daily"
	GoalWeekly  = "weekly"
	GoalMonthly = "monthly"
	GoalYearly  = "yearly"
)

// Goal is a recurring word-count target scoped to a time window.
type Goal struct {
	ID        int64
	UserID    string
	Type      string
	Goal      int64
	Current   int64
	Completed bool
	Reset     int64 // next reset epoch, timezone-aware
}

// SetGoal creates or replaces the user's goal of the given type.
func (s *Store) SetGoal(g *Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO user_goals (user, type, goal, current, completed, reset) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user, type) DO UPDATE SET goal = excluded.goal, reset = excluded.reset`,
		g.UserID, g.Type, g.Goal, g.Current, boolToInt(g.Completed), g.Reset,
	)
	if err != nil {
		return fmt.Errorf("failed to set goal: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		g.ID = id
	}
	return nil
}

// GetGoal returns the user's goal of the given type, or nil.
func (s *Store) GetGoal(userID, goalType string) (*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanGoal(s.db.QueryRow(
		`SELECT id, user, type, goal, current, completed, reset FROM user_goals WHERE user = ? AND type = ?`,
		userID, goalType))
}

// UserGoals returns all of a user's goals, daily first.
func (s *Store) UserGoals(userID string) ([]*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, user, type, goal, current, completed, reset FROM user_goals WHERE user = ?
		 ORDER BY CASE type WHEN 'daily' THEN 0 WHEN 'weekly' THEN 1 WHEN 'monthly' THEN 2 ELSE 3 END`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user goals: %w", err)
	}
	defer rows.Close()

	var goals []*Goal
	for rows.Next() {
		g := &Goal{}
		var completed int64
		if err := rows.Scan(&g.ID, &g.UserID, &g.Type, &g.Goal, &g.Current, &completed, &g.Reset); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.Completed = completed != 0
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// DueGoals returns all goals whose reset time has passed. Raw sweep read
// used by the goal reset engine.
func (s *Store) DueGoals(now int64) ([]*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, user, type, goal, current, completed, reset FROM user_goals WHERE reset <= ?`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due goals: %w", err)
	}
	defer rows.Close()

	var goals []*Goal
	for rows.Next() {
		g := &Goal{}
		var completed int64
		if err := rows.Scan(&g.ID, &g.UserID, &g.Type, &g.Goal, &g.Current, &completed, &g.Reset); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.Completed = completed != 0
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// UpdateGoalProgress sets current progress and completion flag.
func (s *Store) UpdateGoalProgress(id, current int64, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE user_goals SET current = ?, completed = ? WHERE id = ?`,
		current, boolToInt(completed), id)
	if err != nil {
		return fmt.Errorf("failed to update goal progress: %w", err)
	}
	return nil
}

// ResetGoal zeroes progress and writes the next reset boundary.
func (s *Store) ResetGoal(id, nextReset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE user_goals SET current = 0, completed = 0, reset = ? WHERE id = ?`,
		nextReset, id)
	if err != nil {
		return fmt.Errorf("failed to reset goal: %w", err)
	}
	return nil
}

// DeleteGoal cancels a goal.
func (s *Store) DeleteGoal(userID, goalType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM user_goals WHERE user = ? AND type = ?`, userID, goalType); err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

// InsertGoalHistory snapshots a period's result before the goal is reset.
func (s *Store) InsertGoalHistory(userID, goalType, date string, goal, result int64, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO user_goals_history (user, type, date, goal, result, completed) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, goalType, date, goal, result, boolToInt(completed))
	if err != nil {
		return fmt.Errorf("failed to insert goal history: %w", err)
	}
	return nil
}

// GoalHistoryEntry is one archived goal period.
type GoalHistoryEntry struct {
	Date      string
	Goal      int64
	Result    int64
	Completed bool
}

// GoalHistory returns the most recent archived periods for a goal type,
// newest first.
func (s *Store) GoalHistory(userID, goalType string, limit int64) ([]*GoalHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT date, goal, result, completed FROM user_goals_history
		 WHERE user = ? AND type = ? ORDER BY date DESC, id DESC LIMIT ?`,
		userID, goalType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal history: %w", err)
	}
	defer rows.Close()

	var entries []*GoalHistoryEntry
	for rows.Next() {
		e := &GoalHistoryEntry{}
		var completed int64
		if err := rows.Scan(&e.Date, &e.Goal, &e.Result, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan goal history: %w", err)
		}
		e.Completed = completed != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanGoal(row *sql.Row) (*Goal, error) {
	g := &Goal{}
	var completed int64
	err := row.Scan(&g.ID, &g.UserID, &g.Type, &g.Goal, &g.Current, &completed, &g.Reset)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	g.Completed = completed != 0
	return g, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

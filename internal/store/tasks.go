package store

import (
	"fmt"
	"time"
)

// Task is a generic deferred-work unit. Object/ObjectID identify the
// aggregate the task belongs to (e.g. "sprint", sprint id) so pending tasks
// can be cancelled as a group.
type Task struct {
	ID       int64
	Type     string
	RunAt    int64 // epoch seconds
	Object   string
	ObjectID int64
	Created  int64
}

// ScheduleTask inserts a task row. No deduplication is performed: callers
// must cancel conflicting tasks first (see CancelTasks).
func (s *Store) ScheduleTask(taskType string, runAt int64, object string, objectID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO tasks (type, run_at, object, objectid, created) VALUES (?, ?, ?, ?, ?)`,
		taskType, runAt, object, objectID, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to schedule task: %w", err)
	}
	return res.LastInsertId()
}

// CancelTasks deletes all tasks matching object and objectID. It is
// idempotent: cancelling when nothing is scheduled is a no-op.
func (s *Store) CancelTasks(object string, objectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM tasks WHERE object = ? AND objectid = ?`, object, objectID); err != nil {
		return fmt.Errorf("failed to cancel tasks: %w", err)
	}
	return nil
}

// DueTasks returns all tasks with run_at <= now, ordered by run_at then id
// for deterministic processing. Rows are not deleted here; the dispatcher
// deletes after handling, giving at-least-once delivery.
func (s *Store) DueTasks(now int64) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, type, run_at, object, objectid, created FROM tasks WHERE run_at <= ? ORDER BY run_at ASC, id ASC`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.Type, &t.RunAt, &t.Object, &t.ObjectID, &t.Created); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// PendingTasks returns all scheduled tasks, soonest first. Used by the mgmt
// debug endpoint.
func (s *Store) PendingTasks() ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, type, run_at, object, objectid, created FROM tasks ORDER BY run_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.Type, &t.RunAt, &t.Object, &t.ObjectID, &t.Created); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a single task row by id.
func (s *Store) DeleteTask(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
)

// Reminder is a one-shot or repeating message delivery.
type Reminder struct {
	ID       int64
	UserID   string
	Guild    string
	Time     int64 // next fire epoch
	Channel  string
	Message  string
	Interval int64 // repeat period in seconds, 0 = one-shot
}

// CreateReminder inserts a reminder and returns its id.
func (s *Store) CreateReminder(r *Reminder) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO reminders (user, guild, time, channel, message, intervaltime) VALUES (?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Guild, r.Time, r.Channel, r.Message,
		sql.NullInt64{Int64: r.Interval, Valid: r.Interval > 0},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create reminder: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return r.ID, err
}

// DueReminders returns reminders whose fire time has passed, oldest first.
func (s *Store) DueReminders(now int64) ([]*Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, user, guild, time, channel, message, intervaltime FROM reminders WHERE time <= ? ORDER BY time ASC, id ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// UserReminders returns a user's reminders on a guild, oldest first.
func (s *Store) UserReminders(userID, guild string) ([]*Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, user, guild, time, channel, message, intervaltime FROM reminders WHERE user = ? AND guild = ? ORDER BY id ASC`,
		userID, guild)
	if err != nil {
		return nil, fmt.Errorf("failed to query user reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

func scanReminders(rows *sql.Rows) ([]*Reminder, error) {
	var reminders []*Reminder
	for rows.Next() {
		r := &Reminder{}
		var interval sql.NullInt64
		if err := rows.Scan(&r.ID, &r.UserID, &r.Guild, &r.Time, &r.Channel, &r.Message, &interval); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		if interval.Valid {
			r.Interval = interval.Int64
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// DeleteReminder removes a reminder.
func (s *Store) DeleteReminder(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

// RescheduleReminder moves an interval reminder's next fire time forward.
func (s *Store) RescheduleReminder(id, next int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE reminders SET time = ? WHERE id = ?`, next, id); err != nil {
		return fmt.Errorf("failed to reschedule reminder: %w", err)
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
)

// Well-known stat names.
const (
	StatSprintsStarted      = "sprints_started"
	StatSprintsCompleted    = "sprints_completed"
	StatTotalWordsWritten   = "total_words_written"
	StatChallengesCompleted = "challenges_completed"
)

// RecordWPM is the personal-best record key for sprint words per minute.
const RecordWPM = "wpm"

// AddUserStat adds delta to a per-guild user statistic, creating the row if
// absent. Negative deltas compensate voided actions (e.g. a cancelled sprint).
func (s *Store) AddUserStat(userID, guild, name string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO user_stats (user, guild, name, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user, guild, name) DO UPDATE SET value = value + ?`,
		userID, guild, name, delta, delta)
	if err != nil {
		return fmt.Errorf("failed to add user stat: %w", err)
	}
	return nil
}

// GetUserStat returns a statistic value, 0 if never recorded.
func (s *Store) GetUserStat(userID, guild, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value int64
	err := s.db.QueryRow(
		`SELECT value FROM user_stats WHERE user = ? AND guild = ? AND name = ?`,
		userID, guild, name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user stat: %w", err)
	}
	return value, nil
}

// SetUserStat overwrites a statistic value (stat resets).
func (s *Store) SetUserStat(userID, guild, name string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO user_stats (user, guild, name, value) VALUES (?, ?, ?, ?)`,
		userID, guild, name, value)
	if err != nil {
		return fmt.Errorf("failed to set user stat: %w", err)
	}
	return nil
}

// GetUserRecord returns a personal-best record, or 0 and false if none.
func (s *Store) GetUserRecord(userID, guild, record string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value float64
	err := s.db.QueryRow(
		`SELECT value FROM user_records WHERE user = ? AND guild = ? AND record = ?`,
		userID, guild, record).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get user record: %w", err)
	}
	return value, true, nil
}

// SetUserRecord overwrites a personal-best record.
func (s *Store) SetUserRecord(userID, guild, record string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO user_records (user, guild, record, value) VALUES (?, ?, ?, ?)`,
		userID, guild, record, value)
	if err != nil {
		return fmt.Errorf("failed to set user record: %w", err)
	}
	return nil
}

// DeleteUserRecord removes a personal-best record.
func (s *Store) DeleteUserRecord(userID, guild, record string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`DELETE FROM user_records WHERE user = ? AND guild = ? AND record = ?`,
		userID, guild, record)
	if err != nil {
		return fmt.Errorf("failed to delete user record: %w", err)
	}
	return nil
}

// GetXP returns the user's XP on a guild, 0 if none yet.
func (s *Store) GetXP(userID, guild string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var xp int64
	err := s.db.QueryRow(`SELECT xp FROM user_xp WHERE user = ? AND guild = ?`, userID, guild).Scan(&xp)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get xp: %w", err)
	}
	return xp, nil
}

// AddXP grants XP to the user on a guild.
func (s *Store) AddXP(userID, guild string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO user_xp (user, guild, xp) VALUES (?, ?, ?)
		 ON CONFLICT (user, guild) DO UPDATE SET xp = xp + ?`,
		userID, guild, amount, amount)
	if err != nil {
		return fmt.Errorf("failed to add xp: %w", err)
	}
	return nil
}

// SetXP overwrites a user's XP (stat resets).
func (s *Store) SetXP(userID, guild string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO user_xp (user, guild, xp) VALUES (?, ?, ?)`,
		userID, guild, amount)
	if err != nil {
		return fmt.Errorf("failed to set xp: %w", err)
	}
	return nil
}

// Challenge is a personal WPM challenge with an XP reward on completion.
type Challenge struct {
	ID        int64
	UserID    string
	Guild     string
	Challenge string
	XP        int64
	Completed int64
}

// SetChallenge creates a new active challenge for the user.
func (s *Store) SetChallenge(c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO user_challenges (user, guild, challenge, xp, completed) VALUES (?, ?, ?, ?, 0)`,
		c.UserID, c.Guild, c.Challenge, c.XP)
	if err != nil {
		return fmt.Errorf("failed to set challenge: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// CurrentChallenge returns the user's active (non-completed) challenge, or nil.
func (s *Store) CurrentChallenge(userID, guild string) (*Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &Challenge{}
	err := s.db.QueryRow(
		`SELECT id, user, guild, challenge, xp, completed FROM user_challenges
		 WHERE user = ? AND guild = ? AND completed = 0 ORDER BY id DESC LIMIT 1`,
		userID, guild).Scan(&c.ID, &c.UserID, &c.Guild, &c.Challenge, &c.XP, &c.Completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

// CompleteChallenge stamps the challenge completed.
func (s *Store) CompleteChallenge(id, when int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE user_challenges SET completed = ? WHERE id = ?`, when, id); err != nil {
		return fmt.Errorf("failed to complete challenge: %w", err)
	}
	return nil
}

// DeleteChallenge cancels an active challenge.
func (s *Store) DeleteChallenge(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM user_challenges WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

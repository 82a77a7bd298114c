package store

import (
	"database/sql"
	"fmt"
)

// Well-known setting keys.
const (
	SettingTimezone     = "timezone"
	SettingMaxWPM       = "maxwpm"
	SettingLang         = "lang"
	SettingSprintNotify = "sprint_notify"
)

// GetUserSetting returns a user's global setting value, or "" if unset.
func (s *Store) GetUserSetting(userID, setting string) (string, error) {
	return s.getUserSetting(userID, "", setting)
}

// SetUserSetting writes a user's global setting.
func (s *Store) SetUserSetting(userID, setting, value string) error {
	return s.setUserSetting(userID, "", setting, value)
}

// GetUserGuildSetting returns a per-guild user setting, or "" if unset.
func (s *Store) GetUserGuildSetting(userID, guild, setting string) (string, error) {
	return s.getUserSetting(userID, guild, setting)
}

// SetUserGuildSetting writes a per-guild user setting.
func (s *Store) SetUserGuildSetting(userID, guild, setting, value string) error {
	return s.setUserSetting(userID, guild, setting, value)
}

func (s *Store) getUserSetting(userID, guild, setting string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(
		`SELECT value FROM user_settings WHERE user = ? AND guild = ? AND setting = ?`,
		userID, guild, setting).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user setting: %w", err)
	}
	return value, nil
}

func (s *Store) setUserSetting(userID, guild, setting, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO user_settings (user, guild, setting, value) VALUES (?, ?, ?, ?)`,
		userID, guild, setting, value)
	if err != nil {
		return fmt.Errorf("failed to set user setting: %w", err)
	}
	return nil
}

// GetGuildSetting returns a guild-level setting value, or "" if unset.
func (s *Store) GetGuildSetting(guild, setting string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(
		`SELECT value FROM guild_settings WHERE guild = ? AND setting = ?`, guild, setting).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get guild setting: %w", err)
	}
	return value, nil
}

// SetGuildSetting writes a guild-level setting.
func (s *Store) SetGuildSetting(guild, setting, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO guild_settings (guild, setting, value) VALUES (?, ?, ?)`,
		guild, setting, value)
	if err != nil {
		return fmt.Errorf("failed to set guild setting: %w", err)
	}
	return nil
}

// SprintNotifyUsers returns users on the guild who opted into sprint
// notifications.
func (s *Store) SprintNotifyUsers(guild string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT user FROM user_settings WHERE guild = ? AND setting = ? AND value = '1'`,
		guild, SettingSprintNotify)
	if err != nil {
		return nil, fmt.Errorf("failed to query notify users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan notify user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

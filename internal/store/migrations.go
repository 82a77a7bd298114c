package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sprints (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		guild         TEXT NOT NULL,
		channel       TEXT NOT NULL,
		start         INTEGER NOT NULL,
		end           INTEGER NOT NULL,
		end_reference INTEGER NOT NULL,
		length        INTEGER NOT NULL,
		createdby     TEXT NOT NULL,
		created       INTEGER NOT NULL,
		completed     INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sprints_guild ON sprints(guild, completed);

	CREATE TABLE IF NOT EXISTS sprint_users (
		sprint      INTEGER NOT NULL REFERENCES sprints(id),
		user        TEXT NOT NULL,
		starting_wc INTEGER NOT NULL DEFAULT 0,
		current_wc  INTEGER NOT NULL DEFAULT 0,
		ending_wc   INTEGER,
		sprint_type TEXT NOT NULL DEFAULT '',
		project     INTEGER,
		timejoined  INTEGER NOT NULL,
		PRIMARY KEY (sprint, user)
	);

	CREATE INDEX IF NOT EXISTS idx_sprint_users_user ON sprint_users(user);

	CREATE TABLE IF NOT EXISTS tasks (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		type    TEXT NOT NULL,
		run_at  INTEGER NOT NULL,
		object  TEXT NOT NULL,
		objectid INTEGER NOT NULL,
		created INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(run_at);
	CREATE INDEX IF NOT EXISTS idx_tasks_object ON tasks(object, objectid);

	CREATE TABLE IF NOT EXISTS user_goals (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user      TEXT NOT NULL,
		type      TEXT NOT NULL,
		goal      INTEGER NOT NULL,
		current   INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		reset     INTEGER NOT NULL,
		UNIQUE (user, type)
	);

	CREATE INDEX IF NOT EXISTS idx_goals_reset ON user_goals(reset);

	CREATE TABLE IF NOT EXISTS user_goals_history (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user      TEXT NOT NULL,
		type      TEXT NOT NULL,
		date      TEXT NOT NULL,
		goal      INTEGER NOT NULL,
		result    INTEGER NOT NULL,
		completed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reminders (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user         TEXT NOT NULL,
		guild        TEXT NOT NULL,
		time         INTEGER NOT NULL,
		channel      TEXT NOT NULL,
		message      TEXT NOT NULL,
		intervaltime INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_reminders_time ON reminders(time);

	CREATE TABLE IF NOT EXISTS projects (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user      TEXT NOT NULL,
		shortname TEXT NOT NULL,
		name      TEXT NOT NULL,
		words     INTEGER NOT NULL DEFAULT 0,
		status    TEXT NOT NULL DEFAULT 'planning',
		completed INTEGER NOT NULL DEFAULT 0,
		UNIQUE (user, shortname)
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user    TEXT NOT NULL,
		guild   TEXT NOT NULL DEFAULT '',
		setting TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (user, guild, setting)
	);

	CREATE TABLE IF NOT EXISTS guild_settings (
		guild   TEXT NOT NULL,
		setting TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (guild, setting)
	);

	CREATE TABLE IF NOT EXISTS user_stats (
		user  TEXT NOT NULL,
		guild TEXT NOT NULL,
		name  TEXT NOT NULL,
		value INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user, guild, name)
	);

	CREATE TABLE IF NOT EXISTS user_records (
		user   TEXT NOT NULL,
		guild  TEXT NOT NULL,
		record TEXT NOT NULL,
		value  REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (user, guild, record)
	);

	CREATE TABLE IF NOT EXISTS user_xp (
		user  TEXT NOT NULL,
		guild TEXT NOT NULL,
		xp    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user, guild)
	);

	CREATE TABLE IF NOT EXISTS user_challenges (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user      TEXT NOT NULL,
		guild     TEXT NOT NULL,
		challenge TEXT NOT NULL,
		xp        INTEGER NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}

package store

import (
	"database/sql"
	"fmt"
)

// Sprint type markers for participants.
const (
	SprintTypeWordCount   = ""          // default: word counts tracked
	SprintTypeNoWordCount = "no_wordcount" // participant opted out of counting
)

// Sprint is one timed group writing session. At most one non-completed
// sprint exists per guild at any time; that invariant is enforced by the
// sprint manager, not the schema.
type Sprint struct {
	ID           int64
	Guild        string
	Channel      string
	Start        int64 // epoch seconds
	End          int64 // mutable: adjusted when force-ended
	EndReference int64 // frozen epoch used for WPM math
	Length       int64 // minutes
	CreatedBy    string
	Created      int64
	Completed    bool
}

// SprintUser is a participant record, keyed by (sprint, user).
type SprintUser struct {
	SprintID   int64
	UserID     string
	StartingWC int64
	CurrentWC  int64
	EndingWC   int64
	// EndingDeclared is false until the participant declares a final count
	// (ending_wc is NULL in the row).
	EndingDeclared bool
	SprintType     string
	ProjectID      int64 // 0 = no project
	TimeJoined     int64
}

// Written returns how many words the participant wrote during the sprint,
// preferring the final declaration when present.
func (u *SprintUser) Written() int64 {
	if u.EndingDeclared {
		return u.EndingWC - u.StartingWC
	}
	return u.CurrentWC - u.StartingWC
}

// CreateSprint inserts a new sprint row and returns it with its id set.
func (s *Store) CreateSprint(sp *Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO sprints (guild, channel, start, end, end_reference, length, createdby, created, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		sp.Guild, sp.Channel, sp.Start, sp.End, sp.EndReference, sp.Length, sp.CreatedBy, sp.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to create sprint: %w", err)
	}
	sp.ID, err = res.LastInsertId()
	return err
}

// CurrentSprint returns the guild's non-completed sprint, or nil if none.
func (s *Store) CurrentSprint(guild string) (*Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanSprint(s.db.QueryRow(
		`SELECT id, guild, channel, start, end, end_reference, length, createdby, created, completed
		 FROM sprints WHERE guild = ? AND completed = 0 ORDER BY id DESC LIMIT 1`, guild))
}

// GetSprint returns a sprint by id, or nil if it no longer exists.
func (s *Store) GetSprint(id int64) (*Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanSprint(s.db.QueryRow(
		`SELECT id, guild, channel, start, end, end_reference, length, createdby, created, completed
		 FROM sprints WHERE id = ?`, id))
}

func (s *Store) scanSprint(row *sql.Row) (*Sprint, error) {
	sp := &Sprint{}
	var completed int64
	err := row.Scan(&sp.ID, &sp.Guild, &sp.Channel, &sp.Start, &sp.End, &sp.EndReference,
		&sp.Length, &sp.CreatedBy, &sp.Created, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	sp.Completed = completed != 0
	return sp, nil
}

// UpdateSprintEnd updates the mutable end timestamp.
func (s *Store) UpdateSprintEnd(id, end int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE sprints SET end = ? WHERE id = ?`, end, id)
	if err != nil {
		return fmt.Errorf("failed to update sprint end: %w", err)
	}
	return nil
}

// UpdateSprintEndReference freezes the reference epoch used for WPM math.
func (s *Store) UpdateSprintEndReference(id, ref int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE sprints SET end_reference = ? WHERE id = ?`, ref, id)
	if err != nil {
		return fmt.Errorf("failed to update sprint end reference: %w", err)
	}
	return nil
}

// CompleteSprint marks the sprint row completed. Participant rows are kept
// as historical records.
func (s *Store) CompleteSprint(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE sprints SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to complete sprint: %w", err)
	}
	return nil
}

// DeleteSprint removes a sprint and its participant rows outright (cancel).
func (s *Store) DeleteSprint(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM sprint_users WHERE sprint = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sprint users: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM sprints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
	}
	return nil
}

// AddSprintUser inserts a participant record.
func (s *Store) AddSprintUser(u *SprintUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO sprint_users (sprint, user, starting_wc, current_wc, ending_wc, sprint_type, project, timejoined)
		 VALUES (?, ?, ?, ?, NULL, ?, ?, ?)`,
		u.SprintID, u.UserID, u.StartingWC, u.CurrentWC, u.SprintType,
		sql.NullInt64{Int64: u.ProjectID, Valid: u.ProjectID != 0}, u.TimeJoined,
	)
	if err != nil {
		return fmt.Errorf("failed to add sprint user: %w", err)
	}
	return nil
}

// GetSprintUser returns a participant record, or nil if the user has not joined.
func (s *Store) GetSprintUser(sprintID int64, userID string) (*SprintUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT sprint, user, starting_wc, current_wc, ending_wc, sprint_type, project, timejoined
		 FROM sprint_users WHERE sprint = ? AND user = ?`, sprintID, userID)
	u, err := scanSprintUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint user: %w", err)
	}
	return u, nil
}

// SprintUsers returns all participants of a sprint, join order.
func (s *Store) SprintUsers(sprintID int64) ([]*SprintUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT sprint, user, starting_wc, current_wc, ending_wc, sprint_type, project, timejoined
		 FROM sprint_users WHERE sprint = ? ORDER BY timejoined ASC, user ASC`, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint users: %w", err)
	}
	defer rows.Close()

	var users []*SprintUser
	for rows.Next() {
		u, err := scanSprintUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanSprintUser(scan func(dest ...any) error) (*SprintUser, error) {
	u := &SprintUser{}
	var ending, project sql.NullInt64
	if err := scan(&u.SprintID, &u.UserID, &u.StartingWC, &u.CurrentWC, &ending,
		&u.SprintType, &project, &u.TimeJoined); err != nil {
		return nil, err
	}
	if ending.Valid {
		u.EndingWC = ending.Int64
		u.EndingDeclared = true
	}
	if project.Valid {
		u.ProjectID = project.Int64
	}
	return u, nil
}

// UpdateSprintUserCounts sets starting and current word counts, e.g. when a
// participant re-joins to fix a misjudged starting count.
func (s *Store) UpdateSprintUserCounts(sprintID int64, userID string, starting, current int64, sprintType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE sprint_users SET starting_wc = ?, current_wc = ?, sprint_type = ? WHERE sprint = ? AND user = ?`,
		starting, current, sprintType, sprintID, userID)
	if err != nil {
		return fmt.Errorf("failed to update sprint user counts: %w", err)
	}
	return nil
}

// DeclareCurrentWC records a mid-sprint declaration.
func (s *Store) DeclareCurrentWC(sprintID int64, userID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE sprint_users SET current_wc = ? WHERE sprint = ? AND user = ?`,
		amount, sprintID, userID)
	if err != nil {
		return fmt.Errorf("failed to declare current wc: %w", err)
	}
	return nil
}

// DeclareEndingWC records a final declaration after the sprint finished.
func (s *Store) DeclareEndingWC(sprintID int64, userID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE sprint_users SET ending_wc = ? WHERE sprint = ? AND user = ?`,
		amount, sprintID, userID)
	if err != nil {
		return fmt.Errorf("failed to declare ending wc: %w", err)
	}
	return nil
}

// SetSprintUserProject links a participant to a project.
func (s *Store) SetSprintUserProject(sprintID int64, userID string, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE sprint_users SET project = ? WHERE sprint = ? AND user = ?`,
		sql.NullInt64{Int64: projectID, Valid: projectID != 0}, sprintID, userID)
	if err != nil {
		return fmt.Errorf("failed to set sprint user project: %w", err)
	}
	return nil
}

// DeleteSprintUser removes a participant (leave, cancel).
func (s *Store) DeleteSprintUser(sprintID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM sprint_users WHERE sprint = ? AND user = ?`, sprintID, userID); err != nil {
		return fmt.Errorf("failed to delete sprint user: %w", err)
	}
	return nil
}

// MostRecentSprintUser returns the user's latest participant record for the
// guild across previous sprints, excluding the given sprint. Used by
// join-same to carry a word count and project forward.
func (s *Store) MostRecentSprintUser(guild, userID string, excludeSprintID int64) (*SprintUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT su.sprint, su.user, su.starting_wc, su.current_wc, su.ending_wc, su.sprint_type, su.project, su.timejoined
		 FROM sprint_users su
		 JOIN sprints sp ON sp.id = su.sprint
		 WHERE sp.guild = ? AND su.user = ? AND su.sprint != ?
		 ORDER BY su.timejoined DESC, su.sprint DESC LIMIT 1`,
		guild, userID, excludeSprintID)
	u, err := scanSprintUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get most recent sprint user: %w", err)
	}
	return u, nil
}

// ActiveSprintCount returns the number of non-completed sprints across all
// guilds. Feeds the sprints_active gauge.
func (s *Store) ActiveSprintCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sprints WHERE completed = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active sprints: %w", err)
	}
	return n, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Project statuses that count as completion for XP purposes.
const (
	ProjectStatusFinished  = "finished"
	ProjectStatusPublished = "published"
)

// Project is a writing project owned by a user. Shortname is unique per user.
type Project struct {
	ID        int64
	UserID    string
	Shortname string
	Name      string
	Words     int64
	Status    string
	Completed int64 // epoch of first finished/published transition, 0 = never
}

// CreateProject inserts a project. Fails if the (user, shortname) pair exists.
func (s *Store) CreateProject(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO projects (user, shortname, name, words, status) VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.Shortname, p.Name, p.Words, p.Status)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// GetProject returns a user's project by shortname, or nil.
func (s *Store) GetProject(userID, shortname string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanProject(s.db.QueryRow(
		`SELECT id, user, shortname, name, words, status, completed FROM projects WHERE user = ? AND shortname = ?`,
		userID, shortname))
}

// GetProjectByID returns a project by id, or nil.
func (s *Store) GetProjectByID(id int64) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return scanProject(s.db.QueryRow(
		`SELECT id, user, shortname, name, words, status, completed FROM projects WHERE id = ?`, id))
}

// UserProjects returns all of a user's projects, oldest first.
func (s *Store) UserProjects(userID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, user, shortname, name, words, status, completed FROM projects WHERE user = ? ORDER BY id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Shortname, &p.Name, &p.Words, &p.Status, &p.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a single project by shortname.
func (s *Store) DeleteProject(userID, shortname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM projects WHERE user = ? AND shortname = ?`, userID, shortname); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func scanProject(row *sql.Row) (*Project, error) {
	p := &Project{}
	err := row.Scan(&p.ID, &p.UserID, &p.Shortname, &p.Name, &p.Words, &p.Status, &p.Completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// AddProjectWords adds a words-written delta to the project total.
func (s *Store) AddProjectWords(id, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE projects SET words = words + ? WHERE id = ?`, delta, id); err != nil {
		return fmt.Errorf("failed to add project words: %w", err)
	}
	return nil
}

// UpdateProjectStatus sets the status. The first transition into a finished
// or published status stamps the completed epoch; the caller decides whether
// that transition earns XP.
func (s *Store) UpdateProjectStatus(id int64, status string) (firstCompletion bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Project{}
	err = s.db.QueryRow(`SELECT completed FROM projects WHERE id = ?`, id).Scan(&p.Completed)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("project not found: %d", id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read project: %w", err)
	}

	completing := (status == ProjectStatusFinished || status == ProjectStatusPublished) && p.Completed == 0
	if completing {
		_, err = s.db.Exec(`UPDATE projects SET status = ?, completed = ? WHERE id = ?`,
			status, time.Now().Unix(), id)
	} else {
		_, err = s.db.Exec(`UPDATE projects SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to update project status: %w", err)
	}
	return completing, nil
}

// DeleteProjects removes all of a user's projects (stat reset).
func (s *Store) DeleteProjects(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM projects WHERE user = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete projects: %w", err)
	}
	return nil
}

package sprint

import (
	"context"
	"fmt"
	"strings"

	"github.com/scribe-bot/scribe/internal/accounting"
	"github.com/scribe-bot/scribe/internal/scheduler"
	"github.com/scribe-bot/scribe/internal/store"
)

// Register wires the sprint task handlers into the dispatcher.
func (m *Manager) Register(d *scheduler.Dispatcher) {
	d.Register(TaskStart, m.HandleStartTask)
	d.Register(TaskEnd, m.HandleEndTask)
	d.Register(TaskComplete, m.HandleCompleteTask)
}

// HandleStartTask announces a scheduled sprint and queues its end. The end
// is recomputed from the actual firing time so a delayed task still gives
// participants the full length.
func (m *Manager) HandleStartTask(ctx context.Context, object string, objectID int64) error {
	sp, err := m.store.GetSprint(objectID)
	if err != nil {
		return fmt.Errorf("loading sprint %d: %w", objectID, err)
	}
	if sp == nil || sp.Completed {
		return nil // cancelled or already done, nothing to start
	}

	lock := m.guildLock(sp.Guild)
	lock.Lock()
	defer lock.Unlock()

	end := m.now().Unix() + sp.Length*60
	if err := m.store.UpdateSprintEnd(sp.ID, end); err != nil {
		return fmt.Errorf("setting sprint end: %w", err)
	}
	if err := m.store.UpdateSprintEndReference(sp.ID, end); err != nil {
		return fmt.Errorf("setting end reference: %w", err)
	}
	// A redelivered start task must not leave two end tasks behind.
	if err := m.store.CancelTasks(TaskObject, sp.ID); err != nil {
		return fmt.Errorf("cancelling stale tasks: %w", err)
	}
	if _, err := m.store.ScheduleTask(TaskEnd, end, TaskObject, sp.ID); err != nil {
		return fmt.Errorf("scheduling end task: %w", err)
	}

	roster, err := m.store.SprintUsers(sp.ID)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	pings := mentions(roster)
	if extra := m.notifyMentions(sp.Guild); extra != "" {
		pings = strings.TrimSpace(pings + " " + extra)
	}
	m.send(sp.Channel, m.lang.Getf("sprint:begin", sp.Guild, int(sp.Length), pings))
	return nil
}

// HandleEndTask closes the writing window. Sprints nobody joined are
// dropped; sprints with only non-counting participants complete at once;
// otherwise participants are asked for final counts and a grace task forces
// completion for anyone who never declares.
func (m *Manager) HandleEndTask(ctx context.Context, object string, objectID int64) error {
	sp, err := m.store.GetSprint(objectID)
	if err != nil {
		return fmt.Errorf("loading sprint %d: %w", objectID, err)
	}
	if sp == nil || sp.Completed {
		return nil
	}

	lock := m.guildLock(sp.Guild)
	lock.Lock()
	defer lock.Unlock()
	return m.endSprint(sp)
}

// endSprint runs the end-of-window transition. Callers hold the guild lock.
func (m *Manager) endSprint(sp *store.Sprint) error {
	users, err := m.store.SprintUsers(sp.ID)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	if len(users) == 0 {
		return m.cancelSprint(sp)
	}

	var pending []*store.SprintUser
	for _, u := range users {
		if u.SprintType != store.SprintTypeNoWordCount && !u.EndingDeclared {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return m.complete(sp, users)
	}

	deadline := m.now().Add(completionGrace).Unix()
	if _, err := m.store.ScheduleTask(TaskComplete, deadline, TaskObject, sp.ID); err != nil {
		return fmt.Errorf("scheduling completion task: %w", err)
	}
	m.send(sp.Channel, m.lang.Getf("sprint:end:declare", sp.Guild, mentions(pending)))
	return nil
}

// HandleCompleteTask force-completes a sprint whose declaration grace has
// run out. Anyone who never declared keeps their last running count.
func (m *Manager) HandleCompleteTask(ctx context.Context, object string, objectID int64) error {
	sp, err := m.store.GetSprint(objectID)
	if err != nil {
		return fmt.Errorf("loading sprint %d: %w", objectID, err)
	}
	if sp == nil || sp.Completed {
		return nil
	}

	lock := m.guildLock(sp.Guild)
	lock.Lock()
	defer lock.Unlock()

	users, err := m.store.SprintUsers(sp.ID)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	if len(users) == 0 {
		return m.cancelSprint(sp)
	}
	return m.complete(sp, users)
}

// tryComplete completes the sprint if every counting participant has
// declared a final total. Callers hold the guild lock.
func (m *Manager) tryComplete(sp *store.Sprint) error {
	users, err := m.store.SprintUsers(sp.ID)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	for _, u := range users {
		if u.SprintType != store.SprintTypeNoWordCount && !u.EndingDeclared {
			return nil
		}
	}
	return m.complete(sp, users)
}

// complete settles the sprint: words flow into stats, goals and projects,
// personal bests are checked against the frozen reference, and the
// standings are posted. Callers hold the guild lock.
func (m *Manager) complete(sp *store.Sprint, users []*store.SprintUser) error {
	if err := m.store.CancelTasks(TaskObject, sp.ID); err != nil {
		return fmt.Errorf("cancelling tasks: %w", err)
	}

	var rows []standing
	for _, u := range users {
		if u.SprintType == store.SprintTypeNoWordCount {
			continue
		}

		written := u.Written()
		seconds := sp.EndReference - u.TimeJoined
		wpm := accounting.CalculateWPM(written, seconds)

		row := standing{user: u.UserID, written: written, wpm: wpm}
		if written > 0 {
			pb, ok, err := m.store.GetUserRecord(u.UserID, sp.Guild, store.RecordWPM)
			if err != nil {
				m.logger.Error().Err(err).Str("user", u.UserID).Msg("failed to load personal best")
			} else if !ok || wpm > pb {
				if err := m.store.SetUserRecord(u.UserID, sp.Guild, store.RecordWPM, wpm); err != nil {
					m.logger.Error().Err(err).Str("user", u.UserID).Msg("failed to save personal best")
				} else {
					row.newPB = true
				}
			}

			if err := m.applier.AddWords(u.UserID, sp.Guild, written); err != nil {
				m.logger.Error().Err(err).Str("user", u.UserID).Msg("failed to record sprint words")
			}
			if u.ProjectID != 0 {
				if err := m.store.AddProjectWords(u.ProjectID, written); err != nil {
					m.logger.Error().Err(err).Str("user", u.UserID).Int64("project", u.ProjectID).Msg("failed to add project words")
				}
			}
		}

		if err := m.store.AddUserStat(u.UserID, sp.Guild, store.StatSprintsCompleted, 1); err != nil {
			m.logger.Error().Err(err).Str("user", u.UserID).Msg("failed to bump sprints_completed")
		}
		rows = append(rows, row)
	}

	if err := m.store.CompleteSprint(sp.ID); err != nil {
		return fmt.Errorf("marking sprint complete: %w", err)
	}
	m.metrics.SprintsCompleted.Inc()
	m.metrics.SprintsActive.Dec()

	sortStandings(rows)
	var b strings.Builder
	for i, row := range rows {
		b.WriteString(m.lang.Getf("sprint:complete:row", sp.Guild, i+1, row.user, row.written, row.wpm))
		if row.newPB {
			b.WriteString(m.lang.Get("sprint:complete:pb", sp.Guild))
		}
		b.WriteString("\n")
	}
	m.send(sp.Channel, m.lang.Getf("sprint:complete", sp.Guild, strings.TrimRight(b.String(), "\n")))

	m.logger.Info().Int64("sprint", sp.ID).Str("guild", sp.Guild).
		Int("participants", len(users)).Msg("sprint completed")
	return nil
}

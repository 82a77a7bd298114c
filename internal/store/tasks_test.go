package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTasks_ScheduleAndPoll(t *testing.T) {
	s := newTestStore(t)

	// Same due time: insertion order breaks the tie.
	id1, err := s.ScheduleTask("sprint:end", 2000, "sprint", 7)
	require.NoError(t, err)
	id2, err := s.ScheduleTask("goal:reset", 1500, "goal", 0)
	require.NoError(t, err)
	_, err = s.ScheduleTask("sprint:start", 3000, "sprint", 8)
	require.NoError(t, err)

	due, err := s.DueTasks(2000)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, id2, due[0].ID, "earlier run_at first")
	assert.Equal(t, id1, due[1].ID)

	// Polling does not consume.
	due2, err := s.DueTasks(2000)
	require.NoError(t, err)
	assert.Len(t, due2, 2)

	require.NoError(t, s.DeleteTask(id1))
	due3, err := s.DueTasks(2000)
	require.NoError(t, err)
	require.Len(t, due3, 1)
	assert.Equal(t, "goal:reset", due3[0].Type)
}

func TestTasks_TieBreakByID(t *testing.T) {
	s := newTestStore(t)

	first, err := s.ScheduleTask("sprint:end", 1000, "sprint", 1)
	require.NoError(t, err)
	second, err := s.ScheduleTask("sprint:start", 1000, "sprint", 2)
	require.NoError(t, err)

	due, err := s.DueTasks(1000)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, first, due[0].ID)
	assert.Equal(t, second, due[1].ID)
}

func TestTasks_CancelByObject(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ScheduleTask("sprint:start", 1000, "sprint", 5)
	require.NoError(t, err)
	_, err = s.ScheduleTask("sprint:end", 2000, "sprint", 5)
	require.NoError(t, err)
	keep, err := s.ScheduleTask("sprint:end", 2000, "sprint", 6)
	require.NoError(t, err)

	require.NoError(t, s.CancelTasks("sprint", 5))

	due, err := s.DueTasks(9999)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, keep, due[0].ID)

	// Idempotent: cancelling again is a no-op.
	require.NoError(t, s.CancelTasks("sprint", 5))
}

func TestTasks_Pending(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ScheduleTask("sprint:end", 5000, "sprint", 1)
	require.NoError(t, err)
	_, err = s.ScheduleTask("sprint:start", 1000, "sprint", 2)
	require.NoError(t, err)

	pending, err := s.PendingTasks()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "sprint:start", pending[0].Type, "soonest first")
}

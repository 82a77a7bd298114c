package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoals_SetGetDelete(t *testing.T) {
	s := newTestStore(t)

	g := &Goal{UserID: "U1", Type: GoalDaily, Goal: 500, Reset: 9999}
	require.NoError(t, s.SetGoal(g))

	got, err := s.GetGoal("U1", GoalDaily)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(500), got.Goal)
	assert.Equal(t, int64(0), got.Current)

	// Re-setting the same type keeps progress but changes the target.
	require.NoError(t, s.UpdateGoalProgress(got.ID, 200, false))
	require.NoError(t, s.SetGoal(&Goal{UserID: "U1", Type: GoalDaily, Goal: 1000, Reset: 9999}))
	got, _ = s.GetGoal("U1", GoalDaily)
	assert.Equal(t, int64(1000), got.Goal)
	assert.Equal(t, int64(200), got.Current)

	require.NoError(t, s.DeleteGoal("U1", GoalDaily))
	got, err = s.GetGoal("U1", GoalDaily)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGoals_DueSweepAndReset(t *testing.T) {
	s := newTestStore(t)

	due := &Goal{UserID: "U1", Type: GoalDaily, Goal: 500, Reset: 1000}
	future := &Goal{UserID: "U2", Type: GoalWeekly, Goal: 2000, Reset: 50000}
	require.NoError(t, s.SetGoal(due))
	require.NoError(t, s.SetGoal(future))

	goals, err := s.DueGoals(2000)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "U1", goals[0].UserID)

	require.NoError(t, s.UpdateGoalProgress(goals[0].ID, 600, true))
	require.NoError(t, s.ResetGoal(goals[0].ID, 90000))

	got, _ := s.GetGoal("U1", GoalDaily)
	assert.Equal(t, int64(0), got.Current)
	assert.False(t, got.Completed)
	assert.Equal(t, int64(90000), got.Reset)
}

func TestGoals_UserGoalsOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetGoal(&Goal{UserID: "U1", Type: GoalYearly, Goal: 50000, Reset: 1}))
	require.NoError(t, s.SetGoal(&Goal{UserID: "U1", Type: GoalDaily, Goal: 500, Reset: 1}))
	require.NoError(t, s.SetGoal(&Goal{UserID: "U1", Type: GoalWeekly, Goal: 3000, Reset: 1}))

	goals, err := s.UserGoals("U1")
	require.NoError(t, err)
	require.Len(t, goals, 3)
	assert.Equal(t, GoalDaily, goals[0].Type)
	assert.Equal(t, GoalWeekly, goals[1].Type)
	assert.Equal(t, GoalYearly, goals[2].Type)
}

func TestGoals_History(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertGoalHistory("U1", GoalDaily, "30 Aug 2026", 500, 480, false))

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM user_goals_history WHERE user = 'U1'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

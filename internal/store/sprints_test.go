package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSprint_Lifecycle(t *testing.T) {
	s := newTestStore(t)

	sp := &Sprint{
		Guild: "G1", Channel: "C1", Start: 1000, End: 2200, EndReference: 2200,
		Length: 20, CreatedBy: "U1", Created: 1000,
	}
	require.NoError(t, s.CreateSprint(sp))
	require.NotZero(t, sp.ID)

	current, err := s.CurrentSprint("G1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, sp.ID, current.ID)
	assert.False(t, current.Completed)

	// Other guilds see nothing.
	other, err := s.CurrentSprint("G2")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, s.UpdateSprintEndReference(sp.ID, 1800))
	require.NoError(t, s.UpdateSprintEnd(sp.ID, 1800))
	got, err := s.GetSprint(sp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), got.End)
	assert.Equal(t, int64(1800), got.EndReference)

	require.NoError(t, s.CompleteSprint(sp.ID))
	current, err = s.CurrentSprint("G1")
	require.NoError(t, err)
	assert.Nil(t, current, "completed sprint is no longer current")

	// The row itself survives as history.
	got, err = s.GetSprint(sp.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Completed)
}

func TestSprint_DeleteRemovesParticipants(t *testing.T) {
	s := newTestStore(t)

	sp := &Sprint{Guild: "G1", Channel: "C1", Start: 1000, End: 2200, EndReference: 2200, Length: 20, CreatedBy: "U1", Created: 1000}
	require.NoError(t, s.CreateSprint(sp))
	require.NoError(t, s.AddSprintUser(&SprintUser{SprintID: sp.ID, UserID: "U1", StartingWC: 100, CurrentWC: 100, TimeJoined: 1000}))

	require.NoError(t, s.DeleteSprint(sp.ID))

	got, err := s.GetSprint(sp.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	u, err := s.GetSprintUser(sp.ID, "U1")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSprintUser_Declarations(t *testing.T) {
	s := newTestStore(t)

	sp := &Sprint{Guild: "G1", Channel: "C1", Start: 1000, End: 2200, EndReference: 2200, Length: 20, CreatedBy: "U1", Created: 1000}
	require.NoError(t, s.CreateSprint(sp))

	require.NoError(t, s.AddSprintUser(&SprintUser{
		SprintID: sp.ID, UserID: "U1", StartingWC: 500, CurrentWC: 500, TimeJoined: 1000,
	}))

	u, err := s.GetSprintUser(sp.ID, "U1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.False(t, u.EndingDeclared, "ending_wc starts NULL")
	assert.Equal(t, int64(0), u.Written())

	require.NoError(t, s.DeclareCurrentWC(sp.ID, "U1", 550))
	u, _ = s.GetSprintUser(sp.ID, "U1")
	assert.Equal(t, int64(550), u.CurrentWC)
	assert.Equal(t, int64(50), u.Written())

	require.NoError(t, s.DeclareEndingWC(sp.ID, "U1", 620))
	u, _ = s.GetSprintUser(sp.ID, "U1")
	assert.True(t, u.EndingDeclared)
	assert.Equal(t, int64(120), u.Written(), "final declaration wins")
}

func TestSprintUser_MostRecent(t *testing.T) {
	s := newTestStore(t)

	old := &Sprint{Guild: "G1", Channel: "C1", Start: 100, End: 200, EndReference: 200, Length: 20, CreatedBy: "U1", Created: 100}
	require.NoError(t, s.CreateSprint(old))
	require.NoError(t, s.CompleteSprint(old.ID))
	require.NoError(t, s.AddSprintUser(&SprintUser{
		SprintID: old.ID, UserID: "U1", StartingWC: 100, CurrentWC: 400, TimeJoined: 100, ProjectID: 3,
	}))
	require.NoError(t, s.DeclareEndingWC(old.ID, "U1", 400))

	current := &Sprint{Guild: "G1", Channel: "C1", Start: 1000, End: 2200, EndReference: 2200, Length: 20, CreatedBy: "U2", Created: 1000}
	require.NoError(t, s.CreateSprint(current))

	recent, err := s.MostRecentSprintUser("G1", "U1", current.ID)
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.Equal(t, old.ID, recent.SprintID)
	assert.Equal(t, int64(400), recent.EndingWC)
	assert.Equal(t, int64(3), recent.ProjectID)

	none, err := s.MostRecentSprintUser("G1", "U9", current.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSprint_ActiveCount(t *testing.T) {
	s := newTestStore(t)

	a := &Sprint{Guild: "G1", Channel: "C1", Start: 1, End: 2, EndReference: 2, Length: 1, CreatedBy: "U1", Created: 1}
	b := &Sprint{Guild: "G2", Channel: "C2", Start: 1, End: 2, EndReference: 2, Length: 1, CreatedBy: "U2", Created: 1}
	require.NoError(t, s.CreateSprint(a))
	require.NoError(t, s.CreateSprint(b))
	require.NoError(t, s.CompleteSprint(b.ID))

	n, err := s.ActiveSprintCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminders_CreateAndSweep(t *testing.T) {
	s := newTestStore(t)

	oneShot := &Reminder{UserID: "U1", Guild: "G1", Time: 1000, Channel: "C1", Message: "write!"}
	repeating := &Reminder{UserID: "U1", Guild: "G1", Time: 1500, Channel: "C1", Message: "daily words", Interval: 86400}
	future := &Reminder{UserID: "U2", Guild: "G1", Time: 99999, Channel: "C2", Message: "later"}

	_, err := s.CreateReminder(oneShot)
	require.NoError(t, err)
	_, err = s.CreateReminder(repeating)
	require.NoError(t, err)
	_, err = s.CreateReminder(future)
	require.NoError(t, err)

	due, err := s.DueReminders(2000)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "write!", due[0].Message, "oldest first")
	assert.Equal(t, int64(0), due[0].Interval)
	assert.Equal(t, int64(86400), due[1].Interval)
}

func TestReminders_DeleteAndReschedule(t *testing.T) {
	s := newTestStore(t)

	r := &Reminder{UserID: "U1", Guild: "G1", Time: 1000, Channel: "C1", Message: "hourly", Interval: 3600}
	id, err := s.CreateReminder(r)
	require.NoError(t, err)

	require.NoError(t, s.RescheduleReminder(id, 4600))
	due, err := s.DueReminders(2000)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = s.DueReminders(5000)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, s.DeleteReminder(id))
	due, err = s.DueReminders(99999)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestReminders_UserList(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateReminder(&Reminder{UserID: "U1", Guild: "G1", Time: 1000, Channel: "C1", Message: "a"})
	require.NoError(t, err)
	_, err = s.CreateReminder(&Reminder{UserID: "U1", Guild: "G2", Time: 1000, Channel: "C1", Message: "b"})
	require.NoError(t, err)
	_, err = s.CreateReminder(&Reminder{UserID: "U2", Guild: "G1", Time: 1000, Channel: "C1", Message: "c"})
	require.NoError(t, err)

	list, err := s.UserReminders("U1", "G1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Message)
}

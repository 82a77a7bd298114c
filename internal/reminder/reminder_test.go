package reminder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribe-bot/scribe/internal/errors"
	"github.com/scribe-bot/scribe/internal/lang"
	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/store"
)

type fakeNotifier struct {
	sent []string
	fail bool
}

func (f *fakeNotifier) Send(channel, text string) error {
	if f.fail {
		return fmt.Errorf("channel unavailable")
	}
	f.sent = append(f.sent, text)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *store.Store, *fakeNotifier) {
	t.Helper()
	logger := zerolog.New(os.Stderr)

	s, err := store.New(filepath.Join(t.TempDir(), "reminder-test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	langs, err := lang.Load(nil, logger)
	require.NoError(t, err)

	n := &fakeNotifier{}
	e := New(s, metrics.New(), langs, n, 59*time.Minute, logger)
	return e, s, n
}

func TestCreateIn_AndSweepDelivers(t *testing.T) {
	e, s, n := newTestEngine(t)
	now := time.Unix(100000, 0)
	e.now = func() time.Time { return now }

	msg, err := e.CreateIn("G1", "C1", "alice", 15, "get back to writing", 0)
	require.NoError(t, err)
	assert.Contains(t, msg, "15m")

	// Not due yet.
	require.NoError(t, e.HandleSweep(context.Background(), TaskObject, 0))
	assert.Empty(t, n.sent)

	now = now.Add(16 * time.Minute)
	require.NoError(t, e.HandleSweep(context.Background(), TaskObject, 0))
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "<@alice>")
	assert.Contains(t, n.sent[0], "get back to writing")

	// One-shot is gone after delivery.
	reminders, err := s.UserReminders("alice", "G1")
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestCreateIn_RejectsPastAndLongMessage(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.CreateIn("G1", "C1", "alice", 0, "msg", 0)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	_, err = e.CreateIn("G1", "C1", "alice", 5, string(long), 0)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = e.CreateIn("G1", "C1", "alice", 5, "msg", 1234)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestCreateAt_NextOccurrenceInUserTimezone(t *testing.T) {
	e, s, _ := newTestEngine(t)
	// 10:00 UTC.
	e.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }

	// 09:00 has already passed today, so it lands tomorrow.
	_, err := e.CreateAt("G1", "C1", "alice", 9, 0, "morning words", 0)
	require.NoError(t, err)

	reminders, err := s.UserReminders("alice", "G1")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC).Unix(), reminders[0].Time)

	// 17:00 is still ahead today.
	_, err = e.CreateAt("G1", "C1", "alice", 17, 0, "evening words", 0)
	require.NoError(t, err)
	reminders, err = s.UserReminders("alice", "G1")
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.Equal(t, time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC).Unix(), reminders[1].Time)
}

func TestSweep_StaleOneShotDroppedUnsent(t *testing.T) {
	e, s, n := newTestEngine(t)
	now := time.Unix(100000, 0)
	e.now = func() time.Time { return now }

	_, err := e.CreateIn("G1", "C1", "alice", 5, "stale msg", 0)
	require.NoError(t, err)

	// Two hours later, well past the cutoff.
	now = now.Add(2 * time.Hour)
	require.NoError(t, e.HandleSweep(context.Background(), TaskObject, 0))

	assert.Empty(t, n.sent)
	reminders, err := s.UserReminders("alice", "G1")
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestSweep_IntervalReminderReschedulesForward(t *testing.T) {
	e, s, n := newTestEngine(t)
	now := time.Unix(100000, 0)
	e.now = func() time.Time { return now }

	_, err := e.CreateIn("G1", "C1", "alice", 5, "hourly check", IntervalHour)
	require.NoError(t, err)
	firstFire := now.Unix() + 5*60

	now = now.Add(6 * time.Minute)
	require.NoError(t, e.HandleSweep(context.Background(), TaskObject, 0))
	require.Len(t, n.sent, 1)

	reminders, err := s.UserReminders("alice", "G1")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, firstFire+IntervalHour, reminders[0].Time)
}

func TestSweep_StaleIntervalSkipsPastMissedFires(t *testing.T) {
	e, s, n := newTestEngine(t)
	now := time.Unix(100000, 0)
	e.now = func() time.Time { return now }

	_, err := e.CreateIn("G1", "C1", "alice", 5, "hourly check", IntervalHour)
	require.NoError(t, err)

	// Down for three hours: nothing sent, next fire is in the future.
	now = now.Add(3 * time.Hour)
	require.NoError(t, e.HandleSweep(context.Background(), TaskObject, 0))
	assert.Empty(t, n.sent)

	reminders, err := s.UserReminders("alice", "G1")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Greater(t, reminders[0].Time, now.Unix())
}

func TestSweep_DeliveryFailureStillConsumesReminder(t *testing.T) {
	e, s, n := newTestEngine(t)
	now := time.Unix(100000, 0)
	e.now = func() time.Time { return now }

	_, err := e.CreateIn("G1", "C1", "alice", 5, "flaky channel", 0)
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	n.fail = true
	require.NoError(t, e.HandleSweep(context.Background(), TaskObject, 0))
	assert.Empty(t, n.sent)

	reminders, err := s.UserReminders("alice", "G1")
	require.NoError(t, err)
	assert.Empty(t, reminders, "a failed delivery does not keep the reminder alive")
}

func TestListAndDeleteAll(t *testing.T) {
	e, _, _ := newTestEngine(t)
	now := time.Unix(100000, 0)
	e.now = func() time.Time { return now }

	msg, err := e.List("G1", "alice")
	require.NoError(t, err)
	assert.Contains(t, msg, "do not have")

	_, err = e.CreateIn("G1", "C1", "alice", 10, "first", 0)
	require.NoError(t, err)
	_, err = e.CreateIn("G1", "C1", "alice", 20, "second", 0)
	require.NoError(t, err)

	msg, err = e.List("G1", "alice")
	require.NoError(t, err)
	assert.Contains(t, msg, "first")
	assert.Contains(t, msg, "second")

	msg, err = e.DeleteAll("G1", "alice")
	require.NoError(t, err)
	assert.Contains(t, msg, "2")

	msg, err = e.List("G1", "alice")
	require.NoError(t, err)
	assert.Contains(t, msg, "do not have")
}

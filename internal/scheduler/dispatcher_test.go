package scheduler

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

	"github.com/scribe-bot/scribe/internal/metrics"
	"github.com/scribe-bot/scribe/internal/store"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "dispatch-test.db"), zerolog.New(os.Stderr))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d := New(s, metrics.New(), time.Second, zerolog.New(os.Stderr))
	return d, s
}

func TestPoll_FiresDueTasksInOrder(t *testing.T) {
	d, s := newTestDispatcher(t)

	var fired []int64
	d.Register("sprint:end", func(ctx context.Context, object string, objectID int64) error {
		fired = append(fired, objectID)
		return nil
	})

	_, err := s.ScheduleTask("sprint:end", 2000, "sprint", 2)
	require.NoError(t, err)
	_, err = s.ScheduleTask("sprint:end", 1000, "sprint", 1)
	require.NoError(t, err)
	_, err = s.ScheduleTask("sprint:end", 9999, "sprint", 3)
	require.NoError(t, err)

	d.now = func() time.Time { return time.Unix(2500, 0) }
	d.Poll(context.Background())

	assert.Equal(t, []int64{1, 2}, fired, "due tasks fire in run_at order; future tasks wait")

	// Fired tasks are consumed; the future one remains.
	pending, err := s.PendingTasks()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(3), pending[0].ObjectID)
}

func TestPoll_HandlerErrorConsumesTask(t *testing.T) {
	d, s := newTestDispatcher(t)

	calls := 0
	d.Register("sprint:end", func(ctx context.Context, object string, objectID int64) error {
		calls++
		return fmt.Errorf("boom")
	})
	d.Register("goal:reset", func(ctx context.Context, object string, objectID int64) error {
		calls++
		return nil
	})

	_, err := s.ScheduleTask("sprint:end", 100, "sprint", 1)
	require.NoError(t, err)
	_, err = s.ScheduleTask("goal:reset", 100, "goal", 0)
	require.NoError(t, err)

	d.now = func() time.Time { return time.Unix(200, 0) }
	d.Poll(context.Background())

	// The failing handler did not block the next task, and both rows are gone.
	assert.Equal(t, 2, calls)
	pending, err := s.PendingTasks()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPoll_HandlerPanicIsIsolated(t *testing.T) {
	d, s := newTestDispatcher(t)

	ran := false
	d.Register("bad", func(ctx context.Context, object string, objectID int64) error {
		panic("handler bug")
	})
	d.Register("good", func(ctx context.Context, object string, objectID int64) error {
		ran = true
		return nil
	})

	_, err := s.ScheduleTask("bad", 100, "x", 1)
	require.NoError(t, err)
	_, err = s.ScheduleTask("good", 100, "x", 2)
	require.NoError(t, err)

	d.now = func() time.Time { return time.Unix(200, 0) }
	d.Poll(context.Background())

	assert.True(t, ran)
	pending, _ := s.PendingTasks()
	assert.Empty(t, pending)
}

func TestPoll_UnknownTypeDropped(t *testing.T) {
	d, s := newTestDispatcher(t)

	_, err := s.ScheduleTask("nobody:home", 100, "x", 1)
	require.NoError(t, err)

	d.now = func() time.Time { return time.Unix(200, 0) }
	d.Poll(context.Background())

	pending, err := s.PendingTasks()
	require.NoError(t, err)
	assert.Empty(t, pending, "unhandled task types must not loop forever")
}

func TestStartStop(t *testing.T) {
	d, s := newTestDispatcher(t)

	fired := make(chan int64, 1)
	d.Register("sprint:end", func(ctx context.Context, object string, objectID int64) error {
		select {
		case fired <- objectID:
		default:
		}
		return nil
	})

	_, err := s.ScheduleTask("sprint:end", 100, "sprint", 9)
	require.NoError(t, err)
	d.now = func() time.Time { return time.Unix(200, 0) }

	require.NoError(t, d.Start(context.Background()))
	assert.Error(t, d.Start(context.Background()), "double start rejected")

	select {
	case id := <-fired:
		assert.Equal(t, int64(9), id)
	case <-time.After(2 * time.Second):
		t.Fatal("startup poll did not fire the due task")
	}

	d.Stop()
	d.Stop() // idempotent
}

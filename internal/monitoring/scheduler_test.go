package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoffs []time.Time
	err     error
}

func (p *fakePruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 3, p.err
}

func TestNewSchedulerRejectsBadInput(t *testing.T) {
	_, err := NewScheduler(&fakePruner{}, "not a cron", time.Hour)
	assert.Error(t, err)

	_, err = NewScheduler(&fakePruner{}, "0 3 * * *", 0)
	assert.Error(t, err)
}

func TestSchedulerPrunesWhenDue(t *testing.T) {
	pruner := &fakePruner{}
	s, err := NewScheduler(pruner, "0 3 * * *", 30*24*time.Hour)
	require.NoError(t, err)

	start := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	s.nextRun = s.schedule.Next(start)
	clock := start
	s.now = func() time.Time { return clock }

	clock = start.Add(time.Hour)
	s.tick()
	assert.Empty(t, pruner.cutoffs, "not due before 03:00")

	clock = time.Date(2026, 3, 1, 3, 0, 30, 0, time.UTC)
	s.tick()
	require.Len(t, pruner.cutoffs, 1)
	assert.Equal(t, clock.Add(-30*24*time.Hour), pruner.cutoffs[0])
	assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), s.NextRun())

	s.tick()
	assert.Len(t, pruner.cutoffs, 1, "runs once per slot")
}

func TestSchedulerPruneError(t *testing.T) {
	pruner := &fakePruner{err: errors.New("database is locked")}
	s, err := NewScheduler(pruner, "@daily", time.Hour)
	require.NoError(t, err)

	_, err = s.Prune(context.Background())
	assert.Error(t, err)
}

func TestSchedulerStop(t *testing.T) {
	s, err := NewScheduler(&fakePruner{}, "@hourly", time.Hour)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		s.Run()
		close(finished)
	}()
	s.Stop()
	s.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Pruner deletes activity older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler prunes old events on a cron schedule.
type Scheduler struct {
	pruner    Pruner
	schedule  cron.Schedule
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	nextRun   time.Time
	done      chan struct{}
	stopOnce  sync.Once
}

// NewScheduler creates a scheduler that, at every time matched by the standard
// cron expression spec, removes events older than retention.
func NewScheduler(pruner Pruner, spec string, retention time.Duration) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	s := &Scheduler{
		pruner:    pruner,
		schedule:  schedule,
		retention: retention,
		interval:  time.Minute,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	s.nextRun = schedule.Next(s.now())
	return s, nil
}

// NextRun reports when the next prune is due.
func (s *Scheduler) NextRun() time.Time { return s.nextRun }

// Run starts the scheduler's ticking loop. It returns after Stop.
func (s *Scheduler) Run() {
	log.Info().Time("next_run", s.nextRun).Msg("Starting event retention scheduler")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			log.Info().Msg("Stopping event retention scheduler")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Stop halts the scheduler. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Scheduler) tick() {
	now := s.now()
	if now.Before(s.nextRun) {
		return
	}
	s.nextRun = s.schedule.Next(now)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.Prune(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to prune events")
	}
}

// Prune removes every event older than the retention window right away.
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Pruned old events")
	return n, nil
}

// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"time"

	"github.com/tvplayer/playlistd/internal/log"
	"github.com/tvplayer/playlistd/internal/metrics"
	"github.com/tvplayer/playlistd/internal/model"
)

// SchedulerStore lists the playlists whose refresh interval has elapsed.
type SchedulerStore interface {
	PlaylistsDueForRefresh(ctx context.Context, now time.Time) ([]model.Playlist, error)
}

// Refresher runs one playlist refresh. Satisfied by *Synchronizer.
type Refresher interface {
	Refresh(ctx context.Context, pl model.Playlist) (int, error)
}

// Scheduler is the periodic trigger that drives due refreshes. The core has
// no internal threads; this type owns the single ticker goroutine.
type Scheduler struct {
	store     SchedulerStore
	refresher Refresher
	interval  time.Duration
	// Gate is consulted before each run; returning false skips the tick.
	// It stands in for external guard conditions such as network
	// connectivity or battery constraints.
	Gate func() bool
}

// NewScheduler builds a scheduler ticking at the given interval.
func NewScheduler(store SchedulerStore, refresher Refresher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		store:     store,
		refresher: refresher,
		interval:  interval,
	}
}

// Run blocks until ctx is cancelled, evaluating due playlists on every tick.
func (s *Scheduler) Run(ctx context.Context) {
	logger := log.WithComponent("scheduler")
	logger.Info().
		Str("event", "scheduler.start").
		Dur("interval", s.interval).
		Msg("scheduler running")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("event", "scheduler.stop").Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce refreshes every playlist that is currently due and returns the
// success and failure counts. A failed playlist does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (succeeded, failed int) {
	logger := log.WithComponentFromContext(ctx, "scheduler")

	if s.Gate != nil && !s.Gate() {
		logger.Debug().Str("event", "scheduler.gated").Msg("guard condition not met, skipping run")
		return 0, 0
	}
	metrics.RecordSchedulerRun()

	due, err := s.store.PlaylistsDueForRefresh(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Str("event", "scheduler.query_failed").Msg("could not list due playlists")
		return 0, 0
	}
	if len(due) == 0 {
		return 0, 0
	}

	for _, pl := range due {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.refresher.Refresh(ctx, pl); err != nil {
			failed++
			continue
		}
		succeeded++
	}

	logger.Info().
		Str("event", "scheduler.run").
		Int("due", len(due)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msg("scheduled refresh pass complete")
	return succeeded, failed
}

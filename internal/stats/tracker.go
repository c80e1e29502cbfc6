package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/progression"
	"github.com/ugcstudio/api/internal/store"
)

// Tracker is the only writer of the persisted stats and job history.
type Tracker struct {
	mu    sync.Mutex
	blobs *store.Blobs
	log   *zap.Logger
	now   func() time.Time
}

func NewTracker(blobs *store.Blobs, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{blobs: blobs, log: log, now: time.Now}
}

// Stats returns the current persisted stats.
func (t *Tracker) Stats(ctx context.Context) model.UserStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blobs.LoadStats(ctx)
}

// History returns the recorded jobs, most recent first.
func (t *Tracker) History(ctx context.Context) []model.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blobs.LoadHistory(ctx)
}

// RecordCompletion folds job's score into the stats and prepends job to the
// history. The job is stamped completed if it is not already.
func (t *Tracker) RecordCompletion(ctx context.Context, job model.Job) (model.UserStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.blobs.LoadStats(ctx)
	next := progression.ApplyCompletion(prev, job.Score, job.Input.Model)
	if err := t.blobs.SaveStats(ctx, next); err != nil {
		return prev, fmt.Errorf("failed to record completion of %s: %w", job.ID, err)
	}

	job.State = model.JobStateCompleted
	if job.CompletedAt == nil {
		now := t.now()
		job.CompletedAt = &now
	}

	history := t.blobs.LoadHistory(ctx)
	updated := make([]model.Job, 0, len(history)+1)
	updated = append(updated, job)
	updated = append(updated, history...)
	if err := t.blobs.SaveHistory(ctx, updated); err != nil {
		// stats already moved on; a missing history row is tolerable
		t.log.Warn("stats.history_save_failed", zap.String("job_id", job.ID), zap.Error(err))
	}

	t.log.Info("stats.completion_recorded",
		zap.String("job_id", job.ID),
		zap.Int("score", job.Score),
		zap.Int("xp", next.XP),
		zap.Int("level", next.Level),
	)
	return next, nil
}

// Reset wipes stats and history.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.blobs.SaveStats(ctx, model.DefaultStats()); err != nil {
		return err
	}
	return t.blobs.SaveHistory(ctx, []model.Job{})
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/model"
)

// Blobs reads and writes the client's persisted state on top of a KV.
// Loads never fail: missing or corrupt blobs fall back to defaults.
type Blobs struct {
	kv  KV
	log *zap.Logger
}

func NewBlobs(kv KV, log *zap.Logger) *Blobs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Blobs{kv: kv, log: log}
}

// LoadStats returns the persisted stats or the zero state.
func (b *Blobs) LoadStats(ctx context.Context) model.UserStats {
	var s model.UserStats
	if !b.load(ctx, KeyStats, &s) {
		return model.DefaultStats()
	}
	if s.PromptScores == nil {
		s.PromptScores = []int{}
	}
	if s.Level < 1 {
		s.Level = 1
	}
	return s
}

func (b *Blobs) SaveStats(ctx context.Context, s model.UserStats) error {
	return b.save(ctx, KeyStats, s)
}

// LoadHistory returns the persisted jobs, most recent first.
func (b *Blobs) LoadHistory(ctx context.Context) []model.Job {
	var jobs []model.Job
	if !b.load(ctx, KeyHistory, &jobs) {
		return []model.Job{}
	}
	if len(jobs) > model.HistoryLimit {
		jobs = jobs[:model.HistoryLimit]
	}
	return jobs
}

// SaveHistory persists at most model.HistoryLimit jobs.
func (b *Blobs) SaveHistory(ctx context.Context, jobs []model.Job) error {
	if len(jobs) > model.HistoryLimit {
		jobs = jobs[:model.HistoryLimit]
	}
	return b.save(ctx, KeyHistory, jobs)
}

// LoadCredential returns the cached password, or "" when none is stored.
func (b *Blobs) LoadCredential(ctx context.Context) string {
	var c string
	b.load(ctx, KeyCredential, &c)
	return c
}

func (b *Blobs) SaveCredential(ctx context.Context, credential string) error {
	return b.save(ctx, KeyCredential, credential)
}

func (b *Blobs) ClearCredential(ctx context.Context) error {
	return b.kv.Delete(ctx, KeyCredential)
}

func (b *Blobs) load(ctx context.Context, key string, v interface{}) bool {
	data, err := b.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.log.Warn("store.load_failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		b.log.Warn("store.corrupt_blob", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (b *Blobs) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := b.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

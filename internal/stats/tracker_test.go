package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugcstudio/api/internal/model"
	"github.com/ugcstudio/api/internal/store"
)

func newTracker() (*Tracker, *store.Blobs) {
	blobs := store.NewBlobs(store.NewMemoryKV(), nil)
	return NewTracker(blobs, nil), blobs
}

func job(id string, score int, m model.ModelID) model.Job {
	return model.Job{
		ID:        id,
		Input:     model.Brief{Product: "Glow serum", Model: m},
		State:     model.JobStateProcessing,
		Score:     score,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecordCompletion_FoldsAndPersists(t *testing.T) {
	ctx := context.Background()
	tr, blobs := newTracker()

	s, err := tr.RecordCompletion(ctx, job("j1", 80, model.ModelNanoVeo))
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalVideos)
	assert.Equal(t, 96, s.XP)

	s, err = tr.RecordCompletion(ctx, job("j2", 95, model.ModelSora))
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalVideos)
	assert.Equal(t, 2, s.HighQualityCount)
	assert.Equal(t, 1, s.Over90Count)
	assert.Equal(t, 88, s.AvgQuality)
	assert.Equal(t, 239, s.XP)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, []int{80, 95}, s.PromptScores)

	assert.Equal(t, s, blobs.LoadStats(ctx))

	history := tr.History(ctx)
	require.Len(t, history, 2)
	assert.Equal(t, "j2", history[0].ID)
	assert.Equal(t, "j1", history[1].ID)
	assert.Equal(t, model.JobStateCompleted, history[0].State)
	assert.NotNil(t, history[0].CompletedAt)
}

func TestRecordCompletion_HistoryCapped(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()

	for i := 0; i < model.HistoryLimit+5; i++ {
		_, err := tr.RecordCompletion(ctx, job(fmt.Sprintf("j%d", i), 50, model.ModelNanoVeo))
		require.NoError(t, err)
	}

	history := tr.History(ctx)
	assert.Len(t, history, model.HistoryLimit)
	assert.Equal(t, fmt.Sprintf("j%d", model.HistoryLimit+4), history[0].ID)
	assert.Equal(t, model.HistoryLimit+5, tr.Stats(ctx).TotalVideos)
}

func TestRecordCompletion_Concurrent(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = tr.RecordCompletion(ctx, job(fmt.Sprintf("j%d", i), 60, model.ModelNanoVeo))
		}(i)
	}
	wg.Wait()

	s := tr.Stats(ctx)
	assert.Equal(t, 10, s.TotalVideos)
	assert.Len(t, s.PromptScores, 10)
	assert.Len(t, tr.History(ctx), 10)
}

type failingKV struct{ store.KV }

func (failingKV) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func TestRecordCompletion_SaveFailure(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(store.NewBlobs(failingKV{store.NewMemoryKV()}, nil), nil)

	s, err := tr.RecordCompletion(ctx, job("j1", 80, model.ModelNanoVeo))
	require.Error(t, err)
	assert.Equal(t, model.DefaultStats(), s)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTracker()
	_, err := tr.RecordCompletion(ctx, job("j1", 80, model.ModelNanoVeo))
	require.NoError(t, err)

	require.NoError(t, tr.Reset(ctx))
	assert.Equal(t, model.DefaultStats(), tr.Stats(ctx))
	assert.Empty(t, tr.History(ctx))
}

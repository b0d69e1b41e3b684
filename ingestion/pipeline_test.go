package ingestion

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/ai/mock"
	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/storage"
	"github.com/poiesic/fabmatch/storage/badger"
)

type fixture struct {
	equipment   storage.EquipmentRepository
	checkpoints storage.CheckpointRepository
	embedder    *mock.MockEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	equipment, checkpoints, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		equipment.Close()
		backend.Close()
	})
	return &fixture{equipment: equipment, checkpoints: checkpoints, embedder: mock.NewMockEmbedder()}
}

func (f *fixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRetryPolicy(ai.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})}, opts...)
	p, err := NewPipeline(f.equipment, f.checkpoints, f.embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func sample(n int) []*core.Equipment {
	items := make([]*core.Equipment, n)
	for i := range items {
		items[i] = &core.Equipment{
			ID:          "EQ" + string(rune('A'+i)),
			Name:        "장비 " + string(rune('A'+i)),
			Category:    "증착",
			Institution: "KION",
		}
	}
	return items
}

func TestNewPipeline(t *testing.T) {
	f := newFixture(t)

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(f.equipment, f.checkpoints, f.embedder)
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, DefaultBatchSize, p.batchSize)
		assert.NotNil(t, p.pool)
	})

	t.Run("with options", func(t *testing.T) {
		p, err := NewPipeline(f.equipment, f.checkpoints, f.embedder,
			WithPoolSize(4), WithBatchSize(8), WithLogger(nil), WithProgress(&bytes.Buffer{}))
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 4, p.pool.Cap())
		assert.Equal(t, 8, p.batchSize)
		assert.Equal(t, slog.Default(), p.logger)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewPipeline(nil, f.checkpoints, f.embedder)
		assert.Equal(t, ErrEquipmentRepositoryRequired, err)
		_, err = NewPipeline(f.equipment, nil, f.embedder)
		assert.Equal(t, ErrCheckpointRepositoryRequired, err)
		_, err = NewPipeline(f.equipment, f.checkpoints, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewPipeline(f.equipment, f.checkpoints, f.embedder, WithBatchSize(0))
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
		_, err = NewPipeline(f.equipment, f.checkpoints, f.embedder, WithRetryPolicy(ai.RetryPolicy{}))
		assert.ErrorIs(t, err, ai.ErrInvalidMaxAttempts)
	})
}

func TestPipeline_SeedItems(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and embeds every record", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t, WithBatchSize(2))

		result, err := p.SeedItems(ctx, sample(5), "fp1", SeedOptions{})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Loaded)
		assert.Equal(t, 5, result.Embedded)
		assert.False(t, result.Skipped)
		assert.Equal(t, 3, f.embedder.CallCount())

		stored, err := f.equipment.ListEquipment(ctx)
		require.NoError(t, err)
		for _, e := range stored {
			assert.Len(t, e.Vector, mock.DefaultDimension)
		}

		cp, err := f.checkpoints.LoadCheckpoint(ctx, SeedCheckpoint)
		require.NoError(t, err)
		require.NotNil(t, cp)
		assert.Equal(t, "fp1", cp.Fingerprint)
		assert.Equal(t, 5, cp.Count)
	})

	t.Run("unchanged fingerprint is skipped", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t)

		_, err := p.SeedItems(ctx, sample(3), "fp1", SeedOptions{})
		require.NoError(t, err)
		calls := f.embedder.CallCount()

		result, err := p.SeedItems(ctx, sample(3), "fp1", SeedOptions{})
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Equal(t, calls, f.embedder.CallCount())
	})

	t.Run("unchanged content keeps vectors", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t)

		_, err := p.SeedItems(ctx, sample(3), "fp1", SeedOptions{})
		require.NoError(t, err)

		items := sample(3)
		items[1].Description = "새 설명"
		result, err := p.SeedItems(ctx, items, "fp2", SeedOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Loaded)
		assert.Equal(t, 1, result.Embedded)
	})

	t.Run("force re-embeds everything", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t)

		_, err := p.SeedItems(ctx, sample(3), "fp1", SeedOptions{})
		require.NoError(t, err)
		result, err := p.SeedItems(ctx, sample(3), "fp1", SeedOptions{Force: true})
		require.NoError(t, err)
		assert.False(t, result.Skipped)
		assert.Equal(t, 3, result.Embedded)
	})

	t.Run("prune removes absent records", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t)

		_, err := p.SeedItems(ctx, sample(4), "fp1", SeedOptions{})
		require.NoError(t, err)
		result, err := p.SeedItems(ctx, sample(2), "fp2", SeedOptions{Prune: true})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Removed)

		count, err := f.equipment.CountEquipment(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("embedding failure is reported and no checkpoint written", func(t *testing.T) {
		f := newFixture(t)
		var calls atomic.Int32
		f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			calls.Add(1)
			return nil, errors.New("model unavailable")
		}
		p := f.pipeline(t, WithBatchSize(10))

		_, err := p.SeedItems(ctx, sample(3), "fp1", SeedOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model unavailable")
		assert.Equal(t, int32(2), calls.Load())

		cp, err := f.checkpoints.LoadCheckpoint(ctx, SeedCheckpoint)
		require.NoError(t, err)
		assert.Nil(t, cp)
	})

	t.Run("count mismatch is an error", func(t *testing.T) {
		f := newFixture(t)
		f.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}
		p := f.pipeline(t)

		_, err := p.SeedItems(ctx, sample(2), "fp1", SeedOptions{})
		assert.ErrorContains(t, err, "embedding count mismatch")
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := p.SeedItems(cctx, sample(2), "fp1", SeedOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipeline_Seed(t *testing.T) {
	f := newFixture(t)
	var progress bytes.Buffer
	p := f.pipeline(t, WithProgress(&progress))

	path := filepath.Join(t.TempDir(), "equipment.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"equipment_id": "EQ001", "name": "ICP-RIE", "category": "식각", "institution": "KION",
		 "wafer_sizes": ["4 inch", "150mm"]},
		{"equipment_id": "EQ002", "name": "PECVD", "category": "증착", "institution": "KION"}
	]`), 0o644))

	result, err := p.Seed(context.Background(), path, SeedOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, 2, result.Embedded)
	assert.Contains(t, progress.String(), "Embedding: 2/2")

	e, err := f.equipment.GetEquipment(context.Background(), "EQ001")
	require.NoError(t, err)
	assert.Equal(t, []string{"4 inch", "6 inch"}, e.WaferSizes)

	_, err = p.Seed(context.Background(), filepath.Join(t.TempDir(), "missing.json"), SeedOptions{})
	assert.Error(t, err)
}

func TestPipeline_Reembed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.pipeline(t, WithBatchSize(2))

	n, err := p.Reembed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = p.SeedItems(ctx, sample(3), "fp1", SeedOptions{})
	require.NoError(t, err)

	f.embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}
	n, err = p.Reembed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stored, err := f.equipment.ListEquipment(ctx)
	require.NoError(t, err)
	for _, e := range stored {
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, e.Vector, 1e-6)
	}

	cp, err := f.checkpoints.LoadCheckpoint(ctx, ReembedCheckpoint)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, 3, cp.Count)
}

func TestNormalizeVector(t *testing.T) {
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, NormalizeVector([]float32{3, 4}), 1e-6)
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))
	assert.Empty(t, NormalizeVector(nil))

	in := []float32{1, 1}
	NormalizeVector(in)
	assert.Equal(t, []float32{1, 1}, in, "input is not modified")
}

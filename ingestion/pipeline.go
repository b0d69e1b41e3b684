package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/fabmatch/ai"
	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/storage"
)

const (
	// DefaultBatchSize is the number of documents sent per embedding call.
	DefaultBatchSize = 32

	// SeedCheckpoint names the checkpoint written after a successful seed.
	SeedCheckpoint = "seed"

	// ReembedCheckpoint names the checkpoint written after a full re-embed.
	ReembedCheckpoint = "reembed"
)

// Pipeline seeds equipment records and generates their embeddings.
type Pipeline struct {
	equipment   storage.EquipmentRepository
	checkpoints storage.CheckpointRepository
	pool        *ants.Pool
	embedProc   processor
	batchSize   int
	retry       ai.RetryPolicy
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many documents go into one embedding call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithRetryPolicy sets how failed embedding calls are retried.
func WithRetryPolicy(policy ai.RetryPolicy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts <= 0 {
			return ai.ErrInvalidMaxAttempts
		}
		p.retry = policy
		return nil
	}
}

// WithProgress reports embedding progress to w, typically os.Stderr.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	equipment storage.EquipmentRepository,
	checkpoints storage.CheckpointRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if equipment == nil {
		return nil, ErrEquipmentRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		equipment:   equipment,
		checkpoints: checkpoints,
		batchSize:   DefaultBatchSize,
		retry:       ai.DefaultRetryPolicy,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	if p.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
		if err != nil {
			return nil, err
		}
		p.pool = pool
	}
	p.embedProc = newEmbeddingProcessor(equipment, embedder, p.retry, p.logger)
	return p, nil
}

// SeedOptions controls a seed run.
type SeedOptions struct {
	Force bool // Reprocess even when the data file is unchanged, re-embedding everything
	Prune bool // Delete stored records absent from the data file
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Loaded      int
	Embedded    int
	Removed     int
	Skipped     bool // Data file unchanged since the last seed
	Fingerprint string
}

// Seed loads the JSON data file at path into the store.
func (p *Pipeline) Seed(ctx context.Context, path string, opts SeedOptions) (*SeedResult, error) {
	items, fingerprint, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.SeedItems(ctx, items, fingerprint, opts)
}

// SeedItems stores items and embeds those without a current vector.
// Records whose content is unchanged keep their stored vector. When the
// fingerprint matches the last seed checkpoint the run is skipped.
func (p *Pipeline) SeedItems(ctx context.Context, items []*core.Equipment, fingerprint string, opts SeedOptions) (*SeedResult, error) {
	result := &SeedResult{Fingerprint: fingerprint}

	if !opts.Force {
		last, err := p.checkpoints.FindCurrent(ctx, SeedCheckpoint, fingerprint)
		if err != nil {
			return nil, err
		}
		if last != nil {
			p.logger.Info("data file unchanged, skipping seed", "fingerprint", fingerprint, "seededAt", last.UpdatedAt)
			result.Skipped = true
			return result, nil
		}
	}

	stored, err := p.equipment.PutEquipment(ctx, items...)
	if err != nil {
		return nil, fmt.Errorf("failed to store equipment: %w", err)
	}
	result.Loaded = len(stored)

	if opts.Prune {
		removed, err := p.prune(ctx, items)
		if err != nil {
			return nil, err
		}
		result.Removed = removed
	}

	pending := stored
	if !opts.Force {
		pending = slices.DeleteFunc(slices.Clone(stored), func(e *core.Equipment) bool {
			return len(e.Vector) > 0
		})
	}
	p.logger.Info("seeding equipment", "records", len(stored), "toEmbed", len(pending))

	result.Embedded, err = p.embed(ctx, "Embedding", pending)
	if err != nil {
		return nil, err
	}

	checkpoint := &core.Checkpoint{Name: SeedCheckpoint, Fingerprint: fingerprint, Count: result.Loaded}
	if err := p.checkpoints.SaveCheckpoint(ctx, checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return result, nil
}

// Reembed regenerates the vector of every stored record.
func (p *Pipeline) Reembed(ctx context.Context) (int, error) {
	records, err := p.equipment.ListEquipment(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list equipment: %w", err)
	}
	if len(records) == 0 {
		p.logger.Info("no equipment to re-embed")
		return 0, nil
	}

	n, err := p.embed(ctx, "Re-embedding", records)
	if err != nil {
		return n, err
	}
	checkpoint := &core.Checkpoint{Name: ReembedCheckpoint, Count: n}
	if err := p.checkpoints.SaveCheckpoint(ctx, checkpoint); err != nil {
		return n, fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return n, nil
}

func (p *Pipeline) prune(ctx context.Context, keep []*core.Equipment) (int, error) {
	ids := make(map[string]bool, len(keep))
	for _, e := range keep {
		ids[e.ID] = true
	}
	stored, err := p.equipment.ListEquipment(ctx)
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, e := range stored {
		if !ids[e.ID] {
			stale = append(stale, e.ID)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := p.equipment.DeleteEquipment(ctx, stale...); err != nil {
		return 0, fmt.Errorf("failed to prune equipment: %w", err)
	}
	p.logger.Info("pruned equipment", "ids", stale)
	return len(stale), nil
}

// embed processes records in batches on the worker pool. The first failing
// batch cancels the rest.
func (p *Pipeline) embed(ctx context.Context, label string, records []*core.Equipment) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := NewProgressTracker(p.progress, label, len(records), p.batchSize)
	tracker.Start()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for batch := range slices.Chunk(records, p.batchSize) {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			n, err := p.embedProc.process(ctx, batch)
			if err != nil {
				fail(err)
				return
			}
			tracker.Add(n)
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}

	elapsed := tracker.Finish()
	done := tracker.Done()
	if firstErr != nil {
		p.logger.Error("embedding failed", "embedded", done, "total", len(records), "err", firstErr)
		return done, firstErr
	}
	p.logger.Info("embedding complete", "records", done, "elapsed", elapsed)
	return done, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

package storage

import (
	"context"

	"github.com/poiesic/fabmatch/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// SimilarEquipment is one vector search hit.
type SimilarEquipment struct {
	Equipment *core.Equipment
	// Similarity is the cosine similarity mapped to [0,1]: (1 + cos) / 2.
	Similarity float64
}

// EquipmentRepository provides operations for managing equipment records.
type EquipmentRepository interface {
	Repository

	// PutEquipment inserts or replaces equipment by ID.
	// InsertedAt is preserved for existing records and set for new ones;
	// UpdatedAt is always refreshed. A stored vector is kept when the
	// incoming record has none and its content is unchanged.
	PutEquipment(ctx context.Context, items ...*core.Equipment) ([]*core.Equipment, error)

	// GetEquipment retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetEquipment(ctx context.Context, id string) (*core.Equipment, error)

	// GetEquipmentByIDs retrieves multiple records, skipping missing IDs.
	GetEquipmentByIDs(ctx context.Context, ids ...string) ([]*core.Equipment, error)

	// DeleteEquipment removes records by ID.
	// Returns ErrNotFound if any record doesn't exist.
	DeleteEquipment(ctx context.Context, ids ...string) error

	// ListEquipment returns every record ordered by ID.
	ListEquipment(ctx context.Context) ([]*core.Equipment, error)

	// CountEquipment returns the number of stored records.
	CountEquipment(ctx context.Context) (int, error)

	// UpdateVectors replaces the embedding of each listed record.
	// Returns ErrNotFound if any record doesn't exist.
	UpdateVectors(ctx context.Context, vectors map[string][]float32) error

	// FindSimilar returns up to limit records matching filter, ordered by
	// similarity to vector (highest first). Records without a vector are skipped.
	FindSimilar(ctx context.Context, vector []float32, filter core.MetadataFilter, limit int) ([]*SimilarEquipment, error)
}

// CheckpointRepository persists batch job checkpoints.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, refreshing UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the named checkpoint, or nil if none exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// FindCurrent returns the named checkpoint when its fingerprint equals
	// fingerprint, otherwise nil.
	FindCurrent(ctx context.Context, name, fingerprint string) (*core.Checkpoint, error)

	// ListCheckpoints returns all checkpoints ordered by name.
	ListCheckpoints(ctx context.Context) ([]*core.Checkpoint, error)
}

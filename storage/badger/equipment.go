package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/storage"
)

// EquipmentRepository implements storage.EquipmentRepository for BadgerDB.
type EquipmentRepository struct {
	backend *Backend
	owned   bool // close the backend on Close
}

var _ storage.EquipmentRepository = (*EquipmentRepository)(nil)

// NewEquipmentRepository creates a repository on a shared backend.
// Closing the repository leaves the backend open.
func NewEquipmentRepository(backend *Backend) (*EquipmentRepository, error) {
	return &EquipmentRepository{backend: backend}, nil
}

// NewRepository opens a BadgerDB database at path and returns a repository
// that owns it.
func NewRepository(path string) (storage.EquipmentRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &EquipmentRepository{backend: backend, owned: true}, nil
}

// Backend returns the underlying backend, for sharing with other repositories.
func (r *EquipmentRepository) Backend() *Backend {
	return r.backend
}

// Close releases resources.
func (r *EquipmentRepository) Close() error {
	if r.owned && !r.backend.IsClosed() {
		return r.backend.Close()
	}
	return nil
}

// WithTransaction delegates to the backend.
func (r *EquipmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

func (r *EquipmentRepository) checkOpen() error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// PutEquipment inserts or replaces equipment records.
func (r *EquipmentRepository) PutEquipment(ctx context.Context, items ...*core.Equipment) ([]*core.Equipment, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, item := range items {
			if err := core.ValidateEquipment(item); err != nil {
				return err
			}
			key := makeEquipmentKey(item.ID)

			old, err := readEquipment(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if item.InsertedAt.IsZero() {
					item.InsertedAt = old.InsertedAt
				}
				if len(item.Vector) == 0 && old.ContentHash() == item.ContentHash() {
					item.Vector = old.Vector
				}
			} else if item.InsertedAt.IsZero() {
				item.InsertedAt = now
			}
			item.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalEquipment(item)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetEquipment retrieves a single record by ID.
func (r *EquipmentRepository) GetEquipment(ctx context.Context, id string) (*core.Equipment, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	var result *core.Equipment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEquipment(tx, makeEquipmentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEquipmentByIDs retrieves multiple records, skipping missing IDs.
func (r *EquipmentRepository) GetEquipmentByIDs(ctx context.Context, ids ...string) ([]*core.Equipment, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	var result []*core.Equipment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			e, err := readEquipment(tx, makeEquipmentKey(id))
			if err != nil {
				return err
			}
			if e != nil {
				result = append(result, e)
			}
		}
		return nil
	}, false)
	return result, err
}

// DeleteEquipment removes records by ID.
func (r *EquipmentRepository) DeleteEquipment(ctx context.Context, ids ...string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEquipmentKey(id)
			if _, err := tx.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListEquipment returns every record ordered by ID.
func (r *EquipmentRepository) ListEquipment(ctx context.Context) ([]*core.Equipment, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	var results []*core.Equipment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(tx, []byte(equipmentPrefix), func(val []byte) error {
			e, err := storage.UnmarshalEquipment(val)
			if err != nil {
				return err
			}
			results = append(results, e)
			return nil
		})
	}, false)
	return results, err
}

// CountEquipment returns the number of stored records.
func (r *EquipmentRepository) CountEquipment(ctx context.Context) (int, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(equipmentPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// UpdateVectors replaces the embedding of each listed record.
func (r *EquipmentRepository) UpdateVectors(ctx context.Context, vectors map[string][]float32) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for id, vector := range vectors {
			key := makeEquipmentKey(id)
			e, err := readEquipment(tx, key)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
			}
			e.Vector = vector
			e.UpdatedAt = now
			if err := tx.Set(key, storage.MarshalEquipment(e)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindSimilar scans all records, applies filter, and ranks by cosine
// similarity mapped to [0,1].
func (r *EquipmentRepository) FindSimilar(ctx context.Context, vector []float32, filter core.MetadataFilter, limit int) ([]*storage.SimilarEquipment, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var results []*storage.SimilarEquipment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(tx, []byte(equipmentPrefix), func(val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := storage.UnmarshalEquipment(val)
			if err != nil {
				return err
			}
			if len(e.Vector) == 0 || !filter.Matches(e) {
				return nil
			}
			if len(e.Vector) != len(vector) {
				return fmt.Errorf("%w: %s has %d, query has %d", storage.ErrDimensionMismatch, e.ID, len(e.Vector), len(vector))
			}
			results = append(results, &storage.SimilarEquipment{
				Equipment:  e,
				Similarity: (1 + cosine(vector, e.Vector)) / 2,
			})
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *storage.SimilarEquipment) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// cosine returns the cosine similarity of two equal-length vectors, or 0
// when either has zero magnitude.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return max(-1, min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}

// readEquipment reads a record from the transaction, returning nil when absent.
func readEquipment(tx *badger.Txn, key []byte) (*core.Equipment, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var e *core.Equipment
	err = item.Value(func(val []byte) error {
		var err error
		e, err = storage.UnmarshalEquipment(val)
		return err
	})
	return e, err
}

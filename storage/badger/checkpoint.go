// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/fabmatch/core"
	"github.com/poiesic/fabmatch/storage"
)

// CheckpointRepository records which data file each ingestion job last
// completed, keyed by job name.
type CheckpointRepository struct {
	backend *Backend
	now     func() time.Time
}

var _ storage.CheckpointRepository = (*CheckpointRepository)(nil)

// NewCheckpointRepository returns a checkpoint store sharing backend.
func NewCheckpointRepository(backend *Backend) *CheckpointRepository {
	return &CheckpointRepository{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SaveCheckpoint stamps and stores cp under its job name.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, cp *core.Checkpoint) error {
	if cp == nil || cp.Name == "" {
		return fmt.Errorf("%w: checkpoint needs a job name", storage.ErrInvalidCheckpoint)
	}
	if cp.Count < 0 {
		return fmt.Errorf("%w: %s: negative record count %d", storage.ErrInvalidCheckpoint, cp.Name, cp.Count)
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	cp.UpdatedAt = r.now()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCheckpointKey(cp.Name), storage.MarshalCheckpoint(cp)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadCheckpoint returns the last checkpoint of job, or nil when the job
// has never completed.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, job string) (*core.Checkpoint, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var cp *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(job))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) (err error) {
			cp, err = storage.UnmarshalCheckpoint(val)
			return err
		})
	}, false)
	return cp, err
}

// FindCurrent returns the checkpoint of job only if it was written for the
// input identified by fingerprint. An empty fingerprint never matches.
func (r *CheckpointRepository) FindCurrent(ctx context.Context, job, fingerprint string) (*core.Checkpoint, error) {
	if fingerprint == "" {
		return nil, nil
	}
	cp, err := r.LoadCheckpoint(ctx, job)
	if err != nil || cp == nil || cp.Fingerprint != fingerprint {
		return nil, err
	}
	return cp, nil
}

// ListCheckpoints returns every stored checkpoint in job name order.
func (r *CheckpointRepository) ListCheckpoints(ctx context.Context) ([]*core.Checkpoint, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var out []*core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.backend.scanPrefix(tx, []byte(checkpointPrefix), func(val []byte) error {
			cp, err := storage.UnmarshalCheckpoint(val)
			if err != nil {
				return err
			}
			out = append(out, cp)
			return nil
		})
	}, false)
	return out, err
}

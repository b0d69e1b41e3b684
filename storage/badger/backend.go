package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Backend owns the badger handle shared by the equipment and checkpoint stores.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// slogBadger routes badger's printf-style log calls into slog.
type slogBadger struct {
	logger *slog.Logger
}

var _ badger.Logger = slogBadger{}

func (s slogBadger) emit(level slog.Level, format string, args []any) {
	s.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (s slogBadger) Errorf(format string, args ...any) { s.emit(slog.LevelError, format, args) }

func (s slogBadger) Warningf(format string, args ...any) { s.emit(slog.LevelWarn, format, args) }

func (s slogBadger) Infof(format string, args ...any) { s.emit(slog.LevelInfo, format, args) }

func (s slogBadger) Debugf(format string, args ...any) { s.emit(slog.LevelDebug, format, args) }

// OpenBackend opens the equipment database in dir, creating the directory
// when missing. With inMemory set, dir is ignored and nothing touches disk.
func OpenBackend(dir string, inMemory bool) (*Backend, error) {
	logger := slog.Default().With("component", "badger")

	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = slogBadger{logger: logger}
	// Records are small and mostly float vectors; compression buys little.
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open equipment db: %w", err)
	}
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Close releases the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed reports whether Close has been called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx runs fn inside a transaction that is always discarded afterwards.
// Writers must call Commit themselves.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithTransaction runs fn and commits a write transaction if it succeeds.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// scanPrefix hands fn the value of every key under prefix, in key order.
func (b *Backend) scanPrefix(tx *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := iter.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

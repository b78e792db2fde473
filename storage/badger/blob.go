package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	"github.com/poiesic/ragserve/storage"
)

// BlobStore is a BadgerDB-backed implementation of storage.BlobStore.
// Raw document bytes and their BlobInfo records are stored under separate
// keys so info lookups never load the full content.
type BlobStore struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.BlobStore = (*BlobStore)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// NewBlobStore opens a BadgerDB-backed blob store at the specified path.
// Creates the directory if it doesn't exist. An empty path with inMemory
// set opens an in-memory store, useful for tests.
//
// Returns storage.BlobStore interface to enforce abstraction.
func NewBlobStore(filePath string, inMemory bool) (storage.BlobStore, error) {
	return newBlobStore(filePath, inMemory)
}

func newBlobStore(filePath string, inMemory bool) (*BlobStore, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BlobStore{
		db:     db,
		logger: slog.Default().With("component", "badger-blobs"),
	}, nil
}

// Put stores the blob bytes and info under id, overwriting any previous value.
func (s *BlobStore) Put(ctx context.Context, id uuid.UUID, content []byte, info storage.BlobInfo) error {
	if s.db.IsClosed() {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeBlobKey(id), content); err != nil {
			return err
		}
		return tx.Set(makeBlobInfoKey(id), storage.MarshalBlobInfo(info))
	})
}

// Get retrieves the blob bytes and info for id.
func (s *BlobStore) Get(ctx context.Context, id uuid.UUID) ([]byte, storage.BlobInfo, error) {
	if s.db.IsClosed() {
		return nil, storage.BlobInfo{}, storage.ErrStorageClosed
	}

	var (
		content []byte
		info    storage.BlobInfo
	)
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBlobKey(id))
		if err != nil {
			return err
		}
		content, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err = tx.Get(makeBlobInfoKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			info, err = storage.UnmarshalBlobInfo(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.BlobInfo{}, storage.ErrNotFound
	}
	if err != nil {
		return nil, storage.BlobInfo{}, err
	}
	return content, info, nil
}

// Delete removes the blob and its info record.
// The bool reports whether a blob existed under id.
func (s *BlobStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.db.IsClosed() {
		return false, storage.ErrStorageClosed
	}

	existed := false
	err := s.db.Update(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeBlobKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		existed = true

		if err := tx.Delete(makeBlobKey(id)); err != nil {
			return err
		}
		return tx.Delete(makeBlobInfoKey(id))
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// Close closes the underlying BadgerDB database.
func (s *BlobStore) Close() error {
	return s.db.Close()
}

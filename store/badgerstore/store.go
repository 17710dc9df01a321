package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"

	"github.com/covenant-labs/vaultd/store"
	"github.com/covenant-labs/vaultd/vault"
)

const vaultStoreDir = "vaults"

type badgerStore struct {
	db *badgerhold.Store
}

// NewVaultStore opens a badger-backed store under baseDir. An empty
// baseDir yields an in-memory store, used by tests.
func NewVaultStore(baseDir string, logger badger.Logger) (store.Store, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, vaultStoreDir)
	}
	db, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault store: %s", err)
	}

	return &badgerStore{db}, nil
}

func (s *badgerStore) Save(ctx context.Context, snapshot *vault.Snapshot) error {
	if err := s.db.Upsert(snapshot.Name, snapshot); err != nil {
		return fmt.Errorf("failed to save vault %s: %s", snapshot.Name, err)
	}
	return nil
}

func (s *badgerStore) Get(ctx context.Context, name string) (*vault.Snapshot, error) {
	var snapshot vault.Snapshot
	if err := s.db.Get(name, &snapshot); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", store.ErrVaultNotFound, name)
		}
		return nil, err
	}
	return &snapshot, nil
}

func (s *badgerStore) List(ctx context.Context) ([]vault.Snapshot, error) {
	var snapshots []vault.Snapshot
	if err := s.db.Find(&snapshots, nil); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *badgerStore) Delete(ctx context.Context, name string) error {
	if err := s.db.Delete(name, &vault.Snapshot{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", store.ErrVaultNotFound, name)
		}
		return err
	}
	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

package store

import (
	"context"
	"errors"

	"github.com/covenant-labs/vaultd/vault"
)

var ErrVaultNotFound = errors.New("vault not found in store")

// Store persists vault snapshots across process restarts, keyed by name.
type Store interface {
	Save(ctx context.Context, snapshot *vault.Snapshot) error
	Get(ctx context.Context, name string) (*vault.Snapshot, error)
	List(ctx context.Context) ([]vault.Snapshot, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

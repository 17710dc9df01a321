package badgerstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-labs/vaultd/common"
	"github.com/covenant-labs/vaultd/store"
	"github.com/covenant-labs/vaultd/store/badgerstore"
	"github.com/covenant-labs/vaultd/vault"
)

func testSnapshot(t *testing.T, name string) *vault.Snapshot {
	t.Helper()
	covenant, err := vault.New(common.Regtest, 20)
	require.NoError(t, err)
	snapshot, err := covenant.Snapshot(name)
	require.NoError(t, err)
	return snapshot
}

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()

	// empty base dir means in-memory.
	vaultStore, err := badgerstore.NewVaultStore("", nil)
	require.NoError(t, err)
	defer vaultStore.Close()

	_, err = vaultStore.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrVaultNotFound)

	savings := testSnapshot(t, "savings")
	require.NoError(t, vaultStore.Save(ctx, savings))

	got, err := vaultStore.Get(ctx, "savings")
	require.NoError(t, err)
	require.Equal(t, savings, got)

	// upsert overwrites.
	savings.State = int(vault.Triggered)
	require.NoError(t, vaultStore.Save(ctx, savings))
	got, err = vaultStore.Get(ctx, "savings")
	require.NoError(t, err)
	require.Equal(t, int(vault.Triggered), got.State)

	require.NoError(t, vaultStore.Save(ctx, testSnapshot(t, "checking")))
	list, err := vaultStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, vaultStore.Delete(ctx, "checking"))
	_, err = vaultStore.Get(ctx, "checking")
	require.ErrorIs(t, err, store.ErrVaultNotFound)
}

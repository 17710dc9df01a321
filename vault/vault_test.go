package vault_test

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/covenant-labs/vaultd/common"
	"github.com/covenant-labs/vaultd/vault"
)

const (
	testAmount   = btcutil.Amount(100_000_000)
	testTimelock = uint16(20)
)

func testCovenant(t *testing.T) *vault.Covenant {
	t.Helper()
	covenant, err := vault.New(common.Regtest, testTimelock)
	require.NoError(t, err)
	covenant.SetAmount(testAmount)

	depositHash := chainhash.HashH([]byte("deposit"))
	covenant.MarkInactive(wire.NewOutPoint(&depositHash, 0))
	return covenant
}

func TestUnspendableKey(t *testing.T) {
	key := vault.UnspendableKey()
	require.NotNil(t, key)
	require.Equal(t,
		"50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0",
		hex.EncodeToString(schnorr.SerializePubKey(key)),
	)
}

func TestAddress(t *testing.T) {
	covenant := testCovenant(t)

	addr, err := covenant.Address()
	require.NoError(t, err)
	require.True(t, len(addr) > 0)
	// bech32m on regtest.
	require.Equal(t, "bcrt1p", addr[:6])

	// same covenant, same address.
	again, err := covenant.Address()
	require.NoError(t, err)
	require.Equal(t, addr, again)

	// a different key yields a different address.
	other := testCovenant(t)
	otherAddr, err := other.Address()
	require.NoError(t, err)
	require.NotEqual(t, addr, otherAddr)
}

func TestMerkleProofs(t *testing.T) {
	covenant := testCovenant(t)
	spendInfo, err := covenant.SpendInfo()
	require.NoError(t, err)

	// the trigger leaf sits alone at depth one, complete and cancel pair
	// up at depth two, so the control blocks carry one and two 32-byte
	// proof hashes after the 33-byte header.
	proofSizes := map[string]int{
		vault.LeafTrigger:  65,
		vault.LeafComplete: 97,
		vault.LeafCancel:   97,
	}
	for leaf, size := range proofSizes {
		proof, err := spendInfo.MerkleProof(leaf)
		require.NoError(t, err, leaf)
		require.NotEmpty(t, proof.Script, leaf)
		require.Len(t, proof.ControlBlock, size, leaf)
		// base leaf version, even parity or odd parity only.
		require.Contains(t, []byte{0xc0, 0xc1}, proof.ControlBlock[0], leaf)
	}

	_, err = spendInfo.MerkleProof("unknown")
	require.ErrorIs(t, err, vault.ErrLeafNotFound)
}

func TestStateTransitions(t *testing.T) {
	covenant := testCovenant(t)
	require.Equal(t, vault.Inactive, covenant.State())

	_, err := covenant.WithdrawalAddress()
	require.ErrorIs(t, err, vault.ErrNoWithdrawalAddress)
	_, err = covenant.TriggerTx()
	require.ErrorIs(t, err, vault.ErrNoTriggerTx)

	triggerHash := chainhash.HashH([]byte("trigger"))
	triggerTx := wire.NewMsgTx(2)
	covenant.MarkTriggered(
		wire.NewOutPoint(&triggerHash, 0), "bcrt1qtarget", triggerTx,
	)
	require.Equal(t, vault.Triggered, covenant.State())

	addr, err := covenant.WithdrawalAddress()
	require.NoError(t, err)
	require.Equal(t, "bcrt1qtarget", addr)

	cached, err := covenant.TriggerTx()
	require.NoError(t, err)
	require.Equal(t, triggerTx, cached)

	covenant.MarkCompleted()
	require.Equal(t, vault.Completed, covenant.State())
	_, err = covenant.CurrentOutpoint()
	require.ErrorIs(t, err, vault.ErrNoCurrentOutpoint)
	_, err = covenant.WithdrawalAddress()
	require.ErrorIs(t, err, vault.ErrNoWithdrawalAddress)
	_, err = covenant.TriggerTx()
	require.ErrorIs(t, err, vault.ErrNoTriggerTx)

	depositHash := chainhash.HashH([]byte("deposit2"))
	covenant.MarkInactive(wire.NewOutPoint(&depositHash, 1))
	require.Equal(t, vault.Inactive, covenant.State())

	outpoint, err := covenant.CurrentOutpoint()
	require.NoError(t, err)
	require.Equal(t, uint32(1), outpoint.Index)
}

func TestClassifyState(t *testing.T) {
	covenant := testCovenant(t)
	vaultScript, err := covenant.PkScript()
	require.NoError(t, err)
	foreignScript := append([]byte{}, vaultScript...)
	foreignScript[10] ^= 0xff

	t.Run("trigger shape", func(t *testing.T) {
		tx := wire.NewMsgTx(2)
		tx.AddTxOut(wire.NewTxOut(int64(testAmount), vaultScript))
		tx.AddTxOut(wire.NewTxOut(vault.TriggerMarkerValue, foreignScript))
		require.Equal(t, vault.Triggered, vault.ClassifyState(tx, vaultScript))
	})

	t.Run("completion shape", func(t *testing.T) {
		tx := wire.NewMsgTx(2)
		tx.AddTxOut(wire.NewTxOut(int64(testAmount), foreignScript))
		require.Equal(t, vault.Completed, vault.ClassifyState(tx, vaultScript))
	})

	t.Run("cancel shape", func(t *testing.T) {
		tx := wire.NewMsgTx(2)
		tx.AddTxOut(wire.NewTxOut(int64(testAmount), vaultScript))
		require.Equal(t, vault.Inactive, vault.ClassifyState(tx, vaultScript))
	})

	t.Run("two outputs without marker value", func(t *testing.T) {
		tx := wire.NewMsgTx(2)
		tx.AddTxOut(wire.NewTxOut(int64(testAmount), vaultScript))
		tx.AddTxOut(wire.NewTxOut(1_000, foreignScript))
		require.Equal(t, vault.Inactive, vault.ClassifyState(tx, vaultScript))
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	covenant := testCovenant(t)

	triggerHash := chainhash.HashH([]byte("trigger"))
	triggerTx := wire.NewMsgTx(2)
	prevHash := chainhash.HashH([]byte("prev"))
	triggerTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	triggerTx.AddTxOut(wire.NewTxOut(int64(testAmount), []byte{0x51}))
	covenant.MarkTriggered(
		wire.NewOutPoint(&triggerHash, 0), "bcrt1qtarget", triggerTx,
	)

	snapshot, err := covenant.Snapshot("savings")
	require.NoError(t, err)
	require.Equal(t, "savings", snapshot.Name)
	require.Equal(t, "cat", snapshot.Type)

	restored, err := vault.FromSnapshot(snapshot)
	require.NoError(t, err)

	require.Equal(t, covenant.Amount(), restored.Amount())
	require.Equal(t, covenant.Timelock(), restored.Timelock())
	require.Equal(t, covenant.State(), restored.State())
	require.Equal(t,
		covenant.PublicKey().SerializeCompressed(),
		restored.PublicKey().SerializeCompressed(),
	)

	wantOutpoint, err := covenant.CurrentOutpoint()
	require.NoError(t, err)
	gotOutpoint, err := restored.CurrentOutpoint()
	require.NoError(t, err)
	require.Equal(t, wantOutpoint.String(), gotOutpoint.String())

	wantAddr, err := covenant.Address()
	require.NoError(t, err)
	gotAddr, err := restored.Address()
	require.NoError(t, err)
	require.Equal(t, wantAddr, gotAddr)

	gotTrigger, err := restored.TriggerTx()
	require.NoError(t, err)
	require.Equal(t, triggerTx.TxHash(), gotTrigger.TxHash())
}

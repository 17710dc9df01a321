package sigmsg_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/covenant-labs/vaultd/sigmsg"
)

func testTx() (*wire.MsgTx, []*wire.TxOut) {
	prevHash := chainhash.HashH([]byte("prev"))
	feeHash := chainhash.HashH([]byte("fee"))

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil, nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&feeHash, 1), nil, nil))
	tx.AddTxOut(wire.NewTxOut(100_000_000, bytes.Repeat([]byte{0x51}, 34)))
	tx.AddTxOut(wire.NewTxOut(546, bytes.Repeat([]byte{0x52}, 34)))

	prevouts := []*wire.TxOut{
		wire.NewTxOut(100_000_000, bytes.Repeat([]byte{0x51}, 34)),
		wire.NewTxOut(5_000, bytes.Repeat([]byte{0x53}, 34)),
	}
	return tx, prevouts
}

func TestComponents(t *testing.T) {
	tx, prevouts := testTx()
	leafHash := chainhash.HashH([]byte("leaf"))

	t.Run("default spec emits all components", func(t *testing.T) {
		components, err := sigmsg.Components(
			sigmsg.DefaultTxCommitmentSpec(), tx, 0, prevouts, nil,
			leafHash, txscript.SigHashDefault,
		)
		require.NoError(t, err)
		// annex absent and not SIGHASH_SINGLE: 12 of the 14 components.
		require.Len(t, components, 12)

		require.Equal(t, []byte{0x00}, components[0])
		require.Equal(t, []byte{0x00}, components[1])
		// version and locktime are 4-byte little endian fields.
		require.Equal(t, []byte{0x02, 0x00, 0x00, 0x00}, components[2])
		require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, components[3])
	})

	t.Run("disabled components are dropped not zeroed", func(t *testing.T) {
		spec := sigmsg.DefaultTxCommitmentSpec()
		spec.PrevAmounts = false
		spec.PrevScriptPubkeys = false
		spec.InputIndex = false
		spec.Outputs = false

		components, err := sigmsg.Components(
			spec, tx, 0, prevouts, nil, leafHash, txscript.SigHashDefault,
		)
		require.NoError(t, err)
		require.Len(t, components, 8)
	})

	t.Run("prevouts length must match inputs", func(t *testing.T) {
		_, err := sigmsg.Components(
			sigmsg.DefaultTxCommitmentSpec(), tx, 0, prevouts[:1], nil,
			leafHash, txscript.SigHashDefault,
		)
		require.ErrorIs(t, err, sigmsg.ErrPrevoutsMismatch)
	})

	t.Run("input index out of range", func(t *testing.T) {
		_, err := sigmsg.Components(
			sigmsg.DefaultTxCommitmentSpec(), tx, 2, prevouts, nil,
			leafHash, txscript.SigHashDefault,
		)
		require.ErrorIs(t, err, sigmsg.ErrInputIndex)
	})

	t.Run("single without matching output", func(t *testing.T) {
		short, _ := testTx()
		short.TxOut = short.TxOut[:1]

		_, err := sigmsg.Components(
			sigmsg.DefaultTxCommitmentSpec(), short, 1, prevouts, nil,
			leafHash, txscript.SigHashSingle,
		)
		require.ErrorIs(t, err, sigmsg.ErrNoSingleOutput)

		components, err := sigmsg.Components(
			sigmsg.DefaultTxCommitmentSpec(), short, 0, prevouts, nil,
			leafHash, txscript.SigHashSingle,
		)
		require.NoError(t, err)
		// the single-output component joins the twelve defaults.
		require.Len(t, components, 13)
	})
}

func TestTapSighashMatchesTxscript(t *testing.T) {
	tx, prevouts := testTx()
	leafScript := []byte{txscript.OP_1}
	leafHash := txscript.NewBaseTapLeaf(leafScript).TapHash()

	components, err := sigmsg.Components(
		sigmsg.DefaultTxCommitmentSpec(), tx, 0, prevouts, nil,
		leafHash, txscript.SigHashDefault,
	)
	require.NoError(t, err)

	got := sigmsg.TapSighash(components)

	prevoutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.TxIn {
		prevoutFetcher.AddPrevOut(in.PreviousOutPoint, prevouts[i])
	}
	want, err := txscript.CalcTapscriptSignaturehash(
		txscript.NewTxSigHashes(tx, prevoutFetcher),
		txscript.SigHashDefault, tx, 0, prevoutFetcher,
		txscript.NewBaseTapLeaf(leafScript),
	)
	require.NoError(t, err)

	require.Equal(t, want, got[:])
}

func TestComputeSignatureFromComponents(t *testing.T) {
	tx, prevouts := testTx()
	leafHash := chainhash.HashH([]byte("leaf"))

	components, err := sigmsg.Components(
		sigmsg.DefaultTxCommitmentSpec(), tx, 0, prevouts, nil,
		leafHash, txscript.SigHashDefault,
	)
	require.NoError(t, err)

	signature, err := sigmsg.ComputeSignatureFromComponents(components)
	require.NoError(t, err)
	require.Len(t, signature, 64)
	require.Equal(t, sigmsg.GeneratorX(), signature[:32])

	// deterministic for identical components.
	again, err := sigmsg.ComputeSignatureFromComponents(components)
	require.NoError(t, err)
	require.Equal(t, signature, again)
}

package vaultscript_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/covenant-labs/vaultd/sigmsg"
	"github.com/covenant-labs/vaultd/vaultscript"
)

func testPubkey(t *testing.T) *secp256k1.PublicKey {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	return priv.PubKey()
}

func countOp(script []byte, op byte) int {
	// opcode scan, skipping push payloads.
	count := 0
	for i := 0; i < len(script); {
		opcode := script[i]
		if opcode == op {
			count++
		}
		switch {
		case opcode <= txscript.OP_DATA_75 && opcode >= txscript.OP_DATA_1:
			i += 1 + int(opcode)
		case opcode == txscript.OP_PUSHDATA1:
			if i+1 >= len(script) {
				return count
			}
			i += 2 + int(script[i+1])
		default:
			i++
		}
	}
	return count
}

// opcodeStackEffect returns the net main and altstack depth change of a
// single opcode. Only the opcodes the leaves emit are mapped; the leaves
// are straight-line scripts, so depth tracking needs no branch handling.
func opcodeStackEffect(op byte) (main, alt int, ok bool) {
	if op <= txscript.OP_PUSHDATA4 || op == txscript.OP_1NEGATE ||
		(op >= txscript.OP_1 && op <= txscript.OP_16) {
		return 1, 0, true
	}
	switch op {
	case txscript.OP_DUP, txscript.OP_OVER:
		return 1, 0, true
	case txscript.OP_2DUP:
		return 2, 0, true
	case txscript.OP_DROP, txscript.OP_CAT, txscript.OP_ROLL,
		txscript.OP_CHECKSIG:
		return -1, 0, true
	case txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIGVERIFY:
		return -2, 0, true
	case txscript.OP_SWAP, txscript.OP_ROT, txscript.OP_1ADD,
		txscript.OP_SHA256, txscript.OP_HASH256,
		txscript.OP_CHECKSEQUENCEVERIFY:
		return 0, 0, true
	case txscript.OP_TOALTSTACK:
		return -1, 1, true
	case txscript.OP_FROMALTSTACK:
		return 1, -1, true
	}
	return 0, 0, false
}

// assertLeafStackShape walks a leaf opcode by opcode with the witness
// item count its spender pushes, requiring that neither stack underflows,
// the altstack drains completely, and exactly the CHECKSIG result remains.
func assertLeafStackShape(t *testing.T, script []byte, witnessItems int) {
	t.Helper()
	main, alt := witnessItems, 0
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		dMain, dAlt, ok := opcodeStackEffect(tokenizer.Opcode())
		require.True(t, ok, "unmapped opcode 0x%02x", tokenizer.Opcode())
		main += dMain
		alt += dAlt
		require.GreaterOrEqual(t, main, 0, "stack underflow at offset %d", tokenizer.ByteIndex())
		require.GreaterOrEqual(t, alt, 0, "altstack underflow at offset %d", tokenizer.ByteIndex())
	}
	require.NoError(t, tokenizer.Err())
	require.Equal(t, 1, main)
	require.Zero(t, alt)
}

func TestLeafStackShapes(t *testing.T) {
	pubkey := testPubkey(t)

	t.Run("trigger", func(t *testing.T) {
		script, err := vaultscript.TriggerLeaf(pubkey)
		require.NoError(t, err)
		// 8 sigmsg components, target script, vault amount and script,
		// fee amount and script, the signature triple and the key
		// signature.
		assertLeafStackShape(t, script, 17)
	})

	t.Run("complete", func(t *testing.T) {
		script, err := vaultscript.CompleteLeaf(pubkey, 20)
		require.NoError(t, err)
		// 10 sigmsg components, trigger version, two input chunks and
		// locktime, vault script and amount, target script, fee
		// outpoint, the signature triple and the key signature.
		assertLeafStackShape(t, script, 22)
	})

	t.Run("cancel", func(t *testing.T) {
		script, err := vaultscript.CancelLeaf(pubkey)
		require.NoError(t, err)
		// same as trigger without the target script.
		assertLeafStackShape(t, script, 16)
	})
}

func TestTriggerLeaf(t *testing.T) {
	pubkey := testPubkey(t)
	script, err := vaultscript.TriggerLeaf(pubkey)
	require.NoError(t, err)
	require.NotEmpty(t, script)

	// parses cleanly even though OP_CAT only runs on enabled chains.
	_, err = txscript.DisasmString(script)
	require.NoError(t, err)

	// spends begin with the vault key check.
	require.Equal(t, byte(txscript.OP_DATA_32), script[0])
	require.Equal(t, schnorr.SerializePubKey(pubkey), script[1:33])
	require.Equal(t, byte(txscript.OP_CHECKSIGVERIFY), script[33])

	// reassembly leans on OP_CAT throughout and ends verifying against
	// the generator key.
	require.Greater(t, countOp(script, txscript.OP_CAT), 15)
	require.Equal(t, byte(txscript.OP_CHECKSIG), script[len(script)-1])
	require.True(t, bytes.Contains(script, sigmsg.GeneratorX()))
}

func TestTriggerLeafDeterministic(t *testing.T) {
	pubkey := testPubkey(t)
	first, err := vaultscript.TriggerLeaf(pubkey)
	require.NoError(t, err)
	second, err := vaultscript.TriggerLeaf(pubkey)
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := vaultscript.TriggerLeaf(testPubkey(t))
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestCompleteLeaf(t *testing.T) {
	pubkey := testPubkey(t)
	script, err := vaultscript.CompleteLeaf(pubkey, 20)
	require.NoError(t, err)

	_, err = txscript.DisasmString(script)
	require.NoError(t, err)

	// opens with the relative timelock check: a one byte push of the
	// delay, then CSV.
	require.Equal(t, byte(txscript.OP_DATA_1), script[0])
	require.Equal(t, byte(20), script[1])
	require.Equal(t, byte(txscript.OP_CHECKSEQUENCEVERIFY), script[2])
	require.Equal(t, byte(txscript.OP_DROP), script[3])

	// the trigger txid re-derivation needs a double sha256.
	require.Equal(t, 1, countOp(script, txscript.OP_HASH256))
	require.Equal(t, byte(txscript.OP_CHECKSIG), script[len(script)-1])

	// the timelock is committed in the script itself.
	other, err := vaultscript.CompleteLeaf(pubkey, 21)
	require.NoError(t, err)
	require.NotEqual(t, script, other)
}

func TestCancelLeaf(t *testing.T) {
	pubkey := testPubkey(t)
	script, err := vaultscript.CancelLeaf(pubkey)
	require.NoError(t, err)

	_, err = txscript.DisasmString(script)
	require.NoError(t, err)

	require.Equal(t, schnorr.SerializePubKey(pubkey), script[1:33])
	require.Equal(t, byte(txscript.OP_CHECKSIG), script[len(script)-1])
	require.True(t, bytes.Contains(script, sigmsg.GeneratorX()))

	// no timelock on the cancel path.
	require.Equal(t, 0, countOp(script, txscript.OP_CHECKSEQUENCEVERIFY))

	trigger, err := vaultscript.TriggerLeaf(pubkey)
	require.NoError(t, err)
	require.NotEqual(t, trigger, script)
}

func TestCTVLeaves(t *testing.T) {
	pubkey := testPubkey(t)
	var hash [32]byte
	copy(hash[:], bytes.Repeat([]byte{0xab}, 32))

	t.Run("deposit", func(t *testing.T) {
		script, err := vaultscript.CTVDepositLeaf(hash)
		require.NoError(t, err)
		require.Len(t, script, 34)
		require.Equal(t, byte(txscript.OP_DATA_32), script[0])
		require.Equal(t, hash[:], script[1:33])
		require.Equal(t, byte(txscript.OP_NOP4), script[33])
	})

	t.Run("complete", func(t *testing.T) {
		script, err := vaultscript.CTVCompleteLeaf(pubkey, 20)
		require.NoError(t, err)
		require.Equal(t, 1, countOp(script, txscript.OP_CHECKSEQUENCEVERIFY))
		require.Equal(t, byte(txscript.OP_CHECKSIG), script[len(script)-1])
	})

	t.Run("cancel", func(t *testing.T) {
		script, err := vaultscript.CTVCancelLeaf(pubkey)
		require.NoError(t, err)
		require.Len(t, script, 34)
		require.Equal(t, schnorr.SerializePubKey(pubkey), script[1:33])
		require.Equal(t, byte(txscript.OP_CHECKSIG), script[33])
	})
}

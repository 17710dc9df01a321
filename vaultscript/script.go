// Package vaultscript builds the tapscript leaves of the vault covenant.
//
// The CAT leaves reassemble the spending transaction's BIP341 signature
// message from witness pushes, tag-hash it on the stack, and verify the
// covenant-encoding signature against the secp256k1 generator point: for
// key G and nonce G the valid signature scalar is challenge+1, so the leaf
// increments the final signature byte with OP_1ADD instead of doing wide
// arithmetic. The CTV leaves pre-commit to the follow-up transaction's
// template hash and need no reassembly at all.
package vaultscript

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/covenant-labs/vaultd/sigmsg"
)

var (
	tagTapSighash = sha256.Sum256([]byte("TapSighash"))
	tagChallenge  = sha256.Sum256([]byte("BIP0340/challenge"))
)

// triggerValue is the fixed 546-sat marker output of a trigger transaction,
// consensus-encoded as it appears inside a TxOut.
var triggerValue = encodeValue(546)

func encodeValue(value uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	return buf
}

// checkFinalBytePair consumes the two trailing-byte pushes, verifying the
// second is the first plus one, and leaves the covenant signature plus a
// spare copy of its 63-byte prefix behind.
//
// stack in (top first): <b+1> <b> <prefix>; out: <prefix> <prefix||b>,
// altstack gains <b+1>.
func checkFinalBytePair(b *txscript.ScriptBuilder) *txscript.ScriptBuilder {
	return b.
		AddOp(txscript.OP_DUP).AddOp(txscript.OP_TOALTSTACK).
		AddOp(txscript.OP_OVER).AddOp(txscript.OP_1ADD).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_OVER).AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT)
}

// addTaggedHash hashes the item on top of the stack with the given tag:
// sha256(tag || tag || item).
func addTaggedHash(b *txscript.ScriptBuilder, tag [32]byte) *txscript.ScriptBuilder {
	return b.
		AddData(tag[:]).AddOp(txscript.OP_SWAP).AddOp(txscript.OP_CAT).
		AddData(tag[:]).AddOp(txscript.OP_SWAP).AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SHA256)
}

// addChallenge turns the sighash on top of the stack into the BIP340
// challenge for key G and nonce G.
func addChallenge(b *txscript.ScriptBuilder) *txscript.ScriptBuilder {
	gx := sigmsg.GeneratorX()
	b.AddData(gx).AddOp(txscript.OP_SWAP).AddOp(txscript.OP_CAT).
		AddData(gx).AddOp(txscript.OP_SWAP).AddOp(txscript.OP_CAT)
	return addTaggedHash(b, tagChallenge)
}

// addCovenantVerify consumes the challenge on top of the stack, checks it
// against the covenant signature parked on the altstack, and leaves the
// incremented signature checked against the generator key as the script's
// final result.
//
// altstack in (top first): <prefix> <prefix||b> <b+1>.
func addCovenantVerify(b *txscript.ScriptBuilder) *txscript.ScriptBuilder {
	gx := sigmsg.GeneratorX()
	return b.
		AddData(gx).AddOp(txscript.OP_SWAP).AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_FROMALTSTACK).
		AddOp(txscript.OP_FROMALTSTACK).
		AddOp(txscript.OP_ROT).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_FROMALTSTACK).
		AddOp(txscript.OP_CAT).
		AddData(gx).
		AddOp(txscript.OP_CHECKSIG)
}

// TriggerLeaf is the CAT vault's withdrawal-trigger leaf. The witness
// supplies the enabled sighash components (epoch, control, version,
// locktime, prevouts, sequences, spend type, script path), the target
// output's script, the vault amount and script, the fee output's amount
// and script, the mangled covenant signature triple and the vault key's
// real signature. The leaf rebuilds the amounts, scriptpubkeys and outputs
// hashes from the auxiliary pushes, pinning the first output to the vault
// itself and the second to a 546-sat marker paying the chosen target.
func TriggerLeaf(pubkey *secp256k1.PublicKey) ([]byte, error) {
	b := txscript.NewScriptBuilder()

	// real vault signature first.
	b.AddData(schnorr.SerializePubKey(pubkey)).
		AddOp(txscript.OP_CHECKSIGVERIFY)

	checkFinalBytePair(b)
	b.AddOp(txscript.OP_TOALTSTACK). // covenant signature
						AddOp(txscript.OP_TOALTSTACK) // spare prefix

	// stack (top first): <fee spk> <fee amount> <vault spk> <vault amount>
	// <target spk> <scriptpath> <spendtype> <sequences> <prevouts>
	// <locktime> <version> <control> <epoch>.

	// outputs hash: vault output followed by the 546-sat target marker.
	b.AddOp(txscript.OP_TOALTSTACK). // fee spk
						AddOp(txscript.OP_TOALTSTACK). // fee amount
						AddOp(txscript.OP_2DUP).
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_TOALTSTACK). // vault output
						AddOp(txscript.OP_ROT).
						AddData(triggerValue).
						AddOp(txscript.OP_SWAP).
						AddOp(txscript.OP_CAT). // target output
						AddOp(txscript.OP_FROMALTSTACK).
						AddOp(txscript.OP_SWAP).
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_SHA256)

	// amounts hash: vault amount then fee amount.
	b.AddOp(txscript.OP_FROMALTSTACK).
		AddInt64(3).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SHA256)

	// scriptpubkeys hash: vault script then fee script.
	b.AddOp(txscript.OP_FROMALTSTACK).
		AddInt64(3).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SHA256).
		AddOp(txscript.OP_ROT)

	// stack (top first): <outputs h> <scripts h> <amounts h> <scriptpath>
	// <spendtype> <sequences> <prevouts> <locktime> <version> <control>
	// <epoch>. Reassemble the message in BIP341 order.
	b.AddInt64(10).AddOp(txscript.OP_ROLL). // epoch
						AddInt64(10).AddOp(txscript.OP_ROLL). // control
						AddOp(txscript.OP_CAT).
						AddInt64(9).AddOp(txscript.OP_ROLL). // version
						AddOp(txscript.OP_CAT).
						AddInt64(8).AddOp(txscript.OP_ROLL). // locktime
						AddOp(txscript.OP_CAT).
						AddInt64(7).AddOp(txscript.OP_ROLL). // prevouts
						AddOp(txscript.OP_CAT).
						AddInt64(3).AddOp(txscript.OP_ROLL). // amounts
						AddOp(txscript.OP_CAT).
						AddInt64(2).AddOp(txscript.OP_ROLL). // scriptpubkeys
						AddOp(txscript.OP_CAT).
						AddInt64(4).AddOp(txscript.OP_ROLL). // sequences
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_SWAP). // outputs
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_ROT). // spend type
						AddOp(txscript.OP_CAT).
						AddData([]byte{0x00, 0x00, 0x00, 0x00}). // input index
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_SWAP). // script path
						AddOp(txscript.OP_CAT)

	addTaggedHash(b, tagTapSighash)
	addChallenge(b)
	addCovenantVerify(b)

	return b.Script()
}

// CompleteLeaf is the CAT vault's delayed-completion leaf. On top of the
// covenant verification it enforces the configured relative timelock, and
// it re-derives the trigger transaction's txid on the stack from the
// witness pushes to pin the vault input's prevout: the only way to spend
// this leaf is from a trigger transaction whose second output already
// named the withdrawal target being paid now.
func CompleteLeaf(pubkey *secp256k1.PublicKey, timelock uint16) ([]byte, error) {
	b := txscript.NewScriptBuilder()

	b.AddInt64(int64(timelock)).
		AddOp(txscript.OP_CHECKSEQUENCEVERIFY).
		AddOp(txscript.OP_DROP)

	b.AddData(schnorr.SerializePubKey(pubkey)).
		AddOp(txscript.OP_CHECKSIGVERIFY)

	checkFinalBytePair(b)
	b.AddOp(txscript.OP_TOALTSTACK).
		AddOp(txscript.OP_TOALTSTACK)

	// stack (top first): <fee outpoint> <target spk> <vault amount>
	// <vault spk> <trigger locktime> <trigger inputs, 2 chunks>
	// <trigger version> <scriptpath> <input index> <spendtype>
	// <sequences> <scriptpubkeys> <amounts> <locktime> <version>
	// <control> <epoch>.

	// Park the fee outpoint and spare copies of the target script and the
	// vault amount for the prevouts and outputs hashes built further down.
	b.AddOp(txscript.OP_TOALTSTACK). // fee outpoint
						AddOp(txscript.OP_DUP).
						AddOp(txscript.OP_TOALTSTACK). // target spk copy
						AddOp(txscript.OP_OVER).
						AddOp(txscript.OP_TOALTSTACK) // vault amount copy

	// Rebuild the trigger transaction and hash it into its txid. Outputs
	// are reconstructed from the vault amount/script and the target
	// script: the trigger paid the vault back on index 0 and the 546-sat
	// marker to the target on index 1.
	// TODO: support trigger transactions whose inputs serialize to more
	// than two 80-byte chunks.
	b.AddData(triggerValue).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT). // marker output (546 || target spk)
		AddOp(txscript.OP_ROT).
		AddOp(txscript.OP_ROT).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT). // vault output (amount || spk)
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT). // vault output || marker output
		AddData([]byte{0x02}).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT). // output count || outputs
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_TOALTSTACK). // trigger locktime
		AddOp(txscript.OP_CAT).        // second input chunk || outputs
		AddOp(txscript.OP_CAT).        // first input chunk || ...
		AddOp(txscript.OP_CAT).        // version || ...
		AddOp(txscript.OP_FROMALTSTACK).
		AddOp(txscript.OP_CAT).    // || locktime
		AddOp(txscript.OP_HASH256) // trigger txid

	// outputs hash: single output paying the vault amount to the target.
	// Interleaved with the prevouts hash so the altstack copies come off
	// in order.
	b.AddData([]byte{0x00, 0x00, 0x00, 0x00}).
		AddOp(txscript.OP_CAT).          // trigger txid vout 0
		AddOp(txscript.OP_FROMALTSTACK). // vault amount
		AddOp(txscript.OP_FROMALTSTACK). // target spk
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SHA256) // outputs hash

	// prevouts hash: trigger txid vout 0, then the fee outpoint.
	b.AddOp(txscript.OP_FROMALTSTACK). // fee outpoint
						AddOp(txscript.OP_ROT).
						AddOp(txscript.OP_SWAP).
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_SHA256) // prevouts hash

	// stack (top first): <prevouts h> <outputs h> <scriptpath>
	// <input index> <spendtype> <sequences> <scriptpubkeys h>
	// <amounts h> <locktime> <version> <control> <epoch>. The amounts
	// and scriptpubkeys hashes stay enabled for this leaf and arrive as
	// witness components.
	b.AddInt64(11).AddOp(txscript.OP_ROLL). // epoch
						AddInt64(11).AddOp(txscript.OP_ROLL). // control
						AddOp(txscript.OP_CAT).
						AddInt64(10).AddOp(txscript.OP_ROLL). // version
						AddOp(txscript.OP_CAT).
						AddInt64(9).AddOp(txscript.OP_ROLL). // locktime
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_SWAP). // prevouts
						AddOp(txscript.OP_CAT).
						AddInt64(7).AddOp(txscript.OP_ROLL). // amounts
						AddOp(txscript.OP_CAT).
						AddInt64(6).AddOp(txscript.OP_ROLL). // scriptpubkeys
						AddOp(txscript.OP_CAT).
						AddInt64(5).AddOp(txscript.OP_ROLL). // sequences
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_SWAP). // outputs
						AddOp(txscript.OP_CAT).
						AddInt64(3).AddOp(txscript.OP_ROLL). // spend type
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_ROT). // input index
						AddOp(txscript.OP_CAT).
						AddOp(txscript.OP_SWAP). // script path
						AddOp(txscript.OP_CAT)

	addTaggedHash(b, tagTapSighash)
	addChallenge(b)
	addCovenantVerify(b)

	return b.Script()
}

// CancelLeaf is the CAT vault's cancellation leaf: same covenant shape as
// the trigger leaf but with a single output pinned back to the vault's own
// script, returning the funds to the Inactive phase.
func CancelLeaf(pubkey *secp256k1.PublicKey) ([]byte, error) {
	b := txscript.NewScriptBuilder()

	b.AddData(schnorr.SerializePubKey(pubkey)).
		AddOp(txscript.OP_CHECKSIGVERIFY)

	checkFinalBytePair(b)
	b.AddOp(txscript.OP_TOALTSTACK).
		AddOp(txscript.OP_TOALTSTACK)

	// stack (top first): <fee spk> <fee amount> <vault spk>
	// <vault amount> <scriptpath> <spendtype> <sequences> <prevouts>
	// <locktime> <version> <control> <epoch>.

	// outputs hash: the single output pays the vault amount back to the
	// vault script itself.
	b.AddOp(txscript.OP_TOALTSTACK). // fee spk
						AddOp(txscript.OP_TOALTSTACK). // fee amount
						AddOp(txscript.OP_2DUP).
						AddOp(txscript.OP_CAT). // vault output
						AddOp(txscript.OP_SHA256)

	// amounts hash: vault amount then fee amount.
	b.AddOp(txscript.OP_FROMALTSTACK).
		AddInt64(3).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SHA256)

	// scriptpubkeys hash: vault script then fee script.
	b.AddOp(txscript.OP_FROMALTSTACK).
		AddInt64(3).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SHA256).
		AddOp(txscript.OP_ROT)

	// stack (top first): <outputs h> <scripts h> <amounts h>
	// <scriptpath> <spendtype> <sequences> <prevouts> <locktime>
	// <version> <control> <epoch>.
	b.AddInt64(10).AddOp(txscript.OP_ROLL).
		AddInt64(10).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_CAT).
		AddInt64(9).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_CAT).
		AddInt64(8).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_CAT).
		AddInt64(7).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_CAT).
		AddInt64(3).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_CAT).
		AddInt64(2).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_CAT).
		AddInt64(4).AddOp(txscript.OP_ROLL).
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_ROT).
		AddOp(txscript.OP_CAT).
		AddData([]byte{0x00, 0x00, 0x00, 0x00}).
		AddOp(txscript.OP_CAT).
		AddOp(txscript.OP_SWAP).
		AddOp(txscript.OP_CAT)

	addTaggedHash(b, tagTapSighash)
	addChallenge(b)
	addCovenantVerify(b)

	return b.Script()
}

// CTVDepositLeaf commits the deposit output to the precomputed trigger
// template hash. Spending it needs no signature at all: the template check
// fully constrains the follow-up transaction.
func CTVDepositLeaf(templateHash [32]byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddData(templateHash[:]).
		AddOp(txscript.OP_NOP4).
		Script()
}

// CTVCompleteLeaf releases the triggered CTV vault to any destination
// after the relative timelock, authorized by the vault key.
func CTVCompleteLeaf(pubkey *secp256k1.PublicKey, timelock uint16) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddInt64(int64(timelock)).
		AddOp(txscript.OP_CHECKSEQUENCEVERIFY).
		AddOp(txscript.OP_DROP).
		AddData(schnorr.SerializePubKey(pubkey)).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// CTVCancelLeaf sends the triggered CTV vault back to its deposit address,
// authorized by the vault key with no delay.
func CTVCancelLeaf(pubkey *secp256k1.PublicKey) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(pubkey)).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

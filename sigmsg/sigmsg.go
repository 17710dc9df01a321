// Package sigmsg decomposes BIP341 tapscript signature messages into their
// named components, and reassembles the covenant-encoding signature used by
// the vault leaf scripts.
//
// A tapscript leaf that reconstructs the signature message on the stack
// needs every component as a separate witness push. TxCommitmentSpec selects
// which components a caller wants produced; the disabled ones are either
// hard-coded in the leaf script or rebuilt in-script from auxiliary pushes.
package sigmsg

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	ErrPrevoutsMismatch = fmt.Errorf("number of prevouts does not match number of inputs")
	ErrInputIndex       = fmt.Errorf("input index out of range")
	ErrNoSingleOutput   = fmt.Errorf("no output matching the input index for SIGHASH_SINGLE")
)

// sigHashOutputMask isolates the output-selection bits of a sighash type,
// mirroring the unexported mask txscript applies.
const sigHashOutputMask txscript.SigHashType = 0x1f

// tagBIP340Challenge is the tag of the BIP340 challenge hash. The TapSighash
// tag is already exported by chainhash.
var tagBIP340Challenge = []byte("BIP0340/challenge")

// TxCommitmentSpec selects the signature-message components to produce.
// The version, locktime and sequences components carry the fields the
// grinding search varies and are always emitted.
type TxCommitmentSpec struct {
	Epoch             bool
	Control           bool
	Prevouts          bool
	PrevAmounts       bool
	PrevScriptPubkeys bool
	SpendType         bool
	Annex             bool
	Outputs           bool
	SingleOutput      bool
	ScriptPath        bool
	InputIndex        bool
}

// DefaultTxCommitmentSpec enables every component. Callers disable the
// subset that will instead be supplied as explicit witness pushes or
// hard-coded script constants.
func DefaultTxCommitmentSpec() TxCommitmentSpec {
	return TxCommitmentSpec{
		Epoch:             true,
		Control:           true,
		Prevouts:          true,
		PrevAmounts:       true,
		PrevScriptPubkeys: true,
		SpendType:         true,
		Annex:             true,
		Outputs:           true,
		SingleOutput:      true,
		ScriptPath:        true,
		InputIndex:        true,
	}
}

// Components returns one byte buffer per enabled component, in the fixed
// BIP341 signature-message order: epoch, control, version, locktime,
// prevouts, amounts, scriptpubkeys, sequences, outputs, spend type, input
// index, annex, single output, script path. The annex component is only
// produced when an annex is present, the single-output component only for
// SIGHASH_SINGLE.
func Components(
	spec TxCommitmentSpec,
	tx *wire.MsgTx,
	inputIndex int,
	prevouts []*wire.TxOut,
	annex []byte,
	leafHash chainhash.Hash,
	hashType txscript.SigHashType,
) ([][]byte, error) {
	if inputIndex < 0 || inputIndex >= len(tx.TxIn) {
		return nil, ErrInputIndex
	}
	if (spec.PrevAmounts || spec.PrevScriptPubkeys) &&
		len(prevouts) != len(tx.TxIn) {
		return nil, ErrPrevoutsMismatch
	}

	components := make([][]byte, 0, 14)

	if spec.Epoch {
		components = append(components, []byte{0x00})
	}

	if spec.Control {
		components = append(components, []byte{byte(hashType)})
	}

	version := make([]byte, 4)
	binary.LittleEndian.PutUint32(version, uint32(tx.Version))
	components = append(components, version)

	locktime := make([]byte, 4)
	binary.LittleEndian.PutUint32(locktime, tx.LockTime)
	components = append(components, locktime)

	if spec.Prevouts {
		var buf bytes.Buffer
		for _, txIn := range tx.TxIn {
			buf.Write(txIn.PreviousOutPoint.Hash[:])
			if err := binary.Write(
				&buf, binary.LittleEndian, txIn.PreviousOutPoint.Index,
			); err != nil {
				return nil, err
			}
		}
		digest := sha256.Sum256(buf.Bytes())
		components = append(components, digest[:])
	}

	if spec.PrevAmounts {
		var buf bytes.Buffer
		for _, prevout := range prevouts {
			if err := binary.Write(
				&buf, binary.LittleEndian, uint64(prevout.Value),
			); err != nil {
				return nil, err
			}
		}
		digest := sha256.Sum256(buf.Bytes())
		components = append(components, digest[:])
	}

	if spec.PrevScriptPubkeys {
		var buf bytes.Buffer
		for _, prevout := range prevouts {
			if err := wire.WriteVarBytes(&buf, 0, prevout.PkScript); err != nil {
				return nil, err
			}
		}
		digest := sha256.Sum256(buf.Bytes())
		components = append(components, digest[:])
	}

	var seqBuf bytes.Buffer
	for _, txIn := range tx.TxIn {
		if err := binary.Write(
			&seqBuf, binary.LittleEndian, txIn.Sequence,
		); err != nil {
			return nil, err
		}
	}
	sequences := sha256.Sum256(seqBuf.Bytes())
	components = append(components, sequences[:])

	if spec.Outputs {
		var buf bytes.Buffer
		for _, txOut := range tx.TxOut {
			if err := wire.WriteTxOut(&buf, 0, 0, txOut); err != nil {
				return nil, err
			}
		}
		digest := sha256.Sum256(buf.Bytes())
		components = append(components, digest[:])
	}

	if spec.SpendType {
		// ext flag is always 1, this is a tapscript spend.
		spendType := byte(2)
		if annex != nil {
			spendType++
		}
		components = append(components, []byte{spendType})
	}

	if spec.InputIndex {
		index := make([]byte, 4)
		binary.LittleEndian.PutUint32(index, uint32(inputIndex))
		components = append(components, index)
	}

	if spec.Annex && annex != nil {
		var buf bytes.Buffer
		if err := wire.WriteVarBytes(&buf, 0, annex); err != nil {
			return nil, err
		}
		digest := sha256.Sum256(buf.Bytes())
		components = append(components, digest[:])
	}

	if spec.SingleOutput && hashType&sigHashOutputMask == txscript.SigHashSingle {
		if inputIndex >= len(tx.TxOut) {
			return nil, ErrNoSingleOutput
		}
		var buf bytes.Buffer
		if err := wire.WriteTxOut(&buf, 0, 0, tx.TxOut[inputIndex]); err != nil {
			return nil, err
		}
		digest := sha256.Sum256(buf.Bytes())
		components = append(components, digest[:])
	}

	if spec.ScriptPath {
		scriptPath := make([]byte, 0, 32+1+4)
		scriptPath = append(scriptPath, leafHash[:]...)
		// key version 0x00, then the position of the last executed
		// OP_CODESEPARATOR (none).
		scriptPath = append(scriptPath, 0x00)
		scriptPath = append(scriptPath, 0xff, 0xff, 0xff, 0xff)
		components = append(components, scriptPath)
	}

	return components, nil
}

// TapSighash hashes the concatenated components with the TapSighash tag.
// With every component enabled the digest equals the sighash btcd computes
// for the same tapscript spend.
func TapSighash(components [][]byte) *chainhash.Hash {
	return chainhash.TaggedHash(chainhash.TagTapSighash, components...)
}

// GeneratorX returns the 32-byte x coordinate of the secp256k1 generator
// point, which doubles as both the public key and the nonce commitment of
// the covenant-encoding signature.
func GeneratorX() []byte {
	var buf [32]byte
	btcec.S256().Gx.FillBytes(buf[:])
	return buf[:]
}

// ComputeSignatureFromComponents reassembles the 64-byte covenant-encoding
// signature from the signature-message components: G_x followed by the
// BIP340 challenge of the message under key G and nonce G. Incrementing the
// final byte of the result yields a valid signature for pubkey G, which is
// exactly the increment the leaf script performs on the stack.
func ComputeSignatureFromComponents(components [][]byte) ([]byte, error) {
	sighash := TapSighash(components)

	gx := GeneratorX()
	challenge := chainhash.TaggedHash(tagBIP340Challenge, gx, gx, sighash[:])

	var e secp256k1.ModNScalar
	e.SetBytes((*[32]byte)(challenge))
	var eBytes [32]byte
	e.PutBytes(&eBytes)

	signature := make([]byte, 0, 64)
	signature = append(signature, gx...)
	signature = append(signature, eBytes[:]...)
	return signature, nil
}

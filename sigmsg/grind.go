package sigmsg

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
)

// GrindField names the malleable transaction field varied during the
// grinding search.
type GrindField int

const (
	GrindLockTime GrindField = iota
	GrindSequence
)

func (f GrindField) String() string {
	if f == GrindSequence {
		return "sequence"
	}
	return "locktime"
}

// MaxGrindIterations bounds the grinding search. The trailing byte of the
// covenant-encoding signature is effectively uniform, so the search
// converges after a handful of iterations in expectation; hitting the bound
// means something else is wrong and the caller should retry with a
// different fee input.
const MaxGrindIterations = 100_000

// BIP68 sequence field layout.
const (
	SEQUENCE_LOCKTIME_MASK         = 0x0000ffff
	SEQUENCE_LOCKTIME_TYPE_FLAG    = 1 << 22
	SEQUENCE_LOCKTIME_DISABLE_FLAG = 1 << 31
)

var ErrGrindExhausted = fmt.Errorf(
	"grinding search exceeded %d iterations", MaxGrindIterations,
)

// GrindResult carries the adjusted transaction and the full component list
// the winning signature was computed from. The components are what the
// caller feeds back into ComputeSignatureFromComponents to rebuild the
// signature for the witness.
type GrindResult struct {
	Tx                  *wire.MsgTx
	SignatureComponents [][]byte
}

// GrindTransaction varies the given field of the transaction until the
// covenant-encoding signature's final byte survives the leaf's numeric
// increment check: the byte and its successor are pushed as single-byte
// script numbers, so only 0x01 through 0x7e qualify (0x00 is not the
// minimal encoding of zero, and from 0x7f on the incremented value no
// longer fits a single positive byte).
//
// Grinding the locktime relies on every input carrying the max sequence so
// the locktime is consensus-inert. Grinding the sequence only touches the
// BIP68-ignored bits of input 0, preserving the encoded relative delay and
// the type and disable flags.
func GrindTransaction(
	tx *wire.MsgTx,
	field GrindField,
	prevouts []*wire.TxOut,
	leafHash chainhash.Hash,
) (*GrindResult, error) {
	spec := DefaultTxCommitmentSpec()
	baseSequence := tx.TxIn[0].Sequence

	for counter := uint32(0); counter < MaxGrindIterations; counter++ {
		switch field {
		case GrindLockTime:
			tx.LockTime = counter
		case GrindSequence:
			sequence, err := grindableSequence(baseSequence, counter)
			if err != nil {
				return nil, err
			}
			tx.TxIn[0].Sequence = sequence
		}

		components, err := Components(
			spec, tx, 0, prevouts, nil, leafHash, txscript.SigHashDefault,
		)
		if err != nil {
			return nil, err
		}

		signature, err := ComputeSignatureFromComponents(components)
		if err != nil {
			return nil, err
		}

		if grindableFinalByte(signature[63]) {
			log.WithFields(log.Fields{
				"field":      field.String(),
				"iterations": counter + 1,
			}).Debug("grinding search converged")
			return &GrindResult{
				Tx:                  tx,
				SignatureComponents: components,
			}, nil
		}
	}

	return nil, ErrGrindExhausted
}

// grindableFinalByte reports whether the byte and its increment are both
// representable as minimally-encoded single-byte positive script numbers.
func grindableFinalByte(b byte) bool {
	return b > 0x00 && b < 0x7f
}

// grindableSequence spreads the counter over the sequence bits BIP68 leaves
// undefined: bits 16-21, then bits 23-30. Everything consensus-visible in
// the base sequence is preserved.
func grindableSequence(base, counter uint32) (uint32, error) {
	if counter >= 1<<14 {
		return 0, ErrGrindExhausted
	}
	low := counter & 0x3f
	high := counter >> 6

	kept := base & (SEQUENCE_LOCKTIME_MASK |
		SEQUENCE_LOCKTIME_TYPE_FLAG |
		SEQUENCE_LOCKTIME_DISABLE_FLAG)

	return kept | low<<16 | high<<23, nil
}

package vault

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"
)

// CTVHash computes the BIP119 default template hash of tx for the given
// spending input index: sha256 over version, locktime, input count, the
// sequences hash, output count, the outputs hash and the index. Scripts
// and witnesses are absent from every vault template, so the scriptSigs
// hash is omitted.
func CTVHash(tx *wire.MsgTx, inputIndex uint32) [32]byte {
	var seqBuf bytes.Buffer
	for _, in := range tx.TxIn {
		_ = binary.Write(&seqBuf, binary.LittleEndian, in.Sequence)
	}
	sequencesHash := sha256.Sum256(seqBuf.Bytes())

	var outBuf bytes.Buffer
	for _, out := range tx.TxOut {
		_ = wire.WriteTxOut(&outBuf, 0, 0, out)
	}
	outputsHash := sha256.Sum256(outBuf.Bytes())

	var msg bytes.Buffer
	_ = binary.Write(&msg, binary.LittleEndian, tx.Version)
	_ = binary.Write(&msg, binary.LittleEndian, tx.LockTime)
	_ = binary.Write(&msg, binary.LittleEndian, uint32(len(tx.TxIn)))
	msg.Write(sequencesHash[:])
	_ = binary.Write(&msg, binary.LittleEndian, uint32(len(tx.TxOut)))
	msg.Write(outputsHash[:])
	_ = binary.Write(&msg, binary.LittleEndian, inputIndex)

	return sha256.Sum256(msg.Bytes())
}

// ctvTriggerTemplate is the transaction shape a CTV deposit pre-commits
// to: two RBF-enabled inputs (vault outpoint plus a fee input) and a
// single output paying the whole vault amount to the trigger address. The
// outpoints themselves are unknown at commitment time and excluded from
// the hash.
func ctvTriggerTemplate(amount int64, triggerPkScript []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{Sequence: wire.MaxTxInSequenceNum - 2})
	tx.AddTxIn(&wire.TxIn{Sequence: wire.MaxTxInSequenceNum - 2})
	tx.AddTxOut(wire.NewTxOut(amount, triggerPkScript))
	return tx
}

// CTVTemplateHash returns the template hash the deposit leaf commits to
// for a vault of the given amount paying into the trigger output.
func CTVTemplateHash(amount int64, triggerPkScript []byte) [32]byte {
	return CTVHash(ctvTriggerTemplate(amount, triggerPkScript), 0)
}

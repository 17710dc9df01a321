package vault

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// inputChunkSize caps witness pushes carrying the serialized trigger
// inputs. Single pushes above 80 bytes get rejected by standardness
// policy.
const inputChunkSize = 80

func encodeAmount(value int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(value))
	return buf
}

// encodeScript consensus-encodes a script, varint length prefix included,
// so that CATting an amount onto it yields a serialized TxOut.
func encodeScript(script []byte) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarBytes(&buf, 0, script)
	return buf.Bytes()
}

func encodeOutPoint(op *wire.OutPoint) []byte {
	buf := make([]byte, 0, 36)
	buf = append(buf, op.Hash[:]...)
	return binary.LittleEndian.AppendUint32(buf, op.Index)
}

// encodeInputs consensus-encodes a transaction's inputs, count included,
// split into standardness-sized chunks.
func encodeInputs(tx *wire.MsgTx) [][]byte {
	var buf bytes.Buffer
	_ = wire.WriteVarInt(&buf, 0, uint64(len(tx.TxIn)))
	for _, in := range tx.TxIn {
		buf.Write(encodeOutPoint(&in.PreviousOutPoint))
		_ = wire.WriteVarBytes(&buf, 0, in.SignatureScript)
		var seq [4]byte
		binary.LittleEndian.PutUint32(seq[:], in.Sequence)
		buf.Write(seq[:])
	}

	raw := buf.Bytes()
	chunks := make([][]byte, 0, (len(raw)+inputChunkSize-1)/inputChunkSize)
	for len(raw) > inputChunkSize {
		chunks = append(chunks, raw[:inputChunkSize])
		raw = raw[inputChunkSize:]
	}
	return append(chunks, raw)
}

// signTapLeaf produces the vault key's schnorr signature over the
// transaction's first input for the given leaf script, SIGHASH_ALL, with
// the hash type byte appended.
func (c *Covenant) signTapLeaf(
	tx *wire.MsgTx, prevouts []*wire.TxOut, leafScript []byte,
) ([]byte, error) {
	prevoutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.TxIn {
		prevoutFetcher.AddPrevOut(in.PreviousOutPoint, prevouts[i])
	}

	preimage, err := txscript.CalcTapscriptSignaturehash(
		txscript.NewTxSigHashes(tx, prevoutFetcher),
		txscript.SigHashAll,
		tx,
		0,
		prevoutFetcher,
		txscript.NewBaseTapLeaf(leafScript),
	)
	if err != nil {
		return nil, err
	}

	sig, err := schnorr.Sign(c.privKey, preimage)
	if err != nil {
		return nil, err
	}

	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}

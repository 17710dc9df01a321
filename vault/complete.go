package vault

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/covenant-labs/vaultd/sigmsg"
)

// CreateCompleteTx builds the fully signed transaction finishing a CAT
// withdrawal after the timelock: the vault amount leaves to the target in
// a single output. The prevouts commitment is disabled and reconstructed
// in-script from the cached trigger transaction, whose pieces go into the
// witness, so the sequence field is ground instead of the locktime.
func (c *Covenant) CreateCompleteTx(
	feeOutpoint *wire.OutPoint,
	feeOutput *wire.TxOut,
	targetPkScript []byte,
	triggerTx *wire.MsgTx,
) (*wire.MsgTx, error) {
	outpoint, err := c.CurrentOutpoint()
	if err != nil {
		return nil, err
	}
	vaultPkScript, err := c.PkScript()
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(2)
	vaultIn := wire.NewTxIn(outpoint, nil, nil)
	vaultIn.Sequence = uint32(c.timelock)
	tx.AddTxIn(vaultIn)
	tx.AddTxIn(wire.NewTxIn(feeOutpoint, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(c.amount), targetPkScript))

	spendInfo, err := c.SpendInfo()
	if err != nil {
		return nil, err
	}
	proof, err := spendInfo.MerkleProof(LeafComplete)
	if err != nil {
		return nil, err
	}
	leafHash, err := spendInfo.LeafHash(LeafComplete)
	if err != nil {
		return nil, err
	}

	prevouts := []*wire.TxOut{
		wire.NewTxOut(int64(c.amount), vaultPkScript),
		feeOutput,
	}

	result, err := sigmsg.GrindTransaction(
		tx, sigmsg.GrindSequence, prevouts, leafHash,
	)
	if err != nil {
		return nil, err
	}
	tx = result.Tx

	spec := sigmsg.DefaultTxCommitmentSpec()
	spec.Prevouts = false
	spec.Outputs = false

	components, err := sigmsg.Components(
		spec, tx, 0, prevouts, nil, leafHash, txscript.SigHashDefault,
	)
	if err != nil {
		return nil, err
	}

	witness := wire.TxWitness{}
	witness = append(witness, components...)

	// trigger transaction pieces, outputs omitted: the leaf rebuilds them
	// from the vault and target scripts.
	version := make([]byte, 4)
	binary.LittleEndian.PutUint32(version, uint32(triggerTx.Version))
	witness = append(witness, version)

	witness = append(witness, encodeInputs(triggerTx)...)

	locktime := make([]byte, 4)
	binary.LittleEndian.PutUint32(locktime, triggerTx.LockTime)
	witness = append(witness, locktime)

	witness = append(witness, encodeScript(vaultPkScript))
	witness = append(witness, encodeAmount(int64(c.amount)))
	witness = append(witness, encodeScript(targetPkScript))
	witness = append(witness, encodeOutPoint(feeOutpoint))

	computed, err := sigmsg.ComputeSignatureFromComponents(
		result.SignatureComponents,
	)
	if err != nil {
		return nil, err
	}
	witness = append(witness, computed[:63])
	witness = append(witness, []byte{computed[63]})
	witness = append(witness, []byte{computed[63] + 1})

	sig, err := c.signTapLeaf(tx, prevouts, proof.Script)
	if err != nil {
		return nil, err
	}
	witness = append(witness, sig)

	witness = append(witness, proof.Script)
	witness = append(witness, proof.ControlBlock)

	tx.TxIn[0].Witness = witness
	return tx, nil
}

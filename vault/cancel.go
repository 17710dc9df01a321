package vault

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/covenant-labs/vaultd/sigmsg"
)

// CreateCancelTx builds the fully signed transaction aborting an
// in-flight withdrawal: the whole amount returns to the vault script in a
// single output. Works from either the deposit or the trigger output,
// with no timelock.
func (c *Covenant) CreateCancelTx(
	feeOutpoint *wire.OutPoint,
	feeOutput *wire.TxOut,
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
	tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))
	tx.AddTxIn(wire.NewTxIn(feeOutpoint, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(c.amount), vaultPkScript))

	spendInfo, err := c.SpendInfo()
	if err != nil {
		return nil, err
	}
	proof, err := spendInfo.MerkleProof(LeafCancel)
	if err != nil {
		return nil, err
	}
	leafHash, err := spendInfo.LeafHash(LeafCancel)
	if err != nil {
		return nil, err
	}

	prevouts := []*wire.TxOut{
		wire.NewTxOut(int64(c.amount), vaultPkScript),
		feeOutput,
	}

	result, err := sigmsg.GrindTransaction(
		tx, sigmsg.GrindLockTime, prevouts, leafHash,
	)
	if err != nil {
		return nil, err
	}
	tx = result.Tx

	spec := sigmsg.DefaultTxCommitmentSpec()
	spec.PrevAmounts = false
	spec.PrevScriptPubkeys = false
	spec.InputIndex = false
	spec.Outputs = false

	components, err := sigmsg.Components(
		spec, tx, 0, prevouts, nil, leafHash, txscript.SigHashDefault,
	)
	if err != nil {
		return nil, err
	}

	witness := wire.TxWitness{}
	witness = append(witness, components...)

	witness = append(witness, encodeAmount(int64(c.amount)))
	witness = append(witness, encodeScript(vaultPkScript))
	witness = append(witness, encodeAmount(feeOutput.Value))
	witness = append(witness, encodeScript(feeOutput.PkScript))

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

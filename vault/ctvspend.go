package vault

import (
	"github.com/btcsuite/btcd/wire"
)

// CreateCTVTriggerTx builds the transaction starting a CTV withdrawal. It
// is exactly the pre-committed template with the real outpoints filled in,
// and needs no signature: the deposit leaf's template check authorizes it.
func (c *Covenant) CreateCTVTriggerTx(feeOutpoint *wire.OutPoint) (*wire.MsgTx, error) {
	outpoint, err := c.CurrentOutpoint()
	if err != nil {
		return nil, err
	}

	tx := ctvTriggerTemplate(int64(c.amount), c.ctvTriggerPkScript)
	tx.TxIn[0].PreviousOutPoint = *outpoint
	tx.TxIn[1].PreviousOutPoint = *feeOutpoint

	spendInfo, err := c.ctvDepositSpendInfo()
	if err != nil {
		return nil, err
	}
	proof, err := spendInfo.MerkleProof(LeafDeposit)
	if err != nil {
		return nil, err
	}

	tx.TxIn[0].Witness = wire.TxWitness{proof.Script, proof.ControlBlock}
	return tx, nil
}

// CreateCTVCompleteTx builds the transaction finishing a CTV withdrawal
// after the timelock, paying the vault amount to targetPkScript under the
// vault key's signature.
func (c *Covenant) CreateCTVCompleteTx(
	feeOutpoint *wire.OutPoint,
	feeOutput *wire.TxOut,
	targetPkScript []byte,
) (*wire.MsgTx, error) {
	outpoint, err := c.CurrentOutpoint()
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(2)
	vaultIn := wire.NewTxIn(outpoint, nil, nil)
	vaultIn.Sequence = uint32(c.timelock)
	tx.AddTxIn(vaultIn)
	tx.AddTxIn(wire.NewTxIn(feeOutpoint, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(c.amount), targetPkScript))

	return c.signCTVTriggerSpend(tx, feeOutput, LeafComplete)
}

// CreateCTVCancelTx builds the transaction aborting a CTV withdrawal,
// returning the amount to the deposit address with no delay.
func (c *Covenant) CreateCTVCancelTx(
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

	return c.signCTVTriggerSpend(tx, feeOutput, LeafCancel)
}

// signCTVTriggerSpend signs a spend of the CTV trigger output through the
// named leaf and attaches the witness to input 0.
func (c *Covenant) signCTVTriggerSpend(
	tx *wire.MsgTx, feeOutput *wire.TxOut, leaf string,
) (*wire.MsgTx, error) {
	spendInfo, err := c.CTVTriggerSpendInfo()
	if err != nil {
		return nil, err
	}
	proof, err := spendInfo.MerkleProof(leaf)
	if err != nil {
		return nil, err
	}

	prevouts := []*wire.TxOut{
		wire.NewTxOut(int64(c.amount), c.ctvTriggerPkScript),
		feeOutput,
	}

	sig, err := c.signTapLeaf(tx, prevouts, proof.Script)
	if err != nil {
		return nil, err
	}

	tx.TxIn[0].Witness = wire.TxWitness{sig, proof.Script, proof.ControlBlock}
	return tx, nil
}

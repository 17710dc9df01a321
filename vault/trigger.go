package vault

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"

	"github.com/covenant-labs/vaultd/sigmsg"
)

// CreateTriggerTx builds the fully signed transaction starting a CAT
// withdrawal to targetPkScript. Output 0 pays the vault amount back to the
// vault script, output 1 is the 546-sat marker carrying the target. The
// locktime is ground until the covenant signature is incrementable, then
// the first input's witness is assembled: sighash components, auxiliary
// pushes for the pinned outputs, the mangled signature triple, the vault
// key's signature and the trigger leaf's merkle proof.
func (c *Covenant) CreateTriggerTx(
	feeOutpoint *wire.OutPoint,
	feeOutput *wire.TxOut,
	targetPkScript []byte,
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
	tx.AddTxOut(wire.NewTxOut(TriggerMarkerValue, targetPkScript))

	spendInfo, err := c.SpendInfo()
	if err != nil {
		return nil, err
	}
	proof, err := spendInfo.MerkleProof(LeafTrigger)
	if err != nil {
		return nil, err
	}
	leafHash, err := spendInfo.LeafHash(LeafTrigger)
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
	for _, component := range components {
		log.WithField("component", component).Trace("pushing sigmsg component")
		witness = append(witness, component)
	}

	witness = append(witness, encodeScript(targetPkScript))
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

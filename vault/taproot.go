package vault

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/covenant-labs/vaultd/common"
	"github.com/covenant-labs/vaultd/vaultscript"
)

// sha256 of the uncompressed generator encoding, lifted to an even-y
// point. Nobody holds its discrete log.
// 0250929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0
var unspendablePoint = []byte{
	0x02, 0x50, 0x92, 0x9b, 0x74, 0xc1, 0xa0, 0x49, 0x54, 0xb7, 0x8b, 0x4b, 0x60, 0x35, 0xe9, 0x7a,
	0x5e, 0x07, 0x8a, 0x5a, 0x0f, 0x28, 0xec, 0x96, 0xd5, 0x47, 0xbf, 0xee, 0x9a, 0xce, 0x80, 0x3a, 0xc0,
}

// UnspendableKey returns the internal taproot key used by every vault
// output. It has no known private key, forcing all spends through the
// script paths.
func UnspendableKey() *secp256k1.PublicKey {
	key, _ := secp256k1.ParsePubKey(unspendablePoint)
	return key
}

// TaprootMerkleProof pairs a leaf script with the serialized control block
// proving its membership in the vault's taproot tree.
type TaprootMerkleProof struct {
	ControlBlock []byte
	Script       []byte
}

// SpendInfo describes one fully assembled vault taproot output.
type SpendInfo struct {
	InternalKey *secp256k1.PublicKey
	OutputKey   *secp256k1.PublicKey
	Tree        *txscript.IndexedTapScriptTree
	Leaves      map[string][]byte
}

const (
	LeafTrigger  = "trigger"
	LeafComplete = "complete"
	LeafCancel   = "cancel"
	LeafDeposit  = "deposit"
)

func assembleSpendInfo(names []string, scripts [][]byte) (*SpendInfo, error) {
	leaves := make([]txscript.TapLeaf, 0, len(scripts))
	byName := make(map[string][]byte, len(scripts))
	for i, script := range scripts {
		leaves = append(leaves, txscript.NewBaseTapLeaf(script))
		byName[names[i]] = script
	}

	tree := txscript.AssembleTaprootScriptTree(leaves...)
	root := tree.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(UnspendableKey(), root[:])

	return &SpendInfo{
		InternalKey: UnspendableKey(),
		OutputKey:   outputKey,
		Tree:        tree,
		Leaves:      byName,
	}, nil
}

// CATSpendInfo assembles the CAT vault's deposit output: trigger, complete
// and cancel leaves under the unspendable internal key. The trigger leaf
// sits alone on its branch so the hot path gets the shortest proof.
func CATSpendInfo(pubkey *secp256k1.PublicKey, timelock uint16) (*SpendInfo, error) {
	completeScript, err := vaultscript.CompleteLeaf(pubkey, timelock)
	if err != nil {
		return nil, err
	}
	cancelScript, err := vaultscript.CancelLeaf(pubkey)
	if err != nil {
		return nil, err
	}
	triggerScript, err := vaultscript.TriggerLeaf(pubkey)
	if err != nil {
		return nil, err
	}

	return assembleSpendInfo(
		[]string{LeafComplete, LeafCancel, LeafTrigger},
		[][]byte{completeScript, cancelScript, triggerScript},
	)
}

// CTVDepositSpendInfo assembles the CTV vault's deposit output: a single
// leaf committing to the trigger template hash.
func CTVDepositSpendInfo(templateHash [32]byte) (*SpendInfo, error) {
	depositScript, err := vaultscript.CTVDepositLeaf(templateHash)
	if err != nil {
		return nil, err
	}
	return assembleSpendInfo(
		[]string{LeafDeposit},
		[][]byte{depositScript},
	)
}

// CTVTriggerSpendInfo assembles the output a CTV trigger transaction pays
// into: a delayed completion leaf and an immediate cancel leaf.
func CTVTriggerSpendInfo(pubkey *secp256k1.PublicKey, timelock uint16) (*SpendInfo, error) {
	completeScript, err := vaultscript.CTVCompleteLeaf(pubkey, timelock)
	if err != nil {
		return nil, err
	}
	cancelScript, err := vaultscript.CTVCancelLeaf(pubkey)
	if err != nil {
		return nil, err
	}
	return assembleSpendInfo(
		[]string{LeafComplete, LeafCancel},
		[][]byte{completeScript, cancelScript},
	)
}

// PkScript returns the v1 witness program paying this output.
func (s *SpendInfo) PkScript() ([]byte, error) {
	return txscript.PayToTaprootScript(s.OutputKey)
}

// Address renders the output as a bech32m address on the given network.
func (s *SpendInfo) Address(network common.Network) (string, error) {
	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(s.OutputKey), network.ChainParams(),
	)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// MerkleProof returns the named leaf's script together with its control
// block for script-path spending.
func (s *SpendInfo) MerkleProof(leaf string) (*TaprootMerkleProof, error) {
	script, ok := s.Leaves[leaf]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, leaf)
	}

	leafHash := txscript.NewBaseTapLeaf(script).TapHash()
	index, ok := s.Tree.LeafProofIndex[leafHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, leaf)
	}
	proof := s.Tree.LeafMerkleProofs[index]

	controlBlock := proof.ToControlBlock(s.InternalKey)
	controlBlockBytes, err := controlBlock.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrControlBlock, err)
	}

	return &TaprootMerkleProof{
		ControlBlock: controlBlockBytes,
		Script:       script,
	}, nil
}

// LeafHash returns the tap leaf hash of the named leaf.
func (s *SpendInfo) LeafHash(leaf string) (chainhash.Hash, error) {
	script, ok := s.Leaves[leaf]
	if !ok {
		return chainhash.Hash{}, fmt.Errorf("%w: %s", ErrLeafNotFound, leaf)
	}
	return txscript.NewBaseTapLeaf(script).TapHash(), nil
}

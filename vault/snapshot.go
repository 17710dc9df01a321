package vault

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/covenant-labs/vaultd/common"
)

// Snapshot is the serializable form of a covenant, exchanged with the
// store layer. Binary fields are hex strings so the same shape works for
// the JSON file store and the badger store.
type Snapshot struct {
	Name           string `json:"name" badgerhold:"key"`
	Type           string `json:"type"`
	State          int    `json:"state"`
	Amount         int64  `json:"amount"`
	Network        string `json:"network"`
	Timelock       uint16 `json:"timelock"`
	PrivateKey     string `json:"private_key"`
	OutpointTxid   string `json:"outpoint_txid,omitempty"`
	OutpointIndex  uint32 `json:"outpoint_index,omitempty"`
	HasOutpoint    bool   `json:"has_outpoint"`
	WithdrawalAddr string `json:"withdrawal_address,omitempty"`
	TriggerTx      string `json:"trigger_tx,omitempty"`
}

// Snapshot captures the covenant's full state under the given name.
func (c *Covenant) Snapshot(name string) (*Snapshot, error) {
	s := &Snapshot{
		Name:           name,
		Type:           c.vaultType.String(),
		State:          int(c.state),
		Amount:         int64(c.amount),
		Network:        c.network.Name,
		Timelock:       c.timelock,
		PrivateKey:     hex.EncodeToString(c.privKey.Serialize()),
		WithdrawalAddr: c.withdrawalAddr,
	}

	if c.currentOutpoint != nil {
		s.HasOutpoint = true
		s.OutpointTxid = c.currentOutpoint.Hash.String()
		s.OutpointIndex = c.currentOutpoint.Index
	}

	if c.triggerTx != nil {
		var buf bytes.Buffer
		if err := c.triggerTx.Serialize(&buf); err != nil {
			return nil, err
		}
		s.TriggerTx = hex.EncodeToString(buf.Bytes())
	}

	return s, nil
}

// FromSnapshot rebuilds a covenant from its stored form.
func FromSnapshot(s *Snapshot) (*Covenant, error) {
	vaultType, err := TypeFromString(s.Type)
	if err != nil {
		return nil, err
	}
	network, err := common.NetworkFromString(s.Network)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(s.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key encoding: %s", err)
	}

	c := &Covenant{
		amount:         btcutil.Amount(s.Amount),
		network:        network,
		timelock:       s.Timelock,
		vaultType:      vaultType,
		privKey:        secp256k1.PrivKeyFromBytes(keyBytes),
		state:          State(s.State),
		withdrawalAddr: s.WithdrawalAddr,
	}

	if vaultType == TypeCTV {
		triggerInfo, err := c.CTVTriggerSpendInfo()
		if err != nil {
			return nil, err
		}
		c.ctvTriggerPkScript, err = triggerInfo.PkScript()
		if err != nil {
			return nil, err
		}
	}

	if s.HasOutpoint {
		outpoint, err := wire.NewOutPointFromString(
			fmt.Sprintf("%s:%d", s.OutpointTxid, s.OutpointIndex),
		)
		if err != nil {
			return nil, fmt.Errorf("invalid outpoint: %s", err)
		}
		c.currentOutpoint = outpoint
	}

	if s.TriggerTx != "" {
		raw, err := hex.DecodeString(s.TriggerTx)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger tx encoding: %s", err)
		}
		tx := &wire.MsgTx{}
		if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
			return nil, err
		}
		c.triggerTx = tx
	}

	return c, nil
}

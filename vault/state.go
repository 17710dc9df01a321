package vault

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// TriggerMarkerValue is the fixed value of a trigger transaction's second
// output. The marker carries the withdrawal target script on chain so that
// the completion path can be reconstructed from the trigger alone.
const TriggerMarkerValue = 546

// State is the lifecycle phase of a vault.
type State int

const (
	// Inactive vaults hold funds at the deposit address with no pending
	// withdrawal.
	Inactive State = iota
	// Triggered vaults have a withdrawal in flight, waiting out the
	// relative timelock.
	Triggered
	// Completed vaults have paid out and hold nothing.
	Completed
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Triggered:
		return "triggered"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Type selects the covenant emulation scheme backing a vault.
type Type int

const (
	// TypeCAT grinds covenant-encoding signatures and verifies them with
	// an OP_CAT tapscript.
	TypeCAT Type = iota
	// TypeCTV pre-commits spending paths with template hashes.
	TypeCTV
)

func (t Type) String() string {
	switch t {
	case TypeCAT:
		return "cat"
	case TypeCTV:
		return "ctv"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// TypeFromString parses the wire form produced by Type.String.
func TypeFromString(s string) (Type, error) {
	switch s {
	case "cat":
		return TypeCAT, nil
	case "ctv":
		return TypeCTV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownVaultType, s)
	}
}

// ClassifyState infers the vault phase a confirmed spend of a vault output
// moved the covenant into, from the spending transaction's shape alone. A
// two-output transaction whose second output is the 546-sat marker is a
// trigger; a single foreign output is a completion; everything else pays
// the vault script again and leaves it inactive.
func ClassifyState(tx *wire.MsgTx, vaultScript []byte) State {
	if len(tx.TxOut) == 2 && tx.TxOut[1].Value == TriggerMarkerValue {
		return Triggered
	}
	if len(tx.TxOut) == 1 && !bytes.Equal(tx.TxOut[0].PkScript, vaultScript) {
		return Completed
	}
	return Inactive
}

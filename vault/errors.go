package vault

import "errors"

var (
	ErrNoCurrentOutpoint   = errors.New("vault has no current outpoint")
	ErrNoTriggerTx         = errors.New("vault has no cached trigger transaction")
	ErrNoWithdrawalAddress = errors.New("vault has no pending withdrawal address")
	ErrNotTriggered        = errors.New("vault is not in the triggered state")
	ErrUnspendableKey      = errors.New("failed to derive unspendable internal key")
	ErrControlBlock        = errors.New("failed to build control block for leaf")
	ErrLeafNotFound        = errors.New("leaf script not found in taproot tree")
	ErrUnknownVaultType    = errors.New("unknown vault type")
)

package vault

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/covenant-labs/vaultd/common"
)

// Covenant is a single vault instance: its on-chain location, lifecycle
// phase and the key authorizing its script paths. Phase transitions go
// through MarkInactive, MarkTriggered and MarkCompleted so that the
// optional fields can never disagree with the state.
type Covenant struct {
	amount          btcutil.Amount
	network         common.Network
	timelock        uint16
	vaultType       Type
	privKey         *secp256k1.PrivateKey
	state           State
	currentOutpoint *wire.OutPoint
	withdrawalAddr  string
	triggerTx       *wire.MsgTx

	// ctvTriggerPkScript caches the script the deposit template commits
	// to, fixed at creation time for CTV vaults.
	ctvTriggerPkScript []byte
}

// New creates an inactive CAT vault with a fresh random key. The amount is
// learned at deposit time.
func New(network common.Network, timelock uint16) (*Covenant, error) {
	privKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &Covenant{
		network:   network,
		timelock:  timelock,
		vaultType: TypeCAT,
		privKey:   privKey,
		state:     Inactive,
	}, nil
}

// NewCTV creates an inactive CTV vault. The amount must be known up front
// because the deposit leaf commits to the exact trigger template.
func NewCTV(network common.Network, timelock uint16, amount btcutil.Amount) (*Covenant, error) {
	privKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	c := &Covenant{
		amount:    amount,
		network:   network,
		timelock:  timelock,
		vaultType: TypeCTV,
		privKey:   privKey,
		state:     Inactive,
	}

	triggerInfo, err := c.CTVTriggerSpendInfo()
	if err != nil {
		return nil, err
	}
	c.ctvTriggerPkScript, err = triggerInfo.PkScript()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Covenant) Amount() btcutil.Amount  { return c.amount }
func (c *Covenant) Network() common.Network { return c.network }
func (c *Covenant) Timelock() uint16        { return c.timelock }
func (c *Covenant) Type() Type              { return c.vaultType }
func (c *Covenant) State() State            { return c.state }
func (c *Covenant) PublicKey() *secp256k1.PublicKey {
	return c.privKey.PubKey()
}

// PrivateKey exposes the vault key for signing the real script-path
// signatures.
func (c *Covenant) PrivateKey() *secp256k1.PrivateKey { return c.privKey }

// SetAmount records the deposited value of a CAT vault.
func (c *Covenant) SetAmount(amount btcutil.Amount) { c.amount = amount }

// CurrentOutpoint is the confirmed UTXO the vault currently controls.
func (c *Covenant) CurrentOutpoint() (*wire.OutPoint, error) {
	if c.currentOutpoint == nil {
		return nil, ErrNoCurrentOutpoint
	}
	return c.currentOutpoint, nil
}

// WithdrawalAddress is the destination of the in-flight withdrawal. Only
// set while the vault is triggered.
func (c *Covenant) WithdrawalAddress() (string, error) {
	if c.withdrawalAddr == "" {
		return "", ErrNoWithdrawalAddress
	}
	return c.withdrawalAddr, nil
}

// TriggerTx is the cached trigger transaction of an in-flight withdrawal.
// The CAT completion path re-serializes it into the witness.
func (c *Covenant) TriggerTx() (*wire.MsgTx, error) {
	if c.triggerTx == nil {
		return nil, ErrNoTriggerTx
	}
	return c.triggerTx, nil
}

// MarkInactive records that the vault holds the given confirmed outpoint
// with no withdrawal pending. Deposits and cancellations land here.
func (c *Covenant) MarkInactive(outpoint *wire.OutPoint) {
	c.currentOutpoint = outpoint
	c.withdrawalAddr = ""
	c.triggerTx = nil
	c.state = Inactive
}

// MarkTriggered records a confirmed trigger: the vault now controls the
// trigger transaction's first output and a withdrawal to addr is waiting
// out the timelock.
func (c *Covenant) MarkTriggered(outpoint *wire.OutPoint, addr string, triggerTx *wire.MsgTx) {
	c.currentOutpoint = outpoint
	c.withdrawalAddr = addr
	c.triggerTx = triggerTx
	c.state = Triggered
}

// MarkCompleted records a confirmed completion. The vault controls nothing
// afterwards and the trigger bookkeeping is cleared.
func (c *Covenant) MarkCompleted() {
	c.currentOutpoint = nil
	c.withdrawalAddr = ""
	c.triggerTx = nil
	c.state = Completed
}

// SpendInfo returns the taproot assembly of the vault's deposit output.
func (c *Covenant) SpendInfo() (*SpendInfo, error) {
	if c.vaultType == TypeCTV {
		return c.ctvDepositSpendInfo()
	}
	return CATSpendInfo(c.PublicKey(), c.timelock)
}

func (c *Covenant) ctvDepositSpendInfo() (*SpendInfo, error) {
	hash := CTVTemplateHash(int64(c.amount), c.ctvTriggerPkScript)
	return CTVDepositSpendInfo(hash)
}

// CTVTriggerSpendInfo returns the taproot assembly of the output a CTV
// trigger pays into.
func (c *Covenant) CTVTriggerSpendInfo() (*SpendInfo, error) {
	return CTVTriggerSpendInfo(c.PublicKey(), c.timelock)
}

// Address is the vault's deposit address.
func (c *Covenant) Address() (string, error) {
	info, err := c.SpendInfo()
	if err != nil {
		return "", err
	}
	return info.Address(c.network)
}

// PkScript is the vault deposit output's script.
func (c *Covenant) PkScript() ([]byte, error) {
	info, err := c.SpendInfo()
	if err != nil {
		return nil, err
	}
	return info.PkScript()
}

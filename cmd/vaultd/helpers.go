package main

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/urfave/cli/v2"

	"github.com/covenant-labs/vaultd/internal/config"
	"github.com/covenant-labs/vaultd/internal/node"
	"github.com/covenant-labs/vaultd/store"
	"github.com/covenant-labs/vaultd/store/badgerstore"
	"github.com/covenant-labs/vaultd/store/filestore"
	"github.com/covenant-labs/vaultd/vault"
)

var (
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "name of the vault to operate on",
		Value: "default",
	}
	timelockFlag = cli.UintFlag{
		Name:  "timelock",
		Usage: "withdrawal delay in blocks, overrides the configured default",
	}
	amountFlag = cli.Int64Flag{
		Name:     "amount",
		Usage:    "vault amount in satoshis",
		Required: true,
	}
	outpointFlag = cli.StringFlag{
		Name:     "outpoint",
		Usage:    "deposit outpoint as txid:vout",
		Required: true,
	}
	feeOutpointFlag = cli.StringFlag{
		Name:     "fee-outpoint",
		Usage:    "confirmed outpoint spent to pay fees, as txid:vout",
		Required: true,
	}
	toFlag = cli.StringFlag{
		Name:     "to",
		Usage:    "withdrawal destination address",
		Required: true,
	}
)

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreType == "badger" {
		return badgerstore.NewVaultStore(cfg.Datadir, nil)
	}
	return filestore.NewVaultStore(cfg.Datadir)
}

func loadCovenant(ctx *cli.Context) (*vault.Covenant, store.Store, error) {
	cfg := getConfig(ctx)
	vaultStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := vaultStore.Get(ctx.Context, ctx.String("name"))
	if err != nil {
		vaultStore.Close()
		return nil, nil, err
	}
	covenant, err := vault.FromSnapshot(snapshot)
	if err != nil {
		vaultStore.Close()
		return nil, nil, err
	}
	return covenant, vaultStore, nil
}

func saveCovenant(ctx *cli.Context, vaultStore store.Store, covenant *vault.Covenant) error {
	snapshot, err := covenant.Snapshot(ctx.String("name"))
	if err != nil {
		return err
	}
	return vaultStore.Save(ctx.Context, snapshot)
}

func connectNode(ctx *cli.Context) (*node.Client, error) {
	cfg := getConfig(ctx)
	return node.Connect(cfg.RpcHost, cfg.RpcUser, cfg.RpcPass)
}

func parseOutpoint(s string) (*wire.OutPoint, error) {
	outpoint, err := wire.NewOutPointFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid outpoint %q: %s", s, err)
	}
	return outpoint, nil
}

// feeSource resolves the fee outpoint against the node so builders know
// the value and script being spent.
func feeSource(ctx *cli.Context, rpc *node.Client) (*wire.OutPoint, *wire.TxOut, error) {
	outpoint, err := parseOutpoint(ctx.String("fee-outpoint"))
	if err != nil {
		return nil, nil, err
	}
	output, err := rpc.FetchOutput(outpoint)
	if err != nil {
		return nil, nil, err
	}
	return outpoint, output, nil
}

func addressScript(ctx *cli.Context, addr string) ([]byte, error) {
	cfg := getConfig(ctx)
	decoded, err := btcutil.DecodeAddress(addr, cfg.Network.ChainParams())
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %s", addr, err)
	}
	return txscript.PayToAddrScript(decoded)
}

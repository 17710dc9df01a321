package main

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/urfave/cli/v2"

	"github.com/covenant-labs/vaultd/vault"
)

var ctvTriggerCommand = cli.Command{
	Name:   "ctv-trigger",
	Usage:  "start a withdrawal from a template-based vault",
	Action: ctvTriggerAction,
	Flags:  []cli.Flag{&nameFlag, &feeOutpointFlag},
}

var ctvCompleteCommand = cli.Command{
	Name:   "ctv-complete",
	Usage:  "finish a triggered template-based withdrawal after the timelock",
	Action: ctvCompleteAction,
	Flags:  []cli.Flag{&nameFlag, &feeOutpointFlag, &toFlag},
}

var ctvCancelCommand = cli.Command{
	Name:   "ctv-cancel",
	Usage:  "abort a triggered template-based withdrawal",
	Action: ctvCancelAction,
	Flags:  []cli.Flag{&nameFlag, &feeOutpointFlag},
}

func ctvTriggerAction(ctx *cli.Context) error {
	covenant, vaultStore, err := loadCovenant(ctx)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	rpc, err := connectNode(ctx)
	if err != nil {
		return err
	}
	defer rpc.Close()

	feeOutpoint, err := parseOutpoint(ctx.String("fee-outpoint"))
	if err != nil {
		return err
	}

	tx, err := covenant.CreateCTVTriggerTx(feeOutpoint)
	if err != nil {
		return err
	}
	txid, err := rpc.Broadcast(tx)
	if err != nil {
		return err
	}

	covenant.MarkTriggered(wire.NewOutPoint(txid, 0), "", tx)
	if err := saveCovenant(ctx, vaultStore, covenant); err != nil {
		return err
	}

	fmt.Printf("withdrawal triggered: %s\n", txid)
	return nil
}

func ctvCompleteAction(ctx *cli.Context) error {
	covenant, vaultStore, err := loadCovenant(ctx)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	if covenant.State() != vault.Triggered {
		return vault.ErrNotTriggered
	}

	rpc, err := connectNode(ctx)
	if err != nil {
		return err
	}
	defer rpc.Close()

	feeOutpoint, feeOutput, err := feeSource(ctx, rpc)
	if err != nil {
		return err
	}
	targetPkScript, err := addressScript(ctx, ctx.String("to"))
	if err != nil {
		return err
	}

	tx, err := covenant.CreateCTVCompleteTx(feeOutpoint, feeOutput, targetPkScript)
	if err != nil {
		return err
	}
	txid, err := rpc.Broadcast(tx)
	if err != nil {
		return err
	}

	covenant.MarkCompleted()
	if err := saveCovenant(ctx, vaultStore, covenant); err != nil {
		return err
	}

	fmt.Printf("withdrawal completed: %s\n", txid)
	return nil
}

func ctvCancelAction(ctx *cli.Context) error {
	covenant, vaultStore, err := loadCovenant(ctx)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	rpc, err := connectNode(ctx)
	if err != nil {
		return err
	}
	defer rpc.Close()

	feeOutpoint, feeOutput, err := feeSource(ctx, rpc)
	if err != nil {
		return err
	}

	tx, err := covenant.CreateCTVCancelTx(feeOutpoint, feeOutput)
	if err != nil {
		return err
	}
	txid, err := rpc.Broadcast(tx)
	if err != nil {
		return err
	}

	covenant.MarkInactive(wire.NewOutPoint(txid, 0))
	if err := saveCovenant(ctx, vaultStore, covenant); err != nil {
		return err
	}

	fmt.Printf("withdrawal cancelled: %s\n", txid)
	return nil
}

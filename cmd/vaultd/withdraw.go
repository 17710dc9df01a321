package main

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/urfave/cli/v2"

	"github.com/covenant-labs/vaultd/vault"
)

var triggerCommand = cli.Command{
	Name:   "trigger",
	Usage:  "start a withdrawal from the vault",
	Action: triggerAction,
	Flags:  []cli.Flag{&nameFlag, &feeOutpointFlag, &toFlag},
}

var completeCommand = cli.Command{
	Name:   "complete",
	Usage:  "finish a triggered withdrawal once the timelock has passed",
	Action: completeAction,
	Flags:  []cli.Flag{&nameFlag, &feeOutpointFlag},
}

var cancelCommand = cli.Command{
	Name:   "cancel",
	Usage:  "abort a triggered withdrawal, returning funds to the vault",
	Action: cancelAction,
	Flags:  []cli.Flag{&nameFlag, &feeOutpointFlag},
}

func triggerAction(ctx *cli.Context) error {
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
	targetPkScript, err := addressScript(ctx, ctx.String("to"))
	if err != nil {
		return err
	}

	tx, err := covenant.CreateTriggerTx(feeOutpoint, feeOutput, targetPkScript)
	if err != nil {
		return err
	}
	txid, err := rpc.Broadcast(tx)
	if err != nil {
		return err
	}

	covenant.MarkTriggered(
		wire.NewOutPoint(txid, 0), ctx.String("to"), tx,
	)
	if err := saveCovenant(ctx, vaultStore, covenant); err != nil {
		return err
	}

	fmt.Printf("withdrawal triggered: %s\n", txid)
	return nil
}

func completeAction(ctx *cli.Context) error {
	covenant, vaultStore, err := loadCovenant(ctx)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	if covenant.State() != vault.Triggered {
		return vault.ErrNotTriggered
	}
	triggerTx, err := covenant.TriggerTx()
	if err != nil {
		return err
	}
	withdrawalAddr, err := covenant.WithdrawalAddress()
	if err != nil {
		return err
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
	targetPkScript, err := addressScript(ctx, withdrawalAddr)
	if err != nil {
		return err
	}

	tx, err := covenant.CreateCompleteTx(
		feeOutpoint, feeOutput, targetPkScript, triggerTx,
	)
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

func cancelAction(ctx *cli.Context) error {
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

	tx, err := covenant.CreateCancelTx(feeOutpoint, feeOutput)
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

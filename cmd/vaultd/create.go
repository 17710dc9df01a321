package main

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"

	"github.com/covenant-labs/vaultd/vault"
)

var createCommand = cli.Command{
	Name:   "create",
	Usage:  "create a new vault and print its deposit address",
	Action: createAction,
	Flags:  []cli.Flag{&nameFlag, &timelockFlag},
}

var createCTVCommand = cli.Command{
	Name:   "create-ctv",
	Usage:  "create a new template-based vault for a fixed amount",
	Action: createCTVAction,
	Flags:  []cli.Flag{&nameFlag, &timelockFlag, &amountFlag},
}

func createAction(ctx *cli.Context) error {
	cfg := getConfig(ctx)

	timelock := cfg.Timelock
	if ctx.IsSet("timelock") {
		timelock = uint16(ctx.Uint("timelock"))
	}

	covenant, err := vault.New(cfg.Network, timelock)
	if err != nil {
		return err
	}
	return printNewVault(ctx, covenant)
}

func createCTVAction(ctx *cli.Context) error {
	cfg := getConfig(ctx)

	timelock := cfg.Timelock
	if ctx.IsSet("timelock") {
		timelock = uint16(ctx.Uint("timelock"))
	}

	covenant, err := vault.NewCTV(
		cfg.Network, timelock, btcutil.Amount(ctx.Int64("amount")),
	)
	if err != nil {
		return err
	}
	return printNewVault(ctx, covenant)
}

func printNewVault(ctx *cli.Context, covenant *vault.Covenant) error {
	cfg := getConfig(ctx)
	vaultStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	if err := saveCovenant(ctx, vaultStore, covenant); err != nil {
		return err
	}

	addr, err := covenant.Address()
	if err != nil {
		return err
	}
	fmt.Printf("vault %q created, deposit to: %s\n", ctx.String("name"), addr)
	return nil
}

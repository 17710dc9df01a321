package main

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var addressCommand = cli.Command{
	Name:   "address",
	Usage:  "print the vault's deposit address",
	Action: addressAction,
	Flags:  []cli.Flag{&nameFlag},
}

var depositCommand = cli.Command{
	Name:   "deposit",
	Usage:  "record a confirmed deposit into the vault",
	Action: depositAction,
	Flags:  []cli.Flag{&nameFlag, &outpointFlag, &amountFlag},
}

var statusCommand = cli.Command{
	Name:   "status",
	Usage:  "print the vault's state",
	Action: statusAction,
	Flags:  []cli.Flag{&nameFlag},
}

func addressAction(ctx *cli.Context) error {
	covenant, vaultStore, err := loadCovenant(ctx)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	addr, err := covenant.Address()
	if err != nil {
		return err
	}
	fmt.Println(addr)
	return nil
}

func depositAction(ctx *cli.Context) error {
	covenant, vaultStore, err := loadCovenant(ctx)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	outpoint, err := parseOutpoint(ctx.String("outpoint"))
	if err != nil {
		return err
	}

	covenant.SetAmount(btcutil.Amount(ctx.Int64("amount")))
	covenant.MarkInactive(outpoint)
	return saveCovenant(ctx, vaultStore, covenant)
}

func statusAction(ctx *cli.Context) error {
	covenant, vaultStore, err := loadCovenant(ctx)
	if err != nil {
		return err
	}
	defer vaultStore.Close()

	status := map[string]interface{}{
		"name":     ctx.String("name"),
		"type":     covenant.Type().String(),
		"state":    covenant.State().String(),
		"network":  covenant.Network().Name,
		"amount":   int64(covenant.Amount()),
		"timelock": covenant.Timelock(),
	}
	if outpoint, err := covenant.CurrentOutpoint(); err == nil {
		status["outpoint"] = outpoint.String()
	}
	if addr, err := covenant.WithdrawalAddress(); err == nil {
		status["withdrawal_address"] = addr
	}

	buf, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

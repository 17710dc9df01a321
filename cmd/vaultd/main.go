package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/covenant-labs/vaultd/internal/config"
)

var version = "alpha"

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "vaultd"
	app.Usage = "Command line interface for taproot vault covenants"
	app.Commands = append(
		app.Commands,
		&createCommand,
		&createCTVCommand,
		&addressCommand,
		&depositCommand,
		&statusCommand,
		&triggerCommand,
		&completeCommand,
		&cancelCommand,
		&ctvTriggerCommand,
		&ctvCompleteCommand,
		&ctvCancelCommand,
	)

	app.Before = func(ctx *cli.Context) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		log.SetLevel(log.Level(cfg.LogLevel))
		ctx.App.Metadata = map[string]interface{}{"config": cfg}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

func getConfig(ctx *cli.Context) *config.Config {
	return ctx.App.Metadata["config"].(*config.Config)
}

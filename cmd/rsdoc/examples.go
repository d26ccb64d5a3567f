package main

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/urfave/cli/v3"
)

//go:embed example_config.toml
var exampleConfig string

func exampleConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "example-config",
		Usage: "print an example rsdoc.toml",
		Description: "Print a commented config file with every option at its default.\n\n" +
			"Examples:\n" +
			"  rsdoc example-config > rsdoc.toml",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, err := fmt.Fprint(cmd.Root().Writer, exampleConfig)
			return err
		},
	}
}

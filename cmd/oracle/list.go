package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/domain"
)

var list = cli.Command{
	Name:   "list",
	Usage:  "list the configured symbols",
	Flags:  []cli.Flag{assetTypeFlag("all")},
	Action: listAction,
}

func listAction(c *cli.Context) error {
	classes := domain.AssetClasses
	if at := c.String("asset-type"); at != "all" {
		class, err := domain.ParseAssetClass(at)
		if err != nil {
			return err
		}
		classes = []domain.AssetClass{class}
	}
	oracle, err := loadOracle(c)
	if err != nil {
		return err
	}
	for i, class := range classes {
		if i > 0 {
			fmt.Fprintln(c.App.Writer)
		}
		printSymbols(c, oracle, class)
	}
	return nil
}

func printSymbols(c *cli.Context, oracle *application.SharedOracle, class domain.AssetClass) {
	fmt.Fprintf(c.App.Writer, "%s:\n", class)
	for _, s := range oracle.GetSymbols(class) {
		fmt.Fprintf(c.App.Writer, "  %s\n", s)
	}
}

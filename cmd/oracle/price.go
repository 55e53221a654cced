package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"priceoracle-service/internal/domain"
)

var price = cli.Command{
	Name:      "price",
	Usage:     "fetch the current price of one symbol",
	ArgsUsage: "SYMBOL",
	Flags:     []cli.Flag{assetTypeFlag("crypto")},
	Action:    priceAction,
}

func priceAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one SYMBOL, got %d arguments", c.NArg())
	}
	class, err := domain.ParseAssetClass(c.String("asset-type"))
	if err != nil {
		return err
	}
	oracle, err := loadOracle(c)
	if err != nil {
		return err
	}
	rec, err := oracle.GetPrice(c.Context, class, c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, rec)
}

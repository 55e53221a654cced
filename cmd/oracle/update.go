package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var update = cli.Command{
	Name:   "update",
	Usage:  "refresh every configured symbol once and print the price table",
	Action: updateAction,
}

func updateAction(c *cli.Context) error {
	oracle, err := loadOracle(c)
	if err != nil {
		return err
	}
	n := oracle.UpdateAllPrices(c.Context)
	fmt.Fprintf(c.App.Writer, "updated %d prices\n\n", n)
	return oracle.FormatTable(c.App.Writer)
}

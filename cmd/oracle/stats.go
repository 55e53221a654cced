package main

import "github.com/urfave/cli/v2"

var stats = cli.Command{
	Name:   "stats",
	Usage:  "refresh all prices and print cache statistics",
	Action: statsAction,
}

func statsAction(c *cli.Context) error {
	oracle, err := loadOracle(c)
	if err != nil {
		return err
	}
	oracle.UpdateAllPrices(c.Context)
	return printJSON(c.App.Writer, oracle.Statistics())
}

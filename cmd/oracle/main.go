package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"priceoracle-service/internal/application"
	"priceoracle-service/internal/bootstrap"
	"priceoracle-service/internal/config"
)

func init() { _ = godotenv.Load() }

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the JSON config file",
		EnvVars: []string{"CONFIG_FILE"},
	}
	fakeFlag = &cli.BoolFlag{
		Name:  "fake",
		Usage: "serve synthetic prices instead of calling providers",
	}
)

func assetTypeFlag(def string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "asset-type",
		Aliases: []string{"a"},
		Value:   def,
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "oracle"
	app.Usage = "query crypto and stock prices across multiple providers"
	app.Flags = []cli.Flag{configFlag, fakeFlag}
	app.Commands = []*cli.Command{&price, &list, &stats, &update}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[oracle] %v\n", err)
		os.Exit(1)
	}
}

func loadOracle(c *cli.Context) (*application.SharedOracle, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if c.Bool(fakeFlag.Name) {
		cfg.Runtime.Provider = "fake"
	}
	log := bootstrap.ProvideLogger()
	client := bootstrap.ProvideHTTPClient(log, cfg)
	return bootstrap.ProvideOracle(log, cfg, bootstrap.ProvidePriceProviders(log, cfg, client), bootstrap.ProvideMetrics())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

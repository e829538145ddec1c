// pricectl collects GPU offer catalogs into the price store and queries the
// stored history.
//
// Usage:
//
//	pricectl collect --catalog-url https://example.com/catalog.json --stats
//	pricectl latest --provider aws
//	pricectl history --instance-type p3.2xlarge --days 14
//	pricectl export --output prices.xlsx
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"gpuprices/pkg/config"
	"gpuprices/pkg/logger"
)

const metaConfig = "config"

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "pricectl",
		Usage:     "GPU price history store",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database file, overrides the configured store",
				EnvVars: []string{"GPUPRICES_DB"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			collectCommand(),
			latestCommand(),
			historyCommand(),
			trendsCommand(),
			snapshotsCommand(),
			statsCommand(),
			dealsCommand(),
			reportCommand(),
			exportCommand(),
		},
	}
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if db := c.String("db"); db != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.Path = db
		cfg.Store.DSN = ""
	}

	logCfg := cfg.Logger
	logCfg.Level = c.String("log-level")
	logCfg.Output = "console"
	if err := logger.Init(logCfg); err != nil {
		return err
	}

	c.App.Metadata = map[string]interface{}{metaConfig: cfg}
	return nil
}

func appConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

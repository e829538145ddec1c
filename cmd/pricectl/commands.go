package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"gpuprices/internal/collector"
	"gpuprices/internal/service"
	"gpuprices/pkg/store/database"
)

type stores struct {
	repo      *database.Repository
	query     *service.QueryService
	ingestion *service.IngestionService
}

// withStore opens the configured store for the duration of fn
func withStore(c *cli.Context, fn func(ctx context.Context, s *stores) error) error {
	repo, err := database.NewRepository(appConfig(c).Store)
	if err != nil {
		return err
	}
	defer repo.Close()

	return fn(c.Context, &stores{
		repo:      repo,
		query:     service.NewQueryService(repo),
		ingestion: service.NewIngestionService(repo),
	})
}

func daysFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "days",
		Aliases: []string{"d"},
		Usage:   "Window in days (0 uses the query default)",
	}
}

func providerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "provider",
		Usage: "Filter by provider",
	}
}

func collectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Fetch the offer catalog and store it as a new snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "catalog-url", Usage: "Catalog endpoint (JSON array or CSV)"},
			&cli.IntFlag{Name: "min-gpu-memory", Usage: "Minimum GPU memory in GB"},
			&cli.IntFlag{Name: "min-cpu", Usage: "Minimum vCPUs"},
			&cli.Float64Flag{Name: "max-price", Usage: "Maximum price per hour (USD)"},
			&cli.StringFlag{Name: "gpu-name", Usage: "Only this GPU model"},
			providerFlag(),
			&cli.TimestampFlag{Name: "observed-at", Layout: time.RFC3339, Usage: "Snapshot timestamp (default now)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the collected offers without storing them"},
			&cli.BoolFlag{Name: "stats", Usage: "Print store statistics after collecting"},
		},
		Action: runCollect,
	}
}

func runCollect(c *cli.Context) error {
	cfg := appConfig(c).Collector
	if v := c.String("catalog-url"); v != "" {
		cfg.CatalogURL = v
	}
	if c.IsSet("min-gpu-memory") {
		cfg.Filters.MinGPUMemoryGB = c.Int("min-gpu-memory")
	}
	if c.IsSet("min-cpu") {
		cfg.Filters.MinCPU = c.Int("min-cpu")
	}
	if c.IsSet("max-price") {
		cfg.Filters.MaxPrice = c.Float64("max-price")
	}
	if c.IsSet("gpu-name") {
		cfg.Filters.GPUName = c.String("gpu-name")
	}
	if c.IsSet("provider") {
		cfg.Filters.Provider = c.String("provider")
	}

	col, err := collector.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("%w (use --catalog-url)", err)
	}
	records, report, err := col.Collect(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "fetched %d offers, %d mapped, %d failed, %d filtered out\n",
		report.Fetched, report.Mapped, report.Failed, report.Filtered)

	if c.Bool("dry-run") {
		return printList(c, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(c.App.ErrWriter, "nothing to store")
		return nil
	}

	var observedAt time.Time
	if ts := c.Timestamp("observed-at"); ts != nil {
		observedAt = *ts
	}

	return withStore(c, func(ctx context.Context, s *stores) error {
		result, err := s.ingestion.Ingest(ctx, records, observedAt)
		if err != nil {
			return err
		}
		if err := printJSON(c, result); err != nil {
			return err
		}
		if !c.Bool("stats") {
			return nil
		}
		stats, err := s.query.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(c, stats)
	})
}

func latestCommand() *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Show the most recent snapshot",
		Flags: []cli.Flag{providerFlag()},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *stores) error {
				records, err := s.query.LatestPrices(ctx, c.String("provider"))
				if err != nil {
					return err
				}
				return printList(c, records)
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the price history of one instance configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "instance-type", Aliases: []string{"i"}, Required: true},
			&cli.StringFlag{Name: "provider", Required: true},
			&cli.StringFlag{Name: "region", Required: true},
			daysFlag(),
		},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *stores) error {
				points, err := s.query.PriceHistory(ctx, c.String("instance-type"), c.String("provider"), c.String("region"), c.Int("days"))
				if err != nil {
					return err
				}
				return printList(c, points)
			})
		},
	}
}

func trendsCommand() *cli.Command {
	return &cli.Command{
		Name:  "trends",
		Usage: "Show per-snapshot price aggregates",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "gpu-type", Aliases: []string{"g"}},
			providerFlag(),
			daysFlag(),
		},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *stores) error {
				points, err := s.query.PriceTrends(ctx, c.String("gpu-type"), c.String("provider"), c.Int("days"))
				if err != nil {
					return err
				}
				return printList(c, points)
			})
		},
	}
}

func snapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshots",
		Usage: "List snapshot summaries",
		Flags: []cli.Flag{daysFlag()},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *stores) error {
				summaries, err := s.query.Snapshots(ctx, c.Int("days"))
				if err != nil {
					return err
				}
				return printList(c, summaries)
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show global store statistics",
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *stores) error {
				stats, err := s.query.Stats(ctx)
				if err != nil {
					return err
				}
				if stats.IsEmpty() {
					fmt.Fprintln(c.App.ErrWriter, noData)
				}
				return printJSON(c, stats)
			})
		},
	}
}

func dealsCommand() *cli.Command {
	return &cli.Command{
		Name:  "deals",
		Usage: "Show the cheapest offers per GPU in the latest snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "gpu-type", Aliases: []string{"g"}, Usage: "GPU type substring"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: service.DefaultBestDealLimit},
		},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *stores) error {
				deals, err := s.query.BestDeals(ctx, c.String("gpu-type"), c.Int("limit"))
				if err != nil {
					return err
				}
				return printList(c, deals)
			})
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Summaries of the latest snapshot",
		Subcommands: []*cli.Command{
			{
				Name:  "by-gpu",
				Usage: "Offers grouped by GPU type",
				Action: func(c *cli.Context) error {
					return withStore(c, func(ctx context.Context, s *stores) error {
						groups, err := s.query.LatestByGPU(ctx)
						if err != nil {
							return err
						}
						return printList(c, groups)
					})
				},
			},
			{
				Name:  "providers",
				Usage: "Per-provider summary",
				Action: func(c *cli.Context) error {
					return withStore(c, func(ctx context.Context, s *stores) error {
						summaries, err := s.query.ProviderSummary(ctx)
						if err != nil {
							return err
						}
						return printList(c, summaries)
					})
				},
			},
			{
				Name:  "availability",
				Usage: "Per-region availability",
				Action: func(c *cli.Context) error {
					return withStore(c, func(ctx context.Context, s *stores) error {
						regions, err := s.query.AvailabilitySummary(ctx)
						if err != nil {
							return err
						}
						return printList(c, regions)
					})
				},
			},
			{
				Name:  "gpus",
				Usage: "Per-GPU price summary",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "include-unknown", Usage: "Keep offers whose GPU could not be identified"},
				},
				Action: func(c *cli.Context) error {
					return withStore(c, func(ctx context.Context, s *stores) error {
						summaries, err := s.query.GPUSummary(ctx, !c.Bool("include-unknown"))
						if err != nil {
							return err
						}
						return printList(c, summaries)
					})
				},
			},
		},
	}
}

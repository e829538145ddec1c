package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/xuri/excelize/v2"

	"gpuprices/internal/model"
)

const (
	sheetLatest    = "Latest"
	sheetSnapshots = "Snapshots"
	sheetProviders = "Providers"
)

var (
	latestHeader = []interface{}{
		"observed_at", "provider", "instance_type", "gpu_type", "gpu_count", "gpu_memory_gb",
		"vcpus", "ram_gb", "region", "price_per_hour", "price_per_gpu_hour", "is_spot", "available",
	}
	snapshotHeader = []interface{}{
		"observed_at", "total_instances", "providers_count", "gpu_types_count", "min_price", "max_price", "avg_price",
	}
	providerHeader = []interface{}{
		"provider", "instances", "gpu_types", "min_price", "max_price", "avg_price",
	}
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the latest snapshot, snapshot summaries and provider summary to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "gpu_prices.xlsx"},
			daysFlag(),
		},
		Action: func(c *cli.Context) error {
			return withStore(c, func(ctx context.Context, s *stores) error {
				latest, err := s.query.LatestPrices(ctx, "")
				if err != nil {
					return err
				}
				snapshots, err := s.query.Snapshots(ctx, c.Int("days"))
				if err != nil {
					return err
				}
				providers, err := s.query.ProviderSummary(ctx)
				if err != nil {
					return err
				}
				if len(latest) == 0 {
					fmt.Fprintln(c.App.ErrWriter, noData)
				}

				path := c.String("output")
				if err := writeWorkbook(path, latest, snapshots, providers); err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "wrote %d offers, %d snapshots to %s\n", len(latest), len(snapshots), path)
				return nil
			})
		},
	}
}

// writeWorkbook writes one sheet per dataset, header row first
func writeWorkbook(path string, latest []model.PriceRecord, snapshots []model.SnapshotSummary, providers []model.ProviderSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetLatest); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(latest))
	for _, r := range latest {
		rows = append(rows, []interface{}{
			r.ObservedAt.UTC().Format(time.RFC3339), r.Provider, r.InstanceType, r.GPUType, r.GPUCount,
			optional(r.GPUMemoryGB), r.VCPUs, r.RAMGB, r.Region, r.PricePerHour, r.PricePerGPUHour(),
			optional(r.IsSpot), optional(r.Available),
		})
	}
	if err := writeSheet(f, sheetLatest, latestHeader, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, s := range snapshots {
		rows = append(rows, []interface{}{
			s.ObservedAt.UTC().Format(time.RFC3339), s.TotalInstances, s.ProvidersCount, s.GPUTypesCount,
			s.MinPrice, s.MaxPrice, s.AvgPrice,
		})
	}
	if err := writeSheet(f, sheetSnapshots, snapshotHeader, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, p := range providers {
		rows = append(rows, []interface{}{p.Provider, p.Instances, p.GPUTypes, p.MinPrice, p.MaxPrice, p.AvgPrice})
	}
	if err := writeSheet(f, sheetProviders, providerHeader, rows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if idx, err := f.GetSheetIndex(sheet); err != nil {
		return err
	} else if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func optional[T any](v *T) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

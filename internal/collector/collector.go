package collector

import (
	"context"
	"errors"

	"gpuprices/internal/model"
	"gpuprices/pkg/config"
	"gpuprices/pkg/logger"
)

// Source yields raw catalog items
type Source interface {
	Fetch(ctx context.Context) ([]map[string]interface{}, error)
}

// Report counts what happened to the catalog items of one collection run
type Report struct {
	Fetched  int                      `json:"fetched"`
	Mapped   int                      `json:"mapped"`
	Failed   int                      `json:"failed"`
	Filtered int                      `json:"filtered"`
	Errors   []*model.ValidationError `json:"errors,omitempty"`
}

// Collector turns a raw catalog into price records ready for ingestion
type Collector struct {
	source Source
	filter Filter
}

// NewCollector creates a collector reading from source
func NewCollector(source Source, filter Filter) *Collector {
	return &Collector{source: source, filter: filter}
}

// NewFromConfig creates a collector for the configured catalog endpoint
func NewFromConfig(cfg config.CollectorConfig) (*Collector, error) {
	if cfg.CatalogURL == "" {
		return nil, errors.New("collector catalog_url is not configured")
	}
	client := NewCatalogClient(cfg.CatalogURL, cfg.Timeout, cfg.Retries)
	return NewCollector(client, NewFilter(cfg.Filters)), nil
}

// Collect fetches the catalog, maps every item and applies the filter.
// Items that fail to map are skipped and reported; a fetch failure aborts the run.
func (c *Collector) Collect(ctx context.Context) ([]model.PriceRecord, *Report, error) {
	items, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Fetched: len(items)}
	records := make([]model.PriceRecord, 0, len(items))
	for i, item := range items {
		rec, err := MapCatalogItem(item)
		if err != nil {
			report.Failed++
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				verr.Index = i
				report.Errors = append(report.Errors, verr)
			}
			logger.WarnCtx(ctx, "skipping catalog item %d: %v", i, err)
			continue
		}
		records = append(records, rec)
	}
	report.Mapped = len(records)

	kept := c.filter.Apply(records)
	report.Filtered = len(records) - len(kept)

	logger.InfoCtx(ctx, "collected %d offers (fetched=%d, failed=%d, filtered=%d)",
		len(kept), report.Fetched, report.Failed, report.Filtered)
	return kept, report, nil
}

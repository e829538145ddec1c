package model

import (
	"sort"
	"time"
)

// SnapshotMetadata lists the distinct providers and GPU types of a snapshot
type SnapshotMetadata struct {
	Providers []string `json:"providers"`
	GPUTypes  []string `json:"gpu_types"`
}

// SnapshotSummary aggregates all price records sharing one observed_at
type SnapshotSummary struct {
	ObservedAt     time.Time        `json:"observed_at"`
	TotalInstances int              `json:"total_instances"`
	ProvidersCount int              `json:"providers_count"`
	GPUTypesCount  int              `json:"gpu_types_count"`
	MinPrice       float64          `json:"min_price"`
	MaxPrice       float64          `json:"max_price"`
	AvgPrice       float64          `json:"avg_price"`
	Metadata       SnapshotMetadata `json:"metadata"`
}

// Summarize computes the snapshot summary of records observed at observedAt.
// Prices are aggregated over price_per_hour, unweighted. An empty record set
// yields zero prices.
func Summarize(observedAt time.Time, records []PriceRecord) SnapshotSummary {
	summary := SnapshotSummary{
		ObservedAt:     NormalizeTimestamp(observedAt),
		TotalInstances: len(records),
		Metadata: SnapshotMetadata{
			Providers: []string{},
			GPUTypes:  []string{},
		},
	}
	if len(records) == 0 {
		return summary
	}

	providers := make(map[string]struct{})
	gpuTypes := make(map[string]struct{})
	var sum float64
	summary.MinPrice = records[0].PricePerHour
	summary.MaxPrice = records[0].PricePerHour
	for _, rec := range records {
		providers[rec.Provider] = struct{}{}
		gpuTypes[rec.GPUType] = struct{}{}
		sum += rec.PricePerHour
		if rec.PricePerHour < summary.MinPrice {
			summary.MinPrice = rec.PricePerHour
		}
		if rec.PricePerHour > summary.MaxPrice {
			summary.MaxPrice = rec.PricePerHour
		}
	}

	summary.AvgPrice = sum / float64(len(records))
	summary.Metadata.Providers = sortedKeys(providers)
	summary.Metadata.GPUTypes = sortedKeys(gpuTypes)
	summary.ProvidersCount = len(summary.Metadata.Providers)
	summary.GPUTypesCount = len(summary.Metadata.GPUTypes)
	return summary
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package service

import (
	"context"
	"sort"
	"strings"

	"gpuprices/internal/model"
)

// Reports over the latest snapshot. They share LatestPrices' global-latest
// semantics and return empty slices for an empty store.

// BestDeals returns the cheapest offers per GPU in the latest snapshot. gpuType
// matches as a case-insensitive substring; GPU-less offers are excluded.
func (s *QueryService) BestDeals(ctx context.Context, gpuType string, limit int) ([]model.PriceRecord, error) {
	if limit <= 0 {
		limit = DefaultBestDealLimit
	}

	records, err := s.LatestPrices(ctx, "")
	if err != nil {
		return nil, err
	}

	needle := strings.ToUpper(gpuType)
	deals := make([]model.PriceRecord, 0, len(records))
	for _, rec := range records {
		if rec.GPUCount == 0 {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToUpper(rec.GPUType), needle) {
			continue
		}
		deals = append(deals, rec)
	}

	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].PricePerGPUHour() < deals[j].PricePerGPUHour()
	})
	if len(deals) > limit {
		deals = deals[:limit]
	}
	return deals, nil
}

// LatestByGPU groups the latest snapshot by GPU type, groups sorted by name,
// records within a group by price_per_hour
func (s *QueryService) LatestByGPU(ctx context.Context) ([]model.GPUGroup, error) {
	records, err := s.LatestPrices(ctx, "")
	if err != nil {
		return nil, err
	}

	byGPU := make(map[string][]model.PriceRecord)
	for _, rec := range records {
		byGPU[rec.GPUType] = append(byGPU[rec.GPUType], rec)
	}

	groups := make([]model.GPUGroup, 0, len(byGPU))
	for gpuType, recs := range byGPU {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].PricePerHour < recs[j].PricePerHour
		})

		providers := make(map[string]struct{})
		var sum float64
		best := recs[0].PricePerGPUHour()
		for _, rec := range recs {
			providers[rec.Provider] = struct{}{}
			sum += rec.PricePerHour
			if p := rec.PricePerGPUHour(); p < best {
				best = p
			}
		}

		groups = append(groups, model.GPUGroup{
			GPUType:         gpuType,
			Instances:       len(recs),
			Providers:       sortedSet(providers),
			MinPrice:        recs[0].PricePerHour,
			MaxPrice:        recs[len(recs)-1].PricePerHour,
			AvgPrice:        sum / float64(len(recs)),
			BestPricePerGPU: best,
			Records:         recs,
		})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].GPUType < groups[j].GPUType })
	return groups, nil
}

// ProviderSummary aggregates the latest snapshot per provider, sorted by provider
func (s *QueryService) ProviderSummary(ctx context.Context) ([]model.ProviderSummary, error) {
	records, err := s.LatestPrices(ctx, "")
	if err != nil {
		return nil, err
	}

	type acc struct {
		summary  model.ProviderSummary
		sum      float64
		gpuTypes map[string]struct{}
	}
	byProvider := make(map[string]*acc)
	for _, rec := range records {
		a, ok := byProvider[rec.Provider]
		if !ok {
			a = &acc{
				summary:  model.ProviderSummary{Provider: rec.Provider, MinPrice: rec.PricePerHour, MaxPrice: rec.PricePerHour},
				gpuTypes: make(map[string]struct{}),
			}
			byProvider[rec.Provider] = a
		}
		a.summary.Instances++
		a.sum += rec.PricePerHour
		a.gpuTypes[rec.GPUType] = struct{}{}
		if rec.PricePerHour < a.summary.MinPrice {
			a.summary.MinPrice = rec.PricePerHour
		}
		if rec.PricePerHour > a.summary.MaxPrice {
			a.summary.MaxPrice = rec.PricePerHour
		}
	}

	result := make([]model.ProviderSummary, 0, len(byProvider))
	for _, a := range byProvider {
		a.summary.GPUTypes = len(a.gpuTypes)
		a.summary.AvgPrice = a.sum / float64(a.summary.Instances)
		result = append(result, a.summary)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Provider < result[j].Provider })
	return result, nil
}

// AvailabilitySummary counts offered GPUs per region in the latest snapshot,
// sorted by region. The top GPU type is the one with the most GPUs, ties
// broken by name.
func (s *QueryService) AvailabilitySummary(ctx context.Context) ([]model.RegionAvailability, error) {
	records, err := s.LatestPrices(ctx, "")
	if err != nil {
		return nil, err
	}

	type acc struct {
		region    model.RegionAvailability
		gpuCounts map[string]int
	}
	byRegion := make(map[string]*acc)
	for _, rec := range records {
		a, ok := byRegion[rec.Region]
		if !ok {
			a = &acc{region: model.RegionAvailability{Region: rec.Region}, gpuCounts: make(map[string]int)}
			byRegion[rec.Region] = a
		}
		a.region.TotalGPUs += rec.GPUCount
		a.gpuCounts[rec.GPUType] += rec.GPUCount
		if rec.Available == nil || *rec.Available {
			a.region.AvailableCount++
		}
		if rec.IsSpot != nil && *rec.IsSpot {
			a.region.SpotCount++
		}
	}

	result := make([]model.RegionAvailability, 0, len(byRegion))
	for _, a := range byRegion {
		a.region.GPUTypes = len(a.gpuCounts)
		for gpuType, count := range a.gpuCounts {
			if count > a.region.TopGPUCount ||
				(count == a.region.TopGPUCount && (a.region.TopGPUType == "" || gpuType < a.region.TopGPUType)) {
				a.region.TopGPUType = gpuType
				a.region.TopGPUCount = count
			}
		}
		result = append(result, a.region)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Region < result[j].Region })
	return result, nil
}

// GPUSummary computes per-GPU price statistics over the latest snapshot, most
// offered GPU types first. excludeUnknown drops the "Unknown" sentinel.
func (s *QueryService) GPUSummary(ctx context.Context, excludeUnknown bool) ([]model.GPUTypeSummary, error) {
	records, err := s.LatestPrices(ctx, "")
	if err != nil {
		return nil, err
	}

	type acc struct {
		summary   model.GPUTypeSummary
		sum       float64
		providers map[string]struct{}
	}
	byGPU := make(map[string]*acc)
	for _, rec := range records {
		if excludeUnknown && strings.EqualFold(rec.GPUType, model.UnknownGPUType) {
			continue
		}
		perGPU := rec.PricePerGPUHour()
		a, ok := byGPU[rec.GPUType]
		if !ok {
			a = &acc{
				summary:   model.GPUTypeSummary{GPUType: rec.GPUType, MinPricePerGPU: perGPU, MaxPricePerGPU: perGPU},
				providers: make(map[string]struct{}),
			}
			byGPU[rec.GPUType] = a
		}
		a.summary.Instances++
		a.sum += perGPU
		a.providers[rec.Provider] = struct{}{}
		if perGPU < a.summary.MinPricePerGPU {
			a.summary.MinPricePerGPU = perGPU
		}
		if perGPU > a.summary.MaxPricePerGPU {
			a.summary.MaxPricePerGPU = perGPU
		}
	}

	result := make([]model.GPUTypeSummary, 0, len(byGPU))
	for _, a := range byGPU {
		a.summary.AvgPricePerGPU = a.sum / float64(a.summary.Instances)
		a.summary.Providers = len(a.providers)
		result = append(result, a.summary)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Instances != result[j].Instances {
			return result[i].Instances > result[j].Instances
		}
		return result[i].GPUType < result[j].GPUType
	})
	return result, nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

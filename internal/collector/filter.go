package collector

import (
	"strings"

	"gpuprices/internal/model"
	"gpuprices/pkg/config"
)

// Filter drops mapped records that do not satisfy the configured criteria.
// Zero values disable the corresponding criterion.
type Filter struct {
	MinGPUMemoryGB int
	MinCPU         int
	MaxPrice       float64
	GPUName        string
	Provider       string
}

// NewFilter builds a filter from the collector configuration
func NewFilter(cfg config.FilterConfig) Filter {
	return Filter{
		MinGPUMemoryGB: cfg.MinGPUMemoryGB,
		MinCPU:         cfg.MinCPU,
		MaxPrice:       cfg.MaxPrice,
		GPUName:        strings.TrimSpace(cfg.GPUName),
		Provider:       NormalizeProvider(cfg.Provider),
	}
}

// Match reports whether rec passes every enabled criterion.
func (f Filter) Match(rec model.PriceRecord) bool {
	if f.MinGPUMemoryGB > 0 {
		if rec.GPUMemoryGB == nil || *rec.GPUMemoryGB < f.MinGPUMemoryGB {
			return false
		}
	}
	if f.MinCPU > 0 && rec.VCPUs < f.MinCPU {
		return false
	}
	if f.MaxPrice > 0 && rec.PricePerHour > f.MaxPrice {
		return false
	}
	if f.GPUName != "" && !strings.EqualFold(rec.GPUType, f.GPUName) {
		return false
	}
	if f.Provider != "" && rec.Provider != f.Provider {
		return false
	}
	return true
}

// Apply returns the records passing the filter, preserving order.
func (f Filter) Apply(records []model.PriceRecord) []model.PriceRecord {
	out := make([]model.PriceRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

package model

// GPUGroup is the latest snapshot's offers for one GPU type, cheapest first
type GPUGroup struct {
	GPUType         string        `json:"gpu_type"`
	Instances       int           `json:"instances"`
	Providers       []string      `json:"providers"`
	MinPrice        float64       `json:"min_price"`
	MaxPrice        float64       `json:"max_price"`
	AvgPrice        float64       `json:"avg_price"`
	BestPricePerGPU float64       `json:"best_price_per_gpu"`
	Records         []PriceRecord `json:"records"`
}

// ProviderSummary aggregates the latest snapshot for one provider
type ProviderSummary struct {
	Provider  string  `json:"provider"`
	Instances int     `json:"instances"`
	GPUTypes  int     `json:"gpu_types"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	AvgPrice  float64 `json:"avg_price"`
}

// RegionAvailability counts the GPUs offered in one region in the latest snapshot
type RegionAvailability struct {
	Region         string `json:"region"`
	TotalGPUs      int    `json:"total_gpus"`
	GPUTypes       int    `json:"gpu_types"`
	TopGPUType     string `json:"top_gpu_type"`
	TopGPUCount    int    `json:"top_gpu_count"`
	AvailableCount int    `json:"available_count"` // offers not flagged unavailable
	SpotCount      int    `json:"spot_count"`
}

// GPUTypeSummary per-GPU price statistics over the latest snapshot
type GPUTypeSummary struct {
	GPUType        string  `json:"gpu_type"`
	Instances      int     `json:"instances"`
	AvgPricePerGPU float64 `json:"avg_price_per_gpu"`
	MinPricePerGPU float64 `json:"min_price_per_gpu"`
	MaxPricePerGPU float64 `json:"max_price_per_gpu"`
	Providers      int     `json:"providers"`
}

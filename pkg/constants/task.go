package constants

// Distributed lock keys
const (
	LockKeyCollector = "gpuprices:collector:lock"
)

// Job names
const (
	JobCollectPrices = "collect-prices"
)

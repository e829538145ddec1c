package constants

// Provider identifiers of the normalized vocabulary
const (
	ProviderAWS        = "aws"
	ProviderGCP        = "gcp"
	ProviderAzure      = "azure"
	ProviderLambda     = "lambda"
	ProviderRunPod     = "runpod"
	ProviderTensorDock = "tensordock"
	ProviderVastAI     = "vastai"
	ProviderDataCrunch = "datacrunch"
	ProviderCudo       = "cudo"
	ProviderNebius     = "nebius"

	ProviderUnknown = "unknown"
)

// KnownProviders lists the normalized provider identifiers
var KnownProviders = []string{
	ProviderAWS, ProviderGCP, ProviderAzure, ProviderLambda, ProviderRunPod,
	ProviderTensorDock, ProviderVastAI, ProviderDataCrunch, ProviderCudo, ProviderNebius,
}

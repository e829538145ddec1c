package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpuprices/internal/model"
)

func seedReports(t *testing.T, env *testEnv) {
	t.Helper()
	spot := true
	down := false

	spotOffer := offer("aws", "p3.2xlarge", "us-east-1", "V100", 1, 0.92)
	spotOffer.IsSpot = &spot
	spotOffer.InstanceType = "p3.2xlarge-spot"
	downOffer := offer("vastai", "1x RTX 4090", "us-east-1", "RTX4090", 1, 0.35)
	downOffer.Available = &down

	// older snapshot that must never show up in reports
	env.mustIngest(t, testNow.Add(-24*time.Hour), offer("gcp", "a2-highgpu-1g", "us-central1", "A100", 1, 0.01))
	env.mustIngest(t, testNow,
		offer("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06),
		offer("aws", "p3.8xlarge", "us-east-1", "V100", 4, 12.24),
		offer("aws", "p4d.24xlarge", "us-west-2", "A100", 8, 32.77),
		offer("lambda", "gpu_8x_a100", "us-west-2", "A100", 8, 10.32),
		offer("datacrunch", "cpu.4v", "fin-01", model.UnknownGPUType, 0, 0.05),
		spotOffer,
		downOffer,
	)
}

func TestBestDeals(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)
	ctx := context.Background()

	deals, err := env.query.BestDeals(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, deals, 6) // GPU-less offer excluded
	assert.Equal(t, "vastai", deals[0].Provider)
	for i := 1; i < len(deals); i++ {
		assert.LessOrEqual(t, deals[i-1].PricePerGPUHour(), deals[i].PricePerGPUHour())
	}

	a100, err := env.query.BestDeals(ctx, "a10", 1)
	require.NoError(t, err)
	require.Len(t, a100, 1)
	assert.Equal(t, "lambda", a100[0].Provider)
}

func TestLatestByGPU(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)

	groups, err := env.query.LatestByGPU(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 4)

	names := []string{groups[0].GPUType, groups[1].GPUType, groups[2].GPUType, groups[3].GPUType}
	assert.Equal(t, []string{"A100", "RTX4090", "Unknown", "V100"}, names)

	v100 := groups[3]
	assert.Equal(t, 3, v100.Instances)
	assert.Equal(t, []string{"aws"}, v100.Providers)
	assert.InDelta(t, 0.92, v100.MinPrice, 1e-9)
	assert.InDelta(t, 12.24, v100.MaxPrice, 1e-9)
	assert.InDelta(t, (3.06+12.24+0.92)/3, v100.AvgPrice, 1e-9)
	assert.InDelta(t, 0.92, v100.BestPricePerGPU, 1e-9)
	assert.InDelta(t, 0.92, v100.Records[0].PricePerHour, 1e-9)

	a100 := groups[0]
	assert.Equal(t, []string{"aws", "lambda"}, a100.Providers)
	assert.InDelta(t, 10.32/8, a100.BestPricePerGPU, 1e-9)
}

func TestProviderSummary(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)

	summaries, err := env.query.ProviderSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 4)
	assert.Equal(t, "aws", summaries[0].Provider)
	assert.Equal(t, 4, summaries[0].Instances)
	assert.Equal(t, 2, summaries[0].GPUTypes)
	assert.InDelta(t, 0.92, summaries[0].MinPrice, 1e-9)
	assert.InDelta(t, 32.77, summaries[0].MaxPrice, 1e-9)
	assert.InDelta(t, (3.06+12.24+32.77+0.92)/4, summaries[0].AvgPrice, 1e-9)
	assert.Equal(t, "datacrunch", summaries[1].Provider)
	assert.Equal(t, "lambda", summaries[2].Provider)
	assert.Equal(t, "vastai", summaries[3].Provider)
}

func TestAvailabilitySummary(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)

	regions, err := env.query.AvailabilitySummary(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 3)

	assert.Equal(t, "fin-01", regions[0].Region)
	assert.Equal(t, 0, regions[0].TotalGPUs)

	east := regions[1]
	assert.Equal(t, "us-east-1", east.Region)
	assert.Equal(t, 7, east.TotalGPUs)
	assert.Equal(t, 2, east.GPUTypes)
	assert.Equal(t, "V100", east.TopGPUType)
	assert.Equal(t, 6, east.TopGPUCount)
	assert.Equal(t, 3, east.AvailableCount)
	assert.Equal(t, 1, east.SpotCount)

	west := regions[2]
	assert.Equal(t, 16, west.TotalGPUs)
	assert.Equal(t, "A100", west.TopGPUType)
}

func TestGPUSummary(t *testing.T) {
	env := newTestEnv(t)
	seedReports(t, env)
	ctx := context.Background()

	summaries, err := env.query.GPUSummary(ctx, true)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "V100", summaries[0].GPUType)
	assert.Equal(t, 3, summaries[0].Instances)
	assert.InDelta(t, 0.92, summaries[0].MinPricePerGPU, 1e-9)
	assert.InDelta(t, 3.06, summaries[0].MaxPricePerGPU, 1e-9)
	assert.InDelta(t, (3.06+3.06+0.92)/3, summaries[0].AvgPricePerGPU, 1e-9)
	assert.Equal(t, "A100", summaries[1].GPUType)
	assert.Equal(t, 2, summaries[1].Providers)

	withUnknown, err := env.query.GPUSummary(ctx, false)
	require.NoError(t, err)
	assert.Len(t, withUnknown, 4)
}

func TestReports_EmptyStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	deals, err := env.query.BestDeals(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, deals)

	groups, err := env.query.LatestByGPU(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	regions, err := env.query.AvailabilitySummary(ctx)
	require.NoError(t, err)
	assert.Empty(t, regions)
}

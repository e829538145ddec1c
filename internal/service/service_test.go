package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gpuprices/internal/model"
	"gpuprices/pkg/config"
	"gpuprices/pkg/store/database"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	repo   *database.Repository
	ingest *IngestionService
	query  *QueryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := database.NewRepository(config.StoreConfig{
		Driver:        config.DriverSQLite,
		DSN:           ":memory:",
		SlowThreshold: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ingest := NewIngestionService(repo)
	ingest.now = func() time.Time { return testNow }
	query := NewQueryService(repo)
	query.now = func() time.Time { return testNow }

	return &testEnv{repo: repo, ingest: ingest, query: query}
}

func (e *testEnv) mustIngest(t *testing.T, ts time.Time, records ...model.PriceRecord) *model.IngestResult {
	t.Helper()
	result, err := e.ingest.Ingest(context.Background(), records, ts)
	require.NoError(t, err)
	return result
}

func offer(provider, instance, region, gpuType string, gpuCount int, price float64) model.PriceRecord {
	return model.PriceRecord{
		Provider:     provider,
		InstanceType: instance,
		GPUType:      gpuType,
		GPUCount:     gpuCount,
		VCPUs:        8,
		RAMGB:        64,
		Region:       region,
		PricePerHour: price,
	}
}

type recordingPublisher struct {
	mu        sync.Mutex
	summaries []model.SnapshotSummary
}

func (p *recordingPublisher) Publish(summary model.SnapshotSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]model.PriceRecord
	invalidated []time.Time
	gets        int
	hits        int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]model.PriceRecord)}
}

func cacheKey(ts time.Time, version int64, provider string) string {
	return ts.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(version, 10) + "|" + provider
}

func (c *memoryCache) Get(_ context.Context, ts time.Time, version int64, provider string) ([]model.PriceRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	records, ok := c.entries[cacheKey(ts, version, provider)]
	if ok {
		c.hits++
	}
	return records, ok
}

func (c *memoryCache) Set(_ context.Context, ts time.Time, version int64, provider string, records []model.PriceRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(ts, version, provider)] = records
}

func (c *memoryCache) Invalidate(_ context.Context, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, ts)
	prefix := ts.UTC().Format(time.RFC3339Nano) + "|"
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	return nil
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpuprices/app/handler"
	"gpuprices/app/middleware"
	"gpuprices/internal/model"
	"gpuprices/internal/service"
	"gpuprices/pkg/config"
	"gpuprices/pkg/interfaces"
	"gpuprices/pkg/store/database"
)

type fakeQueue struct {
	batches []*model.IngestBatch
	err     error
}

func (q *fakeQueue) EnqueueIngest(_ context.Context, batch *model.IngestBatch) (*interfaces.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.batches = append(q.batches, batch)
	return &interfaces.TaskInfo{ID: "ingest:1", Queue: "default", ObservedAt: batch.ObservedAt, Records: len(batch.Records)}, nil
}

func (q *fakeQueue) Close() error { return nil }

type testServer struct {
	engine *gin.Engine
	repo   *database.Repository
	feed   *service.SnapshotFeed
	queue  *fakeQueue
}

func newTestServer(t *testing.T, apiKey string, withQueue bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := database.NewRepository(config.StoreConfig{
		Driver:        config.DriverSQLite,
		DSN:           ":memory:",
		SlowThreshold: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	feed := service.NewSnapshotFeed()
	t.Cleanup(feed.Close)

	ingestion := service.NewIngestionService(repo)
	ingestion.SetPublisher(feed)
	query := service.NewQueryService(repo)

	srv := &testServer{repo: repo, feed: feed}
	var queue interfaces.IngestQueue
	if withQueue {
		srv.queue = &fakeQueue{}
		queue = srv.queue
	}

	engine := gin.New()
	NewRouter(
		handler.NewPriceHandler(query),
		handler.NewReportHandler(query),
		handler.NewIngestHandler(ingestion, queue),
		handler.NewFeedHandler(feed),
		handler.NewHealthHandler(repo.GetDatastore(), config.DriverSQLite),
		apiKey,
	).Setup(engine)
	srv.engine = engine
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	}
	return w, decoded
}

func record(provider, instance, region, gpu string, gpuCount int, price float64) map[string]interface{} {
	return model.PriceRecord{
		Provider:     provider,
		InstanceType: instance,
		GPUType:      gpu,
		GPUCount:     gpuCount,
		VCPUs:        8,
		RAMGB:        61,
		Region:       region,
		PricePerHour: price,
	}.Fields()
}

func batch(observedAt time.Time, records ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"observed_at": observedAt.Format(time.RFC3339Nano),
		"records":     records,
	}
}

func TestLatest_NoData(t *testing.T) {
	srv := newTestServer(t, "", false)

	w, body := srv.do(t, http.MethodGet, "/api/v1/prices/latest", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handler.MessageNoData, body["message"])
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []interface{}{}, body["data"])
}

func TestIngestThenQuery(t *testing.T) {
	srv := newTestServer(t, "", false)
	t0 := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	t1 := t0.Add(time.Hour)

	w, body := srv.do(t, http.MethodPost, "/api/v1/ingest", batch(t0,
		record("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06),
		record("gcp", "a2-highgpu-1g", "us-central1", "A100", 1, 3.67),
		record("azure", "NC24ads_A100_v4", "eastus", "A100", 1, 3.67),
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 3, body["accepted"])

	w, _ = srv.do(t, http.MethodPost, "/api/v1/ingest", batch(t1,
		record("aws", "p3.8xlarge", "us-east-1", "V100", 4, 12.24),
	))
	require.Equal(t, http.StatusOK, w.Code)

	w, body = srv.do(t, http.MethodGet, "/api/v1/prices/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])
	assert.Nil(t, body["message"])
	latest := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "p3.8xlarge", latest["instance_type"])
	assert.InDelta(t, 3.06, latest["price_per_gpu_hour"], 1e-9)

	w, body = srv.do(t, http.MethodGet, "/api/v1/prices/latest?provider=gcp", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handler.MessageNoData, body["message"])

	w, body = srv.do(t, http.MethodGet, "/api/v1/prices/trends?days=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	trends := body["data"].([]interface{})
	require.Len(t, trends, 2)
	assert.EqualValues(t, 3, trends[0].(map[string]interface{})["instance_count"])
	assert.EqualValues(t, 1, trends[1].(map[string]interface{})["instance_count"])

	w, body = srv.do(t, http.MethodGet, "/api/v1/prices/history?instance_type=p3.2xlarge&provider=aws&region=us-east-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])

	w, body = srv.do(t, http.MethodGet, "/api/v1/snapshots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])

	w, body = srv.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := body["data"].(map[string]interface{})
	assert.EqualValues(t, 4, stats["total_records"])
	assert.EqualValues(t, 2, stats["snapshots"])
	assert.EqualValues(t, 3, stats["providers"])

	w, body = srv.do(t, http.MethodGet, "/api/v1/prices/best-deals?gpu_type=v100&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])

	for _, path := range []string{"/api/v1/prices/by-gpu", "/api/v1/reports/providers", "/api/v1/reports/availability", "/api/v1/reports/gpus?include_unknown=true"} {
		w, body = srv.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.EqualValues(t, 1, body["count"], path)
	}
}

func TestStats_NoData(t *testing.T) {
	srv := newTestServer(t, "", false)

	w, body := srv.do(t, http.MethodGet, "/api/v1/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handler.MessageNoData, body["message"])
}

func TestIngest_ReportsRejectedRecords(t *testing.T) {
	srv := newTestServer(t, "", false)

	bad := record("aws", "p3.2xlarge", "us-east-1", "V100", 1, -1)
	w, body := srv.do(t, http.MethodPost, "/api/v1/ingest", batch(time.Now(),
		bad,
		record("aws", "g5.xlarge", "us-east-1", "A10G", 1, 1.006),
	))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["accepted"])
	assert.EqualValues(t, 1, body["rejected"])
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.EqualValues(t, 0, errs[0].(map[string]interface{})["index"])
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t, "", false)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"history without instance type", http.MethodGet, "/api/v1/prices/history", nil},
		{"history without provider", http.MethodGet, "/api/v1/prices/history?instance_type=p3.2xlarge&region=us-east-1", nil},
		{"history without region", http.MethodGet, "/api/v1/prices/history?instance_type=p3.2xlarge&provider=aws", nil},
		{"history with blank region", http.MethodGet, "/api/v1/prices/history?instance_type=p3.2xlarge&provider=aws&region=%20", nil},
		{"non-numeric days", http.MethodGet, "/api/v1/prices/trends?days=week", nil},
		{"non-numeric limit", http.MethodGet, "/api/v1/prices/best-deals?limit=all", nil},
		{"bad include_unknown", http.MethodGet, "/api/v1/reports/gpus?include_unknown=maybe", nil},
		{"malformed json", http.MethodPost, "/api/v1/ingest", "{not json"},
		{"missing records", http.MethodPost, "/api/v1/ingest", map[string]interface{}{}},
		{"bad observed_at", http.MethodPost, "/api/v1/ingest", `{"observed_at": "yesterday", "records": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := srv.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStoreUnavailable(t *testing.T) {
	srv := newTestServer(t, "", false)
	require.NoError(t, srv.repo.Close())

	for _, path := range []string{"/api/v1/prices/latest", "/api/v1/stats", "/api/v1/snapshots", "/health"} {
		w, _ := srv.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}

	w, _ := srv.do(t, http.MethodPost, "/api/v1/ingest", batch(time.Now(), record("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "", false)

	w, body := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.DriverSQLite, body["store"])
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestIngest_APIKey(t *testing.T) {
	srv := newTestServer(t, "secret", true)
	payload := batch(time.Now(), record("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06))

	w, _ := srv.do(t, http.MethodPost, "/api/v1/ingest", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = srv.do(t, http.MethodPost, "/api/v1/ingest/async", payload, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = srv.do(t, http.MethodPost, "/api/v1/ingest", payload, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, w.Code)

	// reads stay open
	w, _ = srv.do(t, http.MethodGet, "/api/v1/prices/latest", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestAsync(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, "", false)
		w, _ := srv.do(t, http.MethodPost, "/api/v1/ingest/async", batch(time.Now(), record("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06)))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("queued", func(t *testing.T) {
		srv := newTestServer(t, "", true)
		ts := time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)
		missingRegion := record("gcp", "a2-highgpu-1g", "us-central1", "A100", 1, 3.67)
		delete(missingRegion, model.FieldRegion)

		w, body := srv.do(t, http.MethodPost, "/api/v1/ingest/async", batch(ts,
			record("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06),
			missingRegion,
		))
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.EqualValues(t, 1, body["rejected"])
		require.Len(t, srv.queue.batches, 1)
		assert.True(t, srv.queue.batches[0].ObservedAt.Equal(ts))
		assert.Len(t, srv.queue.batches[0].Records, 1)
	})

	t.Run("nothing valid", func(t *testing.T) {
		srv := newTestServer(t, "", true)
		w, _ := srv.do(t, http.MethodPost, "/api/v1/ingest/async", batch(time.Now(), record("aws", "", "us-east-1", "V100", 1, 3.06)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, srv.queue.batches)
	})

	t.Run("enqueue failure", func(t *testing.T) {
		srv := newTestServer(t, "", true)
		srv.queue.err = errors.New("redis down")
		w, _ := srv.do(t, http.MethodPost, "/api/v1/ingest/async", batch(time.Now(), record("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06)))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestSnapshotFeed_Websocket(t *testing.T) {
	srv := newTestServer(t, "", false)
	httpSrv := httptest.NewServer(srv.engine)
	t.Cleanup(httpSrv.Close)

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/v1/ws/snapshots"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	ts := time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)
	w, _ := srv.do(t, http.MethodPost, "/api/v1/ingest", batch(ts,
		record("aws", "p3.2xlarge", "us-east-1", "V100", 1, 3.06),
		record("lambda", "gpu_1x_a100", "us-west-2", "A100", 1, 1.29),
	))
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var summary model.SnapshotSummary
	require.NoError(t, conn.ReadJSON(&summary))
	assert.True(t, summary.ObservedAt.Equal(ts))
	assert.Equal(t, 2, summary.TotalInstances)
	assert.Equal(t, []string{"aws", "lambda"}, summary.Metadata.Providers)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.feed.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "stack")
}

func TestCompressBody(t *testing.T) {
	assert.Equal(t, "", middleware.CompressBody(nil))
	assert.Equal(t, `{"a":1,"b":[1,2]}`, middleware.CompressBody([]byte("{\n  \"a\": 1,\n  \"b\": [1, 2]\n}")))
	long := bytes.Repeat([]byte("x"), 1500)
	assert.Len(t, middleware.CompressBody(long), 1003)
}

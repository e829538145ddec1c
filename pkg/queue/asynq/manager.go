package asynq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gpuprices/internal/model"
	"gpuprices/pkg/config"
	"gpuprices/pkg/interfaces"
	"gpuprices/pkg/logger"

	"github.com/hibiken/asynq"
)

const defaultQueue = "default"

// Manager queue manager
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	queue  config.QueueConfig
	now    func() time.Time
}

// NewManager creates queue manager
func NewManager(redisCfg config.RedisConfig, queueCfg config.QueueConfig) (*Manager, error) {
	if redisCfg.Addr == "" {
		return nil, fmt.Errorf("async ingestion requires a redis address")
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: queueCfg.Concurrency,
			Queues: map[string]int{
				defaultQueue: 10,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Second
			},
			Logger: asynqLogger{},
		},
	)

	return &Manager{
		client: client,
		server: server,
		mux:    asynq.NewServeMux(),
		queue:  queueCfg,
		now:    time.Now,
	}, nil
}

var _ interfaces.IngestQueue = (*Manager)(nil)

// EnqueueIngest enqueues a batch for background ingestion. The task ID is
// derived from observed_at and the batch content: resubmitting an identical
// batch while its task is still retained by the queue is reported as a
// duplicate, while a different batch for the same timestamp gets its own task.
func (m *Manager) EnqueueIngest(ctx context.Context, batch *model.IngestBatch) (*interfaces.TaskInfo, error) {
	if batch.ObservedAt.IsZero() {
		batch.ObservedAt = m.now()
	}
	batch.ObservedAt = model.NormalizeTimestamp(batch.ObservedAt)

	task, err := NewIngestTask(batch)
	if err != nil {
		return nil, err
	}

	taskID := IngestTaskID(batch.ObservedAt, task.Payload())
	result := &interfaces.TaskInfo{
		ID:         taskID,
		Queue:      defaultQueue,
		ObservedAt: batch.ObservedAt,
		Records:    len(batch.Records),
	}

	opts := []asynq.Option{
		asynq.TaskID(taskID),
		asynq.Queue(defaultQueue),
		asynq.Timeout(time.Duration(m.queue.TaskTimeout) * time.Second),
		asynq.MaxRetry(m.queue.MaxRetry),
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			logger.WarnCtx(ctx, "identical ingest task already queued, task_id: %s", taskID)
			result.Duplicate = true
			return result, nil
		}
		return nil, fmt.Errorf("failed to enqueue ingest task: %w", err)
	}

	result.Queue = info.Queue
	logger.InfoCtx(ctx, "ingest task enqueued, task_id: %s, queue: %s, records: %d", taskID, info.Queue, len(batch.Records))
	return result, nil
}

// RegisterHandler registers task handler
func (m *Manager) RegisterHandler(pattern string, handler asynq.Handler) {
	m.mux.Handle(pattern, handler)
}

// Start starts queue processor
func (m *Manager) Start() error {
	logger.InfoCtx(context.Background(), "starting queue server")
	return m.server.Start(m.mux)
}

// Stop stops queue processor
func (m *Manager) Stop() {
	logger.InfoCtx(context.Background(), "stopping queue server")
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client
func (m *Manager) Close() error {
	return m.client.Close()
}

// asynqLogger routes asynq's internal logging through the application logger
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.Debugf("asynq: %s", fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { logger.Infof("asynq: %s", fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { logger.Warnf("asynq: %s", fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { logger.Errorf("asynq: %s", fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) { logger.Fatalf("asynq: %s", fmt.Sprint(args...)) }

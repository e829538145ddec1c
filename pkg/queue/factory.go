package queue

import (
	"fmt"

	"gpuprices/pkg/config"
	"gpuprices/pkg/queue/asynq"
)

// CreateQueueManager creates the async ingestion queue; nil when disabled
func CreateQueueManager(cfg *config.Config) (*asynq.Manager, error) {
	if !cfg.Queue.Enabled {
		return nil, nil
	}
	if !cfg.Redis.Enabled {
		return nil, fmt.Errorf("queue.enabled requires redis.enabled")
	}
	return asynq.NewManager(cfg.Redis, cfg.Queue)
}

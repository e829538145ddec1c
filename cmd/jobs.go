package main

import (
	"github.com/go-redis/redis/v8"

	"gpuprices/internal/collector"
	"gpuprices/internal/jobs"
	"gpuprices/pkg/constants"
	"gpuprices/pkg/lock"
	"gpuprices/pkg/logger"
)

func (app *Application) initJobs() error {
	if app.config.Collector.CatalogURL == "" {
		logger.InfoCtx(app.ctx, "collector.catalog_url not set, scheduled collection disabled")
		return nil
	}

	c, err := collector.NewFromConfig(app.config.Collector)
	if err != nil {
		return err
	}

	// Without redis the lock degrades to single-instance mode
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}
	collectLock := lock.NewRedisDistributedLock(redisClient, constants.LockKeyCollector)
	collectLock.SetMaxHold(app.config.Collector.Interval)

	manager := jobs.NewManager(app.ctx)
	manager.Register(jobs.NewCollectJob(app.config.Collector.Interval, c, app.ingestionService, collectLock))

	app.jobsManager = manager
	return nil
}

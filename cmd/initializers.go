package main

import (
	"fmt"
	"net/http"
	"time"

	"gpuprices/app/handler"
	"gpuprices/app/router"
	"gpuprices/internal/service"
	"gpuprices/pkg/config"
	"gpuprices/pkg/interfaces"
	"gpuprices/pkg/logger"
	"gpuprices/pkg/notification"
	"gpuprices/pkg/queue"
	"gpuprices/pkg/queue/asynq"
	"gpuprices/pkg/store/database"
	redisstore "gpuprices/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(app.config.Logger); err != nil {
		return err
	}
	app.registerCleanup(func() {
		_ = logger.Sync()
	})
	return nil
}

// initStore opens the price store and migrates its schema
func (app *Application) initStore() error {
	repo, err := database.NewRepository(app.config.Store)
	if err != nil {
		return err
	}

	app.repo = repo
	app.registerCleanup(func() {
		if err := repo.Close(); err != nil {
			logger.WarnCtx(app.ctx, "failed to close price store: %v", err)
			return
		}
		logger.InfoCtx(app.ctx, "Price store connection has been closed")
	})

	logger.InfoCtx(app.ctx, "Price store ready, driver: %s", repo.GetDatastore().Driver())
	return nil
}

// initRedis connects to redis when enabled. Without it the latest cache is
// off and the collector lock runs in single-instance mode.
func (app *Application) initRedis() error {
	if !app.config.Redis.Enabled {
		logger.InfoCtx(app.ctx, "Redis disabled, running without cache and distributed lock")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config.Redis)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		_ = client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})
	return nil
}

// initQueue creates the async ingestion queue when enabled
func (app *Application) initQueue() error {
	mgr, err := queue.CreateQueueManager(app.config)
	if err != nil {
		return err
	}
	if mgr == nil {
		logger.InfoCtx(app.ctx, "Async ingestion disabled")
		return nil
	}

	app.queueMgr = mgr
	app.registerCleanup(func() {
		_ = mgr.Close()
		logger.InfoCtx(app.ctx, "Queue client has been closed")
	})
	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	app.snapshotFeed = service.NewSnapshotFeed()
	app.ingestionService = service.NewIngestionService(app.repo)
	if notifier := notification.NewWebhookNotifier(app.config.Notification); notifier != nil {
		app.ingestionService.SetPublisher(service.Publishers{app.snapshotFeed, notifier})
		logger.InfoCtx(app.ctx, "Snapshot webhook enabled, format: %s", app.config.Notification.Format)
	} else {
		app.ingestionService.SetPublisher(app.snapshotFeed)
	}
	app.queryService = service.NewQueryService(app.repo)

	if app.redisClient != nil {
		cache := redisstore.NewLatestCache(app.redisClient, app.config.Cache.TTL)
		app.ingestionService.SetCache(cache)
		app.queryService.SetCache(cache)
		logger.InfoCtx(app.ctx, "Latest snapshot cache enabled, ttl: %v", app.config.Cache.TTL)
	}

	if app.queueMgr != nil {
		app.queueMgr.RegisterHandler(asynq.TypePriceIngest, asynq.NewIngestHandler(app.ingestionService))
	}
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	var ingestQueue interfaces.IngestQueue
	if app.queueMgr != nil {
		ingestQueue = app.queueMgr
	}

	app.priceHandler = handler.NewPriceHandler(app.queryService)
	app.reportHandler = handler.NewReportHandler(app.queryService)
	app.ingestHandler = handler.NewIngestHandler(app.ingestionService, ingestQueue)
	app.feedHandler = handler.NewFeedHandler(app.snapshotFeed)
	app.healthHandler = handler.NewHealthHandler(app.repo.GetDatastore(), app.repo.GetDatastore().Driver())
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	r := router.NewRouter(app.priceHandler, app.reportHandler, app.ingestHandler, app.feedHandler, app.healthHandler, app.config.Server.APIKey)

	gin.SetMode(app.config.Server.Mode)
	app.ginEngine = gin.New()
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

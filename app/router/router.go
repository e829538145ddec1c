package router

import (
	"gpuprices/app/handler"
	"gpuprices/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	priceHandler  *handler.PriceHandler
	reportHandler *handler.ReportHandler
	ingestHandler *handler.IngestHandler
	feedHandler   *handler.FeedHandler
	healthHandler *handler.HealthHandler
	apiKey        string
}

// NewRouter creates a new Router. apiKey protects the ingestion routes; an
// empty key leaves them open.
func NewRouter(priceHandler *handler.PriceHandler, reportHandler *handler.ReportHandler, ingestHandler *handler.IngestHandler, feedHandler *handler.FeedHandler, healthHandler *handler.HealthHandler, apiKey string) *Router {
	return &Router{
		priceHandler:  priceHandler,
		reportHandler: reportHandler,
		ingestHandler: ingestHandler,
		feedHandler:   feedHandler,
		healthHandler: healthHandler,
		apiKey:        apiKey,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.TraceID())
	engine.Use(middleware.Logger())

	if r.healthHandler != nil {
		engine.GET("/health", r.healthHandler.Health)
	}

	api := engine.Group("/api/v1")
	{
		prices := api.Group("/prices")
		{
			prices.GET("/latest", r.priceHandler.Latest)
			prices.GET("/history", r.priceHandler.History)
			prices.GET("/trends", r.priceHandler.Trends)
			prices.GET("/best-deals", r.priceHandler.BestDeals)
			prices.GET("/by-gpu", r.priceHandler.ByGPU)
		}
		api.GET("/snapshots", r.priceHandler.Snapshots)
		api.GET("/stats", r.priceHandler.Stats)

		if r.reportHandler != nil {
			reports := api.Group("/reports")
			{
				reports.GET("/providers", r.reportHandler.Providers)
				reports.GET("/availability", r.reportHandler.Availability)
				reports.GET("/gpus", r.reportHandler.GPUs)
			}
		}

		if r.ingestHandler != nil {
			ingest := api.Group("/ingest")
			ingest.Use(middleware.AuthMiddleware(r.apiKey))
			{
				ingest.POST("", r.ingestHandler.Ingest)
				ingest.POST("/async", r.ingestHandler.IngestAsync)
			}
		}

		if r.feedHandler != nil {
			api.GET("/ws/snapshots", r.feedHandler.Snapshots)
		}
	}
}

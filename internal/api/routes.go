package api

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/market-history/backend/internal/api/handlers"
	"github.com/codyseavey/market-history/backend/internal/database"
	"github.com/codyseavey/market-history/backend/internal/metrics"
	"github.com/codyseavey/market-history/backend/internal/services"
)

func SetupRouter(manager *services.ListingManager, worker *services.SyncWorker, assetCache *services.AssetCache) *gin.Engine {
	router := gin.Default()

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	config.AllowCredentials = false
	router.Use(cors.New(config))
	router.Use(requestMetrics())

	// Initialize handlers
	listingHandler := handlers.NewListingHandler()
	transactionHandler := handlers.NewTransactionHandler()
	syncHandler := handlers.NewSyncHandler(manager, worker, assetCache)

	// API routes
	api := router.Group("/api")
	{
		listings := api.Group("/listings")
		{
			listings.GET("", listingHandler.GetListings)
			listings.GET("/stats", listingHandler.GetStats)
			listings.GET("/:transaction_id", listingHandler.GetListing)
		}

		transactions := api.Group("/transactions")
		{
			transactions.GET("", transactionHandler.GetTransactions)
		}

		sync := api.Group("/sync")
		{
			sync.POST("/start", syncHandler.StartSync)
			sync.GET("/status", syncHandler.GetStatus)
			sync.POST("/reset", syncHandler.ResetProgress)
			sync.GET("/settings", syncHandler.GetSettings)
			sync.DELETE("/settings", syncHandler.DeleteSettings)
		}

		api.GET("/assets/:appid/:classid/:instanceid", syncHandler.GetAsset)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint. The database gauges are refreshed per
	// scrape rather than on a timer.
	promHandler := promhttp.Handler()
	router.GET("/metrics", func(c *gin.Context) {
		metrics.UpdateCollectionMetrics(database.GetDB())
		promHandler.ServeHTTP(c.Writer, c.Request)
	})

	return router
}

// requestMetrics records request counts and latency per route.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

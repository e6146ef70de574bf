package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/codyseavey/market-history/backend/internal/api"
	"github.com/codyseavey/market-history/backend/internal/database"
	"github.com/codyseavey/market-history/backend/internal/services"
)

func main() {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./market_history.db"
	}

	// Initialize database
	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	stores := database.NewStores(database.GetDB())

	// The Steam web session is established externally; we only consume
	// its cookies.
	steamID := os.Getenv("STEAM_ID")
	if steamID == "" {
		log.Fatal("STEAM_ID is required")
	}
	sessionID := os.Getenv("STEAM_SESSION_ID")
	loginSecure := os.Getenv("STEAM_LOGIN_SECURE")
	if sessionID == "" || loginSecure == "" {
		log.Fatal("STEAM_SESSION_ID and STEAM_LOGIN_SECURE are required")
	}
	client := services.NewSteamClient(sessionID, loginSecure)

	// Asset metadata cache shared by the collector and the API
	assetCache, err := services.NewAssetCache()
	if err != nil {
		log.Fatalf("Failed to create asset cache: %v", err)
	}

	// Collection preferences
	language := os.Getenv("ACCOUNT_LANGUAGE")
	if language == "" {
		language = "english"
	}
	walletCurrency := os.Getenv("WALLET_CURRENCY")
	if walletCurrency == "" {
		walletCurrency = "USD"
	}
	pageSize := int64(0)
	if sizeStr := os.Getenv("PAGE_SIZE"); sizeStr != "" {
		if size, err := strconv.ParseInt(sizeStr, 10, 64); err == nil {
			pageSize = size
		}
	}

	manager, err := services.NewListingManager(services.ListingManagerConfig{
		SteamID:         steamID,
		AccountLanguage: language,
		WalletCurrency:  walletCurrency,
		PageSize:        pageSize,
		Fetcher:         client,
		Listings:        stores,
		Settings:        stores,
		AssetCache:      assetCache,
	})
	if err != nil {
		log.Fatalf("Failed to initialize listing manager: %v", err)
	}

	purchaseLoop := services.NewPurchaseLoop(client, stores, manager)

	// Poll/throttle intervals
	pollInterval := durationEnv("POLL_INTERVAL", 0)
	pageDelay := durationEnv("PAGE_DELAY", 0)
	worker := services.NewSyncWorker(manager, purchaseLoop, pollInterval, pageDelay)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start sync worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in sync worker: %v - restarting in 30 seconds", r)
					}
				}()
				worker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				log.Println("Sync worker restarting after panic recovery...")
			}
		}
	}()

	// Setup router
	router := api.SetupRouter(manager, worker, assetCache)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the sync worker
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Ignoring invalid %s value %q", key, value)
	}
	return fallback
}

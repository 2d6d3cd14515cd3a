package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skinvault/internal/api"
	"skinvault/internal/config"
	"skinvault/internal/database"
	"skinvault/internal/models"
	"skinvault/internal/services/catalog"
	"skinvault/internal/services/cloud"
	"skinvault/internal/services/history"
	"skinvault/internal/services/poller"
	"skinvault/internal/services/prices"
	"skinvault/internal/services/remote"
	"skinvault/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}

	catalogStore := storage.NewCatalogStore(db)
	priceStore := storage.NewPriceStore(db)
	metaStore := storage.NewMetaStore(db)

	deviceID, err := ensureDeviceID(metaStore)
	if err != nil {
		log.Fatal("Failed to provision device id:", err)
	}

	replica := cloud.New(cfg.CloudBaseURL, cfg.CloudAPIKey)
	if replica.Enabled() {
		log.Printf("Cloud replica enabled (%s)", cfg.CloudBaseURL)
	} else {
		log.Println("Cloud replica not configured, running local-only")
	}

	orchestrator := &catalog.Orchestrator{
		Store:      catalogStore,
		Meta:       metaStore,
		Fetcher:    remote.NewCatalogClient(cfg.CatalogAPIURL),
		StaleAfter: cfg.CatalogStaleAfter,
		Logger:     logger,
	}

	priceService := &prices.Service{
		Store:         priceStore,
		Meta:          metaStore,
		Feed:          remote.NewPriceClient(cfg.PriceFeedURL),
		Replica:       replica,
		RetentionDays: cfg.HistoryRetentionDays,
		DeviceID:      deviceID,
		Logger:        logger,
	}

	resolver := &history.Resolver{
		Cloud:        replica,
		Local:        priceStore,
		CloudTimeout: cfg.CloudQueryTimeout,
		Logger:       logger,
	}

	scheduler := &poller.Scheduler{
		Poll: func(ctx context.Context) (err error) {
			_, err = priceService.RefreshFromFeed(ctx)
			return err
		},
		Online: remote.ConnectivityProbe(cfg.PriceFeedURL),
		Logger: logger,
	}
	scheduler.Start(cfg.PollInterval)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, api.Deps{
		Catalog:      orchestrator,
		CatalogStore: catalogStore,
		Prices:       priceService,
		Resolver:     resolver,
		Scheduler:    scheduler,
		Meta:         metaStore,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// ensureDeviceID returns the stable per-device id used to attribute
// replica snapshots, minting one on first run.
func ensureDeviceID(meta *storage.MetaStore) (string, error) {
	id, err := meta.Get(models.MetaDeviceID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := meta.Set(models.MetaDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terrabuild/terrafusion/backend/internal/api"
	"github.com/terrabuild/terrafusion/backend/internal/api/handlers"
	"github.com/terrabuild/terrafusion/backend/internal/batch"
	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/internal/report"
	"github.com/terrabuild/terrafusion/backend/internal/session"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/database"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

This command:
- Loads the configured cost model
- Connects to PostgreSQL and Redis
- Serves valuation, property, cost-table, batch, report, and session endpoints

Endpoints:
  GET  /health                       - Health check
  POST /api/valuations               - Compute a valuation
  GET  /api/valuations/{id}/history  - Valuation history for a parcel
  POST /api/batch/upload             - Batch valuation from CSV
  GET  /api/reports/summary          - Roll-level summary

Example:
  go run ./cmd/terrafusion api
  go run ./cmd/terrafusion api --port 8080 --model config/costmodel/benton_2025.yaml`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== TerraFusion API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Load cost model
	model, _, err := costmodel.Load(modelPath)
	if err != nil {
		return fmt.Errorf("load cost model: %w", err)
	}
	paramsHash, err := costmodel.Hash(model)
	if err != nil {
		return fmt.Errorf("hash cost model: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"model_id":     model.Meta.ModelID,
		"jurisdiction": model.Meta.Jurisdiction,
		"params_hash":  paramsHash[:12],
	}).Info("Cost model loaded")

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 5. Connect to Redis (optional; sessions and caches degrade gracefully)
	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without caching and sessions")
		disabled := *cfg
		disabled.Redis.Enabled = false
		redisClient, _ = redis.New(&disabled)
	}
	defer redisClient.Close()

	// 6. Create repositories
	valuationRepo := valuation.NewRepository(db.Pool)
	propertyRepo := property.NewRepository(db.Pool)
	costTableRepo := costmodel.NewRepository(db.Pool)
	uploadRepo := batch.NewRepository(db.Pool)

	// 7. Create batch engine and progress tracker
	tracker := batch.NewTracker()
	engine := batch.NewEngine(propertyRepo, valuationRepo, uploadRepo, tracker,
		batch.Config{
			Workers:       cfg.Valuation.BatchWorkers,
			RatePerSecond: cfg.Valuation.BatchRatePerSecond,
		}, log)

	// 8. Create report service, session store, and API rate limiter
	reportService := report.NewService(db.Pool, redisClient)
	sessionStore := session.NewStore(redisClient, cfg.Redis.SessionTTL)
	rateLimiter := redis.NewRateLimiter(redisClient, "terrafusion")

	// 9. Create handlers
	h := api.Handlers{
		Health:    handlers.NewHealthHandler(db, redisClient, model, log),
		Valuation: handlers.NewValuationHandler(valuationRepo, costTableRepo, model, paramsHash, log),
		Property:  handlers.NewPropertyHandler(propertyRepo, log),
		CostTable: handlers.NewCostTableHandler(costTableRepo, redisClient, log),
		Batch:     handlers.NewBatchHandler(uploadRepo, engine, tracker, model, paramsHash, log),
		Report:    handlers.NewReportHandler(reportService, log),
		Session:   handlers.NewSessionHandler(sessionStore, log),
	}

	// 10. Create router and server
	router := api.NewRouter(h, rateLimiter, log)
	server := api.New(cfg, log, router)

	// 11. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

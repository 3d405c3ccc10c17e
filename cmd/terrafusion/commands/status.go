package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terrabuild/terrafusion/backend/internal/batch"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/database"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Long: `Show database health and recent batch uploads.

Example:
  go run ./cmd/terrafusion status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== TerraFusion Status ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Database health
	health, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	fmt.Printf("\nDatabase:\n")
	fmt.Printf("   Healthy: %v\n", health.Healthy)
	fmt.Printf("   Response Time: %v\n", health.ResponseTime)
	fmt.Printf("   Connections: %d/%d\n", health.Stats.TotalConns, health.Stats.MaxConns)

	// Recent uploads
	uploadRepo := batch.NewRepository(db.Pool)
	uploads, err := uploadRepo.History(ctx, 10)
	if err != nil {
		return fmt.Errorf("list uploads: %w", err)
	}

	fmt.Printf("\nRecent batch uploads (%d):\n", len(uploads))
	for _, u := range uploads {
		fmt.Printf("   %s  %-10s  %d/%d processed, %d errors  (%s)\n",
			u.CreatedAt.Format("2006-01-02 15:04"),
			u.Status,
			u.ProcessedRecords,
			u.TotalRecords,
			u.ErrorRecords,
			u.Filename,
		)
	}
	if len(uploads) == 0 {
		fmt.Println("   (none)")
	}

	return nil
}

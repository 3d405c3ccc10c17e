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

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune finished batch uploads",
	Long: `Remove finished batch uploads older than the retention window.

Example:
  go run ./cmd/terrafusion cleanup
  go run ./cmd/terrafusion cleanup --days 7`,
	RunE: runCleanup,
}

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)

	// Flags
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 30, "retention window in days")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	fmt.Println("=== TerraFusion Cleanup ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	cutoff := time.Now().AddDate(0, 0, -cleanupDays)
	fmt.Printf("Pruning uploads finished before %s...\n", cutoff.Format("2006-01-02"))

	uploadRepo := batch.NewRepository(db.Pool)
	removed, err := uploadRepo.PruneOlderThan(context.Background(), cutoff)
	if err != nil {
		return fmt.Errorf("prune uploads: %w", err)
	}

	fmt.Printf("✅ Removed %d uploads\n", removed)
	return nil
}

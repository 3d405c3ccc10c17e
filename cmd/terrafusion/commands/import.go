package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/terrabuild/terrafusion/backend/internal/batch"
	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/database"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import data from files",
	Long: `Import property records from local files.

Subcommands:
  properties - import and value a property CSV

Example:
  go run ./cmd/terrafusion import properties parcels.csv`,
}

var importPropertiesCmd = &cobra.Command{
	Use:   "properties [file.csv]",
	Short: "Import and value a property CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportProperties,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importPropertiesCmd)
}

func runImportProperties(cmd *cobra.Command, args []string) error {
	path := args[0]

	fmt.Printf("=== TerraFusion Property Import ===\n\n")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	// 2. Load cost model
	model, _, err := costmodel.Load(modelPath)
	if err != nil {
		return fmt.Errorf("load cost model: %w", err)
	}
	paramsHash, err := costmodel.Hash(model)
	if err != nil {
		return fmt.Errorf("hash cost model: %w", err)
	}

	// 3. Parse the CSV
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	records, rowErrors, err := batch.ParseCSV(file)
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}

	fmt.Printf("Parsed %d records (%d row errors)\n", len(records), len(rowErrors))
	if len(records) == 0 {
		return fmt.Errorf("no valid records in %s", path)
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// 5. Run the batch synchronously
	valuationRepo := valuation.NewRepository(db.Pool)
	propertyRepo := property.NewRepository(db.Pool)
	uploadRepo := batch.NewRepository(db.Pool)
	tracker := batch.NewTracker()
	engine := batch.NewEngine(propertyRepo, valuationRepo, uploadRepo, tracker,
		batch.Config{
			Workers:       cfg.Valuation.BatchWorkers,
			RatePerSecond: cfg.Valuation.BatchRatePerSecond,
		}, log)

	upload := &batch.Upload{
		ID:           uuid.NewString(),
		Filename:     path,
		FileType:     "csv",
		Status:       batch.StatusProcessing,
		TotalRecords: len(records) + len(rowErrors),
	}
	if err := uploadRepo.Create(context.Background(), upload); err != nil {
		return fmt.Errorf("create upload record: %w", err)
	}

	engine.Run(context.Background(), upload, records, rowErrors,
		model.Parameters, paramsHash, time.Now().Year())

	// 6. Report outcome
	final, err := uploadRepo.Get(context.Background(), upload.ID)
	if err != nil {
		return fmt.Errorf("read upload result: %w", err)
	}

	fmt.Printf("\n✅ Import %s\n", final.Status)
	fmt.Printf("   Upload ID: %s\n", final.ID)
	fmt.Printf("   Processed: %d\n", final.ProcessedRecords)
	fmt.Printf("   Errors:    %d\n", final.ErrorRecords)
	if final.ErrorLog != "" {
		fmt.Printf("\nError log:\n%s\n", final.ErrorLog)
	}

	return nil
}

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

// valuateCmd represents the valuate command
var valuateCmd = &cobra.Command{
	Use:   "valuate",
	Short: "Compute a single cost-approach valuation",
	Long: `Compute a cost-approach valuation for one property and print the
result with its full factor breakdown. No database connection is needed;
parameters come from the cost model YAML.

Example:
  go run ./cmd/terrafusion valuate --sqft 2400 --year-built 1995 --city Richland --type single_family --condition good`,
	RunE: runValuate,
}

var (
	valuateSqft      float64
	valuateYearBuilt int
	valuateCity      string
	valuateType      string
	valuateCondition string
)

func init() {
	rootCmd.AddCommand(valuateCmd)

	// Flags
	valuateCmd.Flags().Float64Var(&valuateSqft, "sqft", 0, "square footage (required)")
	valuateCmd.Flags().IntVar(&valuateYearBuilt, "year-built", 0, "year built (required)")
	valuateCmd.Flags().StringVar(&valuateCity, "city", "", "city")
	valuateCmd.Flags().StringVar(&valuateType, "type", "single_family", "property type")
	valuateCmd.Flags().StringVar(&valuateCondition, "condition", "", "condition grade (optional)")
	valuateCmd.MarkFlagRequired("sqft")
	valuateCmd.MarkFlagRequired("year-built")
}

func runValuate(cmd *cobra.Command, args []string) error {
	model, _, err := costmodel.Load(modelPath)
	if err != nil {
		return fmt.Errorf("load cost model: %w", err)
	}

	attrs := valuation.PropertyAttributes{
		SquareFootage: valuateSqft,
		YearBuilt:     valuateYearBuilt,
		City:          valuateCity,
		PropertyType:  valuation.PropertyType(valuateType),
		Condition:     valuation.Condition(valuateCondition),
	}

	calculator := valuation.NewCalculator()
	result, err := calculator.Valuate(attrs, model.Parameters, time.Now().Year())
	if err != nil {
		return fmt.Errorf("valuate: %w", err)
	}

	fmt.Printf("=== Valuation (%s) ===\n\n", model.Meta.ModelID)
	fmt.Printf("Estimated Value:   $%.0f\n", result.EstimatedValue)
	fmt.Printf("Price per Sqft:    $%.0f\n", result.PricePerSquareFoot)
	fmt.Printf("Confidence Score:  %d\n\n", result.ConfidenceScore)
	fmt.Println("Breakdown:")
	fmt.Printf("  Replacement Cost:     $%.2f\n", result.Breakdown.ReplacementCost)
	fmt.Printf("  Depreciation:         %.1f%%\n", result.Breakdown.DepreciationFraction*100)
	fmt.Printf("  Market Multiplier:    %.3f\n", result.Breakdown.MarketMultiplier)
	fmt.Printf("  Location Multiplier:  %.3f\n", result.Breakdown.LocationMultiplier)

	return nil
}

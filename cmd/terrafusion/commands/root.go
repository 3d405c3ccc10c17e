package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
	modelPath  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "terrafusion",
	Short: "TerraFusion - municipal property valuation backend",
	Long: `TerraFusion Unified CLI

Cost-approach property valuation for municipal assessment rolls:
replacement cost, depreciation, and market adjustment per parcel,
with batch runs, cost-table management, and roll-level reports.

Usage:
  go run ./cmd/terrafusion [command]

Examples:
  go run ./cmd/terrafusion api
  go run ./cmd/terrafusion valuate --sqft 2400 --year-built 1995 --city Richland --type single_family
  go run ./cmd/terrafusion import properties parcels.csv
  go run ./cmd/terrafusion test-db`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "config/costmodel/benton_2025.yaml", "cost model YAML path")
}

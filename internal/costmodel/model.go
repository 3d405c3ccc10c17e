package costmodel

import (
	"time"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

// Model is a complete, versioned cost-approach parameter set for one
// jurisdiction and assessment year.
type Model struct {
	Meta       Meta                          `yaml:"meta" json:"meta"`
	Parameters valuation.CostModelParameters `yaml:"parameters" json:"parameters"`
}

// Meta identifies a cost model for audit purposes
type Meta struct {
	ModelID        string `yaml:"model_id" json:"model_id"`
	Version        string `yaml:"version" json:"version"`
	Jurisdiction   string `yaml:"jurisdiction" json:"jurisdiction"`
	AssessmentYear int    `yaml:"assessment_year" json:"assessment_year"`
	Source         string `yaml:"source" json:"source"`
}

// ModelSnapshot ties a computed valuation batch to the exact parameters used.
type ModelSnapshot struct {
	ParamsHash     string    `json:"params_hash"`
	ModelYAML      string    `json:"model_yaml"`
	ModelID        string    `json:"model_id"`
	Jurisdiction   string    `json:"jurisdiction"`
	AssessmentYear int       `json:"assessment_year"`
	CreatedAt      time.Time `json:"created_at"`
}

// Defaults returns the documented default parameter set. Rates and condition
// factors follow the published county cost profiles; straight-line life of 50
// years with a 0.6 depreciation cap. Location multipliers default to empty:
// unknown cities resolve to 1.0 inside the calculator.
func Defaults() valuation.CostModelParameters {
	return valuation.CostModelParameters{
		BaseCostPerSquareFoot: map[valuation.PropertyType]float64{
			valuation.SingleFamily: 145.0,
			valuation.Townhouse:    125.0,
			valuation.Condo:        110.0,
			valuation.MobileHome:   65.0,
			valuation.Commercial:   155.0,
			valuation.Industrial:   120.0,
			valuation.Agricultural: 85.0,
		},
		EconomicLifeYears:       50,
		MaxDepreciationFraction: 0.6,
		MarketMultiplier:        1.0,
		LocationMultiplier:      map[string]float64{},
		ConditionFactor: map[valuation.Condition]float64{
			valuation.ConditionExcellent: 0.75,
			valuation.ConditionVeryGood:  0.85,
			valuation.ConditionGood:      0.90,
			valuation.ConditionAverage:   1.00,
			valuation.ConditionFair:      1.15,
			valuation.ConditionPoor:      1.35,
		},
	}
}

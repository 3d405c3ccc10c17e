package costmodel

import (
	"testing"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

func validModel() *Model {
	return &Model{
		Meta: Meta{
			ModelID:        "test_model",
			Version:        "1.0",
			Jurisdiction:   "benton-wa",
			AssessmentYear: 2025,
		},
		Parameters: Defaults(),
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validModel()); err != nil {
		t.Fatalf("valid model rejected: %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
	}{
		{
			name:   "missing model id",
			mutate: func(m *Model) { m.Meta.ModelID = "" },
		},
		{
			name:   "missing jurisdiction",
			mutate: func(m *Model) { m.Meta.Jurisdiction = "" },
		},
		{
			name:   "implausible year",
			mutate: func(m *Model) { m.Meta.AssessmentYear = 1492 },
		},
		{
			name:   "empty base cost table",
			mutate: func(m *Model) { m.Parameters.BaseCostPerSquareFoot = nil },
		},
		{
			name: "unknown property type",
			mutate: func(m *Model) {
				m.Parameters.BaseCostPerSquareFoot["castle"] = 500.0
			},
		},
		{
			name: "non-positive rate",
			mutate: func(m *Model) {
				m.Parameters.BaseCostPerSquareFoot[valuation.Condo] = 0
			},
		},
		{
			name:   "zero economic life",
			mutate: func(m *Model) { m.Parameters.EconomicLifeYears = 0 },
		},
		{
			name:   "depreciation cap above one",
			mutate: func(m *Model) { m.Parameters.MaxDepreciationFraction = 1.2 },
		},
		{
			name:   "negative market multiplier",
			mutate: func(m *Model) { m.Parameters.MarketMultiplier = -1 },
		},
		{
			name: "negative location multiplier",
			mutate: func(m *Model) {
				m.Parameters.LocationMultiplier = map[string]float64{"Richland": -0.5}
			},
		},
		{
			name: "unknown condition grade",
			mutate: func(m *Model) {
				m.Parameters.ConditionFactor["pristine"] = 0.5
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := validModel()
			tt.mutate(model)

			if err := Validate(model); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestMergeDefaults(t *testing.T) {
	partial := valuation.CostModelParameters{
		BaseCostPerSquareFoot: map[valuation.PropertyType]float64{
			valuation.SingleFamily: 200.0,
		},
		LocationMultiplier: map[string]float64{"Richland": 1.08},
	}

	merged := MergeDefaults(partial)

	// Override kept
	if merged.BaseCostPerSquareFoot[valuation.SingleFamily] != 200.0 {
		t.Errorf("expected override 200, got %f", merged.BaseCostPerSquareFoot[valuation.SingleFamily])
	}

	// Default filled in
	if merged.BaseCostPerSquareFoot[valuation.Condo] != 110.0 {
		t.Errorf("expected default condo rate 110, got %f", merged.BaseCostPerSquareFoot[valuation.Condo])
	}

	if merged.EconomicLifeYears != 50 {
		t.Errorf("expected default life 50, got %d", merged.EconomicLifeYears)
	}

	if merged.MaxDepreciationFraction != 0.6 {
		t.Errorf("expected default cap 0.6, got %f", merged.MaxDepreciationFraction)
	}

	if merged.ConditionFactor[valuation.ConditionExcellent] != 0.75 {
		t.Errorf("expected default excellent factor 0.75, got %f", merged.ConditionFactor[valuation.ConditionExcellent])
	}

	// Input untouched
	if _, ok := partial.BaseCostPerSquareFoot[valuation.Condo]; ok {
		t.Error("input parameters were mutated")
	}
}

package valuation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYear = 2025

// testParams returns the parameter set from the Richland reference scenario.
func testParams() CostModelParameters {
	return CostModelParameters{
		BaseCostPerSquareFoot: map[PropertyType]float64{
			SingleFamily: 145,
		},
		EconomicLifeYears:       50,
		MaxDepreciationFraction: 0.6,
		MarketMultiplier:        1.12,
		LocationMultiplier: map[string]float64{
			"Richland": 1.08,
		},
		ConditionFactor: map[Condition]float64{
			ConditionExcellent: 0.75,
			ConditionVeryGood:  0.85,
			ConditionGood:      0.9,
			ConditionAverage:   1.0,
			ConditionFair:      1.15,
			ConditionPoor:      1.35,
		},
	}
}

func richlandHouse() PropertyAttributes {
	return PropertyAttributes{
		SquareFootage: 2400,
		YearBuilt:     2010,
		City:          "Richland",
		PropertyType:  SingleFamily,
	}
}

func TestCalculator_Valuate_ReferenceScenario(t *testing.T) {
	calc := NewCalculator()

	result, err := calc.Valuate(richlandHouse(), testParams(), testYear)
	require.NoError(t, err)

	// replacementCost = 2400 * 145 = 348000
	assert.Equal(t, 348000.0, result.Breakdown.ReplacementCost)

	// age = 15, depreciation = min(15/50, 0.6) = 0.3
	assert.InDelta(t, 0.3, result.Breakdown.DepreciationFraction, 1e-12)

	assert.Equal(t, 1.12, result.Breakdown.MarketMultiplier)
	assert.Equal(t, 1.08, result.Breakdown.LocationMultiplier)

	// estimatedValue = round(348000 * 0.7 * 1.12 * 1.08) = round(294658.56)
	assert.Equal(t, 294659.0, result.EstimatedValue)
	assert.Equal(t, 123.0, result.PricePerSquareFoot)

	t.Logf("estimated=%.0f ppsf=%.0f confidence=%d",
		result.EstimatedValue, result.PricePerSquareFoot, result.ConfidenceScore)
}

func TestCalculator_Valuate_UnknownCityDefaultsToOne(t *testing.T) {
	calc := NewCalculator()

	attrs := richlandHouse()
	attrs.City = "Unknown Town"

	result, err := calc.Valuate(attrs, testParams(), testYear)
	require.NoError(t, err)

	assert.Equal(t, DefaultLocationMultiplier, result.Breakdown.LocationMultiplier)

	// 348000 * 0.7 * 1.12 * 1.0 = 272832
	assert.Equal(t, 272832.0, result.EstimatedValue)
	assert.Equal(t, 114.0, result.PricePerSquareFoot)
}

func TestCalculator_Valuate_Deterministic(t *testing.T) {
	calc := NewCalculator()

	first, err := calc.Valuate(richlandHouse(), testParams(), testYear)
	require.NoError(t, err)

	second, err := calc.Valuate(richlandHouse(), testParams(), testYear)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculator_Valuate_BreakdownRecomposition(t *testing.T) {
	calc := NewCalculator()

	// Seeded so failures reproduce
	rng := rand.New(rand.NewSource(42))

	cities := []string{"Richland", "Kennewick", "Unknown Town"}
	conditions := []Condition{"", ConditionExcellent, ConditionGood, ConditionAverage, ConditionPoor}

	params := testParams()
	params.LocationMultiplier["Kennewick"] = 0.97

	for i := 0; i < 200; i++ {
		attrs := PropertyAttributes{
			SquareFootage: 100 + rng.Float64()*10000,
			YearBuilt:     1900 + rng.Intn(testYear-1900+1),
			City:          cities[rng.Intn(len(cities))],
			PropertyType:  SingleFamily,
			Condition:     conditions[rng.Intn(len(conditions))],
		}

		result, err := calc.Valuate(attrs, params, testYear)
		require.NoError(t, err)

		// Non-negativity
		assert.GreaterOrEqual(t, result.EstimatedValue, 0.0)
		assert.GreaterOrEqual(t, result.PricePerSquareFoot, 0.0)

		// Depreciation bound
		assert.GreaterOrEqual(t, result.Breakdown.DepreciationFraction, 0.0)
		assert.LessOrEqual(t, result.Breakdown.DepreciationFraction, params.MaxDepreciationFraction)

		// Recombining the breakdown reproduces the pre-rounding estimate
		recombined := result.Breakdown.ReplacementCost *
			(1 - result.Breakdown.DepreciationFraction) *
			result.Breakdown.MarketMultiplier *
			result.Breakdown.LocationMultiplier
		assert.LessOrEqual(t, math.Abs(recombined-result.EstimatedValue), 0.5,
			"breakdown must reproduce the estimate within rounding")
	}
}

func TestCalculator_Depreciation(t *testing.T) {
	calc := NewCalculator()
	params := testParams()

	tests := []struct {
		name      string
		yearBuilt int
		condition Condition
		want      float64
	}{
		{
			name:      "zero age",
			yearBuilt: testYear,
			want:      0,
		},
		{
			name:      "fifteen years straight line",
			yearBuilt: 2010,
			want:      0.3,
		},
		{
			name:      "capped at max fraction",
			yearBuilt: 1950, // age 75, 75/50 = 1.5 > cap
			want:      0.6,
		},
		{
			name:      "excellent condition reduces depreciation",
			yearBuilt: 2010,
			condition: ConditionExcellent,
			want:      0.3 * 0.75,
		},
		{
			name:      "poor condition increases but never exceeds cap",
			yearBuilt: 1985, // age 40, min(0.8, 0.6) = 0.6, * 1.35 clamped back
			condition: ConditionPoor,
			want:      0.6,
		},
		{
			name:      "average condition is neutral",
			yearBuilt: 2010,
			condition: ConditionAverage,
			want:      0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := richlandHouse()
			attrs.YearBuilt = tt.yearBuilt
			attrs.Condition = tt.condition

			fraction, err := calc.Depreciation(attrs, params, testYear)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, fraction, 1e-12)
		})
	}
}

func TestCalculator_Valuate_InvalidInput(t *testing.T) {
	calc := NewCalculator()
	params := testParams()

	tests := []struct {
		name   string
		mutate func(*PropertyAttributes)
	}{
		{
			name:   "zero square footage",
			mutate: func(a *PropertyAttributes) { a.SquareFootage = 0 },
		},
		{
			name:   "negative square footage",
			mutate: func(a *PropertyAttributes) { a.SquareFootage = -100 },
		},
		{
			name:   "future year built",
			mutate: func(a *PropertyAttributes) { a.YearBuilt = testYear + 1 },
		},
		{
			name:   "unrecognized property type",
			mutate: func(a *PropertyAttributes) { a.PropertyType = "castle" },
		},
		{
			name:   "no rate configured for type",
			mutate: func(a *PropertyAttributes) { a.PropertyType = Commercial },
		},
		{
			name:   "unrecognized condition",
			mutate: func(a *PropertyAttributes) { a.Condition = "pristine" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := richlandHouse()
			tt.mutate(&attrs)

			_, err := calc.Valuate(attrs, params, testYear)
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err), "expected InvalidInputError, got %v", err)
		})
	}
}

func TestCalculator_Valuate_ConfigurationError(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name   string
		mutate func(*CostModelParameters)
	}{
		{
			name:   "zero economic life",
			mutate: func(p *CostModelParameters) { p.EconomicLifeYears = 0 },
		},
		{
			name:   "depreciation cap above one",
			mutate: func(p *CostModelParameters) { p.MaxDepreciationFraction = 1.5 },
		},
		{
			name:   "negative market multiplier",
			mutate: func(p *CostModelParameters) { p.MarketMultiplier = -0.1 },
		},
		{
			name:   "missing base cost table",
			mutate: func(p *CostModelParameters) { p.BaseCostPerSquareFoot = nil },
		},
		{
			name:   "negative location multiplier",
			mutate: func(p *CostModelParameters) { p.LocationMultiplier["Richland"] = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams()
			tt.mutate(&params)

			_, err := calc.Valuate(richlandHouse(), params, testYear)
			require.Error(t, err)
			assert.True(t, IsConfiguration(err), "expected ConfigurationError, got %v", err)
		})
	}
}

func TestCalculator_Confidence(t *testing.T) {
	calc := NewCalculator()
	params := testParams()

	base := richlandHouse()
	baseScore := calc.Confidence(base, params, testYear)

	// Adding the optional condition never decreases the score
	withCondition := base
	withCondition.Condition = ConditionGood
	condScore := calc.Confidence(withCondition, params, testYear)
	assert.GreaterOrEqual(t, condScore, baseScore)

	// Fully specified inputs hit the cap exactly, never exceed it
	assert.Equal(t, 94, condScore)

	// An unknown city scores lower than a configured one
	unknownCity := withCondition
	unknownCity.City = "Unknown Town"
	assert.Less(t, calc.Confidence(unknownCity, params, testYear), condScore)

	// Implausible year built drops the year bonus
	oldYear := withCondition
	oldYear.YearBuilt = 1750
	assert.Less(t, calc.Confidence(oldYear, params, testYear), condScore)

	// Scores stay within the documented range
	for _, attrs := range []PropertyAttributes{base, withCondition, unknownCity, oldYear} {
		score := calc.Confidence(attrs, params, testYear)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 94)
	}
}

func TestCalculator_Valuate_DoesNotMutateInputs(t *testing.T) {
	calc := NewCalculator()

	attrs := richlandHouse()
	params := testParams()

	attrsCopy := attrs
	rateBefore := params.BaseCostPerSquareFoot[SingleFamily]

	_, err := calc.Valuate(attrs, params, testYear)
	require.NoError(t, err)

	assert.Equal(t, attrsCopy, attrs)
	assert.Equal(t, rateBefore, params.BaseCostPerSquareFoot[SingleFamily])
}

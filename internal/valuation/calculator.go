package valuation

import (
	"math"
)

// Confidence scoring policy. The cap deliberately stays below 100 to signal
// "high but not absolute" certainty; it must not be re-derived.
const (
	confidenceBase          = 60
	confidenceAreaBonus     = 10
	confidenceYearBonus     = 10
	confidenceLocationBonus = 8
	confidenceCondBonus     = 6
	confidenceCap           = 94
)

// Earliest year-built considered plausible for the confidence score.
const earliestPlausibleYear = 1800

// DefaultLocationMultiplier applies when a city has no configured multiplier.
const DefaultLocationMultiplier = 1.0

// Calculator computes cost-approach valuations. It is stateless and free of
// side effects: the same attributes, parameters, and year always produce the
// same result, so a single instance is safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a new Calculator instance
func NewCalculator() *Calculator {
	return &Calculator{}
}

// ReplacementCost computes the cost to rebuild the structure new:
// squareFootage * baseCostPerSquareFoot[propertyType].
func (c *Calculator) ReplacementCost(attrs PropertyAttributes, params CostModelParameters) (float64, error) {
	if attrs.SquareFootage <= 0 {
		return 0, &InvalidInputError{Field: "square_footage", Reason: "must be positive"}
	}

	if !attrs.PropertyType.Valid() {
		return 0, &InvalidInputError{Field: "property_type", Reason: "unrecognized property type"}
	}

	if params.BaseCostPerSquareFoot == nil {
		return 0, &ConfigurationError{Reason: "base cost table is missing"}
	}

	rate, ok := params.BaseCostPerSquareFoot[attrs.PropertyType]
	if !ok {
		return 0, &InvalidInputError{Field: "property_type", Reason: "no base cost rate configured for " + string(attrs.PropertyType)}
	}

	if rate <= 0 {
		return 0, &ConfigurationError{Reason: "base cost rate must be positive for " + string(attrs.PropertyType)}
	}

	return attrs.SquareFootage * rate, nil
}

// Depreciation computes the straight-line depreciation fraction:
// min(age / economicLifeYears, maxDepreciationFraction), where
// age = currentYear - yearBuilt. An optional condition grade scales the
// fraction (better condition, less depreciation); the result is re-clamped
// so it never leaves [0, maxDepreciationFraction].
func (c *Calculator) Depreciation(attrs PropertyAttributes, params CostModelParameters, currentYear int) (float64, error) {
	if err := validateParams(params); err != nil {
		return 0, err
	}

	age := currentYear - attrs.YearBuilt
	if age < 0 {
		return 0, &InvalidInputError{Field: "year_built", Reason: "is after the valuation year"}
	}

	fraction := math.Min(float64(age)/float64(params.EconomicLifeYears), params.MaxDepreciationFraction)

	if attrs.Condition != "" {
		if !attrs.Condition.Valid() {
			return 0, &InvalidInputError{Field: "condition", Reason: "unrecognized condition grade"}
		}
		if factor, ok := params.ConditionFactor[attrs.Condition]; ok {
			fraction *= factor
		}
	}

	// Clamp after the condition adjustment; the adjustment must never push
	// the fraction outside [0, maxDepreciationFraction].
	fraction = math.Max(0, math.Min(fraction, params.MaxDepreciationFraction))

	return fraction, nil
}

// LocationMultiplier returns the configured multiplier for the property's
// city, or DefaultLocationMultiplier when the city is not configured.
// The default is explicit: an unknown city is not an error.
func (c *Calculator) LocationMultiplier(attrs PropertyAttributes, params CostModelParameters) float64 {
	if multiplier, ok := params.LocationMultiplier[attrs.City]; ok {
		return multiplier
	}
	return DefaultLocationMultiplier
}

// Confidence derives a completeness score for the inputs. It starts from a
// base of 60 and adds a fixed increment per present, valid attribute:
// positive square footage, a plausible year built, a city with a configured
// location multiplier, and a supplied condition grade. The total is capped
// at 94.
func (c *Calculator) Confidence(attrs PropertyAttributes, params CostModelParameters, currentYear int) int {
	score := confidenceBase

	if attrs.SquareFootage > 0 {
		score += confidenceAreaBonus
	}

	if attrs.YearBuilt >= earliestPlausibleYear && attrs.YearBuilt <= currentYear {
		score += confidenceYearBonus
	}

	if _, ok := params.LocationMultiplier[attrs.City]; ok {
		score += confidenceLocationBonus
	}

	if attrs.Condition.Valid() {
		score += confidenceCondBonus
	}

	if score > confidenceCap {
		score = confidenceCap
	}

	return score
}

// Valuate orchestrates the full cost-approach pipeline:
//
//	estimatedValue = round(replacementCost * (1 - depreciation) * marketMultiplier * locationMultiplier)
//
// rounded to whole currency units, with price per square foot derived from
// the rounded value. Inputs are never mutated and no I/O is performed.
func (c *Calculator) Valuate(attrs PropertyAttributes, params CostModelParameters, currentYear int) (*ValuationResult, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	replacementCost, err := c.ReplacementCost(attrs, params)
	if err != nil {
		return nil, err
	}

	depreciation, err := c.Depreciation(attrs, params, currentYear)
	if err != nil {
		return nil, err
	}

	locationMultiplier := c.LocationMultiplier(attrs, params)

	breakdown := Breakdown{
		ReplacementCost:      replacementCost,
		DepreciationFraction: depreciation,
		MarketMultiplier:     params.MarketMultiplier,
		LocationMultiplier:   locationMultiplier,
	}

	rawValue := replacementCost * (1 - depreciation) * params.MarketMultiplier * locationMultiplier

	estimatedValue := math.Round(rawValue)
	pricePerSquareFoot := math.Round(estimatedValue / attrs.SquareFootage)

	return &ValuationResult{
		EstimatedValue:     estimatedValue,
		ConfidenceScore:    c.Confidence(attrs, params, currentYear),
		PricePerSquareFoot: pricePerSquareFoot,
		Breakdown:          breakdown,
	}, nil
}

// validateParams rejects parameter sets that are unusable with no documented
// default. These are configuration defects, distinct from user-input errors.
func validateParams(params CostModelParameters) error {
	if params.EconomicLifeYears <= 0 {
		return &ConfigurationError{Reason: "economic life years must be positive"}
	}

	if params.MaxDepreciationFraction < 0 || params.MaxDepreciationFraction > 1 {
		return &ConfigurationError{Reason: "max depreciation fraction must be within [0, 1]"}
	}

	if params.MarketMultiplier < 0 {
		return &ConfigurationError{Reason: "market multiplier must not be negative"}
	}

	for city, multiplier := range params.LocationMultiplier {
		if multiplier < 0 {
			return &ConfigurationError{Reason: "location multiplier must not be negative for " + city}
		}
	}

	for condition, factor := range params.ConditionFactor {
		if factor < 0 {
			return &ConfigurationError{Reason: "condition factor must not be negative for " + string(condition)}
		}
	}

	return nil
}

package costmodel

import (
	"fmt"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

// ValidationError reports a model file that must not be used
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints on a cost model.
// Failure means the file is rejected outright; there is no partial load.
func Validate(model *Model) error {
	// === Meta ===
	if model.Meta.ModelID == "" {
		return ValidationError{"meta.model_id", "required"}
	}
	if model.Meta.Jurisdiction == "" {
		return ValidationError{"meta.jurisdiction", "required"}
	}
	if model.Meta.AssessmentYear < 1900 || model.Meta.AssessmentYear > 2200 {
		return ValidationError{"meta.assessment_year", "must be a plausible year"}
	}

	// === Parameters ===
	p := model.Parameters

	if len(p.BaseCostPerSquareFoot) == 0 {
		return ValidationError{"parameters.base_cost_per_square_foot", "at least one rate is required"}
	}
	for propertyType, rate := range p.BaseCostPerSquareFoot {
		if !propertyType.Valid() {
			return ValidationError{"parameters.base_cost_per_square_foot", fmt.Sprintf("unknown property type %q", propertyType)}
		}
		if rate <= 0 {
			return ValidationError{"parameters.base_cost_per_square_foot", fmt.Sprintf("rate for %q must be > 0", propertyType)}
		}
	}

	if p.EconomicLifeYears <= 0 {
		return ValidationError{"parameters.economic_life_years", "must be > 0"}
	}

	if p.MaxDepreciationFraction < 0 || p.MaxDepreciationFraction > 1 {
		return ValidationError{"parameters.max_depreciation_fraction", "must be in [0, 1]"}
	}

	if p.MarketMultiplier < 0 {
		return ValidationError{"parameters.market_multiplier", "must be >= 0"}
	}

	for city, multiplier := range p.LocationMultiplier {
		if multiplier < 0 {
			return ValidationError{"parameters.location_multiplier", fmt.Sprintf("multiplier for %q must be >= 0", city)}
		}
	}

	for condition, factor := range p.ConditionFactor {
		if !condition.Valid() {
			return ValidationError{"parameters.condition_factor", fmt.Sprintf("unknown condition %q", condition)}
		}
		if factor < 0 {
			return ValidationError{"parameters.condition_factor", fmt.Sprintf("factor for %q must be >= 0", condition)}
		}
	}

	return nil
}

// MergeDefaults fills gaps in a parameter set from Defaults(). The input is
// not mutated; a fresh value is returned so callers can swap atomically.
func MergeDefaults(p valuation.CostModelParameters) valuation.CostModelParameters {
	defaults := Defaults()

	merged := valuation.CostModelParameters{
		EconomicLifeYears:       p.EconomicLifeYears,
		MaxDepreciationFraction: p.MaxDepreciationFraction,
		MarketMultiplier:        p.MarketMultiplier,
	}

	if merged.EconomicLifeYears <= 0 {
		merged.EconomicLifeYears = defaults.EconomicLifeYears
	}
	if merged.MaxDepreciationFraction <= 0 {
		merged.MaxDepreciationFraction = defaults.MaxDepreciationFraction
	}
	if merged.MarketMultiplier <= 0 {
		merged.MarketMultiplier = defaults.MarketMultiplier
	}

	merged.BaseCostPerSquareFoot = make(map[valuation.PropertyType]float64, len(defaults.BaseCostPerSquareFoot))
	for propertyType, rate := range defaults.BaseCostPerSquareFoot {
		merged.BaseCostPerSquareFoot[propertyType] = rate
	}
	for propertyType, rate := range p.BaseCostPerSquareFoot {
		merged.BaseCostPerSquareFoot[propertyType] = rate
	}

	merged.LocationMultiplier = make(map[string]float64, len(p.LocationMultiplier))
	for city, multiplier := range p.LocationMultiplier {
		merged.LocationMultiplier[city] = multiplier
	}

	merged.ConditionFactor = make(map[valuation.Condition]float64, len(defaults.ConditionFactor))
	for condition, factor := range defaults.ConditionFactor {
		merged.ConditionFactor[condition] = factor
	}
	for condition, factor := range p.ConditionFactor {
		merged.ConditionFactor[condition] = factor
	}

	return merged
}

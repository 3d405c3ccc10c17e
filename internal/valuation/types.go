package valuation

// PropertyType classifies an improvement for base-cost selection.
type PropertyType string

// Supported property types
const (
	SingleFamily PropertyType = "single_family"
	Townhouse    PropertyType = "townhouse"
	Condo        PropertyType = "condo"
	MobileHome   PropertyType = "mobile_home"
	Commercial   PropertyType = "commercial"
	Industrial   PropertyType = "industrial"
	Agricultural PropertyType = "agricultural"
)

// Valid reports whether the property type is one of the supported values.
func (p PropertyType) Valid() bool {
	switch p {
	case SingleFamily, Townhouse, Condo, MobileHome, Commercial, Industrial, Agricultural:
		return true
	}
	return false
}

// Condition is a qualitative assessment of an improvement's state.
type Condition string

// Supported condition grades
const (
	ConditionExcellent Condition = "excellent"
	ConditionVeryGood  Condition = "very_good"
	ConditionGood      Condition = "good"
	ConditionAverage   Condition = "average"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// Valid reports whether the condition is one of the supported grades.
func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionVeryGood, ConditionGood, ConditionAverage, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// PropertyAttributes are the physical and locational inputs to a valuation.
type PropertyAttributes struct {
	SquareFootage float64      `json:"square_footage"`
	YearBuilt     int          `json:"year_built"`
	City          string       `json:"city"`
	PropertyType  PropertyType `json:"property_type"`
	Condition     Condition    `json:"condition,omitempty"` // optional
}

// CostModelParameters is the externally supplied cost-approach policy.
// Instances must not be mutated after construction; callers that hot-reload
// parameters are responsible for swapping in a fresh value atomically.
type CostModelParameters struct {
	BaseCostPerSquareFoot   map[PropertyType]float64 `json:"base_cost_per_square_foot" yaml:"base_cost_per_square_foot"`
	EconomicLifeYears       int                      `json:"economic_life_years" yaml:"economic_life_years"`
	MaxDepreciationFraction float64                  `json:"max_depreciation_fraction" yaml:"max_depreciation_fraction"`
	MarketMultiplier        float64                  `json:"market_multiplier" yaml:"market_multiplier"`
	LocationMultiplier      map[string]float64       `json:"location_multiplier" yaml:"location_multiplier"`

	// ConditionFactor scales the depreciation fraction per condition grade.
	// Better condition means a factor below 1.0 and therefore less depreciation.
	ConditionFactor map[Condition]float64 `json:"condition_factor" yaml:"condition_factor"`
}

// Breakdown records every factor that produced the estimated value.
// Recombining them via replacementCost * (1 - depreciationFraction) *
// marketMultiplier * locationMultiplier reproduces the pre-rounding estimate.
type Breakdown struct {
	ReplacementCost      float64 `json:"replacement_cost"`
	DepreciationFraction float64 `json:"depreciation_fraction"`
	MarketMultiplier     float64 `json:"market_multiplier"`
	LocationMultiplier   float64 `json:"location_multiplier"`
}

// ValuationResult is the computed outcome of a cost-approach valuation.
type ValuationResult struct {
	EstimatedValue     float64   `json:"estimated_value"`        // whole currency units
	ConfidenceScore    int       `json:"confidence_score"`       // 0..100
	PricePerSquareFoot float64   `json:"price_per_square_foot"`  // whole currency units
	Breakdown          Breakdown `json:"breakdown"`
}

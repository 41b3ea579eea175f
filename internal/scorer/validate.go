// Package scorer ranks candidate comparables against a subject property
// using weighted multi-criteria similarity scoring.
package scorer

import (
	"fmt"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// Weight bounds. Out-of-range values are validation errors, never clamped.
const (
	minWeight = 0
	maxWeight = 10
)

// ValidateWeights checks a WeightSet against its declared bounds. Returns a
// list of error strings; empty means valid.
func ValidateWeights(w model.WeightSet) []string {
	var errs []string

	weights := []struct {
		name  string
		value float64
	}{
		{"distance", w.Distance},
		{"recency", w.Recency},
		{"gla", w.GLA},
		{"quality", w.Quality},
		{"condition", w.Condition},
	}
	for _, item := range weights {
		if item.value < minWeight || item.value > maxWeight {
			errs = append(errs, fmt.Sprintf("%s weight must be between %d and %d, got %g", item.name, minWeight, maxWeight, item.value))
		}
	}

	if w.Sum() <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	return errs
}

// ValidateConstraints checks a ConstraintSet. Returns a list of error
// strings; empty means valid.
func ValidateConstraints(c model.ConstraintSet) []string {
	var errs []string

	if c.GLATolerancePct <= 0 {
		errs = append(errs, fmt.Sprintf("gla_tolerance_pct must be > 0, got %g", c.GLATolerancePct))
	}
	if c.DistanceCapMiles <= 0 {
		errs = append(errs, fmt.Sprintf("distance_cap_miles must be > 0, got %g", c.DistanceCapMiles))
	}
	if c.MaxMonthsSinceSale <= 0 {
		errs = append(errs, fmt.Sprintf("max_months_since_sale must be > 0, got %g", c.MaxMonthsSinceSale))
	}
	switch c.Mode {
	case model.ConstraintModeExclude, model.ConstraintModeFlag:
	default:
		errs = append(errs, fmt.Sprintf("mode must be %q or %q, got %q", model.ConstraintModeExclude, model.ConstraintModeFlag, c.Mode))
	}

	return errs
}

// Validate runs both validators and concatenates the results. Callers must
// refuse to persist or apply a set that fails validation; partial
// application is forbidden.
func Validate(w model.WeightSet, c model.ConstraintSet) []string {
	errs := ValidateWeights(w)
	errs = append(errs, ValidateConstraints(c)...)
	return errs
}

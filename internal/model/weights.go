package model

import "time"

// WeightSet holds the named similarity weights used by the comp scorer. One
// WeightSet is active per order at a time; UpdatedAt/UpdatedBy version it.
// Weights are validated, never auto-clamped: an out-of-range value is a
// validation error surfaced before any scoring happens.
type WeightSet struct {
	Distance  float64 `json:"distance"`
	Recency   float64 `json:"recency"`
	GLA       float64 `json:"gla"`
	Quality   float64 `json:"quality"`
	Condition float64 `json:"condition"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	return w.Distance + w.Recency + w.GLA + w.Quality + w.Condition
}

// ConstraintMode controls what happens to a comp that violates a hard
// constraint: excluded from the ranked output entirely, or kept but flagged
// and scored to the bottom.
type ConstraintMode string

const (
	ConstraintModeExclude ConstraintMode = "exclude"
	ConstraintModeFlag    ConstraintMode = "flag"
)

// ConstraintSet holds the hard limits that filter or penalize comps before
// ranking is finalized. Caps are strictly positive; the validator rejects
// anything else.
type ConstraintSet struct {
	GLATolerancePct    float64        `json:"gla_tolerance_pct"`
	DistanceCapMiles   float64        `json:"distance_cap_miles"`
	MaxMonthsSinceSale float64        `json:"max_months_since_sale"`
	Mode               ConstraintMode `json:"mode"`
}

package model

import "time"

// AttrKey identifies one valuation attribute.
type AttrKey string

const (
	AttrGLA       AttrKey = "gla"
	AttrBeds      AttrKey = "beds"
	AttrBaths     AttrKey = "baths"
	AttrGarage    AttrKey = "garage"
	AttrLotSize   AttrKey = "lotSize"
	AttrAge       AttrKey = "age"
	AttrQuality   AttrKey = "quality"
	AttrCondition AttrKey = "condition"
	AttrView      AttrKey = "view"
	AttrPool      AttrKey = "pool"
)

// AttrKeys is the canonical attribute order. Every per-attribute iteration in
// the pipeline walks this slice so output ordering is deterministic.
var AttrKeys = []AttrKey{
	AttrGLA, AttrBeds, AttrBaths, AttrGarage, AttrLotSize,
	AttrAge, AttrQuality, AttrCondition, AttrView, AttrPool,
}

// EngineEstimate is one engine's per-attribute output. Lo/Hi bound the
// estimate; N carries the sample size for data-driven engines and BasisNote
// the lookup basis for the cost engine. A nil *EngineEstimate means the
// engine had insufficient data, which is not an error.
type EngineEstimate struct {
	Value     float64 `json:"value"`
	Lo        float64 `json:"lo"`
	Hi        float64 `json:"hi"`
	N         int     `json:"n,omitempty"`
	R2        float64 `json:"r2,omitempty"`
	BasisNote string  `json:"basis_note,omitempty"`
}

// ChosenSource records how the chosen value was produced.
type ChosenSource string

const (
	SourceBlend  ChosenSource = "blend"
	SourceManual ChosenSource = "manual"
)

// ChosenAdjustment is the single per-attribute value the applicator consumes.
type ChosenAdjustment struct {
	Value  float64      `json:"value"`
	Source ChosenSource `json:"source"`
	Note   string       `json:"note,omitempty"`
}

// ProvenanceRef names one engine's contribution to a chosen value.
type ProvenanceRef struct {
	Engine string `json:"engine"`
	Ref    string `json:"ref"`
}

// AttrAdjustment is one row of the adjustment grid: up to three engine
// estimates, the chosen value, and its provenance. Chosen is always
// populated, even when no engine produced a result (value 0, surfaced as a
// run warning).
type AttrAdjustment struct {
	Key        AttrKey          `json:"key"`
	Unit       string           `json:"unit"`      // e.g. "$/sqft", "$/bay"
	Direction  string           `json:"direction"` // "additive"
	Regression *EngineEstimate  `json:"regression,omitempty"`
	Cost       *EngineEstimate  `json:"cost,omitempty"`
	Paired     *EngineEstimate  `json:"paired,omitempty"`
	Chosen     ChosenAdjustment `json:"chosen"`
	Provenance []ProvenanceRef  `json:"provenance,omitempty"`
}

// EngineWeights is the blend split across the three engines. The blender
// renormalizes over whichever engines produced a value, so only the ratios
// matter.
type EngineWeights struct {
	Regression float64 `json:"regression"`
	Cost       float64 `json:"cost"`
	Paired     float64 `json:"paired"`
}

// Regression bases. BasisSalePrice fits raw time-adjusted sale prices;
// BasisPPSF fits time-adjusted price per sqft, scaled back to dollars.
const (
	BasisSalePrice = "salePrice"
	BasisPPSF      = "ppsf"
)

// EngineSettings configures the adjustment run.
type EngineSettings struct {
	Weights EngineWeights `json:"weights"`
	Basis   string        `json:"basis"` // BasisSalePrice or BasisPPSF
}

// AdjustmentInput snapshots what the run was computed from, for
// reproducibility audits.
type AdjustmentInput struct {
	OrderID   string `json:"order_id"`
	CompCount int    `json:"comp_count"`
}

// AdjustmentRunResult is an immutable compute snapshot. A fresh compute call
// always mints a new RunID; manual overrides mutate Chosen rows on the
// existing run without changing RunID.
type AdjustmentRunResult struct {
	RunID      string           `json:"run_id"`
	ComputedAt time.Time        `json:"computed_at"`
	Attrs      []AttrAdjustment `json:"attrs"`
	Settings   EngineSettings   `json:"settings"`
	Input      AdjustmentInput  `json:"input"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Attr returns the adjustment row for key, or nil.
func (r *AdjustmentRunResult) Attr(key AttrKey) *AttrAdjustment {
	for i := range r.Attrs {
		if r.Attrs[i].Key == key {
			return &r.Attrs[i]
		}
	}
	return nil
}

// AttrDelta is one applied adjustment on one comp.
type AttrDelta struct {
	Key       AttrKey `json:"key"`
	CompValue float64 `json:"comp_value"`
	SubjValue float64 `json:"subj_value"`
	Delta     float64 `json:"delta"`  // comp - subject, in attribute units
	Amount    float64 `json:"amount"` // delta x chosen, dollars
	Rationale string  `json:"rationale"`
}

// CompAdjustmentLine is the applied result for one comp.
type CompAdjustmentLine struct {
	CompID           string      `json:"comp_id"`
	SalePrice        float64     `json:"sale_price"`
	TimeAdjusted     float64     `json:"time_adjusted"`
	Deltas           []AttrDelta `json:"deltas"`
	Subtotal         float64     `json:"subtotal"`
	IndicatedValue   float64     `json:"indicated_value"`
	GrossAdjustedPct float64     `json:"gross_adjusted_pct"`
}

// AdjustmentsBundle packages applied comp lines with the selection snapshot
// and engine settings for downstream reporting. Recomputed whole on each
// apply; GeneratedAt is excluded from bundle identity.
type AdjustmentsBundle struct {
	OrderID     string               `json:"order_id"`
	RunID       string               `json:"run_id"`
	Lines       []CompAdjustmentLine `json:"lines"`
	Selection   CompSelection        `json:"selection"`
	Settings    EngineSettings       `json:"settings"`
	TimeAdj     TimeAdjustments      `json:"time_adjustments"`
	GeneratedAt time.Time            `json:"generated_at"`
}

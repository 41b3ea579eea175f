package model

import (
	"math"
	"time"
)

// CenterBasis selects how the Hi-Lo bracket center is computed.
type CenterBasis string

const (
	// CenterMedianTimeAdj centers on the median time-adjusted sale price of
	// the current primary comps.
	CenterMedianTimeAdj CenterBasis = "medianTimeAdj"
	// CenterWeightedPrimaries centers on a weighted blend of the current
	// primaries (slot 0 weighted heaviest).
	CenterWeightedPrimaries CenterBasis = "weightedPrimaries"
	// CenterModel centers on a score-weighted blend of the full candidate
	// pool.
	CenterModel CenterBasis = "model"
)

// HiLoSettings configures the bracket selector.
type HiLoSettings struct {
	CenterBasis CenterBasis `json:"center_basis"`
	BoxPct      float64     `json:"box_pct"` // half-width of the bracket, percent of center
	MaxSales    int         `json:"max_sales"`
	MaxListings int         `json:"max_listings"`
	// SlotWeights blends the primaries for CenterWeightedPrimaries. Length
	// PrimarySlots; renormalized over occupied slots.
	SlotWeights []float64 `json:"slot_weights,omitempty"`
}

// PriceRange is the computed bracket. Invariant: Lo <= Center <= Hi and the
// spread equals twice BoxPct around Center.
type PriceRange struct {
	Center float64 `json:"center"`
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
}

// RankedCandidate is one pool entry ranked by the bracket selector.
type RankedCandidate struct {
	CompID        string   `json:"comp_id"`
	Type          SaleType `json:"type"`
	TimeAdjusted  float64  `json:"time_adjusted"`
	Similarity    float64  `json:"similarity"`
	Closeness     float64  `json:"closeness"`
	RankScore     float64  `json:"rank_score"`
	InsideBracket bool     `json:"inside_bracket"`
}

// HiLoResult is the output of one bracket selection.
type HiLoResult struct {
	Range            PriceRange        `json:"range"`
	Ranked           []RankedCandidate `json:"ranked"`
	SelectedSales    []string          `json:"selected_sales"`
	SelectedListings []string          `json:"selected_listings"`
	Primaries        []string          `json:"primaries"`
	ListingPrimaries []string          `json:"listing_primaries"`
	EffectiveDate    string            `json:"effective_date"`
	ComputedAt       time.Time         `json:"computed_at"`
}

// HiLoState is the per-order bracket state: the settings in force and the
// most recent result, if any.
type HiLoState struct {
	Settings HiLoSettings `json:"settings"`
	Result   *HiLoResult  `json:"result,omitempty"`
}

// TimeAdjustments is the market-conditions correction applied to historical
// sale prices. Its absence is a fatal precondition for any indicated-value
// computation; nothing in the pipeline defaults it.
type TimeAdjustments struct {
	Basis            string  `json:"basis"` // "salePrice" or "ppsf"
	PctPerMonth      float64 `json:"pct_per_month"`
	EffectiveDateISO string  `json:"effective_date_iso"`
}

// Valid reports whether the time adjustment is usable: a resolved effective
// date is required even when the monthly rate is zero.
func (t *TimeAdjustments) Valid() bool {
	return t != nil && t.EffectiveDateISO != ""
}

// AdjustPrice compounds a historical sale price forward to the effective
// date: price x (1 + pct/100)^months. Listings carry zero months and pass
// through unchanged.
func (t TimeAdjustments) AdjustPrice(price, monthsSinceSale float64) float64 {
	if monthsSinceSale <= 0 {
		return price
	}
	return price * math.Pow(1+t.PctPerMonth/100, monthsSinceSale)
}

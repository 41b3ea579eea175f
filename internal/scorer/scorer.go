package scorer

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// ScoredComp pairs a comp with its composite score and scoring detail.
type ScoredComp struct {
	Comp            model.CompProperty `json:"comp"`
	Score           float64            `json:"score"`
	ComponentScores map[string]float64 `json:"component_scores"`
	CapViolations   []string           `json:"cap_violations,omitempty"`
}

// Result is the output of one scoring pass.
type Result struct {
	Ranked   []ScoredComp `json:"ranked"`
	Excluded []ScoredComp `json:"excluded,omitempty"`
}

// Score assigns each candidate a composite similarity score against the
// subject and returns them sorted descending. Inputs are not mutated. Ties
// break by lower months-since-sale, then lower distance, then insertion
// order, so repeated runs over the same inputs produce identical orderings.
//
// Comps violating a hard constraint are excluded when the constraint mode is
// "exclude"; in "flag" mode they stay in the ranking with the violating
// criterion scored 0 and the violation listed.
func Score(comps []model.CompProperty, subject model.Subject, weights model.WeightSet, constraints model.ConstraintSet) Result {
	scored := make([]ScoredComp, 0, len(comps))
	var excluded []ScoredComp

	for _, comp := range comps {
		sc := scoreOne(comp, subject, weights, constraints)
		if len(sc.CapViolations) > 0 && constraints.Mode == model.ConstraintModeExclude {
			excluded = append(excluded, sc)
			continue
		}
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Comp.MonthsSinceSale != scored[j].Comp.MonthsSinceSale {
			return scored[i].Comp.MonthsSinceSale < scored[j].Comp.MonthsSinceSale
		}
		return scored[i].Comp.DistanceMiles < scored[j].Comp.DistanceMiles
	})

	zap.L().Debug("scorer: ranking complete",
		zap.Int("ranked", len(scored)),
		zap.Int("excluded", len(excluded)),
	)

	return Result{Ranked: scored, Excluded: excluded}
}

// scoreOne computes the composite score for a single comp.
func scoreOne(comp model.CompProperty, subject model.Subject, w model.WeightSet, c model.ConstraintSet) ScoredComp {
	var violations []string

	distScore, distViolated := scoreDistance(comp.DistanceMiles, c.DistanceCapMiles)
	if distViolated {
		violations = append(violations, "distance_cap_miles")
	}

	recScore, recViolated := scoreRecency(comp, c.MaxMonthsSinceSale)
	if recViolated {
		violations = append(violations, "max_months_since_sale")
	}

	glaScore, glaViolated := scoreGLA(comp.GLA, subject.GLA, c.GLATolerancePct)
	if glaViolated {
		violations = append(violations, "gla_tolerance_pct")
	}

	components := map[string]float64{
		"distance":  distScore,
		"recency":   recScore,
		"gla":       glaScore,
		"quality":   scoreRatingDelta(comp.Quality, subject.Quality),
		"condition": scoreRatingDelta(comp.Condition, subject.Condition),
	}

	weightOf := map[string]float64{
		"distance":  w.Distance,
		"recency":   w.Recency,
		"gla":       w.GLA,
		"quality":   w.Quality,
		"condition": w.Condition,
	}

	// Missing criteria (e.g. a subject without GLA) are dropped from both
	// numerator and denominator so they do not bias the composite.
	var total, activeWeight float64
	for name, score := range components {
		if score < 0 {
			continue
		}
		total += score * weightOf[name]
		activeWeight += weightOf[name]
	}

	var composite float64
	if activeWeight > 0 {
		composite = (total / activeWeight) * 100
	}

	return ScoredComp{
		Comp:            comp,
		Score:           math.Round(composite*100) / 100,
		ComponentScores: components,
		CapViolations:   violations,
	}
}

// scoreDistance maps distance to [0,1] against the cap. The cap is
// inclusive; strictly beyond it scores 0 and violates.
func scoreDistance(miles, capMiles float64) (float64, bool) {
	if capMiles <= 0 {
		return -1, false
	}
	if miles > capMiles {
		return 0, true
	}
	return 1 - miles/capMiles, false
}

// scoreRecency maps months since sale to [0,1]. Listings have no sale date
// and score full recency.
func scoreRecency(comp model.CompProperty, capMonths float64) (float64, bool) {
	if comp.Type == model.SaleTypeListing {
		return 1, false
	}
	if capMonths <= 0 {
		return -1, false
	}
	if comp.MonthsSinceSale > capMonths {
		return 0, true
	}
	return 1 - comp.MonthsSinceSale/capMonths, false
}

// scoreGLA maps the GLA delta percentage to [0,1] against the tolerance.
func scoreGLA(compGLA, subjGLA, tolerancePct float64) (float64, bool) {
	if subjGLA <= 0 || compGLA <= 0 || tolerancePct <= 0 {
		return -1, false
	}
	deltaPct := math.Abs(compGLA-subjGLA) / subjGLA * 100
	if deltaPct > tolerancePct {
		return 0, true
	}
	return 1 - deltaPct/tolerancePct, false
}

// scoreRatingDelta maps a 1-5 rating delta to [0,1].
func scoreRatingDelta(comp, subj int) float64 {
	if comp <= 0 || subj <= 0 {
		return -1
	}
	delta := math.Abs(float64(comp - subj))
	return math.Max(0, 1-delta/4)
}

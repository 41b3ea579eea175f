// Package hilo implements the Hi-Lo bracket selector: given a scored
// candidate pool and a center-value strategy it computes a defensible price
// range and picks the sales and listings that best bracket it.
package hilo

import (
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/model"
	"github.com/sells-group/appraisal-cli/internal/scorer"
)

// Preconditions are fatal for the operation, never silently defaulted.
var (
	ErrNoCandidates          = eris.New("hilo: no candidates available after filtering")
	ErrTimeAdjustmentMissing = eris.New("hilo: time adjustment with effective date is required")
	ErrNoPrimaries           = eris.New("hilo: center basis requires at least one primary comp")
	ErrBadBoxPct             = eris.New("hilo: box percentage must be in (0, 100)")
)

// Input bundles everything one bracket selection reads.
type Input struct {
	Candidates []scorer.ScoredComp
	Selection  model.CompSelection
	Settings   model.HiLoSettings
	TimeAdj    *model.TimeAdjustments
}

// Select computes the bracket and the candidates that best bracket it.
// Candidates must already be scored and polygon-filtered; Select does not
// re-run the scorer.
func Select(in Input) (*model.HiLoResult, error) {
	if !in.TimeAdj.Valid() {
		return nil, ErrTimeAdjustmentMissing
	}
	if in.Settings.BoxPct <= 0 || in.Settings.BoxPct >= 100 {
		return nil, ErrBadBoxPct
	}
	if len(in.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	center, err := computeCenter(in)
	if err != nil {
		return nil, err
	}

	spread := center * in.Settings.BoxPct / 100
	rng := model.PriceRange{
		Center: center,
		Lo:     center - spread,
		Hi:     center + spread,
	}

	ranked := rankCandidates(in.Candidates, rng, *in.TimeAdj)

	maxSales := in.Settings.MaxSales
	if maxSales <= 0 {
		maxSales = model.PrimarySlots
	}
	maxListings := in.Settings.MaxListings
	if maxListings < 0 {
		maxListings = 0
	}

	var sales, listings []string
	for _, rc := range ranked {
		switch rc.Type {
		case model.SaleTypeListing:
			if len(listings) < maxListings {
				listings = append(listings, rc.CompID)
			}
		default:
			if len(sales) < maxSales {
				sales = append(sales, rc.CompID)
			}
		}
	}

	result := &model.HiLoResult{
		Range:            rng,
		Ranked:           ranked,
		SelectedSales:    sales,
		SelectedListings: listings,
		Primaries:        topInsideBracket(ranked, model.SaleTypeSale, model.PrimarySlots),
		ListingPrimaries: topInsideBracket(ranked, model.SaleTypeListing, maxListings),
		EffectiveDate:    in.TimeAdj.EffectiveDateISO,
		ComputedAt:       time.Now().UTC(),
	}

	zap.L().Info("hilo: bracket computed",
		zap.Float64("center", rng.Center),
		zap.Float64("lo", rng.Lo),
		zap.Float64("hi", rng.Hi),
		zap.Int("selected_sales", len(sales)),
		zap.Int("selected_listings", len(listings)),
	)

	return result, nil
}

// computeCenter resolves the center price per the configured basis.
func computeCenter(in Input) (float64, error) {
	byID := make(map[string]scorer.ScoredComp, len(in.Candidates))
	for _, sc := range in.Candidates {
		byID[sc.Comp.ID] = sc
	}

	switch in.Settings.CenterBasis {
	case model.CenterMedianTimeAdj:
		prices := primaryPrices(in, byID)
		if len(prices) == 0 {
			return 0, ErrNoPrimaries
		}
		return median(prices), nil

	case model.CenterWeightedPrimaries:
		prices := primaryPrices(in, byID)
		if len(prices) == 0 {
			return 0, ErrNoPrimaries
		}
		weights := in.Settings.SlotWeights
		var sum, wsum float64
		for i, p := range prices {
			w := 1.0
			if i < len(weights) {
				w = weights[i]
			}
			sum += p * w
			wsum += w
		}
		if wsum <= 0 {
			return 0, ErrNoPrimaries
		}
		return sum / wsum, nil

	case model.CenterModel:
		var sum, wsum float64
		for _, sc := range in.Candidates {
			if sc.Score <= 0 {
				continue
			}
			price := in.TimeAdj.AdjustPrice(sc.Comp.SalePrice, sc.Comp.MonthsSinceSale)
			sum += price * sc.Score
			wsum += sc.Score
		}
		if wsum <= 0 {
			return 0, ErrNoCandidates
		}
		return sum / wsum, nil

	default:
		return 0, eris.Errorf("hilo: unknown center basis %q", in.Settings.CenterBasis)
	}
}

// primaryPrices returns the time-adjusted prices of occupied primary slots,
// in slot order, skipping ids absent from the candidate pool.
func primaryPrices(in Input, byID map[string]scorer.ScoredComp) []float64 {
	var prices []float64
	for _, id := range in.Selection.Primary {
		if id == model.EmptySlot {
			continue
		}
		sc, ok := byID[id]
		if !ok {
			continue
		}
		prices = append(prices, in.TimeAdj.AdjustPrice(sc.Comp.SalePrice, sc.Comp.MonthsSinceSale))
	}
	return prices
}

// rankCandidates orders the pool by a blend of closeness to center and
// similarity score. Inside-bracket candidates outrank outside-bracket
// candidates of equal rank score; remaining ties keep pool order.
func rankCandidates(candidates []scorer.ScoredComp, rng model.PriceRange, ta model.TimeAdjustments) []model.RankedCandidate {
	ranked := make([]model.RankedCandidate, 0, len(candidates))
	for _, sc := range candidates {
		price := ta.AdjustPrice(sc.Comp.SalePrice, sc.Comp.MonthsSinceSale)

		// Closeness decays linearly to 0 at twice the box spread.
		var closeness float64
		if rng.Center > 0 {
			span := 2 * (rng.Hi - rng.Center)
			if span > 0 {
				closeness = math.Max(0, 1-math.Abs(price-rng.Center)/span)
			}
		}

		rc := model.RankedCandidate{
			CompID:        sc.Comp.ID,
			Type:          sc.Comp.Type,
			TimeAdjusted:  price,
			Similarity:    sc.Score,
			Closeness:     closeness,
			RankScore:     0.5*closeness*100 + 0.5*sc.Score,
			InsideBracket: price >= rng.Lo && price <= rng.Hi,
		}
		ranked = append(ranked, rc)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RankScore != ranked[j].RankScore {
			return ranked[i].RankScore > ranked[j].RankScore
		}
		return ranked[i].InsideBracket && !ranked[j].InsideBracket
	})

	return ranked
}

// topInsideBracket picks the top n ranked ids of the given type that fall
// inside the bracket.
func topInsideBracket(ranked []model.RankedCandidate, saleType model.SaleType, n int) []string {
	var out []string
	for _, rc := range ranked {
		if len(out) >= n {
			break
		}
		if rc.Type == saleType && rc.InsideBracket {
			out = append(out, rc.CompID)
		}
	}
	return out
}

// median returns the middle value (mean of the middle two for even counts).
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

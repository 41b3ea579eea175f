package adjust

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sells-group/appraisal-cli/internal/model"
)

const (
	// pairedMinPairs is the fewest usable pairs a defensible estimate needs.
	pairedMinPairs = 2
	// pairedMaxOffDistance caps how dissimilar a pair may be on the
	// attributes it is supposed to hold constant.
	pairedMaxOffDistance = 3.0
)

// pairedMinDelta is the smallest on-attribute difference a pair must show to
// isolate that attribute's price effect.
var pairedMinDelta = map[model.AttrKey]float64{
	model.AttrGLA:       50,
	model.AttrBeds:      1,
	model.AttrBaths:     0.5,
	model.AttrGarage:    1,
	model.AttrLotSize:   1000,
	model.AttrAge:       3,
	model.AttrQuality:   1,
	model.AttrCondition: 1,
	model.AttrView:      1,
	model.AttrPool:      1,
}

// attrScale normalizes off-attribute differences so a 100 sqft GLA gap and a
// one-point condition gap count the same toward pair dissimilarity.
var attrScale = map[model.AttrKey]float64{
	model.AttrGLA:       100,
	model.AttrBeds:      1,
	model.AttrBaths:     1,
	model.AttrGarage:    1,
	model.AttrLotSize:   5000,
	model.AttrAge:       10,
	model.AttrQuality:   1,
	model.AttrCondition: 1,
	model.AttrView:      1,
	model.AttrPool:      1,
}

// pairedEngine estimates each attribute's dollar effect by pairing comps that
// differ on that attribute while staying near-identical on the rest. Each
// comp pairs with its nearest eligible neighbor; the estimate is the median
// implied rate across pairs, bounded by the observed extremes. Nil when
// fewer than pairedMinPairs pairs exist.
func pairedEngine(comps []model.CompProperty, ta model.TimeAdjustments, effective time.Time) map[model.AttrKey]*model.EngineEstimate {
	out := make(map[model.AttrKey]*model.EngineEstimate, len(model.AttrKeys))

	prices := make([]float64, len(comps))
	attrs := make([]map[model.AttrKey]float64, len(comps))
	for i, c := range comps {
		prices[i] = ta.AdjustPrice(c.SalePrice, c.MonthsSinceSale)
		attrs[i] = make(map[model.AttrKey]float64, len(model.AttrKeys))
		for _, key := range model.AttrKeys {
			attrs[i][key] = compAttr(c, key, effective)
		}
	}

	for _, key := range model.AttrKeys {
		rates := pairRates(key, prices, attrs)
		if len(rates) < pairedMinPairs {
			continue
		}

		sort.Float64s(rates)
		out[key] = &model.EngineEstimate{
			Value:     medianSorted(rates),
			Lo:        rates[0],
			Hi:        rates[len(rates)-1],
			N:         len(rates),
			BasisNote: fmt.Sprintf("paired n=%d", len(rates)),
		}
	}

	return out
}

// pairRates matches each comp with its nearest eligible neighbor for the
// given attribute and returns the implied dollar rates, one per unique pair.
func pairRates(key model.AttrKey, prices []float64, attrs []map[model.AttrKey]float64) []float64 {
	minDelta := pairedMinDelta[key]

	type pairKey struct{ lo, hi int }
	seen := make(map[pairKey]bool)
	var rates []float64

	for i := range prices {
		best := -1
		bestOff := math.Inf(1)
		for j := range prices {
			if i == j {
				continue
			}
			delta := attrs[i][key] - attrs[j][key]
			if math.Abs(delta) < minDelta {
				continue
			}
			off := offDistance(key, attrs[i], attrs[j])
			if off > pairedMaxOffDistance {
				continue
			}
			if off < bestOff {
				bestOff = off
				best = j
			}
		}
		if best < 0 {
			continue
		}

		pk := pairKey{lo: i, hi: best}
		if pk.lo > pk.hi {
			pk.lo, pk.hi = pk.hi, pk.lo
		}
		if seen[pk] {
			continue
		}
		seen[pk] = true

		delta := attrs[i][key] - attrs[best][key]
		rates = append(rates, (prices[i]-prices[best])/delta)
	}

	return rates
}

// offDistance sums the normalized differences on every attribute except the
// one being isolated.
func offDistance(isolated model.AttrKey, a, b map[model.AttrKey]float64) float64 {
	var total float64
	for _, key := range model.AttrKeys {
		if key == isolated {
			continue
		}
		scale := attrScale[key]
		if scale <= 0 {
			scale = 1
		}
		total += math.Abs(a[key]-b[key]) / scale
	}
	return total
}

// medianSorted returns the middle value of an already-sorted slice.
func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

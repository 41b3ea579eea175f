package adjust

import (
	"fmt"
	"math"
	"time"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// regressionMinN is the smallest pool a slope can be estimated from. Two
// points pin a line exactly, so the band collapses to the point estimate.
const regressionMinN = 2

// regressionEngine fits a univariate least-squares slope of the chosen basis
// on each attribute across the comp pool. BasisSalePrice fits raw
// time-adjusted prices; BasisPPSF fits time-adjusted price per sqft (comps
// without a GLA drop out) and scales the coefficient back to dollars by the
// pool's mean GLA so both bases report in the same unit. A nil estimate for
// an attribute means the pool lacked the variation to fit one.
func regressionEngine(comps []model.CompProperty, ta model.TimeAdjustments, effective time.Time, basis string) map[model.AttrKey]*model.EngineEstimate {
	out := make(map[model.AttrKey]*model.EngineEstimate, len(model.AttrKeys))

	ppsf := basis == model.BasisPPSF

	pool := comps
	if ppsf {
		pool = make([]model.CompProperty, 0, len(comps))
		for _, c := range comps {
			if c.GLA > 0 {
				pool = append(pool, c)
			}
		}
	}

	ys := make([]float64, 0, len(pool))
	var glaSum float64
	for _, c := range pool {
		price := ta.AdjustPrice(c.SalePrice, c.MonthsSinceSale)
		if ppsf {
			price /= c.GLA
			glaSum += c.GLA
		}
		ys = append(ys, price)
	}

	scale := 1.0
	if ppsf && len(pool) > 0 {
		scale = glaSum / float64(len(pool))
	}

	for _, key := range model.AttrKeys {
		xs := make([]float64, 0, len(pool))
		for _, c := range pool {
			xs = append(xs, compAttr(c, key, effective))
		}
		est := fitSlope(xs, ys)
		if est != nil && ppsf {
			est.Value *= scale
			est.Lo *= scale
			est.Hi *= scale
			est.BasisNote = fmt.Sprintf("ols ppsf n=%d r2=%.2f", est.N, est.R2)
		}
		out[key] = est
	}

	return out
}

// fitSlope runs ordinary least squares of y on x and returns the slope with
// an approximate 95% confidence band. Returns nil when the sample is too
// small or x carries no variation.
func fitSlope(xs, ys []float64) *model.EngineEstimate {
	n := len(xs)
	if n < regressionMinN {
		return nil
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, sxy, syy float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return nil
	}

	slope := sxy / sxx

	var r2 float64
	if syy > 0 {
		r2 = (sxy * sxy) / (sxx * syy)
	}

	// Residual variance with n-2 degrees of freedom; the z≈1.96 band is close
	// enough at these pool sizes. With n=2 the fit is exact and the band is 0.
	var band float64
	if n > 2 {
		resid := syy - slope*sxy
		if resid < 0 {
			resid = 0
		}
		band = 1.96 * math.Sqrt(resid/float64(n-2)/sxx)
	}

	return &model.EngineEstimate{
		Value:     slope,
		Lo:        slope - band,
		Hi:        slope + band,
		N:         n,
		R2:        r2,
		BasisNote: fmt.Sprintf("ols n=%d r2=%.2f", n, r2),
	}
}

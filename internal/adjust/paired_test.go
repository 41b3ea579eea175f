package adjust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appraisal-cli/internal/model"
)

var pairedEffective = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func TestPairedEngine_IsolatesGLA(t *testing.T) {
	ta := model.TimeAdjustments{EffectiveDateISO: "2026-08-01"}

	// Identical except GLA; every implied rate is $100/sqft.
	comps := []model.CompProperty{
		{ID: "a", SalePrice: 300000, GLA: 2000, Beds: 3, Baths: 2, Quality: 3, Condition: 3},
		{ID: "b", SalePrice: 320000, GLA: 2200, Beds: 3, Baths: 2, Quality: 3, Condition: 3},
		{ID: "c", SalePrice: 280000, GLA: 1800, Beds: 3, Baths: 2, Quality: 3, Condition: 3},
		{ID: "d", SalePrice: 310000, GLA: 2100, Beds: 3, Baths: 2, Quality: 3, Condition: 3},
	}

	out := pairedEngine(comps, ta, pairedEffective)

	est := out[model.AttrGLA]
	require.NotNil(t, est)
	assert.InDelta(t, 100, est.Value, 1e-9)
	assert.InDelta(t, 100, est.Lo, 1e-9)
	assert.InDelta(t, 100, est.Hi, 1e-9)
	assert.GreaterOrEqual(t, est.N, pairedMinPairs)

	// Beds never vary, so no pair isolates them.
	assert.Nil(t, out[model.AttrBeds])
}

func TestPairedEngine_TooFewPairs(t *testing.T) {
	ta := model.TimeAdjustments{EffectiveDateISO: "2026-08-01"}

	// Two comps make at most one unique pair.
	comps := []model.CompProperty{
		{ID: "a", SalePrice: 300000, GLA: 2000},
		{ID: "b", SalePrice: 320000, GLA: 2200},
	}

	out := pairedEngine(comps, ta, pairedEffective)
	assert.Nil(t, out[model.AttrGLA])
}

func TestPairedEngine_RejectsDissimilarPairs(t *testing.T) {
	ta := model.TimeAdjustments{EffectiveDateISO: "2026-08-01"}

	// The GLA deltas qualify but the comps diverge on everything else.
	comps := []model.CompProperty{
		{ID: "a", SalePrice: 300000, GLA: 2000, Beds: 2, Baths: 1, Quality: 1, Condition: 1},
		{ID: "b", SalePrice: 500000, GLA: 2400, Beds: 5, Baths: 4, Quality: 5, Condition: 5},
		{ID: "c", SalePrice: 400000, GLA: 2800, Beds: 3, Baths: 2, Quality: 2, Condition: 4, View: 3},
	}

	out := pairedEngine(comps, ta, pairedEffective)
	assert.Nil(t, out[model.AttrGLA])
}

func TestOffDistance_SkipsIsolatedAttr(t *testing.T) {
	a := map[model.AttrKey]float64{model.AttrGLA: 2000, model.AttrBeds: 3}
	b := map[model.AttrKey]float64{model.AttrGLA: 2500, model.AttrBeds: 3}

	// The isolated attribute's own gap never counts against the pair.
	assert.InDelta(t, 0, offDistance(model.AttrGLA, a, b), 1e-9)
	assert.InDelta(t, 5, offDistance(model.AttrBeds, a, b), 1e-9)
}

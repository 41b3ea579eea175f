package adjust

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appraisal-cli/internal/model"
)

func TestCostEngine_RateAndLocality(t *testing.T) {
	baseline := &CostBaseline{
		LocalityMultiplier: 1.2,
		Attributes: map[model.AttrKey]AttributeRate{
			model.AttrGLA:  {Rate: 100, LifeYears: 0},
			model.AttrPool: {Rate: 30000, LifeYears: 0},
		},
	}

	out := costEngine(baseline, 0)

	require.NotNil(t, out[model.AttrGLA])
	assert.InDelta(t, 120, out[model.AttrGLA].Value, 1e-9)
	assert.InDelta(t, 120*0.85, out[model.AttrGLA].Lo, 1e-9)
	assert.InDelta(t, 120*1.15, out[model.AttrGLA].Hi, 1e-9)
	assert.Nil(t, out[model.AttrBeds], "attributes absent from the table get no estimate")
}

func TestCostEngine_Depreciation(t *testing.T) {
	baseline := &CostBaseline{
		LocalityMultiplier: 1,
		Attributes: map[model.AttrKey]AttributeRate{
			model.AttrGLA: {Rate: 100, LifeYears: 60},
		},
	}

	out := costEngine(baseline, 30)
	require.NotNil(t, out[model.AttrGLA])
	assert.InDelta(t, 50, out[model.AttrGLA].Value, 1e-9)

	// Depreciation never drives an improvement below the floor.
	out = costEngine(baseline, 200)
	require.NotNil(t, out[model.AttrGLA])
	assert.InDelta(t, 20, out[model.AttrGLA].Value, 1e-9)
}

func TestCostEngine_NilBaseline(t *testing.T) {
	out := costEngine(nil, 10)
	assert.Empty(t, out)
}

func TestLoadBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.yaml")
	data := []byte(`
locality_multiplier: 1.1
attributes:
  gla:
    rate: 90
    life_years: 60
  pool:
    rate: 25000
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	b, err := LoadBaseline(path)
	require.NoError(t, err)
	assert.InDelta(t, 1.1, b.LocalityMultiplier, 1e-9)
	assert.InDelta(t, 90, b.Attributes[model.AttrGLA].Rate, 1e-9)
	assert.InDelta(t, 60, b.Attributes[model.AttrGLA].LifeYears, 1e-9)
	assert.InDelta(t, 25000, b.Attributes[model.AttrPool].Rate, 1e-9)
}

func TestLoadBaseline_Missing(t *testing.T) {
	_, err := LoadBaseline(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDefaultBaseline_CoversAllAttrs(t *testing.T) {
	b := DefaultBaseline()
	for _, key := range model.AttrKeys {
		_, ok := b.Attributes[key]
		assert.True(t, ok, "missing rate for %s", key)
	}
}

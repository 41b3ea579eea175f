package adjust

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// CostBaseline is the replacement-cost rate table the cost engine reads.
// Rates are new-construction dollars per attribute unit; LifeYears drives
// straight-line depreciation against the subject's age.
type CostBaseline struct {
	LocalityMultiplier float64                         `yaml:"locality_multiplier"`
	Attributes         map[model.AttrKey]AttributeRate `yaml:"attributes"`
}

// AttributeRate is one row of the baseline table.
type AttributeRate struct {
	Rate      float64 `yaml:"rate"`
	LifeYears float64 `yaml:"life_years"` // 0 = no depreciation (land, ratings)
}

// LoadBaseline reads a cost baseline from a YAML file.
func LoadBaseline(path string) (*CostBaseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "adjust: read baseline %s", path)
	}

	var b CostBaseline
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, eris.Wrap(err, "adjust: parse baseline")
	}
	if b.LocalityMultiplier <= 0 {
		b.LocalityMultiplier = 1
	}

	return &b, nil
}

// DefaultBaseline returns the built-in national-average rate table.
func DefaultBaseline() *CostBaseline {
	return &CostBaseline{
		LocalityMultiplier: 1.0,
		Attributes: map[model.AttrKey]AttributeRate{
			model.AttrGLA:       {Rate: 85, LifeYears: 60},
			model.AttrBeds:      {Rate: 5000, LifeYears: 60},
			model.AttrBaths:     {Rate: 7500, LifeYears: 40},
			model.AttrGarage:    {Rate: 12000, LifeYears: 50},
			model.AttrLotSize:   {Rate: 2.5},
			model.AttrAge:       {Rate: -1200},
			model.AttrQuality:   {Rate: 15000},
			model.AttrCondition: {Rate: 10000},
			model.AttrView:      {Rate: 8000},
			model.AttrPool:      {Rate: 30000, LifeYears: 25},
		},
	}
}

package adjust

import (
	"fmt"
	"math"

	"github.com/sells-group/appraisal-cli/internal/model"
)

const (
	// costBandPct widens the baseline rate into a Lo/Hi band.
	costBandPct = 0.15
	// costDepreciationFloor keeps a depreciated improvement above scrap value.
	costDepreciationFloor = 0.2
)

// costEngine derives every attribute's adjustment from the baseline rate
// table, scaled by locality and depreciated against the subject's age. The
// table-driven engine always answers for any attribute the table covers.
func costEngine(baseline *CostBaseline, subjectAge float64) map[model.AttrKey]*model.EngineEstimate {
	out := make(map[model.AttrKey]*model.EngineEstimate, len(model.AttrKeys))
	if baseline == nil {
		return out
	}

	mult := baseline.LocalityMultiplier
	if mult <= 0 {
		mult = 1
	}

	for _, key := range model.AttrKeys {
		row, ok := baseline.Attributes[key]
		if !ok || row.Rate == 0 {
			continue
		}

		value := row.Rate * mult
		depFactor := 1.0
		if row.LifeYears > 0 && subjectAge > 0 {
			depFactor = math.Max(costDepreciationFloor, 1-subjectAge/row.LifeYears)
			value *= depFactor
		}

		band := math.Abs(value) * costBandPct
		out[key] = &model.EngineEstimate{
			Value:     value,
			Lo:        value - band,
			Hi:        value + band,
			BasisNote: fmt.Sprintf("baseline %.2f x%.2f dep=%.2f", row.Rate, mult, depFactor),
		}
	}

	return out
}

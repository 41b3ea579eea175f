package adjust

import (
	"fmt"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// blendRow fills the Chosen value and provenance of one grid row from
// whichever engines produced estimates, renormalizing the weight split over
// the engines that answered. Returns a warning string when no engine did;
// the row still carries an explicit zero so the grid stays complete.
func blendRow(row *model.AttrAdjustment, w model.EngineWeights) string {
	type contrib struct {
		engine string
		est    *model.EngineEstimate
		weight float64
	}

	contribs := make([]contrib, 0, 3)
	if row.Regression != nil {
		contribs = append(contribs, contrib{"regression", row.Regression, w.Regression})
	}
	if row.Cost != nil {
		contribs = append(contribs, contrib{"cost", row.Cost, w.Cost})
	}
	if row.Paired != nil {
		contribs = append(contribs, contrib{"paired", row.Paired, w.Paired})
	}

	var sum, wsum float64
	for _, c := range contribs {
		sum += c.est.Value * c.weight
		wsum += c.weight
	}

	if len(contribs) == 0 {
		row.Chosen = model.ChosenAdjustment{
			Value:  0,
			Source: model.SourceBlend,
			Note:   "no engine data",
		}
		row.Provenance = nil
		return fmt.Sprintf("attr %s: no engine produced an estimate", row.Key)
	}
	if wsum <= 0 {
		row.Chosen = model.ChosenAdjustment{
			Value:  0,
			Source: model.SourceBlend,
			Note:   "zero blend weight",
		}
		row.Provenance = nil
		return fmt.Sprintf("attr %s: available engines carry zero blend weight", row.Key)
	}

	row.Chosen = model.ChosenAdjustment{
		Value:  sum / wsum,
		Source: model.SourceBlend,
	}
	row.Provenance = row.Provenance[:0]
	for _, c := range contribs {
		row.Provenance = append(row.Provenance, model.ProvenanceRef{
			Engine: c.engine,
			Ref:    c.est.BasisNote,
		})
	}

	return ""
}

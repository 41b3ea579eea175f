package adjust

import (
	"math"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/appraisal-cli/internal/model"
)

var ErrRunRequired = eris.New("adjust: an adjustment run is required before apply")

// ApplyInput bundles everything one apply pass reads.
type ApplyInput struct {
	OrderID   string
	Run       *model.AdjustmentRunResult
	Subject   model.Subject
	Comps     []model.CompProperty
	Selection model.CompSelection
	TimeAdj   *model.TimeAdjustments
}

// Apply walks the chosen grid across the given comps and produces the
// adjustments bundle: one line per comp with per-attribute deltas, dollar
// amounts, and the indicated value. The bundle is rebuilt whole on every
// call; for identical inputs only GeneratedAt differs between calls.
func Apply(in ApplyInput) (*model.AdjustmentsBundle, error) {
	if in.Run == nil {
		return nil, ErrRunRequired
	}
	if !in.TimeAdj.Valid() {
		return nil, ErrTimeAdjRequired
	}

	effective, err := time.Parse("2006-01-02", in.TimeAdj.EffectiveDateISO)
	if err != nil {
		return nil, eris.Wrapf(err, "adjust: parse effective date %q", in.TimeAdj.EffectiveDateISO)
	}

	printer := message.NewPrinter(language.English)

	lines := make([]model.CompAdjustmentLine, 0, len(in.Comps))
	for _, comp := range in.Comps {
		lines = append(lines, applyOne(printer, in.Run, in.Subject, comp, *in.TimeAdj, effective))
	}

	return &model.AdjustmentsBundle{
		OrderID:     in.OrderID,
		RunID:       in.Run.RunID,
		Lines:       lines,
		Selection:   in.Selection.Clone(),
		Settings:    in.Run.Settings,
		TimeAdj:     *in.TimeAdj,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// applyOne produces one comp's adjustment line. Attributes walk the
// canonical order; zero deltas produce no line item.
func applyOne(printer *message.Printer, run *model.AdjustmentRunResult, subject model.Subject, comp model.CompProperty, ta model.TimeAdjustments, effective time.Time) model.CompAdjustmentLine {
	timeAdjusted := ta.AdjustPrice(comp.SalePrice, comp.MonthsSinceSale)

	line := model.CompAdjustmentLine{
		CompID:       comp.ID,
		SalePrice:    comp.SalePrice,
		TimeAdjusted: timeAdjusted,
	}

	var subtotal, gross float64
	for _, row := range run.Attrs {
		subjV := subjectAttr(subject, row.Key, effective)
		compV := compAttr(comp, row.Key, effective)
		delta := compV - subjV
		if delta == 0 {
			continue
		}

		amount := delta * row.Chosen.Value
		subtotal += amount
		gross += math.Abs(amount)

		line.Deltas = append(line.Deltas, model.AttrDelta{
			Key:       row.Key,
			CompValue: compV,
			SubjValue: subjV,
			Delta:     delta,
			Amount:    amount,
			Rationale: rationale(printer, row, subjV, compV, amount),
		})
	}

	line.Subtotal = subtotal
	line.IndicatedValue = timeAdjusted + subtotal
	if timeAdjusted > 0 {
		line.GrossAdjustedPct = gross / timeAdjusted * 100
	}

	return line
}

// rationale renders one grid cell as a reviewer-facing sentence, e.g.
// "gla: subject 2,000 vs comp 2,100 at $85/sqft: +$8,500".
func rationale(printer *message.Printer, row model.AttrAdjustment, subjV, compV, amount float64) string {
	sign := "+"
	if amount < 0 {
		sign = "-"
	}
	return printer.Sprintf("%s: subject %.0f vs comp %.0f at %.2f %s: %s$%.0f",
		string(row.Key), subjV, compV, row.Chosen.Value, row.Unit, sign, math.Abs(amount))
}

package adjust

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/appraisal-cli/internal/model"
)

var (
	ErrTimeAdjRequired = eris.New("adjust: time adjustment with effective date is required")
	ErrNoComps         = eris.New("adjust: comp pool is empty")
	ErrAttrNotFound    = eris.New("adjust: attribute not present in run")
)

// ComputeInput bundles everything one adjustment run reads.
type ComputeInput struct {
	OrderID  string
	Subject  model.Subject
	Comps    []model.CompProperty
	TimeAdj  *model.TimeAdjustments
	Settings model.EngineSettings
	Baseline *CostBaseline
}

// Compute runs the three engines over the comp pool and blends their
// estimates into a fresh immutable run. Every call mints a new RunID; prior
// runs and their manual overrides are never touched.
func Compute(ctx context.Context, in ComputeInput) (*model.AdjustmentRunResult, error) {
	if !in.TimeAdj.Valid() {
		return nil, ErrTimeAdjRequired
	}
	if len(in.Comps) == 0 {
		return nil, ErrNoComps
	}

	effective, err := time.Parse("2006-01-02", in.TimeAdj.EffectiveDateISO)
	if err != nil {
		return nil, eris.Wrapf(err, "adjust: parse effective date %q", in.TimeAdj.EffectiveDateISO)
	}

	baseline := in.Baseline
	if baseline == nil {
		baseline = DefaultBaseline()
	}

	var regEst, costEst, pairEst map[model.AttrKey]*model.EngineEstimate
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		regEst = regressionEngine(in.Comps, *in.TimeAdj, effective, in.Settings.Basis)
		return nil
	})
	g.Go(func() error {
		costEst = costEngine(baseline, in.Subject.SubjectAge(effective))
		return nil
	})
	g.Go(func() error {
		pairEst = pairedEngine(in.Comps, *in.TimeAdj, effective)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	run := &model.AdjustmentRunResult{
		RunID:      uuid.NewString(),
		ComputedAt: time.Now().UTC(),
		Settings:   in.Settings,
		Input: model.AdjustmentInput{
			OrderID:   in.OrderID,
			CompCount: len(in.Comps),
		},
	}

	weights := in.Settings.Weights
	for _, key := range model.AttrKeys {
		row := model.AttrAdjustment{
			Key:        key,
			Unit:       attrUnit[key],
			Direction:  "additive",
			Regression: regEst[key],
			Cost:       costEst[key],
			Paired:     pairEst[key],
		}
		if warning := blendRow(&row, weights); warning != "" {
			run.Warnings = append(run.Warnings, warning)
		}
		run.Attrs = append(run.Attrs, row)
	}

	zap.L().Info("adjust: run computed",
		zap.String("order_id", in.OrderID),
		zap.String("run_id", run.RunID),
		zap.Int("comps", len(in.Comps)),
		zap.Int("warnings", len(run.Warnings)),
	)

	return run, nil
}

// Override replaces one attribute's chosen value with a manual entry. The
// override sticks to this run only; a fresh Compute call starts over from
// the blend.
func Override(run *model.AdjustmentRunResult, key model.AttrKey, value float64, note string) error {
	row := run.Attr(key)
	if row == nil {
		return eris.Wrapf(ErrAttrNotFound, "attr %s", key)
	}
	row.Chosen = model.ChosenAdjustment{
		Value:  value,
		Source: model.SourceManual,
		Note:   note,
	}
	return nil
}

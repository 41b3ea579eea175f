package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appraisal-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testSubject() model.Subject {
	return model.Subject{
		OrderID: "ord-1",
		Address: "12 Elm St",
		GLA:     2000,
		Beds:    3,
		Baths:   2,
		Quality: 3,
	}
}

func TestSQLite_OrderLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateOrder(ctx, testSubject())
	require.NoError(t, err)
	assert.Equal(t, "ord-1", created.ID)

	got, err := s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, created.Subject, got.Subject)
	assert.Nil(t, got.TimeAdj)

	ta := model.TimeAdjustments{Basis: "salePrice", PctPerMonth: 0.5, EffectiveDateISO: "2026-08-01"}
	require.NoError(t, s.SaveTimeAdjustments(ctx, "ord-1", ta))

	got, err = s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, got.TimeAdj)
	assert.Equal(t, ta, *got.TimeAdj)

	orders, err := s.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestSQLite_OrderNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrder(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.SaveTimeAdjustments(ctx, "missing", model.TimeAdjustments{EffectiveDateISO: "2026-08-01"})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_CompsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, testSubject())
	require.NoError(t, err)

	_, err = s.GetComps(ctx, "ord-1")
	assert.True(t, eris.Is(err, ErrNotFound))

	comps := []model.CompProperty{
		{ID: "c1", Type: model.SaleTypeSale, SalePrice: 300000, GLA: 1900},
		{ID: "c2", Type: model.SaleTypeListing, SalePrice: 320000, GLA: 2100},
	}
	require.NoError(t, s.SaveComps(ctx, "ord-1", comps))

	got, err := s.GetComps(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, comps, got)

	// Replace whole on re-save.
	require.NoError(t, s.SaveComps(ctx, "ord-1", comps[:1]))
	got, err = s.GetComps(ctx, "ord-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSQLite_WeightsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, testSubject())
	require.NoError(t, err)

	_, _, err = s.GetWeights(ctx, "ord-1")
	assert.True(t, eris.Is(err, ErrNotFound))

	w := model.WeightSet{Distance: 8, Recency: 8, GLA: 7, Quality: 6, Condition: 6, UpdatedBy: "appraiser"}
	c := model.ConstraintSet{GLATolerancePct: 10, DistanceCapMiles: 0.5, MaxMonthsSinceSale: 12, Mode: model.ConstraintModeFlag}
	require.NoError(t, s.SaveWeights(ctx, "ord-1", w, c))

	gotW, gotC, err := s.GetWeights(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, w, gotW)
	assert.Equal(t, c, gotC)

	// Upsert replaces.
	w.Distance = 10
	require.NoError(t, s.SaveWeights(ctx, "ord-1", w, c))
	gotW, _, err = s.GetWeights(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, gotW.Distance)
}

func TestSQLite_SelectionBootstrap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Absent row reads as a fresh normalized selection, not an error.
	sel, err := s.GetSelection(ctx, "ord-1")
	require.NoError(t, err)
	assert.Len(t, sel.Primary, model.PrimarySlots)
	assert.NotNil(t, sel.Locked)

	_, err = s.CreateOrder(ctx, testSubject())
	require.NoError(t, err)

	sel.Primary[0] = "c1"
	sel.Locked["c1"] = true
	sel.RestrictToPolygon = true
	require.NoError(t, s.SaveSelection(ctx, "ord-1", sel))

	got, err := s.GetSelection(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, sel, got)
}

func TestSQLite_HiLoStateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, testSubject())
	require.NoError(t, err)

	_, err = s.GetHiLoState(ctx, "ord-1")
	assert.True(t, eris.Is(err, ErrNotFound))

	st := model.HiLoState{
		Settings: model.HiLoSettings{CenterBasis: model.CenterMedianTimeAdj, BoxPct: 10, MaxSales: 3, MaxListings: 2},
		Result: &model.HiLoResult{
			Range: model.PriceRange{Center: 450000, Lo: 405000, Hi: 495000},
		},
	}
	require.NoError(t, s.SaveHiLoState(ctx, "ord-1", st))

	got, err := s.GetHiLoState(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, st.Settings, got.Settings)
	require.NotNil(t, got.Result)
	assert.Equal(t, st.Result.Range, got.Result.Range)
}

func TestSQLite_AdjustmentRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, testSubject())
	require.NoError(t, err)

	_, err = s.GetAdjustmentRun(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	_, err = s.LatestAdjustmentRun(ctx, "ord-1")
	assert.True(t, eris.Is(err, ErrNotFound))

	first := &model.AdjustmentRunResult{
		RunID: "run-1",
		Attrs: []model.AttrAdjustment{
			{Key: model.AttrGLA, Unit: "$/sqft", Chosen: model.ChosenAdjustment{Value: 85, Source: model.SourceBlend}},
		},
	}
	require.NoError(t, s.SaveAdjustmentRun(ctx, "ord-1", first))

	second := &model.AdjustmentRunResult{RunID: "run-2"}
	require.NoError(t, s.SaveAdjustmentRun(ctx, "ord-1", second))

	got, err := s.GetAdjustmentRun(ctx, "run-1")
	require.NoError(t, err)
	assert.InDelta(t, 85, got.Attr(model.AttrGLA).Chosen.Value, 1e-9)

	latest, err := s.LatestAdjustmentRun(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "run-2", latest.RunID)

	// Overrides re-save under the same run id.
	first.Attrs[0].Chosen = model.ChosenAdjustment{Value: 95, Source: model.SourceManual, Note: "judgment"}
	require.NoError(t, s.SaveAdjustmentRun(ctx, "ord-1", first))
	got, err = s.GetAdjustmentRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceManual, got.Attr(model.AttrGLA).Chosen.Source)
}

func TestSQLite_BundleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, testSubject())
	require.NoError(t, err)

	_, err = s.GetBundle(ctx, "ord-1")
	assert.True(t, eris.Is(err, ErrNotFound))

	bundle := &model.AdjustmentsBundle{
		OrderID: "ord-1",
		RunID:   "run-1",
		Lines: []model.CompAdjustmentLine{
			{CompID: "c1", SalePrice: 300000, TimeAdjusted: 303000, IndicatedValue: 310000},
		},
		Selection: model.NewCompSelection(),
	}
	require.NoError(t, s.SaveBundle(ctx, bundle))

	got, err := s.GetBundle(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, bundle.RunID, got.RunID)
	assert.Equal(t, bundle.Lines, got.Lines)

	// Replaced whole on re-apply.
	bundle.RunID = "run-2"
	require.NoError(t, s.SaveBundle(ctx, bundle))
	got, err = s.GetBundle(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
}

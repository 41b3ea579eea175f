// Package store persists per-order valuation state behind a single interface
// with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/appraisal-cli/internal/model"
)

// ErrNotFound is returned when the requested record does not exist. Callers
// test with eris.Is.
var ErrNotFound = eris.New("store: not found")

// OrderFilter specifies criteria for listing orders.
type OrderFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for the valuation pipeline.
type Store interface {
	// Orders
	CreateOrder(ctx context.Context, subject model.Subject) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	SaveTimeAdjustments(ctx context.Context, orderID string, ta model.TimeAdjustments) error

	// Comp pool
	SaveComps(ctx context.Context, orderID string, comps []model.CompProperty) error
	GetComps(ctx context.Context, orderID string) ([]model.CompProperty, error)

	// Scoring weights and constraints
	SaveWeights(ctx context.Context, orderID string, w model.WeightSet, c model.ConstraintSet) error
	GetWeights(ctx context.Context, orderID string) (model.WeightSet, model.ConstraintSet, error)

	// Primary selection. A missing row reads as a fresh empty selection so
	// the selection manager can bootstrap new orders.
	GetSelection(ctx context.Context, orderID string) (model.CompSelection, error)
	SaveSelection(ctx context.Context, orderID string, sel model.CompSelection) error

	// Hi-Lo bracket state
	SaveHiLoState(ctx context.Context, orderID string, st model.HiLoState) error
	GetHiLoState(ctx context.Context, orderID string) (*model.HiLoState, error)

	// Adjustment runs
	SaveAdjustmentRun(ctx context.Context, orderID string, run *model.AdjustmentRunResult) error
	GetAdjustmentRun(ctx context.Context, runID string) (*model.AdjustmentRunResult, error)
	LatestAdjustmentRun(ctx context.Context, orderID string) (*model.AdjustmentRunResult, error)

	// Adjustments bundle, one per order, replaced whole on each apply.
	SaveBundle(ctx context.Context, bundle *model.AdjustmentsBundle) error
	GetBundle(ctx context.Context, orderID string) (*model.AdjustmentsBundle, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

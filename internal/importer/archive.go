package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/appraisal-cli/internal/db"
	"github.com/sells-group/appraisal-cli/internal/model"
)

// archiveColumns is the flattened comp row layout in the archive table.
var archiveColumns = []string{
	"id", "order_id", "address", "sale_type", "sale_price", "sale_date",
	"distance_miles", "months_since_sale", "gla", "beds", "baths",
	"garage_bays", "lot_sqft", "year_built", "quality", "condition",
	"view", "pool", "lat", "lon",
}

// ArchiveComps bulk-upserts an imported pool into the postgres comp archive,
// keyed by (order_id, id) so re-imports replace rather than duplicate. The
// archive backs cross-order analytics; the per-order JSON pool in the store
// stays the source of truth for the pipeline.
func ArchiveComps(ctx context.Context, pool db.Pool, orderID string, comps []model.CompProperty) (int64, error) {
	if len(comps) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(comps))
	for _, c := range comps {
		rows = append(rows, []any{
			c.ID, orderID, c.Address, string(c.Type), c.SalePrice, c.SaleDate,
			c.DistanceMiles, c.MonthsSinceSale, c.GLA, c.Beds, c.Baths,
			c.GarageBays, c.LotSqft, c.YearBuilt, c.Quality, c.Condition,
			c.View, c.Pool, c.Location.Lat, c.Location.Lon,
		})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "comp_archive",
		Columns:      archiveColumns,
		ConflictKeys: []string{"order_id", "id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: archive comps for order %s", orderID)
	}

	zap.L().Info("importer: comps archived",
		zap.String("order_id", orderID),
		zap.Int64("rows", n),
	)
	return n, nil
}

package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/appraisal-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_GetOrder(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	subject := testSubject()
	subjectJSON, err := json.Marshal(subject)
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, subject, time_adj, created_at, updated_at FROM orders`).
		WithArgs("ord-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "subject", "time_adj", "created_at", "updated_at"}).
			AddRow("ord-1", subjectJSON, nil, now, now))

	got, err := s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, subject, got.Subject)
	assert.Nil(t, got.TimeAdj)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetOrder_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, subject, time_adj, created_at, updated_at FROM orders`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetOrder(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs("ord-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := s.CreateOrder(context.Background(), testSubject())
	require.NoError(t, err)
	assert.Equal(t, "ord-1", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveTimeAdjustments_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE orders SET time_adj`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SaveTimeAdjustments(context.Background(), "missing", model.TimeAdjustments{EffectiveDateISO: "2026-08-01"})
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SelectionBootstrap(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT selection FROM selections`).
		WithArgs("ord-1").
		WillReturnError(pgx.ErrNoRows)

	sel, err := s.GetSelection(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Len(t, sel.Primary, model.PrimarySlots)
	assert.NotNil(t, sel.Locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SelectionRoundTrip(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	sel := model.NewCompSelection()
	sel.Primary[0] = "c1"
	sel.Locked["c1"] = true

	mock.ExpectExec(`INSERT INTO selections`).
		WithArgs("ord-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.SaveSelection(ctx, "ord-1", sel))

	selJSON, err := json.Marshal(sel)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT selection FROM selections`).
		WithArgs("ord-1").
		WillReturnRows(pgxmock.NewRows([]string{"selection"}).AddRow(selJSON))

	got, err := s.GetSelection(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, sel, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LatestAdjustmentRun(t *testing.T) {
	s, mock := newMockStore(t)

	run := &model.AdjustmentRunResult{RunID: "run-2"}
	runJSON, err := json.Marshal(run)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT result FROM adjustment_runs WHERE order_id`).
		WithArgs("ord-1").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow(runJSON))

	got, err := s.LatestAdjustmentRun(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BundleNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT bundle FROM bundles`).
		WithArgs("ord-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetBundle(context.Background(), "ord-1")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MigrationCoversCompArchive(t *testing.T) {
	// The bulk importer upserts into comp_archive; the migration must create
	// it with every column the importer writes and the upsert's conflict key.
	require.Contains(t, postgresMigration, "CREATE TABLE IF NOT EXISTS comp_archive")
	require.Contains(t, postgresMigration, "PRIMARY KEY (order_id, id)")

	columns := []string{
		"id", "order_id", "address", "sale_type", "sale_price", "sale_date",
		"distance_miles", "months_since_sale", "gla", "beds", "baths",
		"garage_bays", "lot_sqft", "year_built", "quality", "condition",
		"view", "pool", "lat", "lon",
	}
	archiveDDL := postgresMigration[strings.Index(postgresMigration, "comp_archive"):]
	for _, col := range columns {
		assert.Contains(t, archiveDDL, "\n\t"+col, "column %s missing from comp_archive DDL", col)
	}
}

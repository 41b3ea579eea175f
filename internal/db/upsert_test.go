package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "comp_archive"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_Validation(t *testing.T) {
	rows := [][]any{{"c1"}}

	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "comp_archive", ConflictKeys: []string{"id"}}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")

	_, err = BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "comp_archive", Columns: []string{"id"}}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_comp_archive"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_comp_archive"}, []string{"id", "sale_price", "gla"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "comp_archive"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	cfg := UpsertConfig{
		Table:        "comp_archive",
		Columns:      []string{"id", "sale_price", "gla"},
		ConflictKeys: []string{"id"},
	}
	rows := [][]any{
		{"c1", 300000.0, 1800.0},
		{"c2", 310000.0, 2000.0},
	}

	n, err := BulkUpsert(context.Background(), mock, cfg, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "comp_archive", []string{"id", "sale_price"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"comp_archive"}, []string{"id", "sale_price"}).WillReturnResult(3)

	rows := [][]any{{"c1", 300000.0}, {"c2", 310000.0}, {"c3", 295000.0}}
	n, err := CopyFrom(context.Background(), mock, "comp_archive", []string{"id", "sale_price"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"comp_archive"}, []string{"id"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"c1"}}
	_, err = CopyFrom(context.Background(), mock, "comp_archive", []string{"id"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO comp_archive")
	assert.NoError(t, mock.ExpectationsWereMet())
}

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

func TestCopyFromEmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "dataset_points", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFromSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dataset_points"}, []string{"point_id", "geom"}).
		WillReturnResult(2)

	rows := [][]any{{"a", "0101"}, {"b", "0102"}}
	n, err := CopyFrom(context.Background(), mock, "dataset_points", []string{"point_id", "geom"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dataset_points"}, []string{"point_id"}).
		WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "dataset_points", []string{"point_id"}, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO dataset_points")
	assert.NoError(t, mock.ExpectationsWereMet())
}

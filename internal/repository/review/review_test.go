package review

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/db"
	"storefront/internal/domain"
)

func TestPostgres_UpsertRecomputesRating(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rv := domain.Review{UserID: "u1", ProductID: "p1", Rating: 4, Title: "Nice", Description: "Fits well"}
	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectExec(`INSERT INTO reviews`).
		WithArgs("u1", "p1", 4, "Nice", "Fits well").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`UPDATE products p\s+SET rating`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"slug"}).AddRow("polo-shirt"))
	mock.ExpectCommit()

	slug, err := NewPostgres(mock, nil).Upsert(context.Background(), rv)
	require.NoError(t, err)
	assert.Equal(t, "polo-shirt", slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectExec(`INSERT INTO reviews`).
		WithArgs("u1", "p1", 5, "Great", "Love it").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`UPDATE products`).
		WithArgs("p1").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err = NewPostgres(mock, nil).Upsert(context.Background(), domain.Review{UserID: "u1", ProductID: "p1", Rating: 5, Title: "Great", Description: "Love it"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByUserProductMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM reviews`).
		WithArgs("u1", "p1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err = NewPostgres(mock, nil).GetByUserProduct(context.Background(), "u1", "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package token

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestPostgres_CreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	exp := time.Now().Add(time.Hour)
	mock.ExpectExec(`INSERT INTO tokens`).
		WithArgs("tok", "u1", KindAccess, exp).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = NewPostgres(mock).Create(context.Background(), Token{Token: "tok", UserID: "u1", Kind: KindAccess, ExpiresAt: exp})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPostgres_GetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM tokens`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgres(mock).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM tokens`).WithArgs("tok").
		WillReturnRows(pgxmock.NewRows([]string{"token", "user_id", "kind", "expires_at", "created_at"}).
			AddRow("tok", "u1", KindAccess, now.Add(time.Hour), now))

	tok, err := NewPostgres(mock).Get(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", tok.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectExec(`DELETE FROM tokens WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := NewPostgres(mock).DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPostgres_DeleteMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM tokens WHERE token`).
		WithArgs("tok").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewPostgres(mock).Delete(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

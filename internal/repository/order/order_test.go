package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/db"
	"storefront/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleOrder() domain.Order {
	return domain.Order{
		UserID: "u1",
		ShippingAddress: domain.ShippingAddress{
			FullName: "Jane Doe", StreetAddress: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "USA",
		},
		PaymentMethod: domain.PaymentPayPal,
		Prices:        domain.Prices{ItemsPrice: "20.00", ShippingPrice: "2.00", TaxPrice: "3.00", TotalPrice: "25.00"},
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Shirt", Slug: "shirt", Image: "/shirt.jpg", Price: "10.00", Qty: 2},
		},
	}
}

func expectCartLocked(mock pgxmock.PgxPoolIface, cartID string) {
	mock.ExpectQuery(`SELECT id::text FROM carts WHERE id = \$1 FOR UPDATE`).
		WithArgs(cartID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(cartID))
}

func TestPostgres_CreateFromCartClearsCart(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)
	o := sampleOrder()

	mock.ExpectBeginTx(db.TxOptions)
	expectCartLocked(mock, "cart-1")
	mock.ExpectQuery(`DELETE FROM cart_lines WHERE cart_id = \$1 RETURNING`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "qty"}).AddRow("p1", 2))
	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs("u1", pgxmock.AnyArg(), domain.PaymentPayPal, "20.00", "2.00", "3.00", "25.00").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("o1"))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs("o1", "p1", 0, 2, "10.00", "Shirt", "shirt", "/shirt.jpg").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE carts`).WithArgs("cart-1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	id, err := repo.CreateFromCart(context.Background(), o, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, "o1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateFromCartRejectsChangedCart(t *testing.T) {
	cases := []struct {
		name string
		rows *pgxmock.Rows
	}{
		{"already ordered", pgxmock.NewRows([]string{"product_id", "qty"})},
		{"qty grew", pgxmock.NewRows([]string{"product_id", "qty"}).AddRow("p1", 3)},
		{"line added", pgxmock.NewRows([]string{"product_id", "qty"}).AddRow("p1", 2).AddRow("p2", 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewPostgres(mock, nil)

			mock.ExpectBeginTx(db.TxOptions)
			expectCartLocked(mock, "cart-1")
			mock.ExpectQuery(`DELETE FROM cart_lines`).WithArgs("cart-1").WillReturnRows(tc.rows)
			mock.ExpectRollback()

			_, err := repo.CreateFromCart(context.Background(), sampleOrder(), "cart-1")
			assert.ErrorIs(t, err, domain.ErrCartChanged)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_CreateFromCartMissingCart(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`FROM carts WHERE id = \$1 FOR UPDATE`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.CreateFromCart(context.Background(), sampleOrder(), "cart-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateFromCartRollsBackOnItemFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	expectCartLocked(mock, "cart-1")
	mock.ExpectQuery(`DELETE FROM cart_lines`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "qty"}).AddRow("p1", 2))
	mock.ExpectQuery(`INSERT INTO orders`).
		WithArgs("u1", pgxmock.AnyArg(), domain.PaymentPayPal, "20.00", "2.00", "3.00", "25.00").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("o1"))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs("o1", "p1", 0, 2, "10.00", "Shirt", "shirt", "/shirt.jpg").
		WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	_, err := repo.CreateFromCart(context.Background(), sampleOrder(), "cart-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByIDLoadsItemsAndOwner(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM orders o\s+JOIN users u`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "shipping_address", "payment_method", "payment_result",
			"items_price", "shipping_price", "tax_price", "total_price",
			"is_paid", "paid_at", "is_delivered", "delivered_at", "created_at", "name", "email",
		}).AddRow(
			"o1", "u1", []byte(`{"fullName":"Jane Doe","streetAddress":"1 Main St","city":"Springfield","postalCode":"12345","country":"USA"}`),
			domain.PaymentPayPal, []byte(`{"id":"PAY-1","status":"","email_address":"","pricePaid":""}`),
			"20.00", "2.00", "3.00", "25.00",
			false, (*time.Time)(nil), false, (*time.Time)(nil), created, "Jane", "jane@example.com",
		))
	mock.ExpectQuery(`FROM order_items`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"order_id", "product_id", "name", "slug", "image", "price", "qty"}).
			AddRow("o1", "p1", "Shirt", "shirt", "/shirt.jpg", "10.00", 2))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "Springfield", o.ShippingAddress.City)
	require.NotNil(t, o.PaymentResult)
	assert.Equal(t, "PAY-1", o.PaymentResult.ID)
	assert.Equal(t, "jane@example.com", o.User.Email)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByIDMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery(`FROM orders o`).WithArgs("nope").WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_GetByIDMalformedID(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectQuery(`FROM orders o`).
		WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})

	_, err := repo.GetByID(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_MarkPaidDecrementsStock(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`SELECT is_paid FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"is_paid"}).AddRow(false))
	mock.ExpectQuery(`SELECT product_id::text, qty FROM order_items`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "qty"}).AddRow("p1", 2).AddRow("p2", 1))
	mock.ExpectExec(`UPDATE products\s+SET stock = stock - \$2\s+WHERE id = \$1 AND stock >= \$2`).
		WithArgs("p1", 2).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE products`).
		WithArgs("p2", 1).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE orders\s+SET is_paid = true`).
		WithArgs("o1", pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.MarkPaid(context.Background(), "o1", &domain.PaymentResult{ID: "PAY-1", Status: "COMPLETED", PricePaid: "25.00"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MarkPaidTwiceFails(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"is_paid"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.MarkPaid(context.Background(), "o1", nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MarkPaidRollsBackWhenStockShort(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"is_paid"}).AddRow(false))
	mock.ExpectQuery(`FROM order_items`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "qty"}).AddRow("p1", 5))
	mock.ExpectExec(`UPDATE products`).
		WithArgs("p1", 5).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.MarkPaid(context.Background(), "o1", nil)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MarkPaidMissingOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("nope").WillReturnRows(pgxmock.NewRows([]string{"is_paid"}))
	mock.ExpectRollback()

	err := repo.MarkPaid(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgres_MarkDeliveredRequiresPayment(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`SELECT is_paid, is_delivered FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"is_paid", "is_delivered"}).AddRow(false, false))
	mock.ExpectRollback()

	err := repo.MarkDelivered(context.Background(), "o1")
	assert.ErrorIs(t, err, domain.ErrNotPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MarkDelivered(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"is_paid", "is_delivered"}).AddRow(true, false))
	mock.ExpectExec(`UPDATE orders SET is_delivered = true, delivered_at = now\(\) WHERE id = \$1 AND NOT is_delivered`).
		WithArgs("o1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkDelivered(context.Background(), "o1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_MarkDeliveredTwiceKeepsTimestamp(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectBeginTx(db.TxOptions)
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"is_paid", "is_delivered"}).AddRow(true, true))
	mock.ExpectRollback()

	err := repo.MarkDelivered(context.Background(), "o1")
	assert.ErrorIs(t, err, domain.ErrAlreadyDelivered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListByUserNewestFirst(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	addr := []byte(`{"fullName":"Jane Doe","streetAddress":"1 Main St","city":"Springfield","postalCode":"12345","country":"USA"}`)
	cols := []string{
		"id", "user_id", "shipping_address", "payment_method", "payment_result",
		"items_price", "shipping_price", "tax_price", "total_price",
		"is_paid", "paid_at", "is_delivered", "delivered_at", "created_at", "name", "email",
	}

	mock.ExpectQuery(`SELECT count\(\*\) FROM orders WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`WHERE o.user_id = \$1\s+ORDER BY o.created_at DESC, o.id\s+LIMIT \$2 OFFSET \$3`).
		WithArgs("u1", 10, 0).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("o2", "u1", addr, domain.PaymentPayPal, []byte(nil), "20.00", "2.00", "3.00", "25.00",
				false, (*time.Time)(nil), false, (*time.Time)(nil), newer, "Jane", "jane@example.com").
			AddRow("o1", "u1", addr, domain.PaymentCashOnDelivery, []byte(nil), "60.00", "0.00", "9.00", "69.00",
				true, &older, false, (*time.Time)(nil), older, "Jane", "jane@example.com"))

	orders, total, err := repo.ListByUser(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, "o1", orders[1].ID)
	assert.Nil(t, orders[0].PaymentResult)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetPaymentIntentOnPaidOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectExec(`UPDATE orders SET payment_result`).
		WithArgs("o1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT is_paid FROM orders`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"is_paid"}).AddRow(true))

	err := repo.SetPaymentIntent(context.Background(), "o1", domain.PaymentResult{ID: "PAY-1"})
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgres(mock, nil)

	mock.ExpectExec(`DELETE FROM orders`).WithArgs("o1").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "o1"), domain.ErrNotFound)
}

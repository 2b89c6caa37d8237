package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   db.Pool
	logger *log.Logger
}

func NewPostgres(pool db.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

// CreateFromCart inserts the order and its items and empties the cart the
// items were copied from. The cart row is locked and its lines must still
// match order.Items, otherwise ErrCartChanged is returned and nothing is
// written.
func (r *postgresRepo) CreateFromCart(ctx context.Context, order domain.Order, cartID string) (string, error) {
	addrJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return "", err
	}

	var orderID string
	err = db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT id::text FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&locked); err != nil {
			if db.NoRow(err) {
				return fmt.Errorf("cart %s: %w", cartID, domain.ErrNotFound)
			}
			return fmt.Errorf("lock cart: %w", err)
		}

		taken, err := takeLines(ctx, tx, cartID)
		if err != nil {
			return err
		}
		if !sameLines(taken, order.Items) {
			return fmt.Errorf("cart %s: %w", cartID, domain.ErrCartChanged)
		}

		if err := tx.QueryRow(ctx, `
INSERT INTO orders (user_id, shipping_address, payment_method, items_price, shipping_price, tax_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id::text
`, order.UserID, addrJSON, order.PaymentMethod, order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice).Scan(&orderID); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range order.Items {
			if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, position, qty, price, name, slug, image)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, orderID, item.ProductID, i, item.Qty, item.Price, item.Name, item.Slug, item.Image); err != nil {
				return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
			}
		}

		if _, err := tx.Exec(ctx, `
UPDATE carts
SET items_price = 0, shipping_price = 0, tax_price = 0, total_price = 0
WHERE id = $1
`, cartID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Printf("order repo: create user_id=%s cart_id=%s error=%v", order.UserID, cartID, err)
		return "", err
	}
	r.logger.Printf("order repo: created id=%s user_id=%s items=%d total=%s", orderID, order.UserID, len(order.Items), order.TotalPrice)
	return orderID, nil
}

// takeLines deletes the cart's lines and returns product id to qty for
// what was removed.
func takeLines(ctx context.Context, tx pgx.Tx, cartID string) (map[string]int, error) {
	rows, err := tx.Query(ctx, `DELETE FROM cart_lines WHERE cart_id = $1 RETURNING product_id::text, qty`, cartID)
	if err != nil {
		return nil, fmt.Errorf("clear cart lines: %w", err)
	}
	defer rows.Close()

	taken := map[string]int{}
	for rows.Next() {
		var (
			productID string
			qty       int
		)
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		taken[productID] += qty
	}
	return taken, rows.Err()
}

func sameLines(taken map[string]int, items []domain.OrderItem) bool {
	if len(taken) != len(items) {
		return false
	}
	for _, item := range items {
		if taken[item.ProductID] != item.Qty {
			return false
		}
	}
	return true
}

const orderColumns = `o.id::text, o.user_id::text, o.shipping_address, o.payment_method, o.payment_result,
       o.items_price::text, o.shipping_price::text, o.tax_price::text, o.total_price::text,
       o.is_paid, o.paid_at, o.is_delivered, o.delivered_at, o.created_at, u.name, u.email`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o          domain.Order
		addrJSON   []byte
		resultJSON []byte
		owner      domain.OrderOwner
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &addrJSON, &o.PaymentMethod, &resultJSON,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &owner.Name, &owner.Email,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addrJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if len(resultJSON) > 0 {
		var res domain.PaymentResult
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return nil, fmt.Errorf("decode payment result: %w", err)
		}
		o.PaymentResult = &res
	}
	o.User = &owner
	return &o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
SELECT `+orderColumns+`
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE o.id = $1
`, id))
	if err != nil {
		if db.NoRow(err) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%s error=%v", id, err)
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT order_id::text, product_id::text, name, slug, image, price::text, qty
FROM order_items
WHERE order_id = $1
ORDER BY position ASC
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Name, &item.Slug, &item.Image, &item.Price, &item.Qty); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) SetPaymentIntent(ctx context.Context, id string, result domain.PaymentResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE orders SET payment_result = $2 WHERE id = $1 AND NOT is_paid`, id, resultJSON)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.classifyMissing(ctx, id)
	}
	return nil
}

// MarkPaid moves an unpaid order to paid and decrements stock for every
// order item in the same transaction. The order row is locked first, so a
// concurrent second settlement waits and then observes is_paid.
func (r *postgresRepo) MarkPaid(ctx context.Context, id string, result *domain.PaymentResult) error {
	var resultArg interface{}
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		resultArg = b
	}

	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var isPaid bool
		if err := tx.QueryRow(ctx, `SELECT is_paid FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&isPaid); err != nil {
			if db.NoRow(err) {
				return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
			}
			return err
		}
		if isPaid {
			return fmt.Errorf("order %s: %w", id, domain.ErrAlreadyPaid)
		}

		items, err := lockedItems(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, item := range items {
			cmd, err := tx.Exec(ctx, `
UPDATE products
SET stock = stock - $2
WHERE id = $1 AND stock >= $2
`, item.ProductID, item.Qty)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23514" {
					return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrOutOfStock)
				}
				return err
			}
			if cmd.RowsAffected() == 0 {
				return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrOutOfStock)
			}
		}

		if _, err := tx.Exec(ctx, `
UPDATE orders
SET is_paid = true, paid_at = now(), payment_result = COALESCE($2, payment_result)
WHERE id = $1
`, id, resultArg); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		r.logger.Printf("order repo: mark paid id=%s error=%v", id, err)
		return err
	}
	r.logger.Printf("order repo: marked paid id=%s", id)
	return nil
}

func lockedItems(ctx context.Context, tx pgx.Tx, orderID string) ([]domain.OrderItem, error) {
	rows, err := tx.Query(ctx, `SELECT product_id::text, qty FROM order_items WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Qty); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *postgresRepo) MarkDelivered(ctx context.Context, id string) error {
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var isPaid, isDelivered bool
		if err := tx.QueryRow(ctx, `SELECT is_paid, is_delivered FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&isPaid, &isDelivered); err != nil {
			if db.NoRow(err) {
				return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
			}
			return err
		}
		switch {
		case !isPaid:
			return fmt.Errorf("order %s: %w", id, domain.ErrNotPaid)
		case isDelivered:
			return fmt.Errorf("order %s: %w", id, domain.ErrAlreadyDelivered)
		}
		_, err := tx.Exec(ctx, `UPDATE orders SET is_delivered = true, delivered_at = now() WHERE id = $1 AND NOT is_delivered`, id)
		return err
	})
	if err != nil {
		r.logger.Printf("order repo: mark delivered id=%s error=%v", id, err)
	}
	return err
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Summary(ctx context.Context, latest int) (*domain.SalesSummary, error) {
	var s domain.SalesSummary
	if err := r.pool.QueryRow(ctx, `
SELECT (SELECT count(*) FROM orders),
       (SELECT count(*) FROM products),
       (SELECT count(*) FROM users),
       (SELECT COALESCE(sum(total_price), 0)::text FROM orders)
`).Scan(&s.OrdersCount, &s.ProductsCount, &s.UsersCount, &s.TotalSales); err != nil {
		return nil, err
	}

	monthly, err := r.pool.Query(ctx, `
SELECT to_char(created_at, 'MM/YY') AS month, sum(total_price)::text
FROM orders
GROUP BY to_char(created_at, 'MM/YY')
ORDER BY min(created_at)
`)
	if err != nil {
		return nil, err
	}
	s.SalesData = []domain.MonthlySales{}
	for monthly.Next() {
		var m domain.MonthlySales
		if err := monthly.Scan(&m.Month, &m.TotalSales); err != nil {
			monthly.Close()
			return nil, err
		}
		s.SalesData = append(s.SalesData, m)
	}
	monthly.Close()
	if err := monthly.Err(); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders o
JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC
LIMIT $1
`, latest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	s.LatestSales = []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		s.LatestSales = append(s.LatestSales, *o)
	}
	return &s, rows.Err()
}

// ListByUser returns one page of the user's orders, newest first, and the
// number of orders the user has in total. Items are not loaded.
func (r *postgresRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		if db.NoRow(err) {
			return []domain.Order{}, 0, nil
		}
		r.logger.Printf("order repo: count user_id=%s error=%v", userID, err)
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE o.user_id = $1
ORDER BY o.created_at DESC, o.id
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s error=%v", userID, err)
		return nil, 0, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

// classifyMissing explains why an update touched no rows.
func (r *postgresRepo) classifyMissing(ctx context.Context, id string) error {
	var isPaid bool
	if err := r.pool.QueryRow(ctx, `SELECT is_paid FROM orders WHERE id = $1`, id).Scan(&isPaid); err != nil {
		if db.NoRow(err) {
			return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return err
	}
	return fmt.Errorf("order %s: %w", id, domain.ErrAlreadyPaid)
}

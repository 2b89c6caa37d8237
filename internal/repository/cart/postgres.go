package cart

import (
	"context"
	"io"
	"log"

	"github.com/jackc/pgx/v5"

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

const cartColumns = `id::text, user_id::text, session_cart_id, items_price::text, shipping_price::text, tax_price::text, total_price::text, created_at`

func (r *postgresRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1
`, userID)
}

func (r *postgresRepo) GetBySession(ctx context.Context, sessionCartID string) (*domain.Cart, error) {
	return r.fetchCart(ctx, `
SELECT `+cartColumns+`
FROM carts
WHERE session_cart_id = $1
ORDER BY created_at DESC
LIMIT 1
`, sessionCartID)
}

func (r *postgresRepo) Create(ctx context.Context, cart domain.Cart) (*domain.Cart, error) {
	out := cart
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
INSERT INTO carts (user_id, session_cart_id, items_price, shipping_price, tax_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text, created_at
`, cart.UserID, cart.SessionCartID, cart.ItemsPrice, cart.ShippingPrice, cart.TaxPrice, cart.TotalPrice).Scan(&out.ID, &out.CreatedAt); err != nil {
			return err
		}
		return insertLines(ctx, tx, out.ID, cart.Items)
	})
	if err != nil {
		r.logger.Printf("cart repo: create session=%s error=%v", cart.SessionCartID, err)
		return nil, err
	}
	r.logger.Printf("cart repo: created id=%s session=%s lines=%d", out.ID, out.SessionCartID, len(out.Items))
	return &out, nil
}

// Save replaces the cart's lines and money fields in one transaction.
func (r *postgresRepo) Save(ctx context.Context, cart domain.Cart) error {
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
UPDATE carts
SET items_price = $2, shipping_price = $3, tax_price = $4, total_price = $5
WHERE id = $1
`, cart.ID, cart.ItemsPrice, cart.ShippingPrice, cart.TaxPrice, cart.TotalPrice)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cart.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, cart.ID, cart.Items)
	})
	if err != nil {
		r.logger.Printf("cart repo: save id=%s error=%v", cart.ID, err)
	}
	return err
}

// AssignUser hands an anonymous session cart to userID, replacing any cart
// the user already had. It is a no-op when the session has no anonymous
// cart.
func (r *postgresRepo) AssignUser(ctx context.Context, sessionCartID, userID string) error {
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var cartID string
		err := tx.QueryRow(ctx, `
SELECT id::text FROM carts
WHERE session_cart_id = $1 AND user_id IS NULL
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE
`, sessionCartID).Scan(&cartID)
		if db.NoRow(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE carts SET user_id = $2 WHERE id = $1`, cartID, userID)
		return err
	})
	if err != nil {
		r.logger.Printf("cart repo: assign session=%s user_id=%s error=%v", sessionCartID, userID, err)
	}
	return err
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, args ...interface{}) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, args...).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.SessionCartID,
		&cart.ItemsPrice,
		&cart.ShippingPrice,
		&cart.TaxPrice,
		&cart.TotalPrice,
		&cart.CreatedAt,
	)
	if err != nil {
		if db.NoRow(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const linesQuery = `
SELECT product_id::text, name, slug, image, price::text, qty
FROM cart_lines
WHERE cart_id = $1
ORDER BY position ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Items = []domain.LineItem{}
	for rows.Next() {
		var line domain.LineItem
		if err := rows.Scan(&line.ProductID, &line.Name, &line.Slug, &line.Image, &line.Price, &line.Qty); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, cartID string, items []domain.LineItem) error {
	for i, item := range items {
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, position, product_id, name, slug, image, price, qty)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, cartID, i, item.ProductID, item.Name, item.Slug, item.Image, item.Price, item.Qty); err != nil {
			return err
		}
	}
	return nil
}

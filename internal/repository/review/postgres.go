package review

import (
	"context"
	"fmt"
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

func (r *postgresRepo) Upsert(ctx context.Context, rv domain.Review) (string, error) {
	var slug string
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO reviews (user_id, product_id, rating, title, description)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, product_id) DO UPDATE SET
    rating = EXCLUDED.rating,
    title = EXCLUDED.title,
    description = EXCLUDED.description
`, rv.UserID, rv.ProductID, rv.Rating, rv.Title, rv.Description); err != nil {
			return fmt.Errorf("upsert review: %w", err)
		}

		err := tx.QueryRow(ctx, `
UPDATE products p
SET rating = COALESCE(s.avg_rating, 0), num_reviews = s.cnt
FROM (
    SELECT round(avg(rating)::numeric, 2) AS avg_rating, count(*) AS cnt
    FROM reviews
    WHERE product_id = $1
) s
WHERE p.id = $1
RETURNING p.slug
`, rv.ProductID).Scan(&slug)
		if db.NoRow(err) {
			return fmt.Errorf("product %s: %w", rv.ProductID, domain.ErrNotFound)
		}
		return err
	})
	if err != nil {
		r.logger.Printf("review repo: upsert user_id=%s product_id=%s error=%v", rv.UserID, rv.ProductID, err)
		return "", err
	}
	return slug, nil
}

func (r *postgresRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, `
SELECT rv.id::text, rv.user_id::text, rv.product_id::text, rv.title, rv.description, rv.rating, u.name, rv.created_at
FROM reviews rv
JOIN users u ON u.id = rv.user_id
WHERE rv.product_id = $1
ORDER BY rv.created_at DESC
`, productID)
	if err != nil {
		r.logger.Printf("review repo: list product_id=%s error=%v", productID, err)
		return nil, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Title, &rv.Description, &rv.Rating, &rv.UserName, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *postgresRepo) GetByUserProduct(ctx context.Context, userID, productID string) (*domain.Review, error) {
	var rv domain.Review
	err := r.pool.QueryRow(ctx, `
SELECT id::text, user_id::text, product_id::text, title, description, rating, created_at
FROM reviews
WHERE user_id = $1 AND product_id = $2
`, userID, productID).Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Title, &rv.Description, &rv.Rating, &rv.CreatedAt)
	if err != nil {
		if db.NoRow(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

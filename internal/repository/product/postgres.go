package product

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

const productColumns = `id::text, name, slug, category, brand, description, images, price::text, stock, rating::text, num_reviews, is_featured, banner, created_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &p.Brand, &p.Description, &p.Images, &p.Price, &p.Stock, &p.Rating, &p.NumReviews, &p.IsFeatured, &p.Banner, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if db.NoRow(err) {
			r.logger.Printf("product repo: get id=%s not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%s error=%v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
	if err != nil {
		if db.NoRow(err) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get slug=%s error=%v", slug, err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, name, slug, category, brand, description, images, price, stock, is_featured, banner)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (slug) DO UPDATE SET
    name = EXCLUDED.name,
    category = EXCLUDED.category,
    brand = EXCLUDED.brand,
    description = EXCLUDED.description,
    images = EXCLUDED.images,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock,
    is_featured = EXCLUDED.is_featured,
    banner = EXCLUDED.banner
RETURNING ` + productColumns
	images := product.Images
	if images == nil {
		images = []string{}
	}
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		product.ID,
		product.Name,
		product.Slug,
		product.Category,
		product.Brand,
		product.Description,
		images,
		product.Price,
		product.Stock,
		product.IsFeatured,
		product.Banner,
	))
	if err != nil {
		r.logger.Printf("product repo: upsert slug=%s error=%v", product.Slug, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted slug=%s id=%s stock=%d", res.Slug, res.ID, res.Stock)
	return res, nil
}

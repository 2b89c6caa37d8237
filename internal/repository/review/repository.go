package review

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// Upsert creates or replaces the user's review of a product and
	// refreshes the product's rating and review count. It returns the
	// product slug.
	Upsert(ctx context.Context, review domain.Review) (string, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	GetByUserProduct(ctx context.Context, userID, productID string) (*domain.Review, error)
}

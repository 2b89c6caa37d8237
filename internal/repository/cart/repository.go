package cart

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetBySession(ctx context.Context, sessionCartID string) (*domain.Cart, error)
	Create(ctx context.Context, cart domain.Cart) (*domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	AssignUser(ctx context.Context, sessionCartID, userID string) error
	Delete(ctx context.Context, id string) error
}

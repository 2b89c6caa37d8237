package user

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists and fetches users.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateAddress(ctx context.Context, id string, addr domain.ShippingAddress) error
	UpdatePaymentMethod(ctx context.Context, id, method string) error
	UpdateProfile(ctx context.Context, id, name string) error
	UpdateAdmin(ctx context.Context, id, name, role string) error
	Delete(ctx context.Context, id string) error
}

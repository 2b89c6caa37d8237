package order

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists orders. CreateFromCart, MarkPaid and MarkDelivered
// each run as a single transaction.
type Repository interface {
	CreateFromCart(ctx context.Context, order domain.Order, cartID string) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error)
	SetPaymentIntent(ctx context.Context, id string, result domain.PaymentResult) error
	MarkPaid(ctx context.Context, id string, result *domain.PaymentResult) error
	MarkDelivered(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, latest int) (*domain.SalesSummary, error)
}

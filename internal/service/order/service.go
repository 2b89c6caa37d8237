package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

const (
	latestSalesLimit = 6
	// HistoryPageSize is how many orders one page of a user's history holds.
	HistoryPageSize = 10
)

type orderRepo interface {
	CreateFromCart(ctx context.Context, order domain.Order, cartID string) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, int, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, latest int) (*domain.SalesSummary, error)
}

type cartSource interface {
	Get(ctx context.Context, id domain.Identity) (*domain.Cart, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type Service struct {
	repo   orderRepo
	carts  cartSource
	users  userRepo
	logger *log.Logger
}

func New(repo orderRepo, carts cartSource, users userRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, carts: carts, users: users, logger: logger}
}

// CreateOrder turns the caller's cart into an order. Missing checkout data
// is reported as a failed Result pointing at the page that collects it;
// only an anonymous caller gets a Go error.
func (s *Service) CreateOrder(ctx context.Context, id domain.Identity) (domain.Result, error) {
	if !id.Authenticated() {
		return domain.Result{}, domain.ErrUnauthenticated
	}

	cart, err := s.carts.Get(ctx, id)
	if err != nil {
		return domain.Fail(err), nil
	}
	if cart == nil || len(cart.Items) == 0 {
		return domain.FailRedirect(errors.New("your cart is empty"), "/cart"), nil
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Result{}, fmt.Errorf("user %s: %w", id.UserID, domain.ErrUnauthenticated)
		}
		return domain.Fail(err), nil
	}
	if user.Address == nil {
		return domain.FailRedirect(errors.New("no shipping address"), "/shipping-address"), nil
	}
	if user.PaymentMethod == "" {
		return domain.FailRedirect(errors.New("no payment method"), "/payment-method"), nil
	}

	order := domain.Order{
		UserID:          user.ID,
		ShippingAddress: *user.Address,
		PaymentMethod:   user.PaymentMethod,
		Prices:          pricing.Calc(cart.Items),
		Items:           make([]domain.OrderItem, 0, len(cart.Items)),
	}
	for _, line := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Slug:      line.Slug,
			Image:     line.Image,
			Price:     pricing.Format(line.Price),
			Qty:       line.Qty,
		})
	}
	if err := domain.Validate(order); err != nil {
		return domain.Fail(err), nil
	}

	orderID, err := s.repo.CreateFromCart(ctx, order, cart.ID)
	if errors.Is(err, domain.ErrCartChanged) {
		return domain.FailRedirect(err, "/cart"), nil
	}
	if err != nil {
		return domain.Fail(err), nil
	}
	s.logger.Printf("order service: created id=%s user_id=%s total=%s", orderID, user.ID, order.TotalPrice)

	res := domain.OK("order created")
	res.RedirectTo = "/order/" + orderID
	res.Data = orderID
	return res, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Data       []domain.Order `json:"data"`
	TotalPages int            `json:"totalPages"`
}

// ListMine returns the caller's orders newest first. page starts at 1;
// lower values are treated as 1.
func (s *Service) ListMine(ctx context.Context, id domain.Identity, page int) (*OrderPage, error) {
	if !id.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	if page < 1 {
		page = 1
	}
	orders, total, err := s.repo.ListByUser(ctx, id.UserID, HistoryPageSize, (page-1)*HistoryPageSize)
	if err != nil {
		return nil, fmt.Errorf("list orders user_id=%s: %w", id.UserID, err)
	}
	return &OrderPage{
		Data:       orders,
		TotalPages: (total + HistoryPageSize - 1) / HistoryPageSize,
	}, nil
}

func (s *Service) Delete(ctx context.Context, orderID string) domain.Result {
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return domain.Fail(fmt.Errorf("order %s: %w", orderID, err))
	}
	s.logger.Printf("order service: deleted id=%s", orderID)
	return domain.OK("order deleted")
}

// Summary reports counts, revenue by month and the most recent orders.
func (s *Service) Summary(ctx context.Context) (*domain.SalesSummary, error) {
	return s.repo.Summary(ctx, latestSalesLimit)
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"storefront/internal/domain"
	"storefront/internal/paypal"
)

// Gateway creates and captures payments at the external provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amount string) (string, error)
	CapturePayment(ctx context.Context, id string) (*paypal.CaptureResult, error)
}

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	SetPaymentIntent(ctx context.Context, id string, result domain.PaymentResult) error
	MarkPaid(ctx context.Context, id string, result *domain.PaymentResult) error
}

// Hook runs after an order has been settled and committed. Hook errors are
// logged and never affect the settlement.
type Hook struct {
	Name string
	Run  func(ctx context.Context, order *domain.Order) error
}

type Option func(*Service)

// WithGatewayTimeout bounds each call to the payment gateway.
func WithGatewayTimeout(d time.Duration) Option {
	return func(s *Service) { s.gatewayTimeout = d }
}

// WithDispatch replaces how post-commit hooks are scheduled. The default
// runs them on a new goroutine.
func WithDispatch(fn func(func())) Option {
	return func(s *Service) { s.dispatch = fn }
}

type Service struct {
	repo           orderRepo
	gateway        Gateway
	hooks          []Hook
	dispatch       func(func())
	gatewayTimeout time.Duration
	logger         *log.Logger
}

func New(repo orderRepo, gateway Gateway, hooks []Hook, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Service{
		repo:           repo,
		gateway:        gateway,
		hooks:          hooks,
		dispatch:       func(f func()) { go f() },
		gatewayTimeout: 15 * time.Second,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePaymentOrder opens a gateway payment for the order total and
// remembers the gateway id on the order.
func (s *Service) CreatePaymentOrder(ctx context.Context, orderID string) domain.Result {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return domain.Fail(fmt.Errorf("order %s: %w", orderID, err))
	}
	if order.IsPaid {
		return domain.Fail(fmt.Errorf("order %s: %w", orderID, domain.ErrAlreadyPaid))
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	intentID, err := s.gateway.CreateOrder(gctx, order.TotalPrice)
	cancel()
	if err != nil {
		s.logger.Printf("payment service: create intent order_id=%s error=%v", orderID, err)
		return domain.Fail(err)
	}

	if err := s.repo.SetPaymentIntent(ctx, orderID, domain.PaymentResult{ID: intentID, PricePaid: "0"}); err != nil {
		return domain.Fail(err)
	}
	s.logger.Printf("payment service: intent created order_id=%s intent_id=%s amount=%s", orderID, intentID, order.TotalPrice)

	res := domain.OK("payment order created")
	res.Data = intentID
	return res
}

// ApprovePayment captures the buyer-approved payment and settles the order
// once the capture is proven to belong to it.
func (s *Service) ApprovePayment(ctx context.Context, orderID, clientPaymentID string) domain.Result {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return domain.Fail(fmt.Errorf("order %s: %w", orderID, err))
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	captured, err := s.gateway.CapturePayment(gctx, clientPaymentID)
	cancel()
	if err != nil {
		s.logger.Printf("payment service: capture order_id=%s payment_id=%s error=%v", orderID, clientPaymentID, err)
		return domain.Fail(err)
	}
	if err := verifyCapture(order, captured); err != nil {
		s.logger.Printf("payment service: verify order_id=%s payment_id=%s error=%v", orderID, clientPaymentID, err)
		return domain.Fail(err)
	}

	paid := &domain.PaymentResult{
		ID:           captured.ID,
		Status:       captured.Status,
		EmailAddress: captured.Payer.EmailAddress,
		PricePaid:    captured.CapturedAmount(),
	}
	res := s.settle(ctx, orderID, paid, "your order has been paid")
	if !res.Success {
		// funds were captured for an order that stays unpaid
		s.logger.Printf("payment service: captured but not settled order_id=%s payment_id=%s amount=%s payer=%s error=%v",
			orderID, paid.ID, paid.PricePaid, paid.EmailAddress, res.Err)
	}
	return res
}

// MarkPaidCOD settles a cash-on-delivery order without a gateway capture.
func (s *Service) MarkPaidCOD(ctx context.Context, orderID string) domain.Result {
	return s.settle(ctx, orderID, nil, "order marked as paid")
}

func verifyCapture(order *domain.Order, captured *paypal.CaptureResult) error {
	switch {
	case captured == nil:
		return fmt.Errorf("%w: empty capture", domain.ErrPaymentVerification)
	case order.PaymentResult == nil || order.PaymentResult.ID == "":
		return fmt.Errorf("%w: order has no payment intent", domain.ErrPaymentVerification)
	case captured.ID != order.PaymentResult.ID:
		return fmt.Errorf("%w: capture %s does not match intent %s", domain.ErrPaymentVerification, captured.ID, order.PaymentResult.ID)
	case captured.Status != paypal.StatusCompleted:
		return fmt.Errorf("%w: capture status %q", domain.ErrPaymentVerification, captured.Status)
	}
	return nil
}

func (s *Service) settle(ctx context.Context, orderID string, result *domain.PaymentResult, message string) domain.Result {
	if err := s.repo.MarkPaid(ctx, orderID, result); err != nil {
		s.logger.Printf("payment service: settle order_id=%s error=%v", orderID, err)
		return domain.Fail(err)
	}
	s.logger.Printf("payment service: settled order_id=%s", orderID)
	s.afterCommit(ctx, orderID)
	return domain.OK(message)
}

// afterCommit reloads the settled order and hands it to every hook.
func (s *Service) afterCommit(ctx context.Context, orderID string) {
	if len(s.hooks) == 0 {
		return
	}
	hookCtx := context.WithoutCancel(ctx)
	s.dispatch(func() {
		hookCtx, cancel := context.WithTimeout(hookCtx, 30*time.Second)
		defer cancel()

		order, err := s.repo.GetByID(hookCtx, orderID)
		if err != nil {
			s.logger.Printf("payment service: reload settled order_id=%s error=%v", orderID, err)
			return
		}
		for _, h := range s.hooks {
			if err := runHook(hookCtx, h, order); err != nil {
				s.logger.Printf("payment service: hook=%s order_id=%s error=%v", h.Name, orderID, err)
			}
		}
	})
}

func runHook(ctx context.Context, h Hook, order *domain.Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprint("panic: ", r))
		}
	}()
	return h.Run(ctx, order)
}

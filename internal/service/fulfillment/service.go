package fulfillment

import (
	"context"
	"fmt"
	"io"
	"log"

	"storefront/internal/domain"
)

type orderRepo interface {
	MarkDelivered(ctx context.Context, id string) error
}

type Service struct {
	repo   orderRepo
	logger *log.Logger
}

func New(repo orderRepo, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, logger: logger}
}

// DeliverOrder marks a paid order delivered. Unpaid orders fail with
// ErrNotPaid and delivered ones with ErrAlreadyDelivered.
func (s *Service) DeliverOrder(ctx context.Context, orderID string) domain.Result {
	if err := s.repo.MarkDelivered(ctx, orderID); err != nil {
		return domain.Fail(fmt.Errorf("deliver: %w", err))
	}
	s.logger.Printf("fulfillment service: delivered order_id=%s", orderID)
	return domain.OK("order marked as delivered")
}

package review

import (
	"context"
	"fmt"
	"io"
	"log"

	"storefront/internal/domain"
)

type reviewRepo interface {
	Upsert(ctx context.Context, review domain.Review) (string, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	GetByUserProduct(ctx context.Context, userID, productID string) (*domain.Review, error)
}

type pageCache interface {
	Invalidate(ctx context.Context, slug string) error
}

type Service struct {
	repo   reviewRepo
	cache  pageCache
	logger *log.Logger
}

func New(repo reviewRepo, cache pageCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Upsert stores the caller's review of a product, replacing an earlier one,
// and refreshes the product's rating.
func (s *Service) Upsert(ctx context.Context, id domain.Identity, in domain.Review) (domain.Result, error) {
	if !id.Authenticated() {
		return domain.Result{}, domain.ErrUnauthenticated
	}
	in.UserID = id.UserID
	if err := domain.Validate(in); err != nil {
		return domain.Fail(err), nil
	}
	slug, err := s.repo.Upsert(ctx, in)
	if err != nil {
		return domain.Fail(fmt.Errorf("review: %w", err)), nil
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, slug); err != nil {
			s.logger.Printf("review service: invalidate page slug=%s error=%v", slug, err)
		}
	}
	return domain.OK("review updated"), nil
}

func (s *Service) List(ctx context.Context, productID string) ([]domain.Review, error) {
	return s.repo.ListByProduct(ctx, productID)
}

func (s *Service) Mine(ctx context.Context, id domain.Identity, productID string) (*domain.Review, error) {
	if !id.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.GetByUserProduct(ctx, id.UserID, productID)
}

package product

import (
	"context"
	"errors"
	"io"
	"log"

	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/domain"
)

type productRepo interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
}

type reviewLister interface {
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
}

type pageCache interface {
	Get(ctx context.Context, slug string) (*cache.ProductPage, error)
	Set(ctx context.Context, slug string, page *cache.ProductPage) error
}

// Service serves product pages, read-through the page cache.
type Service struct {
	repo    productRepo
	reviews reviewLister
	cache   pageCache
	loads   singleflight.Group
	logger  *log.Logger
}

func New(repo productRepo, reviews reviewLister, cache pageCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, reviews: reviews, cache: cache, logger: logger}
}

func (s *Service) Page(ctx context.Context, slug string) (*cache.ProductPage, error) {
	page, err := s.cache.Get(ctx, slug)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Printf("product service: cache get slug=%s error=%v", slug, err)
	}

	// concurrent misses for one slug share a single load
	v, err, _ := s.loads.Do(slug, func() (interface{}, error) {
		return s.load(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return v.(*cache.ProductPage), nil
}

func (s *Service) load(ctx context.Context, slug string) (*cache.ProductPage, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	page := &cache.ProductPage{Product: *p, Reviews: reviews}
	if err := s.cache.Set(ctx, slug, page); err != nil {
		s.logger.Printf("product service: cache set slug=%s error=%v", slug, err)
	}
	return page, nil
}

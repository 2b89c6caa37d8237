package product

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/cache"
	"storefront/internal/domain"
)

type countingRepo struct {
	calls int
}

func (r *countingRepo) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.calls++
	if slug != "polo-shirt" {
		return nil, domain.ErrNotFound
	}
	return &domain.Product{ID: "p1", Slug: slug, Name: "Polo Shirt", Price: "59.99", Stock: 5}, nil
}

type noReviews struct{}

func (noReviews) ListByProduct(context.Context, string) ([]domain.Review, error) {
	return []domain.Review{}, nil
}

func TestPageReadsThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	pages := cache.NewRedisCache(client, time.Minute)

	repo := &countingRepo{}
	svc := New(repo, noReviews{}, pages, nil)
	ctx := context.Background()

	first, err := svc.Page(ctx, "polo-shirt")
	require.NoError(t, err)
	second, err := svc.Page(ctx, "polo-shirt")
	require.NoError(t, err)
	assert.Equal(t, first.Product, second.Product)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, pages.Invalidate(ctx, "polo-shirt"))
	_, err = svc.Page(ctx, "polo-shirt")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestPageServedWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	svc := New(&countingRepo{}, noReviews{}, cache.NewRedisCache(client, time.Minute), nil)
	page, err := svc.Page(context.Background(), "polo-shirt")
	require.NoError(t, err)
	assert.Equal(t, "p1", page.Product.ID)
}

func TestPageMissingProduct(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := New(&countingRepo{}, noReviews{}, cache.NewRedisCache(client, time.Minute), nil)
	_, err := svc.Page(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type blockingRepo struct {
	calls   atomic.Int32
	release chan struct{}
}

func (r *blockingRepo) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.calls.Add(1)
	<-r.release
	return &domain.Product{ID: "p1", Slug: slug, Name: "Polo Shirt"}, nil
}

func TestPageCollapsesConcurrentMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &blockingRepo{release: make(chan struct{})}
	svc := New(repo, noReviews{}, cache.NewRedisCache(client, time.Minute), nil)

	const readers = 8
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Page(context.Background(), "polo-shirt")
			errs <- err
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(repo.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), repo.calls.Load())
}

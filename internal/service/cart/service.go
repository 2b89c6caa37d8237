package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

// PageCache drops cached product pages whose stock or price display may
// have changed.
type PageCache interface {
	Invalidate(ctx context.Context, slug string) error
}

type cartRepo interface {
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetBySession(ctx context.Context, sessionCartID string) (*domain.Cart, error)
	Create(ctx context.Context, cart domain.Cart) (*domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	AssignUser(ctx context.Context, sessionCartID, userID string) error
	Delete(ctx context.Context, id string) error
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	repo        cartRepo
	productRepo productRepo
	cache       PageCache
	logger      *log.Logger
}

func New(repo cartRepo, productRepo productRepo, cache PageCache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, productRepo: productRepo, cache: cache, logger: logger}
}

// Get resolves the caller's cart, preferring the signed-in user's cart. A
// caller without any cart yet gets (nil, nil).
func (s *Service) Get(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	var (
		cart *domain.Cart
		err  error
	)
	switch {
	case id.Authenticated():
		cart, err = s.repo.GetByUser(ctx, id.UserID)
	case id.SessionCartID != "":
		cart, err = s.repo.GetBySession(ctx, id.SessionCartID)
	default:
		return nil, fmt.Errorf("cart session: %w", domain.ErrNotFound)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return cart, err
}

// AddItem adds one unit of the product to the caller's cart, creating the
// cart on first use.
func (s *Service) AddItem(ctx context.Context, id domain.Identity, in domain.AddItemInput) domain.Result {
	if err := domain.Validate(in); err != nil {
		return domain.Fail(err)
	}
	cart, err := s.Get(ctx, id)
	if err != nil {
		return domain.Fail(err)
	}
	product, err := s.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return domain.Fail(fmt.Errorf("product: %w", err))
	}

	item := snapshot(*product, in)
	var message string
	if cart == nil {
		if product.Stock < 1 {
			return domain.Fail(domain.ErrOutOfStock)
		}
		item.Qty = 1
		newCart := domain.Cart{SessionCartID: id.SessionCartID, Items: []domain.LineItem{item}}
		if id.Authenticated() {
			userID := id.UserID
			newCart.UserID = &userID
		}
		newCart.Prices = pricing.Calc(newCart.Items)
		if _, err := s.repo.Create(ctx, newCart); err != nil {
			s.logger.Printf("cart service: create session=%s error=%v", id.SessionCartID, err)
			return domain.Fail(err)
		}
		message = fmt.Sprintf("%s added to cart", product.Name)
	} else {
		if idx := cart.Item(item.ProductID); idx >= 0 {
			if product.Stock < cart.Items[idx].Qty+1 {
				return domain.Fail(domain.ErrOutOfStock)
			}
			cart.Items[idx].Qty++
			message = fmt.Sprintf("%s updated in cart", product.Name)
		} else {
			if product.Stock < 1 {
				return domain.Fail(domain.ErrOutOfStock)
			}
			item.Qty = 1
			cart.Items = append(cart.Items, item)
			message = fmt.Sprintf("%s added to cart", product.Name)
		}
		cart.Prices = pricing.Calc(cart.Items)
		if err := s.repo.Save(ctx, *cart); err != nil {
			s.logger.Printf("cart service: save id=%s error=%v", cart.ID, err)
			return domain.Fail(err)
		}
	}

	s.invalidate(ctx, product.Slug)
	return domain.OK(message)
}

// RemoveItem takes one unit of the product out of the caller's cart and
// drops the line when its last unit goes.
func (s *Service) RemoveItem(ctx context.Context, id domain.Identity, productID string) domain.Result {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return domain.Fail(fmt.Errorf("product: %w", err))
	}
	cart, err := s.Get(ctx, id)
	if err != nil {
		return domain.Fail(err)
	}
	if cart == nil {
		return domain.Fail(fmt.Errorf("cart: %w", domain.ErrNotFound))
	}
	idx := cart.Item(productID)
	if idx < 0 {
		return domain.Fail(fmt.Errorf("cart item: %w", domain.ErrNotFound))
	}

	if cart.Items[idx].Qty <= 1 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Qty--
	}
	cart.Prices = pricing.Calc(cart.Items)
	if err := s.repo.Save(ctx, *cart); err != nil {
		s.logger.Printf("cart service: save id=%s error=%v", cart.ID, err)
		return domain.Fail(err)
	}

	s.invalidate(ctx, product.Slug)
	return domain.OK(fmt.Sprintf("%s removed from cart", product.Name))
}

// Claim moves the anonymous session cart to the signed-in user.
func (s *Service) Claim(ctx context.Context, id domain.Identity) error {
	if !id.Authenticated() || id.SessionCartID == "" {
		return nil
	}
	return s.repo.AssignUser(ctx, id.SessionCartID, id.UserID)
}

// Discard deletes the caller's cart entirely.
func (s *Service) Discard(ctx context.Context, id domain.Identity) error {
	cart, err := s.Get(ctx, id)
	if err != nil || cart == nil {
		return err
	}
	if err := s.repo.Delete(ctx, cart.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, slug); err != nil {
		s.logger.Printf("cart service: invalidate page slug=%s error=%v", slug, err)
	}
}

// snapshot freezes the catalog's current name, slug and price into the
// line. The client-supplied image is kept when the product has none.
func snapshot(p domain.Product, in domain.AddItemInput) domain.LineItem {
	item := domain.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Image:     in.Image,
		Price:     pricing.Format(p.Price),
	}
	if len(p.Images) > 0 {
		item.Image = p.Images[0]
	}
	return item
}

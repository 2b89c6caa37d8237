package seed

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type UserWriter interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
}

type userSeed struct {
	Name     string
	Email    string
	Password string
	Role     string
}

var users = []userSeed{
	{Name: "Admin", Email: "admin@example.com", Password: "123456", Role: domain.RoleAdmin},
	{Name: "Jane", Email: "jane@example.com", Password: "123456", Role: domain.RoleUser},
}

var products = []domain.Product{
	{
		Name:        "Polo Sporting Stretch Shirt",
		Slug:        "polo-sporting-stretch-shirt",
		Category:    "Men's Dress Shirts",
		Brand:       "Polo",
		Description: "Classic Polo style with modern comfort",
		Images:      []string{"/images/sample-products/p1-1.jpg", "/images/sample-products/p1-2.jpg"},
		Price:       "59.99",
		Stock:       5,
		IsFeatured:  true,
	},
	{
		Name:        "Brooks Brothers Long Sleeved Shirt",
		Slug:        "brooks-brothers-long-sleeved-shirt",
		Category:    "Men's Dress Shirts",
		Brand:       "Brooks Brothers",
		Description: "Timeless style and premium comfort",
		Images:      []string{"/images/sample-products/p2-1.jpg", "/images/sample-products/p2-2.jpg"},
		Price:       "85.90",
		Stock:       10,
		IsFeatured:  true,
	},
	{
		Name:        "Tommy Hilfiger Classic Fit Dress Shirt",
		Slug:        "tommy-hilfiger-classic-fit-dress-shirt",
		Category:    "Men's Dress Shirts",
		Brand:       "Tommy Hilfiger",
		Description: "A perfect blend of sophistication and comfort",
		Images:      []string{"/images/sample-products/p3-1.jpg", "/images/sample-products/p3-2.jpg"},
		Price:       "99.95",
		Stock:       0,
	},
	{
		Name:        "Calvin Klein Slim Fit Stretch Shirt",
		Slug:        "calvin-klein-slim-fit-stretch-shirt",
		Category:    "Men's Dress Shirts",
		Brand:       "Calvin Klein",
		Description: "Streamlined design with flexible stretch fabric",
		Images:      []string{"/images/sample-products/p4-1.jpg", "/images/sample-products/p4-2.jpg"},
		Price:       "39.95",
		Stock:       10,
	},
}

// Apply inserts demo users and products for manual testing. It is
// idempotent: products upsert by slug and existing users are kept.
func Apply(ctx context.Context, productRepo ProductWriter, userRepo UserWriter) error {
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = userRepo.Create(ctx, domain.User{Name: u.Name, Email: u.Email, PasswordHash: string(hash), Role: u.Role})
		if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("create user %s: %w", u.Email, err)
		}
	}
	for _, p := range products {
		if _, err := productRepo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Slug, err)
		}
	}
	return nil
}

package seed

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
)

type memProducts map[string]domain.Product

func (m memProducts) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	m[p.Slug] = p
	return &p, nil
}

type memUsers map[string]domain.User

func (m memUsers) Create(_ context.Context, u domain.User) (*domain.User, error) {
	if _, ok := m[u.Email]; ok {
		return nil, domain.ErrAlreadyExists
	}
	m[u.Email] = u
	return &u, nil
}

func TestApplyIsIdempotent(t *testing.T) {
	ps, us := memProducts{}, memUsers{}
	for i := 0; i < 2; i++ {
		if err := Apply(context.Background(), ps, us); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}
	if len(ps) != len(products) || len(us) != len(users) {
		t.Fatalf("unexpected seed sizes: %d products, %d users", len(ps), len(us))
	}
	admin := us["admin@example.com"]
	if !admin.IsAdmin() {
		t.Fatalf("admin seed must carry admin role")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("123456")) != nil {
		t.Fatalf("seed passwords must be bcrypt hashed")
	}
}

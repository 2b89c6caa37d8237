package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

// carts is the part of the cart service that follows the user's session.
type carts interface {
	Claim(ctx context.Context, id domain.Identity) error
	Discard(ctx context.Context, id domain.Identity) error
}

// Service handles sign-up/sign-in and the user's checkout profile.
type Service struct {
	repo      userrepo.Repository
	tokens    *tokenManager
	carts     carts
	accessTTL time.Duration
	logger    *log.Logger
}

func New(repo userrepo.Repository, tokens tokenrepo.Repository, carts carts, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		repo:      repo,
		tokens:    newTokenManager(tokens),
		carts:     carts,
		accessTTL: 30 * 24 * time.Hour,
		logger:    logger,
	}
}

type SignUpInput struct {
	Name            string `json:"name" validate:"required,min=3"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=6"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Session is what a successful sign-in hands back to the client.
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
}

// SignUp registers the user and signs them in.
func (s *Service) SignUp(ctx context.Context, id domain.Identity, in SignUpInput) (*Session, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords don't match", domain.ErrValidation)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Create(ctx, domain.User{Name: in.Name, Email: in.Email, PasswordHash: string(hashed)}); err != nil {
		return nil, err
	}
	s.logger.Printf("user service: signed up email=%s", in.Email)
	return s.SignIn(ctx, id, SignInInput{Email: in.Email, Password: in.Password})
}

// SignIn checks credentials, issues an access token and moves the
// anonymous cart of the session to the user.
func (s *Service) SignIn(ctx context.Context, id domain.Identity, in SignInInput) (*Session, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, u.ID, s.accessTTL)
	if err != nil {
		return nil, err
	}
	id.UserID = u.ID
	if err := s.carts.Claim(ctx, id); err != nil {
		s.logger.Printf("user service: claim cart user_id=%s error=%v", u.ID, err)
	}
	return &Session{User: u, Token: token, ExpiresIn: int(s.accessTTL.Seconds())}, nil
}

// SignOut revokes the token and deletes the session's cart.
func (s *Service) SignOut(ctx context.Context, id domain.Identity, token string) error {
	if err := s.carts.Discard(ctx, id); err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, token)
}

// LookupByToken returns the user bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.User, error) {
	userID, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateAddress(ctx context.Context, userID string, addr domain.ShippingAddress) domain.Result {
	if err := domain.Validate(addr); err != nil {
		return domain.Fail(err)
	}
	if err := s.repo.UpdateAddress(ctx, userID, addr); err != nil {
		return domain.Fail(fmt.Errorf("user: %w", err))
	}
	return domain.OK("address updated")
}

type paymentMethodInput struct {
	Type string `validate:"required,payment_method"`
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, userID, method string) domain.Result {
	if err := domain.Validate(paymentMethodInput{Type: method}); err != nil {
		return domain.Fail(err)
	}
	if err := s.repo.UpdatePaymentMethod(ctx, userID, method); err != nil {
		return domain.Fail(fmt.Errorf("user: %w", err))
	}
	return domain.OK("payment method updated")
}

type profileInput struct {
	Name string `validate:"required,min=3"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID, name string) domain.Result {
	if err := domain.Validate(profileInput{Name: name}); err != nil {
		return domain.Fail(err)
	}
	if err := s.repo.UpdateProfile(ctx, userID, name); err != nil {
		return domain.Fail(fmt.Errorf("user: %w", err))
	}
	return domain.OK("profile updated")
}

type AdminUpdateInput struct {
	Name string `json:"name" validate:"required,min=3"`
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (s *Service) AdminUpdate(ctx context.Context, userID string, in AdminUpdateInput) domain.Result {
	if err := domain.Validate(in); err != nil {
		return domain.Fail(err)
	}
	if err := s.repo.UpdateAdmin(ctx, userID, in.Name, in.Role); err != nil {
		return domain.Fail(fmt.Errorf("user: %w", err))
	}
	return domain.OK("user updated")
}

func (s *Service) Delete(ctx context.Context, userID string) domain.Result {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return domain.Fail(fmt.Errorf("user: %w", err))
	}
	s.logger.Printf("user service: deleted id=%s", userID)
	return domain.OK("user deleted")
}

// PurgeExpiredTokens deletes access tokens past their expiry.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.repo.DeleteExpired(ctx, s.tokens.now())
}

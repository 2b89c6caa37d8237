package user

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   db.Pool
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool db.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const userColumns = `id::text, name, email, password_hash, role, address, payment_method, created_at`

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	const q = `
INSERT INTO users (name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, u.Name, strings.ToLower(u.Email), u.PasswordHash, role))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *postgresRepo) UpdateAddress(ctx context.Context, id string, addr domain.ShippingAddress) error {
	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return err
	}
	return r.exec(ctx, "update address", id, `UPDATE users SET address = $2 WHERE id = $1`, id, addrJSON)
}

func (r *postgresRepo) UpdatePaymentMethod(ctx context.Context, id, method string) error {
	return r.exec(ctx, "update payment method", id, `UPDATE users SET payment_method = $2 WHERE id = $1`, id, method)
}

func (r *postgresRepo) UpdateProfile(ctx context.Context, id, name string) error {
	return r.exec(ctx, "update profile", id, `UPDATE users SET name = $2 WHERE id = $1`, id, name)
}

func (r *postgresRepo) UpdateAdmin(ctx context.Context, id, name, role string) error {
	return r.exec(ctx, "update admin", id, `UPDATE users SET name = $2, role = $3 WHERE id = $1`, id, name, role)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete", id, `DELETE FROM users WHERE id = $1`, id)
}

func (r *postgresRepo) exec(ctx context.Context, op, id, q string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		r.logger.Printf("user repo: %s id=%s error=%v", op, id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var addrJSON []byte
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &addrJSON, &u.PaymentMethod, &u.CreatedAt)
	if err != nil {
		if db.NoRow(err) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("user repo: scan error=%v", err)
		return nil, err
	}
	if len(addrJSON) > 0 {
		var addr domain.ShippingAddress
		if err := json.Unmarshal(addrJSON, &addr); err != nil {
			r.logger.Printf("user repo: decode address id=%s err=%v", u.ID, err)
			return nil, err
		}
		u.Address = &addr
	}
	return &u, nil
}

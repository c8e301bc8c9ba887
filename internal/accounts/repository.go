package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for accounts. Every method is
// an atomic point operation; the auth flows deliberately run without
// cross-record transactions.
type Repository interface {
	Create(ctx context.Context, account Account) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
	Enable(ctx context.Context, id int64) error
	SetLoginEpoch(ctx context.Context, id int64, epoch int64) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, enabled, role_code, login_epoch, created_at`

// Create inserts a new account. The id comes from the table's identity
// column, so concurrent writers never race on a read-max-then-insert.
func (r *PGRepository) Create(ctx context.Context, account Account) (Account, error) {
	query := `INSERT INTO accounts (name, email, password_hash, enabled, role_code, login_epoch, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		account.Name, account.Email, account.PasswordHash,
		account.Enabled, account.RoleCode, account.LoginEpoch, account.CreatedAt,
	).Scan(&account.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicate
		}
		return Account{}, err
	}
	return account, nil
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(ctx, query, email)
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// Enable flips the enabled flag on.
func (r *PGRepository) Enable(ctx context.Context, id int64) error {
	return r.pointUpdate(ctx, `UPDATE accounts SET enabled = TRUE WHERE id = $1`, id)
}

// SetLoginEpoch overwrites the login epoch. Idempotent; last writer wins
// under concurrent logins, which is the single-session design.
func (r *PGRepository) SetLoginEpoch(ctx context.Context, id int64, epoch int64) error {
	return r.pointUpdate(ctx, `UPDATE accounts SET login_epoch = $2 WHERE id = $1`, id, epoch)
}

// SetPasswordHash overwrites the stored hash.
func (r *PGRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	return r.pointUpdate(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *PGRepository) scanOne(ctx context.Context, query string, arg any) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash,
		&a.Enabled, &a.RoleCode, &a.LoginEpoch, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *PGRepository) pointUpdate(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)

package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for roles.
type Repository interface {
	GetRole(ctx context.Context, code int32) (Role, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetRole fetches a role by code.
func (r *PGRepository) GetRole(ctx context.Context, code int32) (Role, error) {
	query := `SELECT code, name, permissions FROM roles WHERE code = $1`
	var role Role
	err := r.pool.QueryRow(ctx, query, code).Scan(&role.Code, &role.Name, &role.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, err
	}
	return role, nil
}

var _ Repository = (*PGRepository)(nil)

package accounts

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Service wraps account business rules around the repository.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a disabled account carrying the given role code. The
// password is hashed with a fresh random salt. The initial login epoch is
// the creation time; it only moves again when a session token is minted.
func (s *Service) Register(ctx context.Context, name, email, password string, roleCode int32) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	now := time.Now().Truncate(time.Second)
	return s.repo.Create(ctx, Account{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Enabled:      false,
		RoleCode:     roleCode,
		LoginEpoch:   now.Unix(),
		CreatedAt:    now,
	})
}

// VerifyPassword compares a candidate against the stored hash. Any
// comparator failure, including a malformed hash, folds into
// ErrInvalidCredentials so implementation detail never leaks to callers.
func (s *Service) VerifyPassword(account Account, candidate string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(candidate)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Activate enables the account. Re-activating an enabled account is a
// precondition violation surfaced explicitly, never ignored.
func (s *Service) Activate(ctx context.Context, account Account) error {
	if account.Enabled {
		return ErrAlreadyEnabled
	}
	return s.repo.Enable(ctx, account.ID)
}

// ResetPassword re-hashes and overwrites the credential. It does not touch
// the login epoch: an outstanding session token survives a password reset.
func (s *Service) ResetPassword(ctx context.Context, id int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, id, string(hash))
}

// FindByEmail exposes the repository lookup to the auth flows.
func (s *Service) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.FindByEmail(ctx, email)
}

// FindByID exposes the repository lookup to the auth flows.
func (s *Service) FindByID(ctx context.Context, id int64) (Account, error) {
	return s.repo.FindByID(ctx, id)
}

package accounts

import (
	"errors"
	"time"
)

// Account represents a registered user account. Accounts are created
// disabled and switched on by the email activation flow; there is no
// delete path.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Enabled      bool
	RoleCode     int32
	LoginEpoch   int64
	CreatedAt    time.Time
}

// Projection is the externally visible shape of an account. The password
// hash never leaves this package in any response.
type Projection struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Redacted strips sensitive fields. The role name is filled in by the
// caller once the role reference is resolved.
func (a Account) Redacted(roleName string) Projection {
	return Projection{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Role:  roleName,
	}
}

var (
	// ErrNotFound indicates no account matches the lookup.
	ErrNotFound = errors.New("accounts: not found")
	// ErrDuplicate indicates the name or email is already registered.
	ErrDuplicate = errors.New("accounts: name or email already exists")
	// ErrInvalidCredentials folds every password comparison failure into
	// one opaque answer.
	ErrInvalidCredentials = errors.New("accounts: invalid credentials")
	// ErrAlreadyEnabled rejects activation of an enabled account.
	ErrAlreadyEnabled = errors.New("accounts: already enabled")
	// ErrDisabled rejects sign-in before activation.
	ErrDisabled = errors.New("accounts: account is not enabled")
)

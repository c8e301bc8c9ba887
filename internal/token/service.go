// Package token issues and verifies the purpose-scoped credentials used by
// every authentication flow. A token is a compact JWT whose payload carries
// exactly {sub, iat, exp, action}. Session tokens additionally act as the
// account's revocation fence: minting one overwrites the account's login
// epoch, which invalidates every outstanding activation and reset token.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose scopes a token to one declared use.
type Purpose string

const (
	// PurposeSession authenticates API calls.
	PurposeSession Purpose = "SESSION"
	// PurposeActivate enables a freshly registered account.
	PurposeActivate Purpose = "ACTIVATE_ACCOUNT"
	// PurposeReset authorizes a one-shot password change.
	PurposeReset Purpose = "RESET_PASSWORD"
)

// TTL returns how long a token of this purpose stays verifiable. A session
// token is long-lived and reusable; activation and reset tokens get a narrow
// window because they carry more authority per use.
func (p Purpose) TTL() time.Duration {
	switch p {
	case PurposeSession:
		return 14 * 24 * time.Hour
	case PurposeActivate:
		return 15 * time.Minute
	case PurposeReset:
		return 5 * time.Minute
	}
	return 0
}

func (p Purpose) known() bool {
	switch p {
	case PurposeSession, PurposeActivate, PurposeReset:
		return true
	}
	return false
}

var (
	// ErrInvalidToken covers bad signatures, malformed structure and
	// unknown purposes.
	ErrInvalidToken = errors.New("token: invalid")
	// ErrExpiredToken is returned once the expiry has passed.
	ErrExpiredToken = errors.New("token: expired")
)

// Claims is the signed payload. Action carries the purpose under the claim
// key the wire format mandates.
type Claims struct {
	jwt.RegisteredClaims
	Action Purpose `json:"action"`
}

// AccountID parses the subject claim.
func (c Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrInvalidToken, c.Subject)
	}
	return id, nil
}

// Epoch returns the issued-at second used for the login-epoch fence.
func (c Claims) Epoch() int64 {
	if c.IssuedAt == nil {
		return 0
	}
	return c.IssuedAt.Unix()
}

// Subject identifies the account a token is minted for, together with its
// current login epoch.
type Subject struct {
	ID         int64
	LoginEpoch int64
}

// EpochStore persists the login-epoch fence. Implemented by the accounts
// repository.
type EpochStore interface {
	SetLoginEpoch(ctx context.Context, accountID int64, epoch int64) error
}

// Service signs and verifies tokens with a process-wide secret. The secret
// is injected once at construction and never mutated.
type Service struct {
	secret []byte
	epochs EpochStore
	now    func() time.Time
}

// NewService constructs a Service. The secret must be non-empty; token
// operations without one would be forgeable.
func NewService(secret []byte, epochs EpochStore) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret must not be empty")
	}
	return &Service{secret: secret, epochs: epochs, now: time.Now}, nil
}

// Issue mints a signed token for the subject.
//
// Session tokens are stamped with the current time and that timestamp is
// written back as the account's new login epoch, superseding every older
// sensitive token. Activation and reset tokens are stamped with the
// subject's current epoch instead, so they stay bound to it until the next
// login moves the fence.
func (s *Service) Issue(ctx context.Context, sub Subject, purpose Purpose) (string, Claims, error) {
	if !purpose.known() {
		return "", Claims{}, fmt.Errorf("%w: purpose %q", ErrInvalidToken, purpose)
	}

	now := s.now().Truncate(time.Second)
	issuedAt := now
	if purpose != PurposeSession {
		issuedAt = time.Unix(sub.LoginEpoch, 0)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(sub.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(now.Add(purpose.TTL())),
		},
		Action: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("token: sign: %w", err)
	}

	if purpose == PurposeSession {
		if err := s.epochs.SetLoginEpoch(ctx, sub.ID, issuedAt.Unix()); err != nil {
			return "", Claims{}, fmt.Errorf("token: advance login epoch: %w", err)
		}
	}

	return signed, claims, nil
}

// Verify checks signature and expiry and returns the payload. It does not
// check the epoch binding: callers know which purpose they expect and
// whether the fence applies.
func (s *Service) Verify(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.Action.known() {
		return Claims{}, fmt.Errorf("%w: purpose %q", ErrInvalidToken, claims.Action)
	}
	return claims, nil
}

// Package auth wires the token service, the account store and the role
// store into the signup, signin, activation and password-reset flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/meridian-shop/meridian/internal/accounts"
	"github.com/meridian-shop/meridian/internal/rbac"
	"github.com/meridian-shop/meridian/internal/token"
	"github.com/meridian-shop/meridian/jobs"
)

var (
	// ErrIncorrectData folds unknown-email lookups on the request
	// endpoints into a generic answer; the API never confirms whether an
	// email is registered.
	ErrIncorrectData = errors.New("auth: incorrect data")
	// ErrWrongPurpose rejects a token presented to a flow it was not
	// minted for.
	ErrWrongPurpose = errors.New("auth: wrong token purpose")
	// ErrStaleToken rejects a sensitive token whose issue epoch no longer
	// matches the account's login epoch.
	ErrStaleToken = errors.New("auth: stale token")
)

// RoleDirectory resolves role references for projections and defaults.
type RoleDirectory interface {
	Get(ctx context.Context, code int32) (rbac.Role, error)
	Default(ctx context.Context) (rbac.Role, error)
}

// Enqueuer hands transactional emails to the background queue.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// Service orchestrates the authentication flows.
type Service struct {
	accounts *accounts.Service
	tokens   *token.Service
	roles    RoleDirectory
	mail     Enqueuer
	baseURL  string
	logger   *slog.Logger
}

// NewService constructs a Service. baseURL is the public prefix embedded in
// activation and reset links.
func NewService(accountsSvc *accounts.Service, tokens *token.Service, roles RoleDirectory, mail Enqueuer, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		accounts: accountsSvc,
		tokens:   tokens,
		roles:    roles,
		mail:     mail,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// SignUp registers a disabled account under the default role and emails an
// activation link.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (accounts.Projection, error) {
	role, err := s.roles.Default(ctx)
	if err != nil {
		return accounts.Projection{}, err
	}
	account, err := s.accounts.Register(ctx, name, email, password, role.Code)
	if err != nil {
		return accounts.Projection{}, err
	}
	s.sendActivationMail(ctx, account)
	return account.Redacted(role.Name), nil
}

// SignIn validates credentials and mints a session token, which moves the
// account's login epoch and supersedes every older sensitive token.
func (s *Service) SignIn(ctx context.Context, email, password string) (accounts.Projection, string, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return accounts.Projection{}, "", accounts.ErrInvalidCredentials
	}
	if !account.Enabled {
		return accounts.Projection{}, "", accounts.ErrDisabled
	}
	if err := s.accounts.VerifyPassword(account, password); err != nil {
		return accounts.Projection{}, "", err
	}

	signed, _, err := s.tokens.Issue(ctx, subject(account), token.PurposeSession)
	if err != nil {
		return accounts.Projection{}, "", err
	}
	role, err := s.roles.Get(ctx, account.RoleCode)
	if err != nil {
		return accounts.Projection{}, "", err
	}
	return account.Redacted(role.Name), signed, nil
}

// Activate enables the account named by an activation token. The
// already-enabled check runs before the purpose and epoch checks so the
// caller gets the specific error regardless of token staleness.
func (s *Service) Activate(ctx context.Context, tokenString string) error {
	claims, account, err := s.resolveToken(ctx, tokenString)
	if err != nil {
		return err
	}
	if account.Enabled {
		return accounts.ErrAlreadyEnabled
	}
	if claims.Action != token.PurposeActivate {
		return ErrWrongPurpose
	}
	if claims.Epoch() != account.LoginEpoch {
		return ErrStaleToken
	}
	return s.accounts.Activate(ctx, account)
}

// RequestActivation re-sends the activation email for a not-yet-enabled
// account.
func (s *Service) RequestActivation(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return ErrIncorrectData
	}
	if account.Enabled {
		return accounts.ErrAlreadyEnabled
	}
	s.sendActivationMail(ctx, account)
	return nil
}

// ResetPassword replaces the credential named by a reset token. The login
// epoch is left alone, so an outstanding session token stays valid.
func (s *Service) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	claims, account, err := s.resolveToken(ctx, tokenString)
	if err != nil {
		return err
	}
	if claims.Action != token.PurposeReset {
		return ErrWrongPurpose
	}
	if claims.Epoch() != account.LoginEpoch {
		return ErrStaleToken
	}
	return s.accounts.ResetPassword(ctx, account.ID, newPassword)
}

// RequestPasswordReset emails a reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return ErrIncorrectData
	}
	signed, _, err := s.tokens.Issue(ctx, subject(account), token.PurposeReset)
	if err != nil {
		return err
	}
	s.enqueueMail(ctx, account.Email, "Password reset", fmt.Sprintf(
		`<p>To choose a new password, follow <a href="%s/api/v1/auth/passwordReset/%s">this link</a>. It expires in 5 minutes.</p>`,
		s.baseURL, signed))
	return nil
}

// resolveToken verifies signature and expiry, then loads the subject
// account. A missing account folds into the invalid-token answer.
func (s *Service) resolveToken(ctx context.Context, tokenString string) (token.Claims, accounts.Account, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return token.Claims{}, accounts.Account{}, err
	}
	id, err := claims.AccountID()
	if err != nil {
		return token.Claims{}, accounts.Account{}, err
	}
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return token.Claims{}, accounts.Account{}, token.ErrInvalidToken
	}
	return claims, account, nil
}

func (s *Service) sendActivationMail(ctx context.Context, account accounts.Account) {
	signed, _, err := s.tokens.Issue(ctx, subject(account), token.PurposeActivate)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("issue activation token", slog.Int64("account", account.ID), slog.Any("error", err))
		}
		return
	}
	s.enqueueMail(ctx, account.Email, "Account activation", fmt.Sprintf(
		`<p>To activate your account, follow <a href="%s/api/v1/auth/emailActivation/%s">this link</a>. It expires in 15 minutes.</p>`,
		s.baseURL, signed))
}

func (s *Service) enqueueMail(ctx context.Context, to, subject, html string) {
	if s.mail == nil {
		return
	}
	err := s.mail.EnqueueSendEmail(ctx, jobs.SendEmailPayload{To: to, Subject: subject, HTML: html})
	if err != nil && s.logger != nil {
		s.logger.Warn("enqueue email", slog.String("to", to), slog.Any("error", err))
	}
}

func subject(account accounts.Account) token.Subject {
	return token.Subject{ID: account.ID, LoginEpoch: account.LoginEpoch}
}

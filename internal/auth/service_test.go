package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-shop/meridian/internal/accounts"
	"github.com/meridian-shop/meridian/internal/auth"
	"github.com/meridian-shop/meridian/internal/rbac"
	"github.com/meridian-shop/meridian/internal/token"
	"github.com/meridian-shop/meridian/jobs"
)

type memAccountRepo struct {
	byID   map[int64]accounts.Account
	nextID int64
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byID: make(map[int64]accounts.Account)}
}

func (r *memAccountRepo) Create(ctx context.Context, account accounts.Account) (accounts.Account, error) {
	for _, existing := range r.byID {
		if existing.Email == account.Email || existing.Name == account.Name {
			return accounts.Account{}, accounts.ErrDuplicate
		}
	}
	r.nextID++
	account.ID = r.nextID
	r.byID[account.ID] = account
	return account, nil
}

func (r *memAccountRepo) FindByEmail(ctx context.Context, email string) (accounts.Account, error) {
	for _, account := range r.byID {
		if account.Email == email {
			return account, nil
		}
	}
	return accounts.Account{}, accounts.ErrNotFound
}

func (r *memAccountRepo) FindByID(ctx context.Context, id int64) (accounts.Account, error) {
	account, ok := r.byID[id]
	if !ok {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return account, nil
}

func (r *memAccountRepo) Enable(ctx context.Context, id int64) error {
	account, ok := r.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	account.Enabled = true
	r.byID[id] = account
	return nil
}

func (r *memAccountRepo) SetLoginEpoch(ctx context.Context, id, epoch int64) error {
	account, ok := r.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	account.LoginEpoch = epoch
	r.byID[id] = account
	return nil
}

func (r *memAccountRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	account, ok := r.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	account.PasswordHash = hash
	r.byID[id] = account
	return nil
}

var _ accounts.Repository = (*memAccountRepo)(nil)

type roleDirectoryStub struct {
	roles map[int32]rbac.Role
}

func (s *roleDirectoryStub) Get(ctx context.Context, code int32) (rbac.Role, error) {
	role, ok := s.roles[code]
	if !ok {
		return rbac.Role{}, rbac.ErrRoleNotFound
	}
	return role, nil
}

func (s *roleDirectoryStub) Default(ctx context.Context) (rbac.Role, error) {
	return s.Get(ctx, rbac.CodeDefault)
}

type mailbox struct {
	sent []jobs.SendEmailPayload
}

func (m *mailbox) EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error {
	m.sent = append(m.sent, payload)
	return nil
}

// last pops the freshest email so each assertion sees only its own message.
func (m *mailbox) last(t *testing.T) jobs.SendEmailPayload {
	t.Helper()
	require.NotEmpty(t, m.sent, "expected an email to be enqueued")
	return m.sent[len(m.sent)-1]
}

type authFixture struct {
	repo    *memAccountRepo
	tokens  *token.Service
	mail    *mailbox
	service *auth.Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := newMemAccountRepo()
	accountsSvc := accounts.NewService(repo)
	tokens, err := token.NewService([]byte("test-secret"), repo)
	require.NoError(t, err)
	roles := &roleDirectoryStub{roles: map[int32]rbac.Role{
		rbac.CodeDefault: {Code: rbac.CodeDefault, Name: "customer"},
	}}
	mail := &mailbox{}
	return &authFixture{
		repo:    repo,
		tokens:  tokens,
		mail:    mail,
		service: auth.NewService(accountsSvc, tokens, roles, mail, "http://api.test", nil),
	}
}

func (f *authFixture) signUp(t *testing.T) accounts.Projection {
	t.Helper()
	projection, err := f.service.SignUp(context.Background(), "alice", "alice@test.local", "hunter2hunter2")
	require.NoError(t, err)
	return projection
}

// mailToken pulls the signed token out of the link in the freshest email.
func (f *authFixture) mailToken(t *testing.T, pathMarker string) string {
	t.Helper()
	html := f.mail.last(t).HTML
	_, rest, found := strings.Cut(html, pathMarker)
	require.True(t, found, "email %q carries no %q link", html, pathMarker)
	signed, _, found := strings.Cut(rest, `"`)
	require.True(t, found)
	return signed
}

func TestSignUpAndActivate(t *testing.T) {
	f := newAuthFixture(t)

	projection := f.signUp(t)
	require.Equal(t, "customer", projection.Role)

	stored := f.repo.byID[projection.ID]
	require.False(t, stored.Enabled, "accounts start disabled")

	mail := f.mail.last(t)
	require.Equal(t, "alice@test.local", mail.To)
	require.Equal(t, "Account activation", mail.Subject)

	activation := f.mailToken(t, "/api/v1/auth/emailActivation/")
	require.NoError(t, f.service.Activate(context.Background(), activation))
	require.True(t, f.repo.byID[projection.ID].Enabled)

	err := f.service.Activate(context.Background(), activation)
	require.ErrorIs(t, err, accounts.ErrAlreadyEnabled)
}

func TestSignUpDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t)

	_, err := f.service.SignUp(context.Background(), "alice2", "alice@test.local", "hunter2hunter2")
	require.ErrorIs(t, err, accounts.ErrDuplicate)
}

func TestSignInMintsSessionToken(t *testing.T) {
	f := newAuthFixture(t)
	projection := f.signUp(t)
	require.NoError(t, f.repo.Enable(context.Background(), projection.ID))

	signedIn, signed, err := f.service.SignIn(context.Background(), "alice@test.local", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, projection.ID, signedIn.ID)
	require.Equal(t, "customer", signedIn.Role)

	claims, err := f.tokens.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, token.PurposeSession, claims.Action)
	require.Equal(t, f.repo.byID[projection.ID].LoginEpoch, claims.Epoch(),
		"the minted session is bound to the stored epoch")
}

func TestSignInWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	projection := f.signUp(t)
	require.NoError(t, f.repo.Enable(context.Background(), projection.ID))
	before := f.repo.byID[projection.ID].LoginEpoch

	_, signed, err := f.service.SignIn(context.Background(), "alice@test.local", "wrong-password")
	require.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	require.Empty(t, signed)
	require.Equal(t, before, f.repo.byID[projection.ID].LoginEpoch,
		"a failed signin never moves the fence")
}

func TestSignInUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, _, err := f.service.SignIn(context.Background(), "nobody@test.local", "whatever")
	require.ErrorIs(t, err, accounts.ErrInvalidCredentials,
		"unknown emails fold into the credentials answer")
}

func TestSignInDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t)

	_, _, err := f.service.SignIn(context.Background(), "alice@test.local", "hunter2hunter2")
	require.ErrorIs(t, err, accounts.ErrDisabled)
}

func TestActivationTokenGoesStaleWhenFenceMoves(t *testing.T) {
	f := newAuthFixture(t)
	projection := f.signUp(t)
	activation := f.mailToken(t, "/api/v1/auth/emailActivation/")

	moved := f.repo.byID[projection.ID].LoginEpoch + 1
	require.NoError(t, f.repo.SetLoginEpoch(context.Background(), projection.ID, moved))

	err := f.service.Activate(context.Background(), activation)
	require.ErrorIs(t, err, auth.ErrStaleToken)
}

func TestActivateRejectsWrongPurpose(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t)

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "alice@test.local"))
	reset := f.mailToken(t, "/api/v1/auth/passwordReset/")

	err := f.service.Activate(context.Background(), reset)
	require.ErrorIs(t, err, auth.ErrWrongPurpose)
}

func TestActivateRejectsGarbageToken(t *testing.T) {
	f := newAuthFixture(t)
	err := f.service.Activate(context.Background(), "not.a.token")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestActivateFoldsMissingAccount(t *testing.T) {
	f := newAuthFixture(t)
	projection := f.signUp(t)
	activation := f.mailToken(t, "/api/v1/auth/emailActivation/")
	delete(f.repo.byID, projection.ID)

	err := f.service.Activate(context.Background(), activation)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRequestActivationOnEnabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	projection := f.signUp(t)
	require.NoError(t, f.repo.Enable(context.Background(), projection.ID))

	err := f.service.RequestActivation(context.Background(), "alice@test.local")
	require.ErrorIs(t, err, accounts.ErrAlreadyEnabled)
}

func TestRequestActivationUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	err := f.service.RequestActivation(context.Background(), "nobody@test.local")
	require.ErrorIs(t, err, auth.ErrIncorrectData)
}

func TestResetPasswordFlow(t *testing.T) {
	f := newAuthFixture(t)
	projection := f.signUp(t)
	require.NoError(t, f.repo.Enable(context.Background(), projection.ID))
	before := f.repo.byID[projection.ID].LoginEpoch

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "alice@test.local"))
	mail := f.mail.last(t)
	require.Equal(t, "Password reset", mail.Subject)
	reset := f.mailToken(t, "/api/v1/auth/passwordReset/")

	require.NoError(t, f.service.ResetPassword(context.Background(), reset, "anotherpassword"))

	after := f.repo.byID[projection.ID]
	require.Equal(t, before, after.LoginEpoch, "a reset never moves the fence")

	_, _, err := f.service.SignIn(context.Background(), "alice@test.local", "anotherpassword")
	require.NoError(t, err)
}

func TestResetTokenGoesStaleAfterSignIn(t *testing.T) {
	f := newAuthFixture(t)
	projection := f.signUp(t)
	require.NoError(t, f.repo.Enable(context.Background(), projection.ID))

	// Pin the epoch well into the past so the signin below is guaranteed to
	// move it.
	require.NoError(t, f.repo.SetLoginEpoch(context.Background(), projection.ID, 1000))

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "alice@test.local"))
	reset := f.mailToken(t, "/api/v1/auth/passwordReset/")

	_, _, err := f.service.SignIn(context.Background(), "alice@test.local", "hunter2hunter2")
	require.NoError(t, err)

	err = f.service.ResetPassword(context.Background(), reset, "anotherpassword")
	require.ErrorIs(t, err, auth.ErrStaleToken)
}

func TestResetPasswordRejectsWrongPurpose(t *testing.T) {
	f := newAuthFixture(t)
	f.signUp(t)
	activation := f.mailToken(t, "/api/v1/auth/emailActivation/")

	err := f.service.ResetPassword(context.Background(), activation, "anotherpassword")
	require.ErrorIs(t, err, auth.ErrWrongPurpose)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	err := f.service.RequestPasswordReset(context.Background(), "nobody@test.local")
	require.ErrorIs(t, err, auth.ErrIncorrectData)
	require.Empty(t, f.mail.sent)
}

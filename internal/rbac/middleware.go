package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-shop/meridian/internal/accounts"
	"github.com/meridian-shop/meridian/internal/platform/httpx"
	"github.com/meridian-shop/meridian/internal/token"
)

// AccountSource loads the account a verified token points at.
type AccountSource interface {
	FindByID(ctx context.Context, id int64) (accounts.Account, error)
}

// RoleSource resolves the account's role reference.
type RoleSource interface {
	Get(ctx context.Context, code int32) (Role, error)
}

// Gate is the authorization check invoked ahead of every sensitive
// operation. It composes the token service, the account store and the role
// store into one middleware.
type Gate struct {
	Tokens   *token.Service
	Accounts AccountSource
	Roles    RoleSource
	Logger   *slog.Logger
}

// Require builds a middleware that admits only callers holding a live
// session token whose role grants every listed permission. An empty list
// still demands a valid session.
//
// All identity failures collapse into one 401: a missing account is
// indistinguishable from a bad token, so the endpoint cannot be used to
// enumerate accounts.
func (g Gate) Require(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "authorization required")
				return
			}

			claims, err := g.Tokens.Verify(bearer)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			if claims.Action != token.PurposeSession {
				unauthorized(w, "wrong token purpose")
				return
			}

			id, err := claims.AccountID()
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			account, err := g.Accounts.FindByID(r.Context(), id)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			if account.LoginEpoch != claims.Epoch() {
				unauthorized(w, "stale token")
				return
			}

			role, err := g.Roles.Get(r.Context(), account.RoleCode)
			if err != nil {
				if g.Logger != nil {
					g.Logger.Error("resolve role", slog.Int64("account", account.ID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !role.Allows(perms...) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), account)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || value == "" {
		return "", false
	}
	return value, true
}

func unauthorized(w http.ResponseWriter, detail string) {
	httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

package rbac

import (
	"context"

	"github.com/meridian-shop/meridian/internal/accounts"
)

type contextKey struct{}

// ContextWithAccount stores the authenticated account for downstream
// handlers.
func ContextWithAccount(ctx context.Context, account accounts.Account) context.Context {
	return context.WithValue(ctx, contextKey{}, account)
}

// AccountFromContext returns the authenticated account, if any.
func AccountFromContext(ctx context.Context) (accounts.Account, bool) {
	account, ok := ctx.Value(contextKey{}).(accounts.Account)
	return account, ok
}

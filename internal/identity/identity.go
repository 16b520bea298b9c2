// Package identity resolves the caller of the current request. The auth
// middleware authenticates the bearer token; this package reads the result
// back out of the context each time an operation asks.
package identity

import (
	"context"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/requestcontext"
)

// ContextIdentity reads the caller principal stored by the auth middleware.
type ContextIdentity struct{}

func NewContextIdentity() ContextIdentity {
	return ContextIdentity{}
}

// CurrentCaller returns the authenticated principal. Custody accounts are
// never callers.
func (ContextIdentity) CurrentCaller(ctx context.Context) (domain.Principal, error) {
	caller := requestcontext.Principal(ctx)
	if caller.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated")
	}
	if caller.IsCustody() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "custody accounts cannot act as callers")
	}
	return caller, nil
}

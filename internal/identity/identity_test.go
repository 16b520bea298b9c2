package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warden/pkg/domain"
	dErrors "warden/pkg/domain-errors"
	"warden/pkg/requestcontext"
)

func TestCurrentCaller(t *testing.T) {
	id := NewContextIdentity()

	t.Run("returns the authenticated principal", func(t *testing.T) {
		ctx := requestcontext.WithPrincipal(context.Background(), "alice")
		caller, err := id.CurrentCaller(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Principal("alice"), caller)
	})

	t.Run("rejects an unauthenticated context", func(t *testing.T) {
		_, err := id.CurrentCaller(context.Background())
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("rejects a custody account", func(t *testing.T) {
		ctx := requestcontext.WithPrincipal(context.Background(), domain.CustodyAccount(domain.NewWalletID()))
		_, err := id.CurrentCaller(ctx)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("resolves fresh on every call", func(t *testing.T) {
		first, err := id.CurrentCaller(requestcontext.WithPrincipal(context.Background(), "bob"))
		require.NoError(t, err)
		second, err := id.CurrentCaller(requestcontext.WithPrincipal(context.Background(), "carol"))
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

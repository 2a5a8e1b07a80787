package middleware_test

import (
	"context"
	"testing"

	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/georgfedermann/hit2assext/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := NewMockStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn", "^iban"})
	require.NoError(t, err)
	secure := mw(underlying)

	ctx := context.Background()
	snap := &domain.Snapshot{
		ID: "pii-session",
		Scalars: map[string]any{
			"username":      "jdoe",
			"user_password": "secret123",
			"details": map[string]any{
				"address":    "123 St",
				"ssn_number": "999-99-9999",
			},
		},
		Lists: map[string][]any{
			"ibans":     {"AT61 1904 3002 3457 3201"},
			"positions": {"p1"},
		},
	}

	require.NoError(t, secure.Save(ctx, snap))

	assert.Equal(t, "secret123", snap.Scalars["user_password"], "caller's snapshot is untouched")
	assert.Equal(t, "999-99-9999", snap.Scalars["details"].(map[string]any)["ssn_number"])
	assert.Equal(t, []any{"AT61 1904 3002 3457 3201"}, snap.Lists["ibans"])

	stored, err := underlying.Load(ctx, "pii-session")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Scalars["username"])
	assert.Equal(t, middleware.Mask, stored.Scalars["user_password"])
	details := stored.Scalars["details"].(map[string]any)
	assert.Equal(t, middleware.Mask, details["ssn_number"])
	assert.Equal(t, "123 St", details["address"])
	assert.Equal(t, []any{middleware.Mask}, stored.Lists["ibans"])
	assert.Equal(t, []any{"p1"}, stored.Lists["positions"])
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	underlying := NewMockStore()
	key := generateKey(t)

	pii, err := middleware.NewPIIMiddleware([]string{"password"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Snapshot{
		ID:      "chained",
		Scalars: map[string]any{"password": "hunter2", "title": "t"},
	}))

	loaded, err := store.Load(ctx, "chained")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, loaded.Scalars["password"])
	assert.Equal(t, "t", loaded.Scalars["title"])
}

//go:build integration

package handoff_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parakeetchat/parakeet/internal/handoff"
	"github.com/parakeetchat/parakeet/internal/sqlc"
	"github.com/parakeetchat/parakeet/internal/tenant"
	"github.com/parakeetchat/parakeet/internal/testutil"
)

func TestService_TokenLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	queries := sqlc.New(tdb.Pool)
	logger := testutil.DiscardLogger()

	tenants := tenant.NewStore(queries, logger)
	_, err := tenants.Create(ctx, tenant.CreateParams{
		ID:             "acme",
		Name:           "Acme",
		AllowedDomains: []string{"acme.com"},
	})
	require.NoError(t, err)

	svc := handoff.NewService(queries, "https://acme.com/chat", logger)

	maxUses := 2
	issued, err := svc.Issue(ctx, "acme", handoff.IssueParams{
		Context:   "Order #1042 refund discussion",
		ExpiresIn: 3600,
		MaxUses:   &maxUses,
	})
	require.NoError(t, err)
	assert.Len(t, issued.Token, handoff.TokenLength)
	assert.Contains(t, issued.ShareURL, issued.Token)

	t.Run("validate does not consume", func(t *testing.T) {
		for range 3 {
			h, err := svc.Validate(ctx, issued.Token)
			require.NoError(t, err)
			assert.Equal(t, issued.ID, h.ID)
			assert.Equal(t, "acme", h.TenantID)
			assert.Equal(t, 0, h.UsedCount)
		}
	})

	t.Run("consume enforces max uses", func(t *testing.T) {
		first, err := svc.Consume(ctx, issued.ID, "acme")
		require.NoError(t, err)
		assert.Equal(t, 1, first.UsedCount)

		second, err := svc.Consume(ctx, issued.ID, "acme")
		require.NoError(t, err)
		assert.Equal(t, 2, second.UsedCount)

		_, err = svc.Consume(ctx, issued.ID, "acme")
		require.ErrorIs(t, err, handoff.ErrNotFound)
	})

	t.Run("exhausted token fails validation", func(t *testing.T) {
		_, err := svc.Validate(ctx, issued.Token)
		require.ErrorIs(t, err, handoff.ErrNotFound)
	})

	t.Run("consume is tenant scoped", func(t *testing.T) {
		fresh, err := svc.Issue(ctx, "acme", handoff.IssueParams{Context: "ctx"})
		require.NoError(t, err)

		_, err = svc.Consume(ctx, fresh.ID, "globex")
		require.ErrorIs(t, err, handoff.ErrNotFound)
	})

	t.Run("deactivated token fails validation", func(t *testing.T) {
		fresh, err := svc.Issue(ctx, "acme", handoff.IssueParams{Context: "ctx"})
		require.NoError(t, err)

		require.NoError(t, svc.Deactivate(ctx, fresh.ID, "acme"))

		_, err = svc.Validate(ctx, fresh.Token)
		require.ErrorIs(t, err, handoff.ErrNotFound)
	})

	t.Run("expired token fails validation", func(t *testing.T) {
		fresh, err := svc.Issue(ctx, "acme", handoff.IssueParams{Context: "ctx"})
		require.NoError(t, err)

		_, err = tdb.Pool.Exec(ctx,
			"UPDATE handoffs SET expires_at = now() - interval '1 hour' WHERE id = $1",
			fresh.ID)
		require.NoError(t, err)

		_, err = svc.Validate(ctx, fresh.Token)
		require.ErrorIs(t, err, handoff.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		all, err := svc.List(ctx, "acme")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 4)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
		}
	})
}

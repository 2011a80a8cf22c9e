//go:build integration

package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parakeetchat/parakeet/internal/sqlc"
	"github.com/parakeetchat/parakeet/internal/tenant"
	"github.com/parakeetchat/parakeet/internal/testutil"
)

func TestStore_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := tenant.NewStore(sqlc.New(tdb.Pool), testutil.DiscardLogger())

	created, err := store.Create(ctx, tenant.CreateParams{
		ID:             "acme",
		Name:           "Acme Corp",
		AllowedDomains: []string{"acme.com", "*.acme.com"},
		AgentConfig: &tenant.AgentConfig{
			SystemPrompt: "You are a helpful support agent.",
		},
		UIConfig: &tenant.UIConfig{
			ThemeColor: "#1a73e8",
			Title:      "Acme Support",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", created.ID)
	assert.True(t, created.Active)
	assert.Equal(t, []string{"acme.com", "*.acme.com"}, created.AllowedDomains)
	require.NotNil(t, created.AgentConfig)
	assert.Equal(t, "You are a helpful support agent.", created.AgentConfig.SystemPrompt)

	t.Run("duplicate ID rejected", func(t *testing.T) {
		_, err := store.Create(ctx, tenant.CreateParams{ID: "acme", Name: "Other"})
		require.ErrorIs(t, err, tenant.ErrAlreadyExists)
	})

	t.Run("get roundtrip", func(t *testing.T) {
		got, err := store.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, created.Name, got.Name)
		require.NotNil(t, got.UIConfig)
		assert.Equal(t, "#1a73e8", got.UIConfig.ThemeColor)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		require.ErrorIs(t, err, tenant.ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := store.Update(ctx, "acme", tenant.UpdateParams{
			Name:           "Acme Inc",
			AllowedDomains: []string{"acme.io"},
			Active:         true,
		})
		require.NoError(t, err)
		assert.Equal(t, "Acme Inc", updated.Name)
		assert.Equal(t, []string{"acme.io"}, updated.AllowedDomains)
		assert.Nil(t, updated.AgentConfig)
	})

	t.Run("update unknown", func(t *testing.T) {
		_, err := store.Update(ctx, "nope", tenant.UpdateParams{Name: "X", Active: true})
		require.ErrorIs(t, err, tenant.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		_, err := store.Create(ctx, tenant.CreateParams{
			ID:             "globex",
			Name:           "Globex",
			AllowedDomains: []string{"globex.com"},
		})
		require.NoError(t, err)

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("deactivate", func(t *testing.T) {
		require.NoError(t, store.Deactivate(ctx, "globex"))

		got, err := store.Get(ctx, "globex")
		require.NoError(t, err)
		assert.False(t, got.Active)
	})
}

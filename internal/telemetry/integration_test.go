//go:build integration

package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parakeetchat/parakeet/internal/sqlc"
	"github.com/parakeetchat/parakeet/internal/telemetry"
	"github.com/parakeetchat/parakeet/internal/tenant"
	"github.com/parakeetchat/parakeet/internal/testutil"
)

func TestIngestor_PersistsBatch(t *testing.T) {
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

	ingestor := telemetry.NewIngestor(queries, logger)
	sessionID := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	received, saved, err := ingestor.Ingest(ctx, "acme", []telemetry.Event{
		{Type: "widget.opened", Timestamp: now, SessionID: sessionID},
		{Type: "widget.message.sent", Timestamp: now, SessionID: sessionID, Properties: map[string]any{
			"length": 42,
		}},
		{Type: "totally.unknown", Timestamp: now, SessionID: sessionID},
		{Type: "widget.closed", Timestamp: "not-a-timestamp", SessionID: sessionID},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, received)
	assert.Equal(t, 2, saved)

	var count int
	require.NoError(t, tdb.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM events WHERE tenant_id = $1", "acme").Scan(&count))
	assert.Equal(t, 2, count)

	var props []byte
	require.NoError(t, tdb.Pool.QueryRow(ctx,
		"SELECT properties FROM events WHERE event_type = $1", "widget.message.sent").Scan(&props))
	assert.JSONEq(t, `{"length": 42}`, string(props))
}

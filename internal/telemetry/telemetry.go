// Package telemetry handles widget usage events: server-side batch ingest
// with an event-type allow-list, and a client-side batcher for Go widget
// hosts.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/sqlc"
)

// MaxBatchSize is the largest accepted ingest batch. Oversize batches are
// rejected wholesale rather than truncated.
const MaxBatchSize = 100

var (
	// ErrEmptyBatch indicates the batch carried no events.
	ErrEmptyBatch = errors.New("events array is required")

	// ErrBatchTooLarge indicates the batch exceeds MaxBatchSize.
	ErrBatchTooLarge = errors.New("too many events in batch")
)

// allowedTypes is the closed set of event types the gateway records.
// Anything else is silently dropped so widget version skew never turns
// into ingest errors.
var allowedTypes = map[string]struct{}{
	"widget.opened":             {},
	"widget.closed":             {},
	"widget.message.sent":       {},
	"widget.suggestion.clicked": {},
	"widget.action.clicked":     {},
	"widget.feedback.submitted": {},
}

// Event is a single usage event as sent by the widget.
type Event struct {
	Type       string         `json:"type"`
	Timestamp  string         `json:"timestamp"`
	SessionID  string         `json:"sessionId,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Querier defines the database operations the ingestor needs.
type Querier interface {
	CreateEvents(ctx context.Context, arg []sqlc.CreateEventsParams) (int64, error)
}

// Ingestor validates and persists event batches.
type Ingestor struct {
	querier Querier
	logger  log.Logger
}

// NewIngestor creates an event ingestor.
func NewIngestor(querier Querier, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{querier: querier, logger: logger}
}

// Ingest persists the valid events of a batch for a tenant.
//
// Batch-level failures (empty, oversize) reject the whole batch. Event-level
// problems (unrecognized type, unparsable timestamp) drop the single event;
// received reports the batch size, saved how many survived.
func (i *Ingestor) Ingest(ctx context.Context, tenantID string, events []Event) (received, saved int, err error) {
	if len(events) == 0 {
		return 0, 0, ErrEmptyBatch
	}
	if len(events) > MaxBatchSize {
		return 0, 0, fmt.Errorf("%w (max %d)", ErrBatchTooLarge, MaxBatchSize)
	}

	rows := make([]sqlc.CreateEventsParams, 0, len(events))
	for _, ev := range events {
		row, ok := i.validate(tenantID, ev)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if _, err := i.querier.CreateEvents(ctx, rows); err != nil {
			return 0, 0, fmt.Errorf("inserting events for tenant %s: %w", tenantID, err)
		}
	}

	i.logger.Debug("events ingested",
		"tenant_id", tenantID,
		"received", len(events),
		"saved", len(rows))
	return len(events), len(rows), nil
}

func (i *Ingestor) validate(tenantID string, ev Event) (sqlc.CreateEventsParams, bool) {
	if _, ok := allowedTypes[ev.Type]; !ok {
		i.logger.Debug("dropping event with unrecognized type", "event_type", ev.Type)
		return sqlc.CreateEventsParams{}, false
	}

	occurredAt, err := time.Parse(time.RFC3339, ev.Timestamp)
	if err != nil {
		i.logger.Debug("dropping event with invalid timestamp",
			"event_type", ev.Type,
			"timestamp", ev.Timestamp)
		return sqlc.CreateEventsParams{}, false
	}

	row := sqlc.CreateEventsParams{
		ID:         pgtype.UUID{Bytes: uuid.New(), Valid: true},
		TenantID:   tenantID,
		EventType:  ev.Type,
		OccurredAt: pgtype.Timestamptz{Time: occurredAt, Valid: true},
	}

	// A malformed session ID degrades to an anonymous event rather than
	// dropping it.
	if ev.SessionID != "" {
		if sid, err := uuid.Parse(ev.SessionID); err == nil {
			row.SessionID = pgtype.UUID{Bytes: sid, Valid: true}
		}
	}

	if len(ev.Properties) > 0 {
		props, err := json.Marshal(ev.Properties)
		if err == nil {
			row.Properties = props
		}
	}

	return row, true
}

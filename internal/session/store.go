package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/sqlc"
)

// Message roles persisted in the messages table.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultHistoryLimit caps the number of messages loaded per conversation.
const DefaultHistoryLimit int32 = 200

// Conversation is the server-side record for a widget session.
type Conversation struct {
	ID              uuid.UUID
	TenantID        string
	ClientSessionID uuid.UUID
	CreatedAt       time.Time
	LastActiveAt    time.Time
}

// Message is a single conversation turn.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	Metadata       map[string]any
	CreatedAt      time.Time
}

// Querier defines the database operations the store needs.
// Following Go best practices: interfaces are defined by the consumer.
type Querier interface {
	UpsertConversation(ctx context.Context, arg sqlc.UpsertConversationParams) (sqlc.Conversation, error)
	GetConversation(ctx context.Context, arg sqlc.GetConversationParams) (sqlc.Conversation, error)
	CreateMessage(ctx context.Context, arg sqlc.CreateMessageParams) (sqlc.Message, error)
	ListMessages(ctx context.Context, arg sqlc.ListMessagesParams) ([]sqlc.Message, error)
}

// Store manages conversation persistence with a PostgreSQL backend.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	logger  log.Logger
}

// NewStore creates a session store.
//
// Example (production):
//
//	store := session.NewStore(sqlc.New(pool), logger)
//
// Example (testing with mock):
//
//	store := session.NewStore(mockQuerier, log.NewNop())
func NewStore(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, logger: logger}
}

// GetOrCreate returns the conversation for (tenant, session id), creating it
// on first contact and touching last_active_at on reuse. The upsert makes
// concurrent first requests for the same session converge on one row.
func (s *Store) GetOrCreate(ctx context.Context, tenantID string, clientSessionID uuid.UUID) (*Conversation, error) {
	row, err := s.querier.UpsertConversation(ctx, sqlc.UpsertConversationParams{
		TenantID:        tenantID,
		ClientSessionID: uuidToPg(clientSessionID),
	})
	if err != nil {
		return nil, fmt.Errorf("upserting conversation for tenant %s: %w", tenantID, err)
	}

	conv := conversationFromRow(row)
	s.logger.Debug("conversation resolved",
		"tenant_id", tenantID,
		"conversation_id", conv.ID,
		"session_id", clientSessionID)
	return conv, nil
}

// History returns the most recent conversation messages in chronological
// order. A session that has never chatted yet yields an empty slice, not an
// error.
func (s *Store) History(ctx context.Context, tenantID string, clientSessionID uuid.UUID, limit int32) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	convRow, err := s.querier.GetConversation(ctx, sqlc.GetConversationParams{
		TenantID:        tenantID,
		ClientSessionID: uuidToPg(clientSessionID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("getting conversation for tenant %s: %w", tenantID, err)
	}

	rows, err := s.querier.ListMessages(ctx, sqlc.ListMessagesParams{
		ConversationID: convRow.ID,
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		msg, err := messageFromRow(row)
		if err != nil {
			s.logger.Warn("skipping message with malformed metadata",
				"message_id", pgToUUID(row.ID),
				"error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// AppendMessage persists one message and returns its ID.
func (s *Store) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string, metadata map[string]any) (uuid.UUID, error) {
	var metaJSON []byte
	if len(metadata) > 0 {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return uuid.Nil, fmt.Errorf("marshaling message metadata: %w", err)
		}
	}

	row, err := s.querier.CreateMessage(ctx, sqlc.CreateMessageParams{
		ConversationID: uuidToPg(conversationID),
		Role:           role,
		Content:        content,
		Metadata:       metaJSON,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("appending %s message: %w", role, err)
	}

	id := pgToUUID(row.ID)
	s.logger.Debug("message appended",
		"conversation_id", conversationID,
		"message_id", id,
		"role", role)
	return id, nil
}

func conversationFromRow(row sqlc.Conversation) *Conversation {
	return &Conversation{
		ID:              pgToUUID(row.ID),
		TenantID:        row.TenantID,
		ClientSessionID: pgToUUID(row.ClientSessionID),
		CreatedAt:       row.CreatedAt.Time,
		LastActiveAt:    row.LastActiveAt.Time,
	}
}

func messageFromRow(row sqlc.Message) (Message, error) {
	msg := Message{
		ID:             pgToUUID(row.ID),
		ConversationID: pgToUUID(row.ConversationID),
		Role:           row.Role,
		Content:        row.Content,
		CreatedAt:      row.CreatedAt.Time,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &msg.Metadata); err != nil {
			return Message{}, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return msg, nil
}

// uuidToPg converts uuid.UUID to pgtype.UUID.
func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// pgToUUID converts pgtype.UUID to uuid.UUID.
func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}

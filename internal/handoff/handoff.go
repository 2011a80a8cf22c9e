// Package handoff issues and redeems share tokens that carry conversation
// context from one surface to another (for example, an email reply that
// reopens the chat with prior context).
//
// Tokens are 32-character base62 strings from crypto/rand (~190 bits of
// entropy), stored server-side with an expiry and an optional use cap.
package handoff

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/sqlc"
)

var (
	// ErrEmptyContext indicates the context is empty after trimming.
	ErrEmptyContext = errors.New("context is required")

	// ErrInvalidExpiry indicates expires_in is outside the accepted bounds.
	ErrInvalidExpiry = errors.New("invalid expiry")

	// ErrInvalidMaxUses indicates max_uses is not a positive integer.
	ErrInvalidMaxUses = errors.New("invalid max uses")

	// ErrMalformedToken indicates the token is not a well-formed share token.
	ErrMalformedToken = errors.New("malformed handoff token")

	// ErrNotFound indicates no valid handoff exists: unknown token, expired,
	// deactivated, or exhausted. Collapsed into one error so callers cannot
	// distinguish which.
	ErrNotFound = errors.New("handoff not found")
)

const (
	// TokenLength is the exact length of a share token.
	TokenLength = 32

	// MinExpirySeconds is one minute.
	MinExpirySeconds = 60

	// MaxExpirySeconds is thirty days.
	MaxExpirySeconds = 2592000

	// DefaultExpirySeconds is seven days.
	DefaultExpirySeconds = 604800
)

const base62Charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// newToken generates a TokenLength base62 token from crypto/rand.
// The modulo bias (256 % 62) is negligible against ~190 bits of entropy.
func newToken() (string, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = base62Charset[int(b)%len(base62Charset)]
	}
	return string(buf), nil
}

// Handoff is a share token record.
type Handoff struct {
	ID        uuid.UUID
	TenantID  string
	Token     string
	Context   string
	Metadata  map[string]any
	Active    bool
	ExpiresAt time.Time
	MaxUses   *int
	UsedCount int
	CreatedAt time.Time
}

// Querier defines the database operations the service needs.
type Querier interface {
	CreateHandoff(ctx context.Context, arg sqlc.CreateHandoffParams) (sqlc.Handoff, error)
	GetValidHandoffByToken(ctx context.Context, token string) (sqlc.Handoff, error)
	ConsumeHandoff(ctx context.Context, arg sqlc.ConsumeHandoffParams) (sqlc.Handoff, error)
	DeactivateHandoff(ctx context.Context, arg sqlc.DeactivateHandoffParams) (int64, error)
	ListHandoffs(ctx context.Context, tenantID string) ([]sqlc.Handoff, error)
}

// Service issues and redeems handoff tokens.
// Service is safe for concurrent use by multiple goroutines.
type Service struct {
	querier Querier
	// homepageURL is the base for share links: <homepageURL>?handoff=<token>
	homepageURL string
	logger      log.Logger
	now         func() time.Time
}

// NewService creates a handoff service.
func NewService(querier Querier, homepageURL string, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{
		querier:     querier,
		homepageURL: homepageURL,
		logger:      logger,
		now:         time.Now,
	}
}

// IssueParams holds the fields accepted when creating a handoff.
type IssueParams struct {
	// Context is the conversation context carried by the token. Leading and
	// trailing whitespace is trimmed; an empty result is rejected.
	Context string
	// Metadata is arbitrary caller data stored alongside the context.
	Metadata map[string]any
	// ExpiresIn is the token lifetime in seconds. Zero means the default
	// (seven days). Out-of-bounds values are rejected.
	ExpiresIn int
	// MaxUses caps redemptions. Nil means unlimited.
	MaxUses *int
}

// Issued describes a freshly issued handoff.
type Issued struct {
	ID        uuid.UUID
	Token     string
	ShareURL  string
	ExpiresAt time.Time
}

// Issue creates a handoff token for a tenant.
func (s *Service) Issue(ctx context.Context, tenantID string, params IssueParams) (*Issued, error) {
	handoffContext := strings.TrimSpace(params.Context)
	if handoffContext == "" {
		return nil, ErrEmptyContext
	}

	expiresIn := params.ExpiresIn
	if expiresIn == 0 {
		expiresIn = DefaultExpirySeconds
	}
	if expiresIn < MinExpirySeconds || expiresIn > MaxExpirySeconds {
		return nil, fmt.Errorf("%w: expires_in must be between %d and %d seconds, got %d",
			ErrInvalidExpiry, MinExpirySeconds, MaxExpirySeconds, params.ExpiresIn)
	}

	var maxUses *int32
	if params.MaxUses != nil {
		if *params.MaxUses < 1 {
			return nil, fmt.Errorf("%w: max_uses must be a positive integer, got %d",
				ErrInvalidMaxUses, *params.MaxUses)
		}
		v := int32(*params.MaxUses)
		maxUses = &v
	}

	var metaJSON []byte
	if len(params.Metadata) > 0 {
		b, err := json.Marshal(params.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshaling handoff metadata: %w", err)
		}
		metaJSON = b
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(time.Duration(expiresIn) * time.Second)
	row, err := s.querier.CreateHandoff(ctx, sqlc.CreateHandoffParams{
		TenantID:  tenantID,
		Token:     token,
		Context:   handoffContext,
		Metadata:  metaJSON,
		ExpiresAt: pgtype.Timestamptz{Time: expiresAt, Valid: true},
		MaxUses:   maxUses,
	})
	if err != nil {
		return nil, fmt.Errorf("creating handoff for tenant %s: %w", tenantID, err)
	}

	s.logger.Info("handoff issued",
		"tenant_id", tenantID,
		"handoff_id", pgToUUID(row.ID),
		"expires_at", expiresAt)

	return &Issued{
		ID:        pgToUUID(row.ID),
		Token:     row.Token,
		ShareURL:  s.homepageURL + "?handoff=" + row.Token,
		ExpiresAt: row.ExpiresAt.Time,
	}, nil
}

// Validate resolves a token to its handoff without consuming a use.
// Returns ErrMalformedToken for tokens of the wrong length before touching
// storage, and ErrNotFound for unknown, expired, deactivated, or exhausted
// tokens.
func (s *Service) Validate(ctx context.Context, token string) (*Handoff, error) {
	if len(token) != TokenLength {
		return nil, fmt.Errorf("%w: expected %d characters, got %d", ErrMalformedToken, TokenLength, len(token))
	}

	row, err := s.querier.GetValidHandoffByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up handoff token: %w", err)
	}
	return fromRow(row), nil
}

// Consume atomically re-checks validity and increments the use counter.
// The conditional UPDATE is a single statement, so two concurrent consumers
// of a max_uses=1 token cannot both succeed.
func (s *Service) Consume(ctx context.Context, id uuid.UUID, tenantID string) (*Handoff, error) {
	row, err := s.querier.ConsumeHandoff(ctx, sqlc.ConsumeHandoffParams{
		ID:       uuidToPg(id),
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("consuming handoff %s: %w", id, err)
	}

	s.logger.Debug("handoff consumed",
		"handoff_id", id,
		"tenant_id", tenantID,
		"used_count", row.UsedCount)
	return fromRow(row), nil
}

// Deactivate soft-deletes a handoff. Returns ErrNotFound when the handoff
// does not exist or belongs to a different tenant.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, tenantID string) error {
	affected, err := s.querier.DeactivateHandoff(ctx, sqlc.DeactivateHandoffParams{
		ID:       uuidToPg(id),
		TenantID: tenantID,
	})
	if err != nil {
		return fmt.Errorf("deactivating handoff %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Info("handoff deactivated", "handoff_id", id, "tenant_id", tenantID)
	return nil
}

// List returns a tenant's handoffs, newest first.
func (s *Service) List(ctx context.Context, tenantID string) ([]*Handoff, error) {
	rows, err := s.querier.ListHandoffs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing handoffs for tenant %s: %w", tenantID, err)
	}

	handoffs := make([]*Handoff, 0, len(rows))
	for _, row := range rows {
		handoffs = append(handoffs, fromRow(row))
	}
	return handoffs, nil
}

func fromRow(row sqlc.Handoff) *Handoff {
	h := &Handoff{
		ID:        pgToUUID(row.ID),
		TenantID:  row.TenantID,
		Token:     row.Token,
		Context:   row.Context,
		Active:    row.IsActive,
		ExpiresAt: row.ExpiresAt.Time,
		UsedCount: int(row.UsedCount),
		CreatedAt: row.CreatedAt.Time,
	}
	if row.MaxUses != nil {
		v := int(*row.MaxUses)
		h.MaxUses = &v
	}
	if len(row.Metadata) > 0 {
		// Rows predating the metadata column, or with malformed JSON, just
		// come back without it.
		_ = json.Unmarshal(row.Metadata, &h.Metadata)
	}
	return h
}

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}

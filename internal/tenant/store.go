package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/sqlc"
)

var (
	// ErrNotFound indicates the tenant does not exist.
	ErrNotFound = errors.New("tenant not found")

	// ErrAlreadyExists indicates a tenant with the same ID already exists.
	ErrAlreadyExists = errors.New("tenant already exists")
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// Querier defines the database operations the store needs.
// Following Go best practices: interfaces are defined by the consumer.
type Querier interface {
	CreateTenant(ctx context.Context, arg sqlc.CreateTenantParams) (sqlc.Tenant, error)
	GetTenant(ctx context.Context, id string) (sqlc.Tenant, error)
	ListTenants(ctx context.Context) ([]sqlc.Tenant, error)
	UpdateTenant(ctx context.Context, arg sqlc.UpdateTenantParams) (sqlc.Tenant, error)
	DeactivateTenant(ctx context.Context, id string) (int64, error)
}

// Store manages tenant persistence.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	logger  log.Logger
}

// NewStore creates a tenant store.
func NewStore(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, logger: logger}
}

// CreateParams holds the fields accepted when registering a tenant.
type CreateParams struct {
	ID             string
	Name           string
	AllowedDomains []string
	AgentConfig    *AgentConfig
	UIConfig       *UIConfig
}

// Create registers a new tenant. Returns ErrAlreadyExists when the ID is taken.
func (s *Store) Create(ctx context.Context, params CreateParams) (*Tenant, error) {
	agentJSON, uiJSON, err := marshalConfigs(params.AgentConfig, params.UIConfig)
	if err != nil {
		return nil, err
	}

	row, err := s.querier.CreateTenant(ctx, sqlc.CreateTenantParams{
		ID:             params.ID,
		Name:           params.Name,
		AllowedDomains: params.AllowedDomains,
		AgentConfig:    agentJSON,
		UiConfig:       uiJSON,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, params.ID)
		}
		return nil, fmt.Errorf("creating tenant %s: %w", params.ID, err)
	}

	s.logger.Info("tenant created", "tenant_id", params.ID)
	return fromRow(row)
}

// Get returns a tenant by ID, active or not.
func (s *Store) Get(ctx context.Context, id string) (*Tenant, error) {
	row, err := s.querier.GetTenant(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting tenant %s: %w", id, err)
	}
	return fromRow(row)
}

// List returns all tenants, newest first.
func (s *Store) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.querier.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}

	tenants := make([]*Tenant, 0, len(rows))
	for _, row := range rows {
		t, err := fromRow(row)
		if err != nil {
			s.logger.Warn("skipping tenant with malformed config", "tenant_id", row.ID, "error", err)
			continue
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

// UpdateParams holds the replacement fields for a tenant update.
type UpdateParams struct {
	Name           string
	AllowedDomains []string
	Active         bool
	AgentConfig    *AgentConfig
	UIConfig       *UIConfig
}

// Update replaces a tenant's mutable fields. Returns ErrNotFound when absent.
func (s *Store) Update(ctx context.Context, id string, params UpdateParams) (*Tenant, error) {
	agentJSON, uiJSON, err := marshalConfigs(params.AgentConfig, params.UIConfig)
	if err != nil {
		return nil, err
	}

	row, err := s.querier.UpdateTenant(ctx, sqlc.UpdateTenantParams{
		ID:             id,
		Name:           params.Name,
		AllowedDomains: params.AllowedDomains,
		IsActive:       params.Active,
		AgentConfig:    agentJSON,
		UiConfig:       uiJSON,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("updating tenant %s: %w", id, err)
	}

	s.logger.Info("tenant updated", "tenant_id", id)
	return fromRow(row)
}

// Deactivate soft-deletes a tenant. Returns ErrNotFound when absent.
func (s *Store) Deactivate(ctx context.Context, id string) error {
	affected, err := s.querier.DeactivateTenant(ctx, id)
	if err != nil {
		return fmt.Errorf("deactivating tenant %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.logger.Info("tenant deactivated", "tenant_id", id)
	return nil
}

func marshalConfigs(agent *AgentConfig, ui *UIConfig) (agentJSON, uiJSON []byte, err error) {
	if agent != nil {
		agentJSON, err = json.Marshal(agent)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling agent config: %w", err)
		}
	}
	if ui != nil {
		uiJSON, err = json.Marshal(ui)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling ui config: %w", err)
		}
	}
	return agentJSON, uiJSON, nil
}

func fromRow(row sqlc.Tenant) (*Tenant, error) {
	t := &Tenant{
		ID:             row.ID,
		Name:           row.Name,
		AllowedDomains: row.AllowedDomains,
		Active:         row.IsActive,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}

	if len(row.AgentConfig) > 0 {
		var ac AgentConfig
		if err := json.Unmarshal(row.AgentConfig, &ac); err != nil {
			return nil, fmt.Errorf("unmarshaling agent config for %s: %w", row.ID, err)
		}
		t.AgentConfig = &ac
	}
	if len(row.UiConfig) > 0 {
		var uc UIConfig
		if err := json.Unmarshal(row.UiConfig, &uc); err != nil {
			return nil, fmt.Errorf("unmarshaling ui config for %s: %w", row.ID, err)
		}
		t.UIConfig = &uc
	}
	return t, nil
}

// Package auth authenticates widget requests against tenant policy.
//
// Authentication is strategy-based so transport (HTTP middleware) stays
// decoupled from policy. The gateway ships a single strategy: domain
// authentication, which checks the browser-reported origin against the
// tenant's domain allow-list.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/parakeetchat/parakeet/internal/log"
	"github.com/parakeetchat/parakeet/internal/tenant"
)

var (
	// ErrMissingOrigin indicates the request carried neither an Origin nor a
	// Referer header.
	ErrMissingOrigin = errors.New("missing Origin or Referer header")

	// ErrTenantNotFound indicates the tenant does not exist or is inactive.
	// Both cases map to the same error so callers cannot probe tenant IDs.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrDomainNotAllowed indicates the caller's domain is not on the
	// tenant's allow-list.
	ErrDomainNotAllowed = errors.New("domain not authorized for this tenant")
)

// Result is the outcome of a successful authentication.
type Result struct {
	TenantID string
}

// Strategy authenticates a request for a tenant.
type Strategy interface {
	Validate(ctx context.Context, r *http.Request, tenantID string) (Result, error)
}

// TenantDirectory resolves tenant records. Satisfied by *tenant.Store.
type TenantDirectory interface {
	Get(ctx context.Context, id string) (*tenant.Tenant, error)
}

// DomainStrategy authenticates requests by matching the browser origin
// against the tenant's domain allow-list.
type DomainStrategy struct {
	tenants TenantDirectory
	logger  log.Logger
}

// NewDomainStrategy creates a domain authentication strategy.
func NewDomainStrategy(tenants TenantDirectory, logger log.Logger) *DomainStrategy {
	if logger == nil {
		logger = log.NewNop()
	}
	return &DomainStrategy{tenants: tenants, logger: logger}
}

// Validate checks the request origin against the tenant allow-list.
// The Origin header wins over Referer when both are present.
func (s *DomainStrategy) Validate(ctx context.Context, r *http.Request, tenantID string) (Result, error) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	if origin == "" {
		return Result{}, ErrMissingOrigin
	}

	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return Result{}, ErrTenantNotFound
		}
		return Result{}, fmt.Errorf("resolving tenant %s: %w", tenantID, err)
	}
	if !t.Active {
		return Result{}, ErrTenantNotFound
	}

	host := tenant.Hostname(origin)
	if !tenant.MatchDomain(t.AllowedDomains, host) {
		s.logger.Warn("origin rejected",
			"tenant_id", tenantID,
			"host", host)
		return Result{}, ErrDomainNotAllowed
	}

	return Result{TenantID: t.ID}, nil
}

// Package registry is the durable record of every tenant. It is the single
// source of truth for tenant existence, and its compare-and-set transition is
// the only way declared status changes.
package registry

import (
	"context"

	"github.com/spec-kit/provisioning-engine/internal/domain"
)

// Registry stores tenant records.
type Registry interface {
	Get(ctx context.Context, name string) (*domain.Tenant, error)
	List(ctx context.Context) ([]domain.Tenant, error)
	Put(ctx context.Context, tenant *domain.Tenant) error
	Delete(ctx context.Context, name string) error

	// CompareAndSetStatus transitions declared status only when the current
	// status matches expected. A mismatch is a CONFLICT; a missing record is
	// NOT_FOUND. This is the workflow's defense against racing operations.
	CompareAndSetStatus(ctx context.Context, name string, expected, next domain.TenantStatus) error

	// SetAdminCredential replaces the last-issued admin login for a tenant.
	SetAdminCredential(ctx context.Context, name string, cred domain.AdminCredential) error
}

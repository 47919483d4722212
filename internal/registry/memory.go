package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// MemoryRegistry is an in-memory Registry for tests and local development.
// It implements the same CAS semantics as the durable store.
type MemoryRegistry struct {
	mu      sync.Mutex
	tenants map[string]domain.Tenant
}

// NewMemoryRegistry builds an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tenants: make(map[string]domain.Tenant)}
}

func (r *MemoryRegistry) Get(_ context.Context, name string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant, ok := r.tenants[name]
	if !ok {
		return nil, apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
	}
	copied := tenant
	if tenant.Admin != nil {
		admin := *tenant.Admin
		copied.Admin = &admin
	}
	return &copied, nil
}

func (r *MemoryRegistry) List(_ context.Context) ([]domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Tenant, 0, len(r.tenants))
	for _, tenant := range r.tenants {
		result = append(result, tenant)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRegistry) Put(_ context.Context, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[tenant.Name]; exists {
		return apperrors.NewConflict("tenant name already exists", map[string]any{"tenant": tenant.Name})
	}
	now := time.Now()
	tenant.CreatedAt = now
	tenant.LastTransitionAt = now
	r.tenants[tenant.Name] = *tenant
	return nil
}

func (r *MemoryRegistry) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tenants[name]; !exists {
		return apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
	}
	delete(r.tenants, name)
	return nil
}

func (r *MemoryRegistry) CompareAndSetStatus(_ context.Context, name string, expected, next domain.TenantStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant, ok := r.tenants[name]
	if !ok {
		return apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
	}
	if tenant.Status != expected {
		return apperrors.NewConflict("tenant status changed concurrently", map[string]any{
			"tenant":   name,
			"expected": string(expected),
			"current":  string(tenant.Status),
		})
	}
	tenant.Status = next
	tenant.LastTransitionAt = time.Now()
	r.tenants[name] = tenant
	return nil
}

func (r *MemoryRegistry) SetAdminCredential(_ context.Context, name string, cred domain.AdminCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant, ok := r.tenants[name]
	if !ok {
		return apperrors.NewNotFound("tenant", map[string]any{"tenant": name})
	}
	tenant.Admin = &cred
	r.tenants[name] = tenant
	return nil
}

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

func newTenant(name string, status domain.TenantStatus) *domain.Tenant {
	return &domain.Tenant{
		Name:     name,
		SiteType: domain.SiteTypeBlog,
		Status:   status,
		DBRef: domain.DBRef{
			Database: domain.DatabaseName(name),
			Role:     domain.RoleName(name),
		},
	}
}

func TestMemoryRegistryPutDuplicate(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, newTenant("shoes", domain.StatusProvisioning)))

	err := reg.Put(ctx, newTenant("shoes", domain.StatusProvisioning))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestMemoryRegistryCompareAndSet(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Put(ctx, newTenant("shoes", domain.StatusProvisioning)))

	t.Run("matching expected status transitions", func(t *testing.T) {
		err := reg.CompareAndSetStatus(ctx, "shoes", domain.StatusProvisioning, domain.StatusRunning)
		require.NoError(t, err)

		tenant, err := reg.Get(ctx, "shoes")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusRunning, tenant.Status)
	})

	t.Run("stale expected status conflicts", func(t *testing.T) {
		err := reg.CompareAndSetStatus(ctx, "shoes", domain.StatusProvisioning, domain.StatusError)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	})

	t.Run("unknown tenant is not found", func(t *testing.T) {
		err := reg.CompareAndSetStatus(ctx, "ghost-town", domain.StatusRunning, domain.StatusSuspended)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestMemoryRegistryGetReturnsCopy(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Put(ctx, newTenant("shoes", domain.StatusRunning)))

	first, err := reg.Get(ctx, "shoes")
	require.NoError(t, err)
	first.Status = domain.StatusError

	second, err := reg.Get(ctx, "shoes")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, second.Status)
}

func TestMemoryRegistryDelete(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Put(ctx, newTenant("shoes", domain.StatusRunning)))

	require.NoError(t, reg.Delete(ctx, "shoes"))

	_, err := reg.Get(ctx, "shoes")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	err = reg.Delete(ctx, "shoes")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestMemoryRegistrySetAdminCredential(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Put(ctx, newTenant("shoes", domain.StatusRunning)))

	cred := domain.AdminCredential{Email: "owner@shoes.example", PasswordHash: "$2a$12$hash"}
	require.NoError(t, reg.SetAdminCredential(ctx, "shoes", cred))

	tenant, err := reg.Get(ctx, "shoes")
	require.NoError(t, err)
	require.NotNil(t, tenant.Admin)
	assert.Equal(t, "owner@shoes.example", tenant.Admin.Email)
}

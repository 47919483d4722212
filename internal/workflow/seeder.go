package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// Seeder plants the initial administrative login inside a tenant's running
// application. The application is an opaque payload; only its externally
// observable ready signal and admin bootstrap endpoint are assumed.
type Seeder interface {
	SeedAdmin(ctx context.Context, tenant *domain.Tenant, email, password string) error
}

// HTTPSeeder calls the tenant backend through its public subdomain.
type HTTPSeeder struct {
	client     *resty.Client
	baseDomain string
}

// NewHTTPSeeder builds a seeder for the given platform domain.
func NewHTTPSeeder(baseDomain string) *HTTPSeeder {
	return &HTTPSeeder{
		client:     resty.New().SetTimeout(10 * time.Second),
		baseDomain: baseDomain,
	}
}

// SeedAdmin probes the backend's ready signal, then posts the admin login.
// A backend still starting up (or mid-migration) reports as unavailable so
// the workflow's bounded retry applies.
func (s *HTTPSeeder) SeedAdmin(ctx context.Context, tenant *domain.Tenant, email, password string) error {
	base := "http://" + domain.Subdomain(tenant.Name, s.baseDomain)

	health, err := s.client.R().SetContext(ctx).Get(base + "/health")
	if err != nil {
		return apperrors.NewOrchestratorUnavailable(
			fmt.Sprintf("tenant %q backend unreachable", tenant.Name), err)
	}
	if health.StatusCode() >= 500 || health.StatusCode() == 0 {
		return apperrors.NewOrchestratorUnavailable(
			fmt.Sprintf("tenant %q backend not ready", tenant.Name), nil)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		Post(base + "/api/admin/seed")
	if err != nil {
		return apperrors.NewOrchestratorUnavailable(
			fmt.Sprintf("tenant %q backend unreachable", tenant.Name), err)
	}
	if resp.IsError() {
		return apperrors.NewOrchestratorRejected(
			fmt.Sprintf("tenant %q backend rejected admin seed", tenant.Name),
			map[string]any{"tenant": tenant.Name, "status": resp.StatusCode()},
		)
	}
	return nil
}

// Package workflow sequences credential provisioning, blueprint rendering and
// container orchestration into idempotent tenant lifecycle operations.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/provisioning-engine/internal/blueprint"
	"github.com/spec-kit/provisioning-engine/internal/dbprovision"
	"github.com/spec-kit/provisioning-engine/internal/domain"
	"github.com/spec-kit/provisioning-engine/internal/observability"
	"github.com/spec-kit/provisioning-engine/internal/orchestrator"
	"github.com/spec-kit/provisioning-engine/internal/registry"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// Renderer is the slice of the blueprint renderer the engine needs.
type Renderer interface {
	Render(siteType domain.SiteType, in blueprint.RenderInput) (*blueprint.Descriptor, error)
}

// Dependencies bundles the engine's collaborators.
type Dependencies struct {
	Registry     registry.Registry
	Provisioner  dbprovision.Provisioner
	Renderer     Renderer
	Orchestrator orchestrator.Orchestrator
	Seeder       Seeder
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// cleanupTimeout bounds compensating teardown, which runs detached from the
// caller's context: the caller's deadline may be the very failure being
// cleaned up.
const cleanupTimeout = 2 * time.Minute

// Engine is the tenant provisioning state machine.
type Engine struct {
	reg        registry.Registry
	db         dbprovision.Provisioner
	renderer   Renderer
	orch       orchestrator.Orchestrator
	seeder     Seeder
	metrics    *observability.Metrics
	logger     *zap.Logger
	locks      *tenantLocks
	retry      RetryPolicy
	baseDomain string
	bcryptCost int
}

// NewEngine builds the workflow engine.
func NewEngine(deps Dependencies, baseDomain string, retry RetryPolicy, bcryptCost int) *Engine {
	return &Engine{
		reg:        deps.Registry,
		db:         deps.Provisioner,
		renderer:   deps.Renderer,
		orch:       deps.Orchestrator,
		seeder:     deps.Seeder,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		locks:      newTenantLocks(),
		retry:      retry,
		baseDomain: baseDomain,
		bcryptCost: bcryptCost,
	}
}

// CreateResult reports a successful create.
type CreateResult struct {
	Tenant     *domain.Tenant
	Subdomains []string
}

// Create provisions a new tenant end to end: reserve the name, provision the
// isolated database, render the blueprint, apply the stack, then commit
// running. Any failure after the database exists triggers compensating
// teardown; the name stays reserved in error state for operator inspection.
func (e *Engine) Create(ctx context.Context, name string, siteType domain.SiteType, theme string) (*CreateResult, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"tenant": name})
	}
	if _, ok := blueprint.Lookup(siteType); !ok {
		return nil, apperrors.NewNotFound("site type", map[string]any{"site_type": string(siteType)})
	}

	release := e.locks.Acquire(name)
	defer release()

	tenant := &domain.Tenant{
		Name:     name,
		SiteType: siteType,
		Theme:    theme,
		Status:   domain.StatusProvisioning,
		DBRef: domain.DBRef{
			Database: domain.DatabaseName(name),
			Role:     domain.RoleName(name),
		},
	}
	if err := e.reg.Put(ctx, tenant); err != nil {
		e.metrics.RecordOperation("create", "conflict")
		return nil, err
	}

	e.logger.Info("tenant provisioning started",
		zap.String("tenant", name), zap.String("site_type", string(siteType)))

	creds, err := e.db.Provision(ctx, name)
	if err != nil {
		return nil, e.failCreate(ctx, name, "provision database", err, false)
	}

	desc, err := e.renderer.Render(siteType, blueprint.RenderInput{
		TenantName: name,
		BaseDomain: e.baseDomain,
		Theme:      theme,
		DBHost:     creds.Host,
		DBPort:     creds.Port,
		DBName:     creds.Database,
		DBUser:     creds.Role,
		DBPassword: creds.Password,
		DBURL:      creds.DSN(),
	})
	if err != nil {
		return nil, e.failCreate(ctx, name, "render blueprint", err, true)
	}

	if err := e.retry.run(ctx, func() error { return e.orch.Apply(ctx, desc) }); err != nil {
		return nil, e.failCreate(ctx, name, "apply descriptor", err, true)
	}

	if err := e.reg.CompareAndSetStatus(ctx, name, domain.StatusProvisioning, domain.StatusRunning); err != nil {
		return nil, e.failCreate(ctx, name, "commit running status", err, true)
	}

	e.metrics.RecordOperation("create", "success")
	e.logger.Info("tenant running", zap.String("tenant", name))

	tenant.Status = domain.StatusRunning
	return &CreateResult{
		Tenant: tenant,
		Subdomains: []string{
			domain.Subdomain(name, e.baseDomain),
			domain.AdminSubdomain(name, e.baseDomain),
		},
	}, nil
}

// failCreate runs the compensating cleanup for a failed create and parks the
// tenant in error state. Partial side effects are reversed, never left
// unexplained.
func (e *Engine) failCreate(ctx context.Context, name, step string, cause error, dbProvisioned bool) error {
	e.metrics.RecordOperation("create", "failure")
	e.logger.Error("tenant create failed, compensating",
		zap.String("tenant", name), zap.String("step", step), zap.Error(cause))

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := e.orch.Remove(cleanupCtx, name); err != nil {
		e.logger.Error("compensating container removal failed",
			zap.String("tenant", name), zap.Error(err))
	}
	if dbProvisioned {
		if err := e.db.Deprovision(cleanupCtx, name); err != nil {
			e.logger.Error("compensating database deprovision failed",
				zap.String("tenant", name), zap.Error(err))
		}
	}
	if err := e.reg.CompareAndSetStatus(cleanupCtx, name, domain.StatusProvisioning, domain.StatusError); err != nil {
		e.logger.Error("failed to mark tenant error",
			zap.String("tenant", name), zap.Error(err))
	}

	domainErr := apperrors.ToDomainError(cause)
	return apperrors.NewDomainError(domainErr.Code,
		fmt.Sprintf("create tenant %q: %s failed: %s", name, step, domainErr.Message),
		domainErr.HTTPStatus, domainErr.Details)
}

// Delete tears a tenant down. Container removal and database deprovisioning
// are both attempted even if one fails; the record only leaves the registry
// when both sides are confirmed clean.
func (e *Engine) Delete(ctx context.Context, name string) error {
	release := e.locks.Acquire(name)
	defer release()

	tenant, err := e.reg.Get(ctx, name)
	if err != nil {
		return err
	}
	if !domain.CanTransition(tenant.Status, domain.StatusDeleting) {
		return apperrors.NewInvalidState(name, "delete", string(tenant.Status), "any settled state")
	}

	if err := e.reg.CompareAndSetStatus(ctx, name, tenant.Status, domain.StatusDeleting); err != nil {
		return err
	}

	// Once the record says deleting, teardown runs to completion on its own
	// deadline; an impatient caller must not leave half a tenant behind.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var combined *multierror.Error
	if err := e.retry.run(cleanupCtx, func() error { return e.orch.Remove(cleanupCtx, name) }); err != nil {
		combined = multierror.Append(combined, fmt.Errorf("remove containers: %w", err))
	}
	if err := e.db.Deprovision(cleanupCtx, name); err != nil {
		combined = multierror.Append(combined, fmt.Errorf("deprovision database: %w", err))
	}

	if err := combined.ErrorOrNil(); err != nil {
		e.metrics.RecordOperation("delete", "failure")
		if casErr := e.reg.CompareAndSetStatus(cleanupCtx, name, domain.StatusDeleting, domain.StatusError); casErr != nil {
			e.logger.Error("failed to mark tenant error after partial delete",
				zap.String("tenant", name), zap.Error(casErr))
		}
		e.logger.Error("tenant delete incomplete", zap.String("tenant", name), zap.Error(err))
		return err
	}

	if err := e.reg.Delete(cleanupCtx, name); err != nil {
		return err
	}
	e.metrics.RecordOperation("delete", "success")
	e.logger.Info("tenant deleted", zap.String("tenant", name))
	return nil
}

// Suspend stops a running tenant's containers. Data and database stay intact.
func (e *Engine) Suspend(ctx context.Context, name string) error {
	release := e.locks.Acquire(name)
	defer release()

	tenant, err := e.reg.Get(ctx, name)
	if err != nil {
		return err
	}
	if !domain.CanTransition(tenant.Status, domain.StatusSuspended) {
		return apperrors.NewInvalidState(name, "suspend", string(tenant.Status), string(domain.StatusRunning))
	}

	if err := e.retry.run(ctx, func() error { return e.orch.Stop(ctx, name) }); err != nil {
		e.metrics.RecordOperation("suspend", "failure")
		return err
	}
	if err := e.reg.CompareAndSetStatus(ctx, name, domain.StatusRunning, domain.StatusSuspended); err != nil {
		return err
	}
	e.metrics.RecordOperation("suspend", "success")
	e.logger.Info("tenant suspended", zap.String("tenant", name))
	return nil
}

// Resume starts a suspended tenant's containers again.
func (e *Engine) Resume(ctx context.Context, name string) error {
	release := e.locks.Acquire(name)
	defer release()

	tenant, err := e.reg.Get(ctx, name)
	if err != nil {
		return err
	}
	if tenant.Status != domain.StatusSuspended {
		return apperrors.NewInvalidState(name, "resume", string(tenant.Status), string(domain.StatusSuspended))
	}

	if err := e.retry.run(ctx, func() error { return e.orch.Start(ctx, name) }); err != nil {
		e.metrics.RecordOperation("resume", "failure")
		return err
	}
	if err := e.reg.CompareAndSetStatus(ctx, name, domain.StatusSuspended, domain.StatusRunning); err != nil {
		return err
	}
	e.metrics.RecordOperation("resume", "success")
	e.logger.Info("tenant resumed", zap.String("tenant", name))
	return nil
}

// SeedAdmin plants the tenant application's admin login and records the
// issued credential. Only the bcrypt hash of the password is retained.
func (e *Engine) SeedAdmin(ctx context.Context, name, email, password string) error {
	release := e.locks.Acquire(name)
	defer release()

	tenant, err := e.reg.Get(ctx, name)
	if err != nil {
		return err
	}
	if tenant.Status != domain.StatusRunning {
		return apperrors.NewInvalidState(name, "seed_admin", string(tenant.Status), string(domain.StatusRunning))
	}

	if err := e.retry.run(ctx, func() error { return e.seeder.SeedAdmin(ctx, tenant, email, password) }); err != nil {
		e.metrics.RecordOperation("seed_admin", "failure")
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), e.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := e.reg.SetAdminCredential(ctx, name, domain.AdminCredential{
		Email:        email,
		PasswordHash: string(hash),
		IssuedAt:     time.Now(),
	}); err != nil {
		return err
	}
	e.metrics.RecordOperation("seed_admin", "success")
	e.logger.Info("tenant admin seeded", zap.String("tenant", name))
	return nil
}

// Logs fetches up to maxLines recent log lines for the tenant's stack.
func (e *Engine) Logs(ctx context.Context, name string, maxLines int) ([]string, bool, error) {
	if _, err := e.reg.Get(ctx, name); err != nil {
		return nil, false, err
	}
	return e.orch.Logs(ctx, name, maxLines)
}

// Get returns the registry record for one tenant.
func (e *Engine) Get(ctx context.Context, name string) (*domain.Tenant, error) {
	return e.reg.Get(ctx, name)
}

// List returns all registry records.
func (e *Engine) List(ctx context.Context) ([]domain.Tenant, error) {
	return e.reg.List(ctx)
}

package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/provisioning-engine/internal/aggregator"
	"github.com/spec-kit/provisioning-engine/internal/api/dto"
	"github.com/spec-kit/provisioning-engine/internal/domain"
	"github.com/spec-kit/provisioning-engine/internal/workflow"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// TenantsHandler manages operator tenant endpoints.
type TenantsHandler struct {
	engine     *workflow.Engine
	aggregator *aggregator.StatusAggregator
}

// NewTenantsHandler constructs handler.
func NewTenantsHandler(engine *workflow.Engine, agg *aggregator.StatusAggregator) *TenantsHandler {
	return &TenantsHandler{engine: engine, aggregator: agg}
}

// Create POST /tenants.
func (h *TenantsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.SiteType) == "" {
		return apperrors.NewValidationError("name and site_type required", nil)
	}
	siteType, ok := domain.ParseSiteType(req.SiteType)
	if !ok {
		return apperrors.NewNotFound("site type", map[string]any{"site_type": req.SiteType})
	}

	result, err := h.engine.Create(c.UserContext(), req.Name, siteType, req.Theme)
	if err != nil {
		return err
	}

	summary := tenantSummary(result.Tenant, nil)
	summary.Subdomains = result.Subdomains
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": summary})
}

// List GET /tenants.
func (h *TenantsHandler) List(c *fiber.Ctx) error {
	views, err := h.aggregator.Snapshot(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TenantSummary, 0, len(views))
	for i := range views {
		items = append(items, tenantSummary(&views[i].Tenant, &views[i].Observed))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tenants/:name.
func (h *TenantsHandler) Get(c *fiber.Ctx) error {
	name := c.Params("name")
	tenant, err := h.engine.Get(c.UserContext(), name)
	if err != nil {
		return err
	}
	observed := h.aggregator.ObservedFor(c.UserContext(), name)
	return c.JSON(fiber.Map{"data": tenantSummary(tenant, &observed)})
}

// Delete DELETE /tenants/:name.
func (h *TenantsHandler) Delete(c *fiber.Ctx) error {
	if err := h.engine.Delete(c.UserContext(), c.Params("name")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": c.Params("name")}})
}

// Suspend POST /tenants/:name/suspend.
func (h *TenantsHandler) Suspend(c *fiber.Ctx) error {
	if err := h.engine.Suspend(c.UserContext(), c.Params("name")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"suspended": c.Params("name")}})
}

// Resume POST /tenants/:name/resume.
func (h *TenantsHandler) Resume(c *fiber.Ctx) error {
	if err := h.engine.Resume(c.UserContext(), c.Params("name")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"resumed": c.Params("name")}})
}

// SeedAdmin POST /tenants/:name/seed-admin.
func (h *TenantsHandler) SeedAdmin(c *fiber.Ctx) error {
	var req dto.SeedAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	if err := h.engine.SeedAdmin(c.UserContext(), c.Params("name"), req.Email, req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"seeded": c.Params("name")}})
}

// Logs GET /tenants/:name/logs.
func (h *TenantsHandler) Logs(c *fiber.Ctx) error {
	maxLines := 100
	if raw := c.Query("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("lines must be a positive integer", nil)
		}
		maxLines = parsed
	}

	lines, present, err := h.engine.Logs(c.UserContext(), c.Params("name"), maxLines)
	if err != nil {
		return err
	}
	if lines == nil {
		lines = []string{}
	}
	return c.JSON(fiber.Map{"data": dto.LogsResponse{
		Tenant:  c.Params("name"),
		Present: present,
		Lines:   lines,
	}})
}

func tenantSummary(tenant *domain.Tenant, observed *domain.ObservedState) dto.TenantSummary {
	summary := dto.TenantSummary{
		Name:             tenant.Name,
		SiteType:         string(tenant.SiteType),
		Theme:            tenant.Theme,
		Status:           string(tenant.Status),
		Database:         tenant.DBRef.Database,
		Role:             tenant.DBRef.Role,
		CreatedAt:        tenant.CreatedAt,
		LastTransitionAt: tenant.LastTransitionAt,
	}
	if tenant.Admin != nil {
		summary.AdminEmail = tenant.Admin.Email
	}
	if observed != nil {
		services := make(map[string]string, len(observed.Services))
		for name, state := range observed.Services {
			services[name] = string(state)
		}
		summary.Observed = &dto.ObservedSummary{
			Reachable: observed.Reachable,
			Services:  services,
			Drift:     observed.Drift,
			SeenAt:    observed.SeenAt,
		}
	}
	return summary
}

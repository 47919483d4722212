package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SiteType selects which blueprint a tenant is deployed from. Immutable after creation.
type SiteType string

const (
	SiteTypeEcommerce SiteType = "ecommerce"
	SiteTypeBlog      SiteType = "blog"
	SiteTypeCMS       SiteType = "cms"
	SiteTypeBooking   SiteType = "booking"
	SiteTypeStatic    SiteType = "static"
)

// SiteTypes lists every supported site type.
func SiteTypes() []SiteType {
	return []SiteType{SiteTypeEcommerce, SiteTypeBlog, SiteTypeCMS, SiteTypeBooking, SiteTypeStatic}
}

// ParseSiteType validates a raw site type string.
func ParseSiteType(raw string) (SiteType, bool) {
	st := SiteType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range SiteTypes() {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// TenantStatus enumerates lifecycle states for tenants.
type TenantStatus string

const (
	StatusProvisioning TenantStatus = "provisioning"
	StatusRunning      TenantStatus = "running"
	StatusSuspended    TenantStatus = "suspended"
	StatusDeleting     TenantStatus = "deleting"
	StatusError        TenantStatus = "error"
)

// transitions is the allowed lifecycle edge set. Deletion is reachable from
// every state except deleting itself; error is terminal until deleted.
var transitions = map[TenantStatus][]TenantStatus{
	StatusProvisioning: {StatusRunning, StatusError, StatusDeleting},
	StatusRunning:      {StatusSuspended, StatusDeleting},
	StatusSuspended:    {StatusRunning, StatusDeleting},
	StatusError:        {StatusDeleting},
	StatusDeleting:     {StatusError},
}

// CanTransition reports whether moving from one declared status to another is legal.
func CanTransition(from, to TenantStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DBRef points at a tenant's isolated database and role. It never carries the
// password; that lives only in the rendered descriptor environment.
type DBRef struct {
	Database string
	Role     string
}

// AdminCredential records the last-issued application admin login. Only a
// bcrypt hash of the password is retained.
type AdminCredential struct {
	Email        string
	PasswordHash string
	IssuedAt     time.Time
}

// Tenant is the unit of isolation: one database, one container stack, one subdomain.
type Tenant struct {
	Name             string
	SiteType         SiteType
	Theme            string
	Status           TenantStatus
	DBRef            DBRef
	Admin            *AdminCredential
	CreatedAt        time.Time
	LastTransitionAt time.Time
}

var namePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// ValidateName enforces the tenant naming rule: lowercase alphanumeric plus
// internal hyphens, 3-30 characters, no leading or trailing hyphen.
func ValidateName(name string) error {
	if len(name) < 3 || len(name) > 30 {
		return fmt.Errorf("tenant name must be 3-30 characters, got %d", len(name))
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("tenant name %q must be lowercase alphanumeric with internal hyphens", name)
	}
	return nil
}

// safeIdent converts a tenant name into a Postgres-safe identifier fragment.
func safeIdent(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// DatabaseName derives the tenant's database name. Deterministic, so any
// process can recompute it without a mapping table.
func DatabaseName(name string) string {
	return "db_" + safeIdent(name)
}

// RoleName derives the tenant's database role name.
func RoleName(name string) string {
	return "user_" + safeIdent(name)
}

// ProjectName derives the compose project name for the tenant's stack.
func ProjectName(name string) string {
	return "tenant-" + name
}

// ContainerName derives the stable container name the reverse proxy discovers.
func ContainerName(service, name string) string {
	return service + "-" + name
}

// Subdomain derives the tenant's public host.
func Subdomain(name, baseDomain string) string {
	return name + "." + baseDomain
}

// AdminSubdomain derives the tenant's admin host.
func AdminSubdomain(name, baseDomain string) string {
	return "admin." + name + "." + baseDomain
}

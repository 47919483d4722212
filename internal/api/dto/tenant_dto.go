package dto

import "time"

// CreateTenantRequest is the payload for POST /tenants.
type CreateTenantRequest struct {
	Name     string `json:"name"`
	SiteType string `json:"site_type"`
	Theme    string `json:"theme"`
}

// SeedAdminRequest is the payload for POST /tenants/:name/seed-admin.
type SeedAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued operator token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TenantSummary is the external view of a tenant record.
type TenantSummary struct {
	Name             string           `json:"name"`
	SiteType         string           `json:"site_type"`
	Theme            string           `json:"theme,omitempty"`
	Status           string           `json:"status"`
	Database         string           `json:"database"`
	Role             string           `json:"role"`
	AdminEmail       string           `json:"admin_email,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	LastTransitionAt time.Time        `json:"last_transition_at"`
	Observed         *ObservedSummary `json:"observed,omitempty"`
	Subdomains       []string         `json:"subdomains,omitempty"`
}

// ObservedSummary is the aggregator's annotation for a tenant.
type ObservedSummary struct {
	Reachable bool              `json:"reachable"`
	Services  map[string]string `json:"services"`
	Drift     bool              `json:"drift"`
	SeenAt    time.Time         `json:"seen_at"`
}

// LogsResponse carries recent log lines for a tenant stack. Present reports
// whether a stack exists on disk; live container state is in ObservedSummary.
type LogsResponse struct {
	Tenant  string   `json:"tenant"`
	Present bool     `json:"present"`
	Lines   []string `json:"lines"`
}

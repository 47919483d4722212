package blueprint

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spec-kit/provisioning-engine/internal/domain"
	apperrors "github.com/spec-kit/provisioning-engine/pkg/util"
)

// RenderInput carries the values substituted into a blueprint.
type RenderInput struct {
	TenantName string
	BaseDomain string
	Theme      string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBURL      string
}

// vocabulary is the closed placeholder set available to blueprint templates.
type vocabulary struct {
	TenantName     string
	Theme          string
	BaseDomain     string
	Domain         string
	AdminDomain    string
	ProjectName    string
	BackendService string
	BackendHost    string
	Image          string
	InternalPort   int
	Version        int
	ProxyPrefixes  []string
	DBHost         string
	DBPort         string
	DBName         string
	DBUser         string
	DBPassword     string
	DatabaseURL    string
}

// Renderer expands blueprints into descriptors.
type Renderer struct {
	tenantsDir string
}

// NewRenderer builds a renderer. tenantsDir is the directory descriptors are
// destined for; the renderer only records it, it never writes there.
func NewRenderer(tenantsDir string) *Renderer {
	return &Renderer{tenantsDir: tenantsDir}
}

// Render expands the blueprint for siteType into a descriptor for the tenant.
// Substitution is total: a reference outside the vocabulary or a missing
// required value fails with a template error and produces no files.
func (r *Renderer) Render(siteType domain.SiteType, in RenderInput) (*Descriptor, error) {
	bp, ok := Lookup(siteType)
	if !ok {
		return nil, apperrors.NewNotFound("site type", map[string]any{"site_type": string(siteType)})
	}

	theme := in.Theme
	if theme == "" {
		theme = "default"
	}

	vocab := vocabulary{
		TenantName:     in.TenantName,
		Theme:          theme,
		BaseDomain:     in.BaseDomain,
		Domain:         domain.Subdomain(in.TenantName, in.BaseDomain),
		AdminDomain:    domain.AdminSubdomain(in.TenantName, in.BaseDomain),
		ProjectName:    domain.ProjectName(in.TenantName),
		BackendService: bp.BackendService,
		BackendHost:    domain.ContainerName(bp.BackendService, in.TenantName),
		Image:          bp.Image,
		InternalPort:   bp.InternalPort,
		Version:        bp.Version,
		ProxyPrefixes:  bp.ProxyPrefixes,
		DBHost:         in.DBHost,
		DBPort:         in.DBPort,
		DBName:         in.DBName,
		DBUser:         in.DBUser,
		DBPassword:     in.DBPassword,
		DatabaseURL:    in.DBURL,
	}
	if err := vocab.validate(); err != nil {
		return nil, err
	}

	files := map[string][]byte{}
	for name, tmpl := range map[string]string{
		"docker-compose.yml":                bp.ComposeTmpl,
		".env":                              envTmpl,
		"proxy.conf":                        proxyFragmentTmpl,
		filepath.Join("html", "index.html"): bp.StaticContent,
	} {
		rendered, err := renderOne(name, tmpl, vocab)
		if err != nil {
			return nil, err
		}
		files[name] = rendered
	}

	return &Descriptor{
		TenantName: in.TenantName,
		Project:    domain.ProjectName(in.TenantName),
		Version:    bp.Version,
		Dir:        filepath.Join(r.tenantsDir, in.TenantName),
		Files:      files,
	}, nil
}

// validate rejects empty required values before any template executes, so a
// failed render never emits a partial descriptor.
func (v vocabulary) validate() error {
	required := map[string]string{
		"tenant name":  v.TenantName,
		"base domain":  v.BaseDomain,
		"db host":      v.DBHost,
		"db port":      v.DBPort,
		"db name":      v.DBName,
		"db user":      v.DBUser,
		"db password":  v.DBPassword,
		"database url": v.DatabaseURL,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return apperrors.NewTemplateError(
				fmt.Sprintf("placeholder value %q is empty", field),
				map[string]any{"placeholder": field},
			)
		}
	}
	return nil
}

func renderOne(name, tmplText string, vocab vocabulary) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(tmplText)
	if err != nil {
		return nil, apperrors.NewTemplateError(
			fmt.Sprintf("blueprint file %s does not parse", name),
			map[string]any{"file": name, "error": err.Error()},
		)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vocab); err != nil {
		return nil, apperrors.NewTemplateError(
			fmt.Sprintf("blueprint file %s has unresolved placeholders", name),
			map[string]any{"file": name, "error": err.Error()},
		)
	}
	return buf.Bytes(), nil
}

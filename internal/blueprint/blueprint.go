// Package blueprint turns a site-type template into a tenant-scoped deployment
// descriptor. Rendering is a pure function: no I/O, no orchestration.
package blueprint

import (
	"github.com/spec-kit/provisioning-engine/internal/domain"
)

// Blueprint is a versioned template for one site type. It declares the backend
// image, the port the backend listens on, and which URL path prefixes the
// reverse proxy must route to it.
type Blueprint struct {
	SiteType       domain.SiteType
	Version        int
	Image          string
	BackendService string
	InternalPort   int
	ProxyPrefixes  []string
	ComposeTmpl    string
	StaticContent  string
}

// catalog maps each supported site type to its blueprint. The proxy prefix
// mapping lives here, not in the renderer.
var catalog = map[domain.SiteType]Blueprint{
	domain.SiteTypeEcommerce: {
		SiteType:       domain.SiteTypeEcommerce,
		Version:        2,
		Image:          "medusajs/medusa:v1.20",
		BackendService: "medusa",
		InternalPort:   9000,
		ProxyPrefixes:  []string{"/api/", "/store/", "/uploads/"},
		ComposeTmpl:    ecommerceComposeTmpl,
		StaticContent:  defaultStorefrontHTML,
	},
	domain.SiteTypeBlog: {
		SiteType:       domain.SiteTypeBlog,
		Version:        1,
		Image:          "ghost:5-alpine",
		BackendService: "ghost",
		InternalPort:   2368,
		ProxyPrefixes:  []string{"/", "/ghost/"},
		ComposeTmpl:    genericComposeTmpl,
		StaticContent:  defaultStorefrontHTML,
	},
	domain.SiteTypeCMS: {
		SiteType:       domain.SiteTypeCMS,
		Version:        1,
		Image:          "strapi/strapi:4",
		BackendService: "strapi",
		InternalPort:   1337,
		ProxyPrefixes:  []string{"/api/", "/admin/", "/uploads/"},
		ComposeTmpl:    genericComposeTmpl,
		StaticContent:  defaultStorefrontHTML,
	},
	domain.SiteTypeBooking: {
		SiteType:       domain.SiteTypeBooking,
		Version:        1,
		Image:          "calcom/cal.com:v4",
		BackendService: "cal",
		InternalPort:   3000,
		ProxyPrefixes:  []string{"/api/", "/booking/"},
		ComposeTmpl:    genericComposeTmpl,
		StaticContent:  defaultStorefrontHTML,
	},
	domain.SiteTypeStatic: {
		SiteType:       domain.SiteTypeStatic,
		Version:        1,
		Image:          "nginx:1.27-alpine",
		BackendService: "web",
		InternalPort:   80,
		ProxyPrefixes:  []string{"/"},
		ComposeTmpl:    genericComposeTmpl,
		StaticContent:  defaultStorefrontHTML,
	},
}

// Lookup returns the blueprint for a site type.
func Lookup(siteType domain.SiteType) (Blueprint, bool) {
	bp, ok := catalog[siteType]
	return bp, ok
}

package blueprint

// Templates are substituted with text/template over the closed placeholder
// vocabulary. Any reference outside the vocabulary fails the render.

const genericComposeTmpl = `name: {{.ProjectName}}
services:
  {{.BackendService}}:
    image: {{.Image}}
    container_name: {{.BackendHost}}
    env_file: .env
    restart: always
    volumes:
      - {{.ProjectName}}-data:/var/lib/app/data
    networks:
      - saas-proxy
volumes:
  {{.ProjectName}}-data:
networks:
  saas-proxy:
    external: true
`

const ecommerceComposeTmpl = `name: {{.ProjectName}}
services:
  {{.BackendService}}:
    image: {{.Image}}
    container_name: {{.BackendHost}}
    env_file: .env
    restart: always
    depends_on:
      - redis
    volumes:
      - {{.ProjectName}}-uploads:/app/uploads
    networks:
      - saas-proxy
      - internal
  redis:
    image: redis:7-alpine
    container_name: redis-{{.TenantName}}
    restart: always
    networks:
      - internal
volumes:
  {{.ProjectName}}-uploads:
networks:
  internal: {}
  saas-proxy:
    external: true
`

const envTmpl = `# Generated environment for tenant {{.TenantName}}
TENANT_NAME={{.TenantName}}
DOMAIN={{.Domain}}
THEME={{.Theme}}
DB_HOST={{.DBHost}}
DB_PORT={{.DBPort}}
DB_NAME={{.DBName}}
DB_USER={{.DBUser}}
DB_PASSWORD={{.DBPassword}}
DATABASE_URL={{.DatabaseURL}}
REDIS_URL=redis://redis-{{.TenantName}}:6379
STORE_CORS=http://{{.Domain}}
ADMIN_CORS=http://{{.AdminDomain}}
AUTH_CORS=http://{{.AdminDomain}},http://{{.Domain}}
`

const proxyFragmentTmpl = `# Routing fragment for tenant {{.TenantName}} (blueprint v{{.Version}})
server {
    listen 80;
    server_name {{.Domain}} {{.AdminDomain}};
{{range .ProxyPrefixes}}
    location {{.}} {
        proxy_pass http://{{$.BackendHost}}:{{$.InternalPort}};
        proxy_set_header Host $host;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
    }
{{end}}}
`

const defaultStorefrontHTML = `<!DOCTYPE html>
<html>
  <head><title>Coming soon</title></head>
  <body><h1>This site is being prepared.</h1></body>
</html>
`

package blueprint

// Descriptor is the rendered, self-contained set of deployment files for one
// tenant. Files are held in memory; the orchestrator adapter is responsible
// for writing them under Dir and reconciling the declared services.
type Descriptor struct {
	TenantName string
	Project    string
	Version    int
	Dir        string
	Files      map[string][]byte
}

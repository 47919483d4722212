// Package orchestrator wraps the container runtime's compose operations for a
// tenant's descriptor directory. The runtime is treated as a dependency that
// may be transiently unavailable.
package orchestrator

import (
	"context"

	"github.com/spec-kit/provisioning-engine/internal/blueprint"
	"github.com/spec-kit/provisioning-engine/internal/domain"
)

// Orchestrator reconciles tenant container stacks.
type Orchestrator interface {
	// Apply writes the descriptor's files and reconciles the declared services
	// to running state. Safe to repeat against an unchanged descriptor, and a
	// changed descriptor is applied without manual teardown.
	Apply(ctx context.Context, desc *blueprint.Descriptor) error

	// Stop halts the tenant's containers without touching persisted data.
	Stop(ctx context.Context, tenantName string) error

	// Start resumes previously stopped containers.
	Start(ctx context.Context, tenantName string) error

	// Remove stops and deletes containers and descriptor files. It never
	// touches the tenant's database; that is the DB provisioner's job.
	Remove(ctx context.Context, tenantName string) error

	// Logs returns up to maxLines most-recent log lines. The bool reports
	// whether the stack's descriptor directory is present; an absent stack
	// yields empty lines and false without blocking. Live container state
	// comes from Status, not from this flag.
	Logs(ctx context.Context, tenantName string, maxLines int) ([]string, bool, error)

	// Status reports per-service state. An unreachable runtime surfaces as an
	// ORCHESTRATOR_UNAVAILABLE error; callers translate that into Unknown
	// rather than failing batch queries.
	Status(ctx context.Context, tenantName string) (map[string]domain.ServiceState, error)
}

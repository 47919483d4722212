// Package aggregator reconciles observed container state against the registry
// for external reporting. It is strictly read-only toward declared status:
// observations are kept as separate annotations so it never races the
// workflow's compare-and-set.
package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/provisioning-engine/internal/domain"
	"github.com/spec-kit/provisioning-engine/internal/orchestrator"
	"github.com/spec-kit/provisioning-engine/internal/registry"
)

const (
	observedKeyPrefix = "observed:"
	pollConcurrency   = 8
)

// StatusAggregator polls the orchestrator across all tenants on a fixed
// cadence and caches the observations.
type StatusAggregator struct {
	reg      registry.Registry
	orch     orchestrator.Orchestrator
	cache    *redis.Client
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
}

// NewStatusAggregator builds the aggregator. The clock is injectable so tests
// can drive ticks.
func NewStatusAggregator(reg registry.Registry, orch orchestrator.Orchestrator, cache *redis.Client, clk clock.Clock, interval time.Duration, logger *zap.Logger) *StatusAggregator {
	return &StatusAggregator{
		reg:      reg,
		orch:     orch,
		cache:    cache,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is cancelled.
func (a *StatusAggregator) Run(ctx context.Context) {
	ticker := a.clock.Ticker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.PollOnce(ctx)
		}
	}
}

// PollOnce observes every registered tenant. Individual failures degrade that
// tenant to Unknown; they never abort the batch.
func (a *StatusAggregator) PollOnce(ctx context.Context) {
	tenants, err := a.reg.List(ctx)
	if err != nil {
		a.logger.Warn("aggregator cannot list registry", zap.Error(err))
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pollConcurrency)
	for _, tenant := range tenants {
		tenant := tenant
		g.Go(func() error {
			observed := a.observe(gctx, tenant)
			a.store(gctx, observed)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *StatusAggregator) observe(ctx context.Context, tenant domain.Tenant) domain.ObservedState {
	now := a.clock.Now()
	services, err := a.orch.Status(ctx, tenant.Name)
	if err != nil {
		return domain.AllUnknown(tenant.Name, now)
	}
	return domain.ObservedState{
		Tenant:    tenant.Name,
		Reachable: true,
		Services:  services,
		Drift:     detectDrift(tenant.Status, services),
		SeenAt:    now,
	}
}

// detectDrift flags runtime state diverging from declared status. It only
// annotates; correcting drift is an operator decision.
func detectDrift(declared domain.TenantStatus, services map[string]domain.ServiceState) bool {
	anyRunning := false
	for _, state := range services {
		if state == domain.ServiceRunning || state == domain.ServiceRestarting {
			anyRunning = true
			break
		}
	}
	switch declared {
	case domain.StatusRunning:
		return !anyRunning
	case domain.StatusSuspended:
		return anyRunning
	default:
		return false
	}
}

func (a *StatusAggregator) store(ctx context.Context, observed domain.ObservedState) {
	payload, err := json.Marshal(observed)
	if err != nil {
		return
	}
	ttl := 3 * a.interval
	if err := a.cache.Set(ctx, observedKeyPrefix+observed.Tenant, payload, ttl).Err(); err != nil {
		a.logger.Warn("observed state cache write failed",
			zap.String("tenant", observed.Tenant), zap.Error(err))
	}
}

// ObservedFor returns the cached observation for one tenant, degrading to
// Unknown when nothing has been observed yet.
func (a *StatusAggregator) ObservedFor(ctx context.Context, name string) domain.ObservedState {
	raw, err := a.cache.Get(ctx, observedKeyPrefix+name).Bytes()
	if err != nil {
		return domain.AllUnknown(name, a.clock.Now())
	}
	var observed domain.ObservedState
	if err := json.Unmarshal(raw, &observed); err != nil {
		return domain.AllUnknown(name, a.clock.Now())
	}
	return observed
}

// TenantView pairs a registry record with its latest observation.
type TenantView struct {
	Tenant   domain.Tenant
	Observed domain.ObservedState
}

// Snapshot merges declared and observed state for the whole fleet.
func (a *StatusAggregator) Snapshot(ctx context.Context) ([]TenantView, error) {
	tenants, err := a.reg.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]TenantView, 0, len(tenants))
	for _, tenant := range tenants {
		views = append(views, TenantView{
			Tenant:   tenant,
			Observed: a.ObservedFor(ctx, tenant.Name),
		})
	}
	return views, nil
}

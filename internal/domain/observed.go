package domain

import "time"

// ServiceState is the state of a single container as observed at the runtime.
type ServiceState string

const (
	ServiceRunning    ServiceState = "running"
	ServiceStopped    ServiceState = "stopped"
	ServiceRestarting ServiceState = "restarting"
	ServiceExited     ServiceState = "exited"
	ServiceUnknown    ServiceState = "unknown"
)

// ObservedState is the aggregator's annotation for one tenant. It lives beside
// the registry's declared status and never overwrites it.
type ObservedState struct {
	Tenant    string                  `json:"tenant"`
	Reachable bool                    `json:"reachable"`
	Services  map[string]ServiceState `json:"services"`
	Drift     bool                    `json:"drift"`
	SeenAt    time.Time               `json:"seen_at"`
}

// AllUnknown builds the observation used when the container runtime cannot be
// reached: the tenant reports Unknown instead of failing the query.
func AllUnknown(tenant string, at time.Time) ObservedState {
	return ObservedState{
		Tenant:    tenant,
		Reachable: false,
		Services:  map[string]ServiceState{},
		SeenAt:    at,
	}
}

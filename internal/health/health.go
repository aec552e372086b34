// Package health aggregates named subsystem probes for the /health endpoint.
package health

import (
	"context"
	"fmt"
	"sync"
)

// Status is the outcome of probing one subsystem.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes one subsystem. Checkers must respect ctx cancellation.
type Checker func(ctx context.Context) Status

// Registry runs registered checkers on demand, in registration order.
type Registry struct {
	mu     sync.RWMutex
	probes []probe
}

type probe struct {
	name string
	run  Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.probes = append(r.probes, probe{name: name, run: check})
	r.mu.Unlock()
}

// CheckAll runs every checker and aggregates the results: one unhealthy
// subsystem makes the whole service unhealthy. A panicking checker is
// reported as unhealthy rather than crashing the health endpoint.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	probes := make([]probe, len(r.probes))
	copy(probes, r.probes)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, 0, len(probes))
	for _, p := range probes {
		st := p.check(ctx)
		if !st.Healthy {
			healthy = false
		}
		statuses = append(statuses, st)
	}
	return healthy, statuses
}

func (p probe) check(ctx context.Context) (st Status) {
	defer func() {
		if v := recover(); v != nil {
			st = Status{
				Name:    p.name,
				Healthy: false,
				Detail:  fmt.Sprintf("checker panic: %v", v),
			}
		}
	}()
	return p.run(ctx)
}

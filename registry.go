package aegis

import "context"

// ServiceRegistry holds the set of downstream services configured for an
// engine instance, keyed by their stable key.
type ServiceRegistry struct {
	services map[string]ServiceEntry
}

// NewServiceRegistry builds a registry from a config's service map.
func NewServiceRegistry(services map[string]ServiceEntry) *ServiceRegistry {
	cp := make(map[string]ServiceEntry, len(services))
	for k, v := range services {
		cp[k] = v
	}
	return &ServiceRegistry{services: cp}
}

// Get returns the ServiceEntry for key, and whether it was found.
func (r *ServiceRegistry) Get(key string) (ServiceEntry, bool) {
	e, ok := r.services[key]
	return e, ok
}

// Keys returns the registered service keys.
func (r *ServiceRegistry) Keys() []string {
	keys := make([]string, 0, len(r.services))
	for k := range r.services {
		keys = append(keys, k)
	}
	return keys
}

// HealthProbe checks the liveness of a downstream service. It is an opaque
// collaborator: this module defines the seam but not its implementation or
// the shape of a health response beyond a boolean outcome, per spec.
type HealthProbe interface {
	Check(ctx context.Context, entry ServiceEntry) error
}

package breaker

import "sync"

// Dependency names guarded by circuit breakers
const (
	// FDAAPIBreaker guards calls to the openFDA label API
	FDAAPIBreaker = "FDA_API"

	// AIServiceBreaker guards calls to the Anthropic API
	AIServiceBreaker = "AI_SERVICE"
)

// Registry hands out one breaker instance per dependency name. It is owned
// by whatever composes the services (never package-global) so tests can
// construct isolated instances.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry that builds breakers lazily with cfg
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, constructing it on first use
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		cb = New(name, r.cfg)
		r.breakers[name] = cb
	}
	return cb
}

// Metrics returns snapshots for every breaker constructed so far
func (r *Registry) Metrics() []Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Metrics, 0, len(r.breakers))
	for _, cb := range r.breakers {
		out = append(out, cb.Metrics())
	}
	return out
}

package ratelimit

import "sync"

// Registry owns one limiter per service for the lifetime of the process.
type Registry struct {
	mu       sync.Mutex
	policies map[string]Policy
	limiters map[string]*Limiter
	opts     []Option
}

// NewRegistry builds a registry over policies. Services without a policy
// fall back to DefaultPolicies.
func NewRegistry(policies map[string]Policy, opts ...Option) *Registry {
	merged := DefaultPolicies()
	for name, p := range policies {
		merged[name] = p
	}
	return &Registry{policies: merged, limiters: map[string]*Limiter{}, opts: opts}
}

// For returns the shared limiter of service, creating it on first use.
// Unknown services get the text generation policy under their own name.
func (r *Registry) For(service string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[service]; ok {
		return l
	}
	policy, ok := r.policies[service]
	if !ok {
		policy = r.policies[ServiceTextGeneration]
		policy.Service = service
	}
	l := New(policy, r.opts...)
	r.limiters[service] = l
	return l
}

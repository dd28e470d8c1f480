package hotel

import "context"

// Known provider ids.
const (
	ProviderTBO       = "tbo"
	ProviderResAvenue = "resavenue"
	ProviderHobse     = "hobse"
)

// Provider is the normalized contract every hotel supplier adapter
// implements. Search returns an empty slice for ordinary "no availability";
// an error means an adapter-level failure (auth, malformed response) which
// callers isolate per provider.
type Provider interface {
	Name() string
	Search(ctx context.Context, criteria SearchCriteria, prefs *Preferences) ([]SearchResult, error)
	ConfirmBooking(ctx context.Context, details BookingDetails) (*BookingResult, error)
	CancelBooking(ctx context.Context, confirmationRef, reason string) (*CancellationResult, error)
	GetConfirmation(ctx context.Context, confirmationRef string) (*ConfirmationDetails, error)
}

// Registry maps provider ids to adapters, populated once at startup.
// Registration order is preserved so aggregate searches see adapters in
// a stable order.
type Registry struct {
	providers map[string]Provider
	order     []string
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, ok := r.providers[p.Name()]; !ok {
			r.order = append(r.order, p.Name())
		}
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the adapter for a single provider id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Resolve maps ids to adapters, silently dropping unknown ids. An empty ids
// slice resolves to every registered provider.
func (r *Registry) Resolve(ids []string) []Provider {
	if len(ids) == 0 {
		return r.All()
	}
	resolved := make([]Provider, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.providers[id]; ok {
			resolved = append(resolved, p)
		}
	}
	return resolved
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Provider {
	all := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		all = append(all, r.providers[id])
	}
	return all
}

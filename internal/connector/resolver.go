package connector

import (
	"fmt"

	"github.com/omniverse/omnimarket/internal/schema"
)

// Registry resolves provider names to connectors. It is built once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	byProvider map[schema.Provider]Connector
	order      []schema.Provider
}

func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{byProvider: make(map[schema.Provider]Connector, len(connectors))}
	for _, c := range connectors {
		p := c.Provider()
		if _, dup := r.byProvider[p]; dup {
			continue // first registration wins
		}
		r.byProvider[p] = c
		r.order = append(r.order, p)
	}
	return r
}

// Resolve returns the connector for a provider name. Unknown names fail with
// ErrUnknownProvider before any upstream work happens.
func (r *Registry) Resolve(name string) (Connector, error) {
	p, err := schema.ParseProvider(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	c, ok := r.byProvider[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return c, nil
}

// ResolveMarket routes a canonical market identifier to its provider's
// connector via the id prefix. Ids without a recognized prefix are unknown
// markets, not unknown providers.
func (r *Registry) ResolveMarket(marketID string) (Connector, error) {
	p, _, ok := schema.SplitMarketID(marketID)
	if !ok {
		return nil, fmt.Errorf("%w: market %q", ErrNotFound, marketID)
	}
	c, registered := r.byProvider[p]
	if !registered {
		return nil, fmt.Errorf("%w: market %q", ErrNotFound, marketID)
	}
	return c, nil
}

// All returns the connectors in registration order.
func (r *Registry) All() []Connector {
	out := make([]Connector, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.byProvider[p])
	}
	return out
}

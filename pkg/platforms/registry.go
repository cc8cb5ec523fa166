package platforms

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/pkg/httpclient"
)

// Registry maps the closed platform set to adapter implementations. Adding a
// platform means adding an enum value, an adapter file, and a DefaultRegistry
// entry; the lookup never dispatches on free-form strings.
type Registry struct {
	adapters map[domain.Platform]Adapter
}

// NewRegistry builds a registry over the provided adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[domain.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		reg.adapters[a.Platform()] = a
	}
	return reg
}

// AdapterFor returns the adapter for the given platform.
func (r *Registry) AdapterFor(p domain.Platform) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("adapter registry is nil")
	}
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", p)
	}
	return a, nil
}

// Platforms lists the registered platforms.
func (r *Registry) Platforms() []domain.Platform {
	out := make([]domain.Platform, 0, len(r.adapters))
	for _, p := range domain.Platforms() {
		if _, ok := r.adapters[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// DefaultHTTPClient returns a tuned resty client for adapters.
func DefaultHTTPClient(timeout time.Duration) *resty.Client {
	return httpclient.NewRestyHTTPClient(timeout)
}

// DefaultRegistry wires every supported platform adapter over one shared
// HTTP client.
func DefaultRegistry(client *resty.Client) *Registry {
	if client == nil {
		client = DefaultHTTPClient(15 * time.Second)
	}
	return NewRegistry(
		NewDevToAdapter(client),
		NewHashnodeAdapter(client),
		NewGhostAdapter(client),
		NewWordPressAdapter(client),
		NewWixAdapter(client),
	)
}

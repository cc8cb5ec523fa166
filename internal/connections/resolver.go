// Package connections resolves stored platform credentials for publish
// operations and seeds connection rows from config files.
package connections

import (
	"context"
	"fmt"

	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/internal/storage"
)

// Resolver looks up the single connected PlatformConnection for a
// (user, platform) pair. A missing connection is a configuration error and
// is never retried.
type Resolver struct {
	store storage.Store
}

// NewResolver wires a resolver over the datastore.
func NewResolver(store storage.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the connected credentials or storage.ErrNotConnected.
func (r *Resolver) Resolve(ctx context.Context, userID string, p domain.Platform) (domain.PlatformConnection, error) {
	if r == nil || r.store == nil {
		return domain.PlatformConnection{}, fmt.Errorf("connection resolver is not initialized")
	}
	return r.store.Connection(ctx, userID, p)
}

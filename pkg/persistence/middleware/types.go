// Package middleware wraps snapshot stores with behavior applied at rest:
// envelope encryption and masking of sensitive variables.
package middleware

import "github.com/aretw0/skein/pkg/ports"

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Chain applies mws to store so the first one listed sees calls first.
func Chain(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// Package provider defines the byte-store abstraction behind the publish
// memo. A provider holds framed memo entries keyed by content key; losing
// one is always safe (the filesystem store is the source of truth), so
// providers are free to evict under pressure or expire by TTL.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the []byte previously passed to Set for the same key, with no prepended
// metadata and no re-encoding. Internal transforms (compression, say) must be
// fully reversed. The "artifact:<ns>:" keyspace is owned by arrowbridge;
// foreign writes under it fail strict wire validation and get deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent
// use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

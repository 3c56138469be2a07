package arrowbridge

import "time"

// Hooks are lightweight callbacks for high-signal events. Implementations
// MUST be cheap and non-blocking; the bridge calls them on hot paths. Wrap
// with hooks/async to decouple slow consumers.
type Hooks interface {
	// A new artifact was written and renamed into place.
	ArtifactPublished(contentKey string, size int64)

	// A publish was satisfied without writing.
	// source ∈ {"memo", "disk"}
	ArtifactReused(contentKey, source string)

	// A memo entry was deleted by the bridge on read.
	// reason ∈ {"corrupt", "key_mismatch", "value_decode"}
	MemoSelfHeal(storageKey, reason string)

	// The memo provider returned ok=false on Set (backpressure/eviction).
	MemoSetRejected(storageKey string)

	// The compute runtime call failed.
	RuntimeFailure(err error, elapsed time.Duration)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) ArtifactPublished(string, int64)     {}
func (NopHooks) ArtifactReused(string, string)       {}
func (NopHooks) MemoSelfHeal(string, string)         {}
func (NopHooks) MemoSetRejected(string)              {}
func (NopHooks) RuntimeFailure(error, time.Duration) {}

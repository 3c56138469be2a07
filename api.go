package arrowbridge

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/arrowbridge/codec"
	pr "github.com/unkn0wn-root/arrowbridge/provider"
	"github.com/unkn0wn-root/arrowbridge/store"
	"github.com/unkn0wn-root/arrowbridge/tabular"
)

// Runtime is the compute runtime the bridge relays requests to. The request
// and response buffers are opaque: bytes in, bytes out, schema owned by the
// runtime's own protocol.
type Runtime interface {
	ProcessRequest(ctx context.Context, request []byte) ([]byte, error)
}

// RuntimeFunc adapts a function as a Runtime.
type RuntimeFunc func(ctx context.Context, request []byte) ([]byte, error)

func (f RuntimeFunc) ProcessRequest(ctx context.Context, request []byte) ([]byte, error) {
	return f(ctx, request)
}

// CostFunc computes the provider admission cost of a framed memo entry.
type CostFunc func(storageKey string, raw []byte) int64

// Bridge is the high-level API: publish datasets as content-addressed Arrow
// artifacts, relay opaque requests to the compute runtime. Safe for
// concurrent use; shared mutable state is confined to the store's filesystem
// namespace.
type Bridge interface {
	// PublishDataset encodes ds and makes the artifact available under its
	// content-derived name. Identical datasets yield identical References;
	// repeated publishes are idempotent.
	PublishDataset(ctx context.Context, ds *tabular.Dataset) (store.Reference, error)

	// Handle forwards request to the runtime and returns its response,
	// both unmodified. Synchronous; one call in, one buffer out.
	Handle(ctx context.Context, request []byte) ([]byte, error)

	Close(ctx context.Context) error
}

// Options tune the bridge. Only StoreRoot is required; a bridge without a
// Runtime can publish but Handle returns ErrNoRuntime.
type Options struct {
	// Required
	StoreRoot string

	Runtime   Runtime
	Namespace string         // memo keyspace isolation; "" => "default"
	ChunkSize int            // rows per record batch; 0 => encode.DefaultChunkSize
	Extension string         // artifact extension; "" => store.DefaultExt
	Location  *time.Location // zone for naive temporal columns; nil => time.Local

	Logger  Logger // if nil, NopLogger
	Hooks   Hooks  // if nil, NopHooks
	Verbose bool   // log publish/request timing at Info instead of Debug

	// Optional memo of published References; nil disables the layer.
	Memo      pr.Provider
	MemoCodec c.Codec[store.Reference] // nil => deterministic CBOR
	MemoTTL   time.Duration            // 0 => 1h
	MemoCost  CostFunc                 // nil => entry length in bytes
}

// New validates opts and builds a Bridge.
func New(opts Options) (Bridge, error) {
	return newPipeline(opts)
}

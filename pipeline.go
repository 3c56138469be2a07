package arrowbridge

import (
	"context"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/arrowbridge/codec"
	"github.com/unkn0wn-root/arrowbridge/encode"
	"github.com/unkn0wn-root/arrowbridge/internal/util"
	"github.com/unkn0wn-root/arrowbridge/internal/wire"
	pr "github.com/unkn0wn-root/arrowbridge/provider"
	"github.com/unkn0wn-root/arrowbridge/store"
	"github.com/unkn0wn-root/arrowbridge/tabular"
)

type pipeline struct {
	st      *store.Store
	runtime Runtime

	ns      string
	chunk   int
	loc     *time.Location
	log     Logger
	hooks   Hooks
	verbose bool

	memo      pr.Provider
	memoCodec c.Codec[store.Reference]
	memoTTL   time.Duration
	memoCost  CostFunc
}

func newPipeline(opts Options) (*pipeline, error) {
	if opts.StoreRoot == "" {
		return nil, fmt.Errorf("arrowbridge: store root is required")
	}
	st, err := store.New(store.Config{Root: opts.StoreRoot, Ext: opts.Extension})
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		st:      st,
		runtime: opts.Runtime,
		chunk:   opts.ChunkSize,
		loc:     opts.Location,
		verbose: opts.Verbose,
		memo:    opts.Memo,
	}

	// defaults
	p.ns = coalesce(opts.Namespace, defaultNamespace)
	p.log = coalesce[Logger](opts.Logger, NopLogger{})
	p.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	p.memoTTL = coalesce(opts.MemoTTL, defaultMemoTTL)

	if opts.MemoCost != nil {
		p.memoCost = opts.MemoCost
	} else {
		p.memoCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}

	if p.memo != nil {
		p.memoCodec = opts.MemoCodec
		if p.memoCodec == nil {
			cb, err := c.NewCBOR[store.Reference](true)
			if err != nil {
				return nil, fmt.Errorf("arrowbridge: default memo codec: %w", err)
			}
			p.memoCodec = cb
		}
	}

	return p, nil
}

func (p *pipeline) Close(ctx context.Context) error {
	if p.memo != nil {
		return p.memo.Close(ctx)
	}
	return nil
}

func (p *pipeline) PublishDataset(ctx context.Context, ds *tabular.Dataset) (store.Reference, error) {
	blob, err := encode.Encode(ds, encode.Options{ChunkSize: p.chunk, Location: p.loc})
	if err != nil {
		return store.Reference{}, err
	}

	key := p.st.Key(blob)
	if ref, ok := p.memoLookup(ctx, key); ok {
		p.hooks.ArtifactReused(key, "memo")
		p.publishLog("publish served from memo", Fields{"key": util.Short(key)})
		return ref, nil
	}

	ref, created, err := p.st.Publish(ctx, blob)
	if err != nil {
		return store.Reference{}, err
	}
	if created {
		p.hooks.ArtifactPublished(key, ref.Size)
		p.publishLog("artifact published", Fields{"key": util.Short(key), "bytes": ref.Size})
	} else {
		p.hooks.ArtifactReused(key, "disk")
		p.publishLog("artifact already on disk", Fields{"key": util.Short(key)})
	}

	p.memoStore(ctx, key, ref)
	return ref, nil
}

func (p *pipeline) Handle(ctx context.Context, request []byte) ([]byte, error) {
	if p.runtime == nil {
		return nil, ErrNoRuntime
	}

	start := time.Now()
	response, err := p.runtime.ProcessRequest(ctx, request)
	elapsed := time.Since(start)
	if err != nil {
		p.hooks.RuntimeFailure(err, elapsed)
		return nil, &RuntimeError{Elapsed: elapsed, Err: err}
	}

	p.publishLog("request served", Fields{
		"elapsed_ms":     float64(elapsed.Microseconds()) / 1000.0,
		"request_bytes":  len(request),
		"response_bytes": len(response),
	})
	return response, nil
}

// publishLog emits observability lines at Info when verbose, Debug
// otherwise. Purely diagnostic; no effect on control flow.
func (p *pipeline) publishLog(msg string, f Fields) {
	if p.verbose {
		p.log.Info(msg, f)
		return
	}
	p.log.Debug(msg, f)
}

func (p *pipeline) memoLookup(ctx context.Context, contentKey string) (store.Reference, bool) {
	if p.memo == nil {
		return store.Reference{}, false
	}
	mk := util.MemoKey(p.ns, contentKey)
	raw, ok, err := p.memo.Get(ctx, mk)
	if err != nil {
		p.log.Warn("memo get failed", Fields{"key": util.Short(contentKey), "err": err})
		return store.Reference{}, false
	}
	if !ok {
		return store.Reference{}, false
	}

	embedded, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		p.healMemo(ctx, mk, "corrupt")
		return store.Reference{}, false
	}
	if embedded != contentKey {
		p.healMemo(ctx, mk, "key_mismatch")
		return store.Reference{}, false
	}
	ref, err := p.memoCodec.Decode(payload)
	if err != nil {
		p.healMemo(ctx, mk, "value_decode")
		return store.Reference{}, false
	}
	return ref, true
}

func (p *pipeline) healMemo(ctx context.Context, storageKey, reason string) {
	_ = p.memo.Del(ctx, storageKey)
	p.hooks.MemoSelfHeal(storageKey, reason)
}

// memoStore is best-effort: any failure here only costs a future stat.
func (p *pipeline) memoStore(ctx context.Context, contentKey string, ref store.Reference) {
	if p.memo == nil {
		return
	}
	payload, err := p.memoCodec.Encode(ref)
	if err != nil {
		p.log.Warn("memo encode failed", Fields{"key": util.Short(contentKey), "err": err})
		return
	}
	entry, err := wire.EncodeEntry(contentKey, payload)
	if err != nil {
		p.log.Warn("memo frame failed", Fields{"key": util.Short(contentKey), "err": err})
		return
	}
	mk := util.MemoKey(p.ns, contentKey)
	ok, err := p.memo.Set(ctx, mk, entry, p.memoCost(mk, entry), p.memoTTL)
	if err != nil {
		p.log.Warn("memo set failed", Fields{"key": util.Short(contentKey), "err": err})
		return
	}
	if !ok {
		p.hooks.MemoSetRejected(mk)
	}
}

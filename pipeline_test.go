package arrowbridge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/arrowbridge/internal/util"
	pr "github.com/unkn0wn-root/arrowbridge/provider"
	"github.com/unkn0wn-root/arrowbridge/store"
	"github.com/unkn0wn-root/arrowbridge/tabular"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu sync.Mutex
	m  map[string]memEntry
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = memEntry{v: value, exp: exp}
	p.mu.Unlock()
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

// recorderHooks captures events for assertions.
type recorderHooks struct {
	mu        sync.Mutex
	published []string
	reused    []string // "key:source"
	healed    []string // "key:reason"
	rejected  []string
	failures  int
}

func (r *recorderHooks) ArtifactPublished(key string, _ int64) {
	r.mu.Lock()
	r.published = append(r.published, key)
	r.mu.Unlock()
}
func (r *recorderHooks) ArtifactReused(key, source string) {
	r.mu.Lock()
	r.reused = append(r.reused, key+":"+source)
	r.mu.Unlock()
}
func (r *recorderHooks) MemoSelfHeal(key, reason string) {
	r.mu.Lock()
	r.healed = append(r.healed, key+":"+reason)
	r.mu.Unlock()
}
func (r *recorderHooks) MemoSetRejected(key string) {
	r.mu.Lock()
	r.rejected = append(r.rejected, key)
	r.mu.Unlock()
}
func (r *recorderHooks) RuntimeFailure(error, time.Duration) {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}

func testDataset() *tabular.Dataset {
	return tabular.New(
		tabular.TextColumn("gender", []string{"M", "F"}),
		tabular.NumberColumn("height", []float64{70.1, 63.2}),
	)
}

func artifactCount(t *testing.T, root string) int {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for missing store root")
	}
}

func TestPublishDatasetEndToEnd(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	hooks := &recorderHooks{}

	br, err := New(Options{StoreRoot: root, Hooks: hooks})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	ref, err := br.PublishDataset(ctx, testDataset())
	if err != nil {
		t.Fatalf("PublishDataset: %v", err)
	}
	if ref.Path != filepath.Join(root, ref.Key+store.DefaultExt) {
		t.Fatalf("path = %q, want digest-derived name under root", ref.Path)
	}
	blob, err := os.ReadFile(ref.Path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if int64(len(blob)) != ref.Size {
		t.Fatalf("size = %d, file has %d bytes", ref.Size, len(blob))
	}
	if artifactCount(t, root) != 1 {
		t.Fatalf("expected exactly 1 artifact")
	}

	// Same dataset again: zero new files, identical Reference.
	ref2, err := br.PublishDataset(ctx, testDataset())
	if err != nil {
		t.Fatalf("PublishDataset repeat: %v", err)
	}
	if ref2 != ref {
		t.Fatalf("repeat publish returned %+v, want %+v", ref2, ref)
	}
	if artifactCount(t, root) != 1 {
		t.Fatalf("repeat publish created a new file")
	}

	if len(hooks.published) != 1 {
		t.Fatalf("published events = %v, want 1", hooks.published)
	}
	if len(hooks.reused) != 1 {
		t.Fatalf("reused events = %v, want 1", hooks.reused)
	}
}

func TestPublishEncodingErrorPropagates(t *testing.T) {
	ctx := context.Background()
	br, err := New(Options{StoreRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	bad := tabular.New(
		tabular.NumberColumn("a", []float64{1}),
		tabular.NumberColumn("b", []float64{1, 2}),
	)
	if _, err := br.PublishDataset(ctx, bad); err == nil {
		t.Fatalf("expected encoding error")
	}
}

func TestPublishMemoHit(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	mp := newMemProvider()
	hooks := &recorderHooks{}

	br, err := New(Options{StoreRoot: root, Memo: mp, Hooks: hooks})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	ref, err := br.PublishDataset(ctx, testDataset())
	if err != nil {
		t.Fatalf("PublishDataset: %v", err)
	}

	// Remove the artifact. The memo is trusted, so the next publish must
	// return the same Reference without touching the filesystem.
	if err := os.Remove(ref.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ref2, err := br.PublishDataset(ctx, testDataset())
	if err != nil {
		t.Fatalf("PublishDataset after memo warm: %v", err)
	}
	if ref2 != ref {
		t.Fatalf("memo hit returned %+v, want %+v", ref2, ref)
	}
	if _, err := os.Stat(ref.Path); !os.IsNotExist(err) {
		t.Fatalf("memo hit should not have re-published the artifact")
	}
	found := false
	for _, r := range hooks.reused {
		if r == ref.Key+":memo" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected memo reuse event, got %v", hooks.reused)
	}
}

func TestMemoSelfHealOnCorrupt(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	mp := newMemProvider()
	hooks := &recorderHooks{}

	br, err := New(Options{StoreRoot: root, Memo: mp, Hooks: hooks})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	// First publish to learn the content key.
	ref, err := br.PublishDataset(ctx, testDataset())
	if err != nil {
		t.Fatalf("PublishDataset: %v", err)
	}
	mk := util.MemoKey(defaultNamespace, ref.Key)

	// Inject garbage where the memo entry lives.
	if _, err := mp.Set(ctx, mk, []byte("not-wire-format"), 1, 0); err != nil {
		t.Fatalf("inject: %v", err)
	}

	ref2, err := br.PublishDataset(ctx, testDataset())
	if err != nil {
		t.Fatalf("PublishDataset with corrupt memo: %v", err)
	}
	if ref2 != ref {
		t.Fatalf("publish after self-heal returned %+v, want %+v", ref2, ref)
	}

	healed := false
	for _, h := range hooks.healed {
		if h == mk+":corrupt" {
			healed = true
		}
	}
	if !healed {
		t.Fatalf("expected corrupt self-heal event, got %v", hooks.healed)
	}

	// The memo should now hold a valid entry again (rewritten after the
	// disk fast path).
	raw, ok, _ := mp.Get(ctx, mk)
	if !ok || bytes.Equal(raw, []byte("not-wire-format")) {
		t.Fatalf("memo entry was not repaired")
	}
}

func TestConcurrentPublishers(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	br, err := New(Options{StoreRoot: root, Memo: newMemProvider()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	const callers = 8
	refs := make([]store.Reference, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			refs[i], errs[i] = br.PublishDataset(ctx, testDataset())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if refs[i] != refs[0] {
			t.Fatalf("caller %d got %+v, caller 0 got %+v", i, refs[i], refs[0])
		}
	}
	if artifactCount(t, root) != 1 {
		t.Fatalf("expected exactly 1 artifact after concurrent publishes")
	}
}

func TestHandleEcho(t *testing.T) {
	ctx := context.Background()
	echo := RuntimeFunc(func(_ context.Context, req []byte) ([]byte, error) {
		out := make([]byte, len(req))
		copy(out, req)
		return out, nil
	})
	br, err := New(Options{StoreRoot: t.TempDir(), Runtime: echo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	req := []byte{0x08, 0x96, 0x01, 0xFF, 0x00} // opaque; content is not ours to parse
	resp, err := br.Handle(ctx, req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !bytes.Equal(resp, req) {
		t.Fatalf("response altered in transit")
	}
}

func TestHandleRuntimeFailure(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("runtime exploded")
	hooks := &recorderHooks{}

	br, err := New(Options{
		StoreRoot: t.TempDir(),
		Runtime: RuntimeFunc(func(context.Context, []byte) ([]byte, error) {
			return nil, sentinel
		}),
		Hooks: hooks,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	_, err = br.Handle(ctx, []byte("req"))
	if err == nil {
		t.Fatalf("expected runtime error")
	}
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("underlying error not preserved")
	}
	if hooks.failures != 1 {
		t.Fatalf("runtime failure hook fired %d times, want 1", hooks.failures)
	}
}

func TestHandleWithoutRuntime(t *testing.T) {
	ctx := context.Background()
	br, err := New(Options{StoreRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer br.Close(ctx)

	if _, err := br.Handle(ctx, []byte("req")); !errors.Is(err, ErrNoRuntime) {
		t.Fatalf("expected ErrNoRuntime, got %v", err)
	}
}

// Package asynchook decorates a Hooks implementation with a bounded queue so
// slow consumers (metrics pushes, log sinks) never stall a publish or a
// request relay. Events are dropped when the queue is full.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{})
//	hooks := asynchook.New(raw, 1, 1000)
//	defer hooks.Close()
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/arrowbridge"
)

type Hooks struct {
	inner arrowbridge.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ arrowbridge.Hooks = (*Hooks)(nil)

func New(inner arrowbridge.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) ArtifactPublished(key string, size int64) {
	h.try(func() { h.inner.ArtifactPublished(key, size) })
}
func (h *Hooks) ArtifactReused(key, source string) {
	h.try(func() { h.inner.ArtifactReused(key, source) })
}
func (h *Hooks) MemoSelfHeal(k, reason string) { h.try(func() { h.inner.MemoSelfHeal(k, reason) }) }
func (h *Hooks) MemoSetRejected(k string)      { h.try(func() { h.inner.MemoSetRejected(k) }) }
func (h *Hooks) RuntimeFailure(err error, elapsed time.Duration) {
	h.try(func() { h.inner.RuntimeFailure(err, elapsed) })
}

// Package sloghooks implements arrowbridge.Hooks on log/slog with sampling
// for the chatty events.
package sloghooks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/arrowbridge"
	"github.com/unkn0wn-root/arrowbridge/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ReuseEvery    uint64
	SelfHealEvery uint64
	// Optional key redactor. Defaults to content-key truncation.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	reuseCtr    atomic.Uint64
	selfHealCtr atomic.Uint64
}

var _ arrowbridge.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.Short(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ArtifactPublished(contentKey string, size int64) {
	if h.l == nil {
		return
	}
	h.l.Info("arrowbridge.artifact_published",
		"key", h.redact(contentKey),
		"bytes", size)
}

func (h *Hooks) ArtifactReused(contentKey, source string) {
	if h.l == nil || !sample(h.opts.ReuseEvery, &h.reuseCtr) {
		return
	}
	h.l.Debug("arrowbridge.artifact_reused",
		"key", h.redact(contentKey),
		"source", source)
}

func (h *Hooks) MemoSelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("arrowbridge.memo_self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) MemoSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("arrowbridge.memo_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) RuntimeFailure(err error, elapsed time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Error("arrowbridge.runtime_failure",
		"err", err,
		"elapsed", elapsed)
}

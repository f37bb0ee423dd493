// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through package-level hook registries; the binary
// decides at startup which implementation receives them. The defaults are
// no-ops, so library code never needs to check for nil.
//
// Register hooks at application startup:
//
//	hooks := observability.NewPrometheusHooks(prometheus.NewRegistry())
//	observability.SetMirrorHooks(hooks)
//	observability.SetHTTPHooks(hooks)
//	observability.SetCacheHooks(hooks)
//
// Libraries call hooks to emit events:
//
//	observability.Mirror().OnFetch(ctx, "create", ok, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// Outcomes reported through [MirrorHooks.OnRecord].
const (
	OutcomeCreated   = "created"
	OutcomeStubbed   = "stubbed"
	OutcomeUpdated   = "updated"
	OutcomeSkipped   = "skipped"
	OutcomeUnchanged = "unchanged"
	OutcomeDeleted   = "deleted"
)

// MirrorHooks receives events from reconciliation passes.
type MirrorHooks interface {
	OnPassStart(ctx context.Context, runID string)
	OnSnapshot(ctx context.Context, projects int, duration time.Duration, err error)
	// OnFetch reports one metadata fetch in the given phase ("create" or "update").
	OnFetch(ctx context.Context, phase string, ok bool, duration time.Duration)
	// OnRecord reports the outcome for a single package, or a batch for deletes.
	OnRecord(ctx context.Context, outcome string, count int)
	OnPassComplete(ctx context.Context, runID string, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, namespace string)
	OnCacheMiss(ctx context.Context, namespace string)
	OnCacheSet(ctx context.Context, namespace string, size int)
}

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError records a transport failure (connection refused, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopMirrorHooks is a no-op implementation of MirrorHooks.
type NoopMirrorHooks struct{}

func (NoopMirrorHooks) OnPassStart(context.Context, string)                          {}
func (NoopMirrorHooks) OnSnapshot(context.Context, int, time.Duration, error)        {}
func (NoopMirrorHooks) OnFetch(context.Context, string, bool, time.Duration)         {}
func (NoopMirrorHooks) OnRecord(context.Context, string, int)                        {}
func (NoopMirrorHooks) OnPassComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

var (
	mirrorHooks MirrorHooks = NoopMirrorHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetMirrorHooks registers reconciliation hooks. Nil is ignored.
func SetMirrorHooks(h MirrorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		mirrorHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Mirror returns the registered reconciliation hooks.
func Mirror() MirrorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return mirrorHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	mirrorHooks = NoopMirrorHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}

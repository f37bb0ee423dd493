package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewPrometheusHooks(reg)
	ctx := context.Background()

	h.OnSnapshot(ctx, 42, time.Second, nil)
	h.OnFetch(ctx, "create", true, time.Millisecond)
	h.OnFetch(ctx, "create", false, time.Millisecond)
	h.OnRecord(ctx, OutcomeCreated, 1)
	h.OnRecord(ctx, OutcomeDeleted, 3)
	h.OnPassComplete(ctx, "run", time.Minute, nil)
	h.OnPassComplete(ctx, "run", time.Minute, errors.New("boom"))
	h.OnResponse(ctx, "GET", "pypi.org", "/simple/", 200, time.Millisecond)
	h.OnError(ctx, "GET", "pypi.org", "/pypi/x/json", errors.New("timeout"))
	h.OnCacheHit(ctx, "pypi:")
	h.OnCacheMiss(ctx, "pypi:")

	if got := testutil.ToFloat64(h.projects); got != 42 {
		t.Errorf("snapshot_projects = %v, want 42", got)
	}
	if got := testutil.ToFloat64(h.fetches.WithLabelValues("create", "failure")); got != 1 {
		t.Errorf("failed create fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.records.WithLabelValues(OutcomeDeleted)); got != 3 {
		t.Errorf("deleted records = %v, want 3", got)
	}
	if got := testutil.ToFloat64(h.passes.WithLabelValues("success")); got != 1 {
		t.Errorf("successful passes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.passes.WithLabelValues("failure")); got != 1 {
		t.Errorf("failed passes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.httpRequests.WithLabelValues("pypi.org", "200")); got != 1 {
		t.Errorf("http 200 responses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.cacheEvents.WithLabelValues("pypi:", "hit")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
}

func TestHookRegistry(t *testing.T) {
	defer Reset()

	if _, ok := Mirror().(NoopMirrorHooks); !ok {
		t.Fatalf("default mirror hooks = %T, want NoopMirrorHooks", Mirror())
	}

	h := NewPrometheusHooks(prometheus.NewRegistry())
	SetMirrorHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
	SetMirrorHooks(nil)

	if Mirror() != MirrorHooks(h) {
		t.Error("SetMirrorHooks(nil) should keep the registered hooks")
	}
	if Cache() != CacheHooks(h) || HTTP() != HTTPHooks(h) {
		t.Error("cache and http hooks not registered")
	}

	Reset()
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("after Reset http hooks = %T", HTTP())
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/observability"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/memory"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.Upsert(ctx, &store.Record{
		Name: "flask", LastSerial: 20512,
		Info:         json.RawMessage(`{"name":"Flask"}`),
		Requirements: "click jinja2 werkzeug",
	}))
	require.NoError(t, st.Upsert(ctx, &store.Record{Name: "six", LastSerial: 3, Info: json.RawMessage(`{}`)}))
	require.NoError(t, st.Upsert(ctx, store.NewStub("broken", 9)))
	return st
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h := New(memory.New(), WithLogger(quietLogger())).Handler()
	rr := get(t, h, "/healthz")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestPackage(t *testing.T) {
	h := New(newTestStore(t), WithLogger(quietLogger())).Handler()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name:       "stored package",
			path:       "/api/v1/packages/flask",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp packageResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "flask", resp.Name)
				assert.Equal(t, int64(20512), resp.LastSerial)
				assert.False(t, resp.Stub)
				assert.Equal(t, []string{"click", "jinja2", "werkzeug"}, resp.Dependencies)
				assert.JSONEq(t, `{"name":"Flask"}`, string(resp.Info))
			},
		},
		{
			name:       "name is normalized",
			path:       "/api/v1/packages/Flask",
			wantStatus: http.StatusOK,
		},
		{
			name:       "stub",
			path:       "/api/v1/packages/broken",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"name":"broken","last_serial":9,"stub":true,"dependencies":[]}`, string(body))
			},
		},
		{
			name:       "missing",
			path:       "/api/v1/packages/nope",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "PACKAGE_NOT_FOUND")
			},
		},
		{
			name:       "invalid name",
			path:       "/api/v1/packages/-bad-",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "dependencies",
			path:       "/api/v1/packages/six/dependencies",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.JSONEq(t, `{"name":"six","dependencies":[]}`, string(body))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(t, h, tt.path)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.check != nil {
				tt.check(t, rr.Body.Bytes())
			}
		})
	}
}

func TestStats(t *testing.T) {
	h := New(newTestStore(t), WithLogger(quietLogger())).Handler()
	rr := get(t, h, "/api/v1/stats")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"packages":3,"stubs":1,"syncing":false}`, rr.Body.String())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewPrometheusHooks(reg)
	hooks.OnRecord(context.Background(), observability.OutcomeCreated, 5)

	h := New(memory.New(), WithGatherer(reg), WithLogger(quietLogger())).Handler()
	rr := get(t, h, "/metrics")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `pypigraph_records_total{outcome="created"} 5`)
}

// blockingRunner holds each pass open until release is closed.
type blockingRunner struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingRunner) Run(ctx context.Context) (*mirror.Result, error) {
	b.calls.Add(1)
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return &mirror.Result{RunID: "run-1", Created: 2}, b.err
}

func TestSyncerNeverOverlaps(t *testing.T) {
	runner := newBlockingRunner()
	s := NewSyncer(runner, nil, quietLogger())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.TrySync(ctx)
		done <- err
	}()
	<-runner.started

	assert.True(t, s.Running())
	_, err := s.TrySync(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(runner.release)
	require.NoError(t, <-done)
	assert.False(t, s.Running())
	assert.Equal(t, int32(1), runner.calls.Load())

	last := s.Last()
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, 2, last.Created)
	assert.Empty(t, last.Error)
}

func TestSyncerAfterHook(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)

	exportErr := errors.New("export failed")
	var exported atomic.Bool
	s := NewSyncer(runner, func(context.Context, *mirror.Result) error {
		exported.Store(true)
		return exportErr
	}, quietLogger())

	_, err := s.TrySync(context.Background())
	assert.ErrorIs(t, err, exportErr)
	assert.True(t, exported.Load())
	assert.Equal(t, "export failed", s.Last().Error)
}

func TestSyncEndpoint(t *testing.T) {
	runner := newBlockingRunner()
	syncer := NewSyncer(runner, nil, quietLogger())
	h := New(memory.New(), WithSyncer(syncer), WithLogger(quietLogger())).Handler()

	post := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))
		return rr
	}

	assert.Equal(t, http.StatusAccepted, post().Code)
	<-runner.started

	rr := post()
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "SYNC_IN_PROGRESS")

	stats := get(t, h, "/api/v1/stats")
	assert.Contains(t, stats.Body.String(), `"syncing":true`)

	close(runner.release)
	require.Eventually(t, func() bool { return syncer.Last() != nil }, time.Second, 5*time.Millisecond)
}

func TestSyncEndpointDisabled(t *testing.T) {
	h := New(memory.New(), WithLogger(quietLogger())).Handler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// cancelRunner blocks until its pass is cancelled, like a reconciler
// waiting on a slow index.
type cancelRunner struct {
	started  chan struct{}
	returned atomic.Bool
}

func (c *cancelRunner) Run(ctx context.Context) (*mirror.Result, error) {
	close(c.started)
	<-ctx.Done()
	c.returned.Store(true)
	return nil, ctx.Err()
}

func TestSyncerShutdownWaitsForRequestedPass(t *testing.T) {
	runner := &cancelRunner{started: make(chan struct{})}
	syncer := NewSyncer(runner, nil, quietLogger())
	h := New(memory.New(), WithSyncer(syncer), WithLogger(quietLogger())).Handler()

	post := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil))
		return rr
	}

	require.Equal(t, http.StatusAccepted, post().Code)
	<-runner.started

	syncer.Shutdown()
	assert.True(t, runner.returned.Load(), "Shutdown returned while the pass was still running")
	assert.False(t, syncer.Running())

	_, err := syncer.TrySync(context.Background())
	assert.ErrorIs(t, err, ErrSyncerClosed)

	rr := post()
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERRUPTED")
}

func TestSyncerShutdownIdle(t *testing.T) {
	runner := newBlockingRunner()
	syncer := NewSyncer(runner, nil, quietLogger())

	syncer.Shutdown()
	assert.True(t, syncer.Closed())

	_, err := syncer.TrySync(context.Background())
	assert.ErrorIs(t, err, ErrSyncerClosed)
	assert.Zero(t, runner.calls.Load())
}

func TestRunPeriodic(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	s := NewSyncer(runner, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunPeriodic(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, time.Millisecond)
}

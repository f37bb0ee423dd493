package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
)

// ErrSyncInProgress is returned when a pass is requested while one runs.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrSyncerClosed is returned for passes requested after [Syncer.Shutdown].
var ErrSyncerClosed = errors.New("syncer is shut down")

// PassRunner runs one reconciliation pass. [mirror.Reconciler] implements it.
type PassRunner interface {
	Run(ctx context.Context) (*mirror.Result, error)
}

// PassStatus describes the most recent pass.
type PassStatus struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
	Created   int       `json:"created"`
	Stubbed   int       `json:"stubbed"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Unchanged int       `json:"unchanged"`
	Deleted   int       `json:"deleted"`
}

// Syncer serializes passes: at most one runs at a time, whether started by
// the ticker or through the API.
type Syncer struct {
	runner PassRunner
	after  func(context.Context, *mirror.Result) error
	logger *log.Logger

	running sync.Mutex

	// life is cancelled by Shutdown; every pass is bound to it.
	life     context.Context
	shutdown context.CancelFunc

	mu     sync.RWMutex
	last   *PassStatus
	closed bool
}

// NewSyncer wraps runner. after, if non-nil, runs inside the same lock once
// a pass succeeds; the CLI uses it to re-export the graph.
func NewSyncer(runner PassRunner, after func(context.Context, *mirror.Result) error, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	life, shutdown := context.WithCancel(context.Background())
	return &Syncer{runner: runner, after: after, logger: logger, life: life, shutdown: shutdown}
}

// TrySync runs a pass unless one is already running. The pass is cancelled
// when ctx is done or the syncer shuts down, whichever comes first.
func (s *Syncer) TrySync(ctx context.Context) (*mirror.Result, error) {
	if !s.running.TryLock() {
		if s.Closed() {
			return nil, ErrSyncerClosed
		}
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.life, cancel)
	defer stop()

	start := time.Now()
	res, err := s.runner.Run(ctx)
	if err == nil && s.after != nil {
		err = s.after(ctx, res)
	}
	s.record(start, res, err)
	return res, err
}

// Shutdown cancels the running pass, if any, and waits for it to return.
// No pass starts afterwards, so the store can be closed safely once
// Shutdown returns.
func (s *Syncer) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.shutdown()
	s.running.Lock()
}

// Closed reports whether Shutdown has been called.
func (s *Syncer) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Running reports whether a pass is in progress.
func (s *Syncer) Running() bool {
	if s.Closed() {
		// Shutdown holds the lock for good once the last pass returns.
		return false
	}
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

// Last returns the status of the most recent pass, or nil.
func (s *Syncer) Last() *PassStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	st := *s.last
	return &st
}

func (s *Syncer) record(start time.Time, res *mirror.Result, err error) {
	st := &PassStatus{StartedAt: start, Duration: time.Since(start).Round(time.Millisecond).String()}
	if res != nil {
		st.RunID = res.RunID
		st.Created, st.Stubbed = res.Created, res.Stubbed
		st.Updated, st.Skipped = res.Updated, res.Skipped
		st.Unchanged, st.Deleted = res.Unchanged, res.Deleted
	}
	if err != nil {
		st.Error = err.Error()
	}

	s.mu.Lock()
	s.last = st
	s.mu.Unlock()
}

// RunPeriodic starts a pass every interval until ctx is done. A tick that
// lands while a pass is still running is skipped.
func (s *Syncer) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go func() {
				_, err := s.TrySync(ctx)
				switch {
				case errors.Is(err, ErrSyncerClosed):
				case errors.Is(err, ErrSyncInProgress):
					s.logger.Debug("skipping scheduled sync, previous pass still running")
				case err != nil && ctx.Err() == nil:
					s.logger.Error("scheduled sync failed", "error", err)
				}
			}()
		}
	}
}

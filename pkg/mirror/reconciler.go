package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/deps/python"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/observability"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

// DefaultWorkers is the number of concurrent metadata fetches per phase.
const DefaultWorkers = 4

// Phase names, as passed to [Options.Progress] and the fetch hooks.
const (
	PhaseCreate = "create"
	PhaseUpdate = "update"
	PhaseDelete = "delete"
)

// ErrSnapshot wraps a failure to list the registry. Nothing has been written
// when it is returned.
var ErrSnapshot = errors.New("registry snapshot failed")

// ErrStoreWrite wraps a store failure that aborted the pass.
var ErrStoreWrite = errors.New("store write failed")

// Options configures a [Reconciler].
type Options struct {
	// Workers bounds concurrent fetches. Defaults to [DefaultWorkers].
	Workers int

	// DryRun computes the plan and stops before fetching or writing.
	DryRun bool

	// Env is the marker environment requirements are resolved against.
	// Defaults to [python.DefaultEnvironment].
	Env python.Environment

	// Logger receives progress. Defaults to log.Default().
	Logger *log.Logger

	// Progress, if set, is called after each record in the create and update
	// phases, and once for the delete phase. Calls are serialized.
	Progress func(phase string, done, total int)
}

// Result summarizes one pass.
type Result struct {
	RunID string
	Plan  *Plan

	Created   int // new records with metadata
	Stubbed   int // new records whose fetch failed
	Updated   int // records refreshed
	Skipped   int // updates left untouched: fetch failed or document was older
	Unchanged int
	Deleted   int

	Duration time.Duration
}

// Reconciler drives passes against one registry and one store.
//
// A Reconciler holds no per-pass state; concurrent Run calls against the
// same store are not coordinated and should be avoided by the caller.
type Reconciler struct {
	registry Registry
	store    store.Store
	opts     Options
}

// NewReconciler creates a reconciler, filling unset options with defaults.
func NewReconciler(registry Registry, st store.Store, opts Options) *Reconciler {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Env == nil {
		opts.Env = python.DefaultEnvironment()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Reconciler{registry: registry, store: st, opts: opts}
}

// Run performs one full pass: snapshot, diff, create, update, delete.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := r.opts.Logger.With("run", runID)
	hooks := observability.Mirror()
	start := time.Now()

	hooks.OnPassStart(ctx, runID)
	res, err := r.run(ctx, runID, logger)
	res.Duration = time.Since(start)
	hooks.OnPassComplete(ctx, runID, res.Duration, err)

	if err != nil {
		logger.Error("pass failed", "error", err, "duration", res.Duration)
		return res, err
	}
	logger.Info("pass complete",
		"created", res.Created,
		"stubbed", res.Stubbed,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"unchanged", res.Unchanged,
		"deleted", res.Deleted,
		"duration", res.Duration)
	return res, nil
}

func (r *Reconciler) run(ctx context.Context, runID string, logger *log.Logger) (*Result, error) {
	res := &Result{RunID: runID}

	plan, err := r.Plan(ctx)
	if err != nil {
		return res, err
	}
	res.Plan = plan
	res.Unchanged = plan.Unchanged

	logger.Info("planned pass",
		"create", len(plan.ToCreate),
		"update", len(plan.ToUpdate),
		"delete", len(plan.ToDelete),
		"unchanged", plan.Unchanged)

	if r.opts.DryRun {
		return res, nil
	}
	return res, r.apply(ctx, plan, res, logger)
}

// Plan takes a registry snapshot and diffs it against the store index.
func (r *Reconciler) Plan(ctx context.Context) (*Plan, error) {
	hooks := observability.Mirror()

	start := time.Now()
	snapshot, err := r.registry.ListProjects(ctx)
	hooks.OnSnapshot(ctx, len(snapshot), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshot, err)
	}

	index, err := r.store.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store index: %w", err)
	}
	return Diff(snapshot, index), nil
}

// Apply executes a plan computed by [Reconciler.Plan]. It ignores DryRun.
func (r *Reconciler) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Plan: plan, Unchanged: plan.Unchanged}
	start := time.Now()
	err := r.apply(ctx, plan, res, r.opts.Logger.With("run", res.RunID))
	res.Duration = time.Since(start)
	return res, err
}

func (r *Reconciler) apply(ctx context.Context, plan *Plan, res *Result, logger *log.Logger) error {
	observability.Mirror().OnRecord(ctx, observability.OutcomeUnchanged, plan.Unchanged)
	if err := r.create(ctx, plan, res, logger); err != nil {
		return err
	}
	if err := r.update(ctx, plan, res, logger); err != nil {
		return err
	}
	return r.delete(ctx, plan, res, logger)
}

// fetchResult is what one worker hands to the serialized writer.
type fetchResult struct {
	name   string
	record *store.Record // nil when the fetch failed
}

func (r *Reconciler) create(ctx context.Context, plan *Plan, res *Result, logger *log.Logger) error {
	logger.Info("creating packages", "count", len(plan.ToCreate))
	return r.forEach(ctx, PhaseCreate, plan.ToCreate, plan.Snapshot, func(f fetchResult) error {
		rec := f.record
		outcome := observability.OutcomeCreated
		if rec == nil {
			rec = store.NewStub(f.name, plan.Snapshot[f.name])
			outcome = observability.OutcomeStubbed
		}
		if err := r.store.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrStoreWrite, f.name, err)
		}
		if outcome == observability.OutcomeStubbed {
			res.Stubbed++
			logger.Debug("stored stub", "package", f.name, "serial", rec.LastSerial)
		} else {
			res.Created++
		}
		observability.Mirror().OnRecord(ctx, outcome, 1)
		return nil
	})
}

func (r *Reconciler) update(ctx context.Context, plan *Plan, res *Result, logger *log.Logger) error {
	logger.Info("updating packages", "count", len(plan.ToUpdate))
	return r.forEach(ctx, PhaseUpdate, plan.ToUpdate, plan.Snapshot, func(f fetchResult) error {
		stored := plan.Index[f.name].Serial
		if f.record == nil || f.record.LastSerial < stored {
			res.Skipped++
			observability.Mirror().OnRecord(ctx, observability.OutcomeSkipped, 1)
			logger.Debug("left package untouched", "package", f.name, "serial", stored)
			return nil
		}
		if err := r.store.Upsert(ctx, f.record); err != nil {
			return fmt.Errorf("%w: update %s: %w", ErrStoreWrite, f.name, err)
		}
		res.Updated++
		observability.Mirror().OnRecord(ctx, observability.OutcomeUpdated, 1)
		return nil
	})
}

func (r *Reconciler) delete(ctx context.Context, plan *Plan, res *Result, logger *log.Logger) error {
	logger.Info("deleting packages", "count", len(plan.ToDelete))
	if len(plan.ToDelete) > 0 {
		if err := r.store.DeleteMany(ctx, plan.ToDelete); err != nil {
			return fmt.Errorf("%w: delete: %w", ErrStoreWrite, err)
		}
	}
	res.Deleted = len(plan.ToDelete)
	observability.Mirror().OnRecord(ctx, observability.OutcomeDeleted, res.Deleted)
	r.progress(PhaseDelete, res.Deleted, res.Deleted)
	return nil
}

// forEach fetches names with bounded concurrency and passes each result to
// write, one at a time. The first error from write, or a cancelled context,
// stops the phase.
func (r *Reconciler) forEach(ctx context.Context, phase string, names []string, serials map[string]int64, write func(fetchResult) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	var (
		mu   sync.Mutex
		done int
	)
	for _, name := range names {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := r.fetch(gctx, phase, name, serials[name])
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if err := write(fetchResult{name: name, record: rec}); err != nil {
				return err
			}
			done++
			r.progress(phase, done, len(names))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// fetch returns the record built from the registry's current document, or
// nil when the package is absent right now. Only cancellation is an error.
func (r *Reconciler) fetch(ctx context.Context, phase, name string, serial int64) (*store.Record, error) {
	start := time.Now()
	md, err := r.registry.FetchMetadata(ctx, name, serial)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var rec *store.Record
	if err == nil {
		var reqs string
		if reqs, err = python.RequirementsFromInfo(md.Info, r.opts.Env); err == nil {
			rec = &store.Record{Name: name, LastSerial: md.LastSerial, Info: md.Info, Requirements: reqs}
		}
	}
	observability.Mirror().OnFetch(ctx, phase, rec != nil, time.Since(start))
	if err != nil {
		r.opts.Logger.Debug("metadata unavailable", "package", name, "phase", phase, "error", err)
	}
	return rec, nil
}

func (r *Reconciler) progress(phase string, done, total int) {
	if r.opts.Progress != nil {
		r.opts.Progress(phase, done, total)
	}
}

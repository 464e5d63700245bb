// Package localexecutor provides the in-process implementation of the
// executor.Executor interface: it walks the scheduler's levels and hands each
// derivation to a backend.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/events"
	"github.com/specialistvlad/hashgrid/internal/executor"
	"github.com/specialistvlad/hashgrid/internal/graph"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/scheduler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/specialistvlad/hashgrid/internal/localexecutor"

// Submitter launches the job of one finalized derivation.
type Submitter interface {
	Submit(ctx context.Context, d *derivation.Derivation) (backend.Job, error)
}

// Executor implements executor.Executor for local execution.
type Executor struct {
	sched    scheduler.Scheduler
	graph    graph.Graph
	backend  Submitter
	reporter events.Reporter
	workers  int
	tracer   trace.Tracer
}

// Option customizes an Executor.
type Option func(*Executor)

// WithWorkers limits how many jobs of a level run at once. Zero or less
// submits the whole level at once.
func WithWorkers(n int) Option {
	return func(e *Executor) { e.workers = n }
}

// WithReporter sets where progress events go.
func WithReporter(r events.Reporter) Option {
	return func(e *Executor) { e.reporter = r }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// New creates a new local executor.
func New(sch scheduler.Scheduler, g graph.Graph, b Submitter, opts ...Option) *Executor {
	e := &Executor{
		sched:    sch,
		graph:    g,
		backend:  b,
		reporter: events.Nop{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ executor.Executor = (*Executor)(nil)

// Execute runs every derivation in the graph.
func (e *Executor) Execute(ctx context.Context) (executor.Summary, error) {
	levels, err := e.sched.Levels(ctx)
	if err != nil {
		return executor.Summary{}, err
	}
	return e.run(ctx, levels)
}

// ExecuteTarget runs target after its transitive dependencies.
func (e *Executor) ExecuteTarget(ctx context.Context, target nodeid.ID) (executor.Summary, error) {
	levels, err := e.sched.LevelsFor(ctx, target)
	if err != nil {
		return executor.Summary{}, err
	}
	return e.run(ctx, levels)
}

func (e *Executor) run(ctx context.Context, levels []scheduler.Level) (executor.Summary, error) {
	logger := ctxlog.FromContext(ctx)
	ctx, span := e.tracer.Start(ctx, "hashgrid.run", trace.WithAttributes(attribute.Int("levels", len(levels))))
	defer span.End()

	start := time.Now()
	summary := executor.Summary{}
	e.reporter.Report(ctx, events.Event{Type: events.RunStarted, Size: len(levels)})

	var runErr error
	for i, level := range levels {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		summary.Levels++
		counts, err := e.runLevel(ctx, i, level)
		summary.Completed += counts.Completed
		summary.Cached += counts.Cached
		summary.Failed += counts.Failed
		if err != nil {
			runErr = err
			if remaining := len(levels) - i - 1; remaining > 0 {
				logger.Warn("Aborting run, later levels are not submitted.", "failedLevel", i, "skippedLevels", remaining)
				runErr = fmt.Errorf("%w: %w", executor.ErrAborted, err)
			}
			break
		}
	}

	summary.Duration = time.Since(start)
	finished := events.Event{Type: events.RunFinished, Duration: summary.Duration}
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "run failed")
		finished.Error = runErr.Error()
	}
	e.reporter.Report(ctx, finished)
	return summary, runErr
}

// runLevel submits every job of the level and waits for all of them. A failed
// job does not stop its siblings.
func (e *Executor) runLevel(ctx context.Context, index int, level scheduler.Level) (executor.Summary, error) {
	ctx, span := e.tracer.Start(ctx, "hashgrid.level", trace.WithAttributes(
		attribute.Int("level", index),
		attribute.Int("jobs", len(level)),
	))
	defer span.End()

	start := time.Now()
	e.reporter.Report(ctx, events.Event{Type: events.LevelStarted, Level: index, Size: len(level)})

	var (
		mu     sync.Mutex
		merr   *multierror.Error
		counts executor.Summary
	)
	g := new(errgroup.Group)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for _, id := range level {
		g.Go(func() error {
			outcome, err := e.worker(ctx, index, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				counts.Failed++
				merr = multierror.Append(merr, err)
			case outcome == outcomeCached:
				counts.Cached++
			default:
				counts.Completed++
			}
			return nil
		})
	}
	_ = g.Wait()

	e.reporter.Report(ctx, events.Event{Type: events.LevelFinished, Level: index, Size: len(level), Duration: time.Since(start)})

	if err := merr.ErrorOrNil(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "level failed")
		if isFatal(err) {
			return counts, err
		}
		return counts, &executor.LevelError{Level: index, Err: err}
	}
	return counts, nil
}

// isFatal reports whether the failure affects the whole work root rather than
// a single job.
func isFatal(err error) bool {
	return errors.Is(err, backend.ErrPermission)
}

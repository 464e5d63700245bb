package localexecutor

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/events"
	"github.com/specialistvlad/hashgrid/internal/graph"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeCached
)

// worker runs one derivation to completion and records the result in the
// graph.
func (e *Executor) worker(ctx context.Context, level int, id nodeid.ID) (outcome, error) {
	ctx, logger := ctxlog.With(ctx, "derivation", id.String())
	ctx, span := e.tracer.Start(ctx, "hashgrid.job", trace.WithAttributes(
		attribute.String("derivation.id", id.String()),
		attribute.String("derivation.name", id.Name),
	))
	defer span.End()

	base := events.Event{Level: level, ID: id.String(), Name: id.Name}
	fail := func(err error) (outcome, error) {
		logger.Error("Derivation failed.", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		if merr := e.graph.MarkFailed(ctx, id, err); merr != nil {
			logger.Warn("Failed to record failure.", "error", merr)
		}
		ev := base
		ev.Type, ev.Error = events.JobFailed, err.Error()
		e.reporter.Report(ctx, ev)
		return outcomeCompleted, err
	}

	d, ok := e.graph.Node(ctx, id)
	if !ok {
		return fail(fmt.Errorf("derivation %s: %w", id, graph.ErrNotFound))
	}

	ev := base
	ev.Type = events.JobStarted
	e.reporter.Report(ctx, ev)

	job, err := e.backend.Submit(ctx, d)
	if err != nil {
		return fail(err)
	}

	if job.Cached() {
		res, err := job.Wait()
		if err != nil {
			return fail(err)
		}
		span.SetAttributes(attribute.Bool("cached", true))
		if err := e.graph.MarkCached(ctx, id, res.Output); err != nil {
			logger.Warn("Failed to record cache hit.", "error", err)
		}
		ev := base
		ev.Type, ev.Output = events.JobCached, res.Output
		e.reporter.Report(ctx, ev)
		return outcomeCached, nil
	}

	if err := e.graph.MarkRunning(ctx, id); err != nil {
		logger.Warn("Failed to record running state.", "error", err)
	}
	res, err := job.Wait()
	if err != nil {
		return fail(err)
	}

	if err := e.graph.MarkCompleted(ctx, id, res.Output); err != nil {
		logger.Warn("Failed to record completion.", "error", err)
	}
	ev = base
	ev.Type, ev.Output, ev.Duration = events.JobCompleted, res.Output, res.Duration
	e.reporter.Report(ctx, ev)
	return outcomeCompleted, nil
}

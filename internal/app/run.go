package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/specialistvlad/hashgrid/internal/builder"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/events"
	"github.com/specialistvlad/hashgrid/internal/executor"
	"github.com/specialistvlad/hashgrid/internal/graph"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/session"
)

// Run builds the process graph and then prints or executes it according to
// the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	env, err := readEnvFile(a.cfg.EnvFile)
	if err != nil {
		return err
	}
	reporter, closeEvents, err := a.newReporter(ctx)
	if err != nil {
		return err
	}
	defer closeEvents()

	kind, err := backend.ParseKind(a.cfg.Backend)
	if err != nil {
		return err
	}
	sess, err := a.factory.NewSession(ctx, session.Config{
		Backend: backend.Config{
			Root:      a.cfg.WorkDir,
			Kind:      kind,
			Container: backend.ContainerKind(a.cfg.Container),
			Shell:     a.cfg.Shell,
			Env:       env,
			Timeout:   a.cfg.JobTimeout,
		},
		Workers:  a.cfg.Workers,
		Reporter: events.WithRunID(a.runID, reporter),
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			a.logger.Error("Failed to close session.", "error", err)
		}
	}()
	a.setSession(sess)

	a.logger.Debug("Building process graph from config model...")
	labels, err := builder.New(sess.Graph(), a.cfg.Params).Build(ctx, a.model)
	if err != nil {
		return fmt.Errorf("failed to build process graph: %w", err)
	}
	a.logger.Debug("Process graph built.", "node_count", sess.Graph().Len(ctx))

	var target *nodeid.ID
	if a.cfg.Target != "" {
		id, err := resolveTarget(ctx, sess.Graph(), labels, a.cfg.Target)
		if err != nil {
			return err
		}
		target = &id
	}

	switch {
	case a.cfg.Graph == GraphDOT:
		_, err := fmt.Fprint(a.outW, graph.DOT(ctx, sess.Graph()))
		return err
	case a.cfg.Graph == GraphTree:
		_, err := fmt.Fprintln(a.outW, graph.Display(ctx, sess.Graph()))
		return err
	case a.cfg.Plan:
		return a.printPlan(ctx, sess, target)
	}

	if sess.Graph().Len(ctx) == 0 {
		a.logger.Warn("No derivations found in graph, execution not required.")
		return nil
	}

	a.healthCheckServer(ctx)
	defer a.closeHealthCheckServer(ctx)

	exec, err := sess.GetExecutor()
	if err != nil {
		return fmt.Errorf("failed to get executor: %w", err)
	}

	a.logger.Info("🚀 Starting execution...")
	var summary executor.Summary
	if target != nil {
		summary, err = exec.ExecuteTarget(ctx, *target)
	} else {
		summary, err = exec.Execute(ctx)
	}
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.",
		"levels", summary.Levels,
		"completed", summary.Completed,
		"cached", summary.Cached,
		"duration", summary.Duration)

	if target != nil {
		_, err = fmt.Fprintln(a.outW, sess.Backend().Paths(*target).Out)
	}
	return err
}

// resolveTarget accepts a declaration label, a derivation name, or an ID.
func resolveTarget(ctx context.Context, g graph.Graph, labels builder.Result, ref string) (nodeid.ID, error) {
	if id, ok := labels[ref]; ok {
		return id, nil
	}
	id, err := g.Lookup(ctx, ref)
	if err != nil {
		return nodeid.ID{}, fmt.Errorf("resolving target: %w", err)
	}
	return id, nil
}

// newReporter combines the log reporter with the optional socket.io stream.
func (a *App) newReporter(ctx context.Context) (events.Reporter, func(), error) {
	if a.cfg.EventsURL == "" {
		return events.LogReporter{}, func() {}, nil
	}
	sio, err := events.DialSocketIO(ctx, events.SocketIOConfig{URL: a.cfg.EventsURL})
	if err != nil {
		return nil, nil, fmt.Errorf("connecting event stream: %w", err)
	}
	closeFn := func() {
		if err := sio.Close(); err != nil {
			a.logger.Warn("Closing event stream failed.", "error", err)
		}
	}
	return events.Multi{events.LogReporter{}, sio}, closeFn, nil
}

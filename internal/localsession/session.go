// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/events"
	"github.com/specialistvlad/hashgrid/internal/executor"
	"github.com/specialistvlad/hashgrid/internal/graph"
	"github.com/specialistvlad/hashgrid/internal/inmemorystore"
	"github.com/specialistvlad/hashgrid/internal/inmemorytopology"
	"github.com/specialistvlad/hashgrid/internal/localexecutor"
	"github.com/specialistvlad/hashgrid/internal/scheduler"
	"github.com/specialistvlad/hashgrid/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	// Runtime overrides the backend's runtime factory when set.
	Runtime backend.RuntimeFactory
}

// NewSession creates and configures a new local session.
func (f *SessionFactory) NewSession(ctx context.Context, cfg session.Config) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)

	be, err := backend.New(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("configuring backend: %w", err)
	}
	if f.Runtime != nil {
		be.WithRuntime(f.Runtime)
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = events.Nop{}
	}

	g := graph.New(inmemorytopology.New(), inmemorystore.New())
	sched := scheduler.New(g)
	exec := localexecutor.New(sched, g, be,
		localexecutor.WithWorkers(cfg.Workers),
		localexecutor.WithReporter(reporter),
	)
	logger.Debug("Local session wired.", "workRoot", be.Root(), "workers", cfg.Workers)

	return &Session{
		graph:     g,
		scheduler: sched,
		backend:   be,
		executor:  exec,
	}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	graph     graph.Graph
	scheduler scheduler.Scheduler
	backend   *backend.Backend
	executor  executor.Executor
}

func (s *Session) Graph() graph.Graph             { return s.graph }
func (s *Session) Scheduler() scheduler.Scheduler { return s.scheduler }
func (s *Session) Backend() *backend.Backend      { return s.backend }

// GetExecutor returns the executor that was created and wired up by the factory.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Close has nothing to release for in-memory stores.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Local session closed.")
	return nil
}

// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of local vs. remote execution.
package session

import (
	"context"

	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/specialistvlad/hashgrid/internal/events"
	"github.com/specialistvlad/hashgrid/internal/executor"
	"github.com/specialistvlad/hashgrid/internal/graph"
	"github.com/specialistvlad/hashgrid/internal/scheduler"
)

// Config carries what a factory needs to wire a session.
type Config struct {
	Backend backend.Config
	// Workers limits concurrent jobs per level. Zero means unbounded.
	Workers  int
	Reporter events.Reporter
}

// SessionFactory creates an execution Session. Different implementations can
// support various backends, such as local or distributed execution.
type SessionFactory interface {
	NewSession(ctx context.Context, cfg Config) (Session, error)
}

// Session represents a single run: one process graph and the components that
// schedule and execute it.
type Session interface {
	Graph() graph.Graph
	Scheduler() scheduler.Scheduler
	Backend() *backend.Backend
	GetExecutor() (executor.Executor, error)
	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}

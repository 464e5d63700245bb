// Package scheduler orders the derivations of a process graph into levels.
//
// # How It Works
//
// Scheduling is level-synchronous Kahn's algorithm. Each round collects every
// remaining derivation whose dependencies were all emitted in earlier rounds;
// that collection is the next level. Members of a level never depend on each
// other, so a runner may execute a whole level concurrently and only needs a
// barrier between levels.
//
// If a round collects nothing while derivations remain, the remaining set
// contains a cycle or a dangling edge. That can only happen if the graph's
// invariants were broken, so it is reported as a fatal *DeadlockError rather
// than producing a partial schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

// ErrDeadlock is matched by every *DeadlockError.
var ErrDeadlock = errors.New("scheduler deadlock")

// Level is a set of derivations with no dependencies among themselves,
// ordered by ID string.
type Level []nodeid.ID

// Topology is the part of the process graph the scheduler reads.
type Topology interface {
	AllNodes(ctx context.Context) []*derivation.Derivation
	DependenciesOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error)
}

// Scheduler produces execution levels.
type Scheduler interface {
	// Levels schedules every derivation in the graph.
	Levels(ctx context.Context) ([]Level, error)

	// LevelsFor schedules target and everything it transitively depends on.
	// The target is always alone in the last level.
	LevelsFor(ctx context.Context, target nodeid.ID) ([]Level, error)
}

// DeadlockError reports derivations that could never become ready.
type DeadlockError struct {
	Remaining []nodeid.ID
}

func (e *DeadlockError) Error() string {
	names := make([]string, len(e.Remaining))
	for i, id := range e.Remaining {
		names[i] = id.String()
	}
	return fmt.Sprintf("%s: %d derivation(s) can never become ready: %s",
		ErrDeadlock, len(e.Remaining), strings.Join(names, ", "))
}

func (e *DeadlockError) Unwrap() error { return ErrDeadlock }

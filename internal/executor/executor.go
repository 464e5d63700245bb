// Package executor defines the interface for running a finalized derivation
// graph.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

// ErrAborted is returned when the run stopped before every level was
// processed because a level failed.
var ErrAborted = errors.New("run aborted")

// Executor runs derivations level by level. Each level is a barrier: every
// job in it finishes before the next level is submitted.
type Executor interface {
	// Execute runs every node in the graph.
	Execute(ctx context.Context) (Summary, error)
	// ExecuteTarget runs target and its transitive dependencies only.
	ExecuteTarget(ctx context.Context, target nodeid.ID) (Summary, error)
}

// Summary counts what happened during a run.
type Summary struct {
	Levels    int           `json:"levels" yaml:"levels"`
	Completed int           `json:"completed" yaml:"completed"`
	Cached    int           `json:"cached" yaml:"cached"`
	Failed    int           `json:"failed" yaml:"failed"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// LevelError reports the failures of one level. Err aggregates the error of
// every failed job in the level.
type LevelError struct {
	Level int
	Err   error
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("level %d failed: %v", e.Level, e.Err)
}

func (e *LevelError) Unwrap() error { return e.Err }

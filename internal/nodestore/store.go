// Package nodestore defines the interface for storing and retrieving the
// mutable execution state of derivations during a run.
//
// # Why Node Store Exists
//
// The node store isolates **execution state** (status, output location,
// errors) from the **append-only DAG structure** managed by topologystore.
// The runner writes to it while jobs execute; the status endpoint and the
// final report read from it.
//
// # State Transitions
//
// Derivations follow this lifecycle:
//
//	Pending → Running → Completed (exit status 0) OR Failed (error)
//	Pending → Cached (a previous run already completed the work)
package nodestore

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

// Status is the execution state of a derivation within one run.
type Status int

const (
	// StatusPending means the derivation has not been started.
	StatusPending Status = iota
	// StatusRunning means a job for the derivation is in flight.
	StatusRunning
	// StatusCached means a completed result already existed on disk.
	StatusCached
	// StatusCompleted means the job ran and exited successfully.
	StatusCompleted
	// StatusFailed means the job could not be started or exited non-zero.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCached:
		return "cached"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for c := StatusPending; c <= StatusFailed; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Satisfied reports whether dependents of a derivation in this state may run.
func (s Status) Satisfied() bool {
	return s == StatusCached || s == StatusCompleted
}

// Record is a point-in-time view of one derivation's state.
type Record struct {
	ID     nodeid.ID `json:"id" yaml:"id"`
	Status Status    `json:"status" yaml:"status"`
	Output string    `json:"output,omitempty" yaml:"output,omitempty"`
	Error  string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Store is the interface for managing the execution state of derivations.
//
// # Thread-Safety Requirements
//
// Implementations MUST be thread-safe, as every job of a level updates its
// own entry concurrently.
//
// # Typical Implementation
//
// See internal/inmemorystore for the reference in-memory implementation.
type Store interface {
	// SetStatus updates the execution status of a derivation.
	SetStatus(ctx context.Context, id nodeid.ID, status Status) error

	// GetStatus returns StatusPending if no status has been set yet.
	GetStatus(ctx context.Context, id nodeid.ID) (Status, error)

	// SetOutput records where a derivation's output lives.
	SetOutput(ctx context.Context, id nodeid.ID, path string) error

	// GetOutput returns the empty string if no output was recorded.
	GetOutput(ctx context.Context, id nodeid.ID) (string, error)

	// SetError records the failure of a derivation.
	SetError(ctx context.Context, id nodeid.ID, nodeErr error) error

	// GetError returns nil if the derivation has not failed.
	GetError(ctx context.Context, id nodeid.ID) (error, error)

	// Snapshot returns a record for every derivation with recorded state,
	// ordered by ID string.
	Snapshot(ctx context.Context) []Record
}

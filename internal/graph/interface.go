package graph

import (
	"context"
	"errors"

	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/nodestore"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrCycleDetected is returned when a finalized derivation references a
	// node that is not in the graph or would close a cycle.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrNotFound is returned by Lookup when nothing matches.
	ErrNotFound = errors.New("derivation not found")
	// ErrAmbiguous is returned by Lookup when a name matches several nodes.
	ErrAmbiguous = errors.New("ambiguous derivation name")
)

// Resolver produces one value per placeholder of d, in placeholder order.
type Resolver func(ctx context.Context, d *derivation.Derivation) ([]cty.Value, error)

// Graph is the main interface for building and querying the process graph.
//
// All methods are safe for concurrent use.
type Graph interface {
	// AddDerivation parses attributes into an unhashed derivation. The graph
	// is not modified.
	AddDerivation(ctx context.Context, attrs map[string]cty.Value) (*derivation.Derivation, error)

	// Finalize resolves d's placeholders, hashes it, and inserts it. If a node
	// with the same ID exists, the graph is unchanged and that ID is returned.
	// On any error the graph is unchanged and d is reset, so it may be
	// finalized again with different values.
	Finalize(ctx context.Context, d *derivation.Derivation, resolved []cty.Value) (nodeid.ID, error)

	// Submit runs AddDerivation, resolve, and Finalize in sequence.
	Submit(ctx context.Context, attrs map[string]cty.Value, resolve Resolver) (nodeid.ID, error)

	// Node returns the derivation with the given ID.
	Node(ctx context.Context, id nodeid.ID) (*derivation.Derivation, bool)

	// AllNodes returns every derivation, ordered by ID string.
	AllNodes(ctx context.Context) []*derivation.Derivation

	// Len returns the number of derivations.
	Len(ctx context.Context) int

	// DependenciesOf returns the IDs that id directly depends on.
	DependenciesOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error)

	// DependentsOf returns the IDs that directly depend on id.
	DependentsOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error)

	// Lookup resolves a canonical ID string or a derivation name to an ID.
	Lookup(ctx context.Context, ref string) (nodeid.ID, error)

	// NodeStatus returns the execution status of a derivation.
	NodeStatus(ctx context.Context, id nodeid.ID) (nodestore.Status, error)

	// Statuses returns the recorded state of every derivation.
	Statuses(ctx context.Context) []nodestore.Record

	// MarkRunning records that a job has been submitted.
	MarkRunning(ctx context.Context, id nodeid.ID) error
	// MarkCached records that a previous run's result was reused.
	MarkCached(ctx context.Context, id nodeid.ID, output string) error
	// MarkCompleted records that the job exited successfully.
	MarkCompleted(ctx context.Context, id nodeid.ID, output string) error
	// MarkFailed records the failure of a job.
	MarkFailed(ctx context.Context, id nodeid.ID, nodeErr error) error
}

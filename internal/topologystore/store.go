// Package topologystore defines the interface for storing and retrieving the
// static structure of the derivation graph.
//
// # Why Topology Store Exists
//
// The topology store isolates the **append-only DAG structure** (derivations
// and the edges between them) from the **per-run execution state** (status,
// errors) managed by nodestore.
//
// This separation keeps graph queries made by the scheduler independent of
// the state writes made while jobs run, and lets the structure be validated
// without running anything.
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per session.
//  2. **Populated** while the authoring layer finalizes derivations.
//  3. **Read-only** once execution begins.
//
// Nodes are keyed by content hash only. A node is never removed or replaced,
// and at every point in time the edge set is acyclic.
package topologystore

import (
	"context"
	"errors"

	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

var (
	// ErrNodeNotFound is returned when an operation names an ID that was
	// never inserted.
	ErrNodeNotFound = errors.New("node not found in topology")
	// ErrCycle is returned when an edge would make the graph cyclic.
	ErrCycle = errors.New("edge would create a cycle")
)

// Store is the interface for managing the topology of the derivation DAG.
//
// This interface does NOT manage execution state. That responsibility belongs
// to nodestore.Store.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use.
//
// # Typical Implementation
//
// See internal/inmemorytopology for the reference in-memory implementation.
type Store interface {
	// Insert atomically adds a hashed derivation together with an edge from
	// each of deps to it.
	//
	// If a node with the same ID already exists nothing changes and inserted
	// is false. If any dependency is unknown, ErrNodeNotFound is returned and
	// nothing changes.
	Insert(ctx context.Context, d *derivation.Derivation, deps []nodeid.ID) (inserted bool, err error)

	// AddDependency adds an edge meaning 'to' depends on 'from'. Both nodes
	// must exist. An edge that would close a cycle (including a self edge)
	// is rejected with ErrCycle and the topology is left untouched.
	AddDependency(ctx context.Context, from, to nodeid.ID) error

	// GetNode retrieves a single derivation by ID.
	GetNode(ctx context.Context, id nodeid.ID) (*derivation.Derivation, bool)

	// AllNodes returns a snapshot of every derivation, ordered by ID string.
	AllNodes(ctx context.Context) []*derivation.Derivation

	// Len returns the number of nodes.
	Len(ctx context.Context) int

	// DependenciesOf returns the IDs 'id' directly depends on, ordered by ID
	// string. It errors with ErrNodeNotFound for unknown IDs.
	DependenciesOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error)

	// DependentsOf returns the IDs that directly depend on 'id', ordered by
	// ID string.
	DependentsOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error)
}

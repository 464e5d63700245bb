// Package inmemorytopology provides a simple, thread-safe, in-memory
// implementation of the topologystore.Store interface.
package inmemorytopology

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/topologystore"
)

type idSet map[nodeid.ID]struct{}

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu         sync.RWMutex
	nodes      map[nodeid.ID]*derivation.Derivation
	deps       map[nodeid.ID]idSet // Key: node, Value: what it depends on
	dependents map[nodeid.ID]idSet // Key: node, Value: what depends on it
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		nodes:      make(map[nodeid.ID]*derivation.Derivation),
		deps:       make(map[nodeid.ID]idSet),
		dependents: make(map[nodeid.ID]idSet),
	}
}

// Insert adds a derivation and its incoming edges in one step.
func (s *Store) Insert(ctx context.Context, d *derivation.Derivation, deps []nodeid.ID) (bool, error) {
	id, ok := d.ID()
	if !ok {
		return false, fmt.Errorf("derivation %q has not been hashed", d.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[id]; exists {
		return false, nil
	}
	for _, dep := range deps {
		if dep == id {
			return false, fmt.Errorf("%w: %s depends on itself", topologystore.ErrCycle, id)
		}
		if _, exists := s.nodes[dep]; !exists {
			return false, fmt.Errorf("%w: dependency %s of %s", topologystore.ErrNodeNotFound, dep, id)
		}
	}

	s.nodes[id] = d
	for _, dep := range deps {
		s.link(dep, id)
	}
	return true, nil
}

// AddDependency creates a dependency link from one node to another.
func (s *Store) AddDependency(ctx context.Context, from, to nodeid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[from]; !exists {
		return fmt.Errorf("%w: dependency source %s", topologystore.ErrNodeNotFound, from)
	}
	if _, exists := s.nodes[to]; !exists {
		return fmt.Errorf("%w: dependency target %s", topologystore.ErrNodeNotFound, to)
	}
	if from == to || s.reachable(to, from) {
		return fmt.Errorf("%w: %s -> %s", topologystore.ErrCycle, from, to)
	}

	s.link(from, to)
	return nil
}

func (s *Store) link(from, to nodeid.ID) {
	if s.deps[to] == nil {
		s.deps[to] = make(idSet)
	}
	s.deps[to][from] = struct{}{}
	if s.dependents[from] == nil {
		s.dependents[from] = make(idSet)
	}
	s.dependents[from][to] = struct{}{}
}

// reachable reports whether target can be reached from start by following
// dependents edges. The caller must hold the lock.
func (s *Store) reachable(start, target nodeid.ID) bool {
	visited := make(idSet)
	stack := []nodeid.ID{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if _, seen := visited[cur]; seen {
			continue
		}
		visited[cur] = struct{}{}
		for next := range s.dependents[cur] {
			stack = append(stack, next)
		}
	}
	return false
}

// GetNode retrieves a single node by its ID.
func (s *Store) GetNode(ctx context.Context, id nodeid.ID) (*derivation.Derivation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.nodes[id]
	return d, ok
}

// AllNodes returns a slice of all nodes in the topology.
func (s *Store) AllNodes(ctx context.Context) []*derivation.Derivation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]nodeid.ID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)

	nodes := make([]*derivation.Derivation, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes
}

// Len returns the number of nodes in the topology.
func (s *Store) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// DependenciesOf returns the IDs of all nodes that the given node depends on.
func (s *Store) DependenciesOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error) {
	return s.edges(id, s.deps)
}

// DependentsOf returns the IDs of all nodes that depend on the given node.
func (s *Store) DependentsOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error) {
	return s.edges(id, s.dependents)
}

func (s *Store) edges(id nodeid.ID, index map[nodeid.ID]idSet) ([]nodeid.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.nodes[id]; !exists {
		return nil, fmt.Errorf("%w: %s", topologystore.ErrNodeNotFound, id)
	}

	set := index[id]
	out := make([]nodeid.ID, 0, len(set))
	for other := range set {
		out = append(out, other)
	}
	sortIDs(out)
	return out, nil
}

func sortIDs(ids []nodeid.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

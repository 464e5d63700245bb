// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Unlike inmemorytopology which uses RWMutex, this store uses sync.Map:
// every job in a level writes only its own keys, and the key space is
// stable once the run starts while values change frequently.
package inmemorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	states  sync.Map // Key: nodeid.ID, Value: nodestore.Status
	outputs sync.Map // Key: nodeid.ID, Value: string
	errors  sync.Map // Key: nodeid.ID, Value: error
}

// New creates a new, empty in-memory node state store.
func New() nodestore.Store {
	return &Store{}
}

// SetStatus updates the execution status of a specific derivation.
func (s *Store) SetStatus(ctx context.Context, id nodeid.ID, status nodestore.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the execution status of a specific derivation.
func (s *Store) GetStatus(ctx context.Context, id nodeid.ID) (nodestore.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return nodestore.StatusPending, nil
	}
	return status.(nodestore.Status), nil
}

// SetOutput records the output location of a derivation.
func (s *Store) SetOutput(ctx context.Context, id nodeid.ID, path string) error {
	s.outputs.Store(id, path)
	return nil
}

// GetOutput retrieves the recorded output location of a derivation.
func (s *Store) GetOutput(ctx context.Context, id nodeid.ID) (string, error) {
	path, ok := s.outputs.Load(id)
	if !ok {
		return "", nil
	}
	return path.(string), nil
}

// SetError records the failure error of a derivation.
func (s *Store) SetError(ctx context.Context, id nodeid.ID, nodeErr error) error {
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a failed derivation.
func (s *Store) GetError(ctx context.Context, id nodeid.ID) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// Snapshot collects the state of every derivation that has a status.
func (s *Store) Snapshot(ctx context.Context) []nodestore.Record {
	var records []nodestore.Record
	s.states.Range(func(k, v any) bool {
		id := k.(nodeid.ID)
		rec := nodestore.Record{ID: id, Status: v.(nodestore.Status)}
		if out, ok := s.outputs.Load(id); ok {
			rec.Output = out.(string)
		}
		if err, ok := s.errors.Load(id); ok {
			rec.Error = err.(error).Error()
		}
		records = append(records, rec)
		return true
	})
	sort.Slice(records, func(i, j int) bool { return records[i].ID.String() < records[j].ID.String() })
	return records
}

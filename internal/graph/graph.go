package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/nodestore"
	"github.com/specialistvlad/hashgrid/internal/topologystore"
	"github.com/zclconf/go-cty/cty"
)

// Manager implements Graph by delegating structure to a topology store and
// execution state to a node store.
type Manager struct {
	topology topologystore.Store
	state    nodestore.Store
}

// New creates a new graph manager.
func New(ts topologystore.Store, ns nodestore.Store) Graph {
	return &Manager{topology: ts, state: ns}
}

func (m *Manager) AddDerivation(ctx context.Context, attrs map[string]cty.Value) (*derivation.Derivation, error) {
	d, err := derivation.New(attrs)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Derivation parsed.", "name", d.Name(), "placeholders", len(d.Placeholders()))
	return d, nil
}

func (m *Manager) Finalize(ctx context.Context, d *derivation.Derivation, resolved []cty.Value) (id nodeid.ID, err error) {
	logger := ctxlog.FromContext(ctx)

	if err := d.Resolve(resolved); err != nil {
		return nodeid.ID{}, err
	}
	defer func() {
		if err != nil {
			d.Reset()
		}
	}()
	if id, err = d.WriteHash(); err != nil {
		return nodeid.ID{}, err
	}

	inserted, err := m.topology.Insert(ctx, d, d.Dependencies())
	if err != nil {
		if errors.Is(err, topologystore.ErrNodeNotFound) || errors.Is(err, topologystore.ErrCycle) {
			return nodeid.ID{}, fmt.Errorf("finalizing %q: %w: %w", d.Name(), ErrCycleDetected, err)
		}
		return nodeid.ID{}, fmt.Errorf("finalizing %q: %w", d.Name(), err)
	}

	if inserted {
		logger.Debug("Derivation inserted.", "hash", id.String(), "dependencies", len(d.Dependencies()))
	} else {
		logger.Debug("Derivation already present, reusing node.", "hash", id.String())
	}
	return id, nil
}

func (m *Manager) Submit(ctx context.Context, attrs map[string]cty.Value, resolve Resolver) (nodeid.ID, error) {
	d, err := m.AddDerivation(ctx, attrs)
	if err != nil {
		return nodeid.ID{}, err
	}
	var values []cty.Value
	if resolve != nil {
		if values, err = resolve(ctx, d); err != nil {
			return nodeid.ID{}, err
		}
	}
	return m.Finalize(ctx, d, values)
}

func (m *Manager) Node(ctx context.Context, id nodeid.ID) (*derivation.Derivation, bool) {
	return m.topology.GetNode(ctx, id)
}

func (m *Manager) AllNodes(ctx context.Context) []*derivation.Derivation {
	return m.topology.AllNodes(ctx)
}

func (m *Manager) Len(ctx context.Context) int {
	return m.topology.Len(ctx)
}

func (m *Manager) DependenciesOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error) {
	return m.topology.DependenciesOf(ctx, id)
}

func (m *Manager) DependentsOf(ctx context.Context, id nodeid.ID) ([]nodeid.ID, error) {
	return m.topology.DependentsOf(ctx, id)
}

func (m *Manager) Lookup(ctx context.Context, ref string) (nodeid.ID, error) {
	if id, err := nodeid.Parse(ref); err == nil {
		if _, ok := m.topology.GetNode(ctx, id); ok {
			return id, nil
		}
	}

	var matches []nodeid.ID
	for _, d := range m.topology.AllNodes(ctx) {
		if d.Name() == ref {
			id, _ := d.ID()
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return nodeid.ID{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nodeid.ID{}, fmt.Errorf("%w: %q matches %d derivations, use a hash", ErrAmbiguous, ref, len(matches))
	}
}

func (m *Manager) NodeStatus(ctx context.Context, id nodeid.ID) (nodestore.Status, error) {
	return m.state.GetStatus(ctx, id)
}

func (m *Manager) Statuses(ctx context.Context) []nodestore.Record {
	return m.state.Snapshot(ctx)
}

func (m *Manager) MarkRunning(ctx context.Context, id nodeid.ID) error {
	return m.state.SetStatus(ctx, id, nodestore.StatusRunning)
}

func (m *Manager) MarkCached(ctx context.Context, id nodeid.ID, output string) error {
	if err := m.state.SetOutput(ctx, id, output); err != nil {
		return err
	}
	return m.state.SetStatus(ctx, id, nodestore.StatusCached)
}

func (m *Manager) MarkCompleted(ctx context.Context, id nodeid.ID, output string) error {
	if err := m.state.SetOutput(ctx, id, output); err != nil {
		return err
	}
	return m.state.SetStatus(ctx, id, nodestore.StatusCompleted)
}

func (m *Manager) MarkFailed(ctx context.Context, id nodeid.ID, nodeErr error) error {
	if err := m.state.SetError(ctx, id, nodeErr); err != nil {
		return err
	}
	return m.state.SetStatus(ctx, id, nodestore.StatusFailed)
}

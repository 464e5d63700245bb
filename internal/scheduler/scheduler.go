package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

// DefaultScheduler is the reference implementation of the Scheduler interface.
type DefaultScheduler struct {
	graph Topology
}

// New creates a new default scheduler for the given graph.
func New(g Topology) Scheduler {
	return &DefaultScheduler{graph: g}
}

// Levels implements the Scheduler interface.
func (s *DefaultScheduler) Levels(ctx context.Context) ([]Level, error) {
	nodes := s.graph.AllNodes(ctx)
	ids := make([]nodeid.ID, 0, len(nodes))
	for _, d := range nodes {
		id, _ := d.ID()
		ids = append(ids, id)
	}
	return s.levels(ctx, ids)
}

// LevelsFor implements the Scheduler interface.
func (s *DefaultScheduler) LevelsFor(ctx context.Context, target nodeid.ID) ([]Level, error) {
	closure, err := s.closure(ctx, target)
	if err != nil {
		return nil, err
	}
	return s.levels(ctx, closure)
}

// closure returns target and all of its transitive dependencies.
func (s *DefaultScheduler) closure(ctx context.Context, target nodeid.ID) ([]nodeid.ID, error) {
	seen := map[nodeid.ID]struct{}{target: {}}
	stack := []nodeid.ID{target}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		deps, err := s.graph.DependenciesOf(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("collecting dependencies of %s: %w", cur, err)
		}
		for _, dep := range deps {
			if _, ok := seen[dep]; !ok {
				seen[dep] = struct{}{}
				stack = append(stack, dep)
			}
		}
	}

	out := make([]nodeid.ID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (s *DefaultScheduler) levels(ctx context.Context, ids []nodeid.ID) ([]Level, error) {
	logger := ctxlog.FromContext(ctx)

	deps := make(map[nodeid.ID][]nodeid.ID, len(ids))
	remaining := make(map[nodeid.ID]struct{}, len(ids))
	for _, id := range ids {
		d, err := s.graph.DependenciesOf(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", id, err)
		}
		deps[id] = d
		remaining[id] = struct{}{}
	}

	emitted := make(map[nodeid.ID]struct{}, len(ids))
	var levels []Level
	for len(remaining) > 0 {
		var level Level
		for id := range remaining {
			if allEmitted(deps[id], emitted) {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			stuck := make([]nodeid.ID, 0, len(remaining))
			for id := range remaining {
				stuck = append(stuck, id)
			}
			sortIDs(stuck)
			return nil, &DeadlockError{Remaining: stuck}
		}

		sortIDs(level)
		for _, id := range level {
			delete(remaining, id)
			emitted[id] = struct{}{}
		}
		logger.Debug("Level scheduled.", "level", len(levels), "size", len(level))
		levels = append(levels, level)
	}
	return levels, nil
}

func allEmitted(deps []nodeid.ID, emitted map[nodeid.ID]struct{}) bool {
	for _, dep := range deps {
		if _, ok := emitted[dep]; !ok {
			return false
		}
	}
	return true
}

func sortIDs(ids []nodeid.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

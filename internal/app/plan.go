package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/scheduler"
	"github.com/specialistvlad/hashgrid/internal/session"
	"gopkg.in/yaml.v3"
)

// Plan is the schedule a run would execute, with each derivation's cache
// state at planning time.
type Plan struct {
	RunID  string      `yaml:"run"`
	Root   string      `yaml:"root"`
	Levels []PlanLevel `yaml:"levels"`
}

// PlanLevel is one barrier-separated group of derivations.
type PlanLevel struct {
	Index       int         `yaml:"level"`
	Derivations []PlanEntry `yaml:"derivations"`
}

// PlanEntry describes one scheduled derivation.
type PlanEntry struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Cache        string   `yaml:"cache"`
	Output       string   `yaml:"output"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// buildPlan schedules the session's graph, or target's closure, without
// running anything.
func buildPlan(ctx context.Context, sess session.Session, runID string, target *nodeid.ID) (*Plan, error) {
	var (
		levels []scheduler.Level
		err    error
	)
	if target != nil {
		levels, err = sess.Scheduler().LevelsFor(ctx, *target)
	} else {
		levels, err = sess.Scheduler().Levels(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: %w", err)
	}

	be := sess.Backend()
	plan := &Plan{RunID: runID, Root: be.Root(), Levels: make([]PlanLevel, 0, len(levels))}
	for i, level := range levels {
		pl := PlanLevel{Index: i, Derivations: make([]PlanEntry, 0, len(level))}
		for _, id := range level {
			state, err := be.Status(id)
			if err != nil {
				return nil, err
			}
			deps, err := sess.Graph().DependenciesOf(ctx, id)
			if err != nil {
				return nil, err
			}
			entry := PlanEntry{
				ID:     id.String(),
				Name:   id.Name,
				Cache:  state.String(),
				Output: be.Paths(id).Out,
			}
			for _, dep := range deps {
				entry.Dependencies = append(entry.Dependencies, dep.String())
			}
			pl.Derivations = append(pl.Derivations, entry)
		}
		plan.Levels = append(plan.Levels, pl)
	}
	return plan, nil
}

func (a *App) printPlan(ctx context.Context, sess session.Session, target *nodeid.ID) error {
	plan, err := buildPlan(ctx, sess, a.runID, target)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(a.outW)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	return enc.Close()
}

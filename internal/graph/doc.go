// Package graph provides the process graph: a unified facade that combines the
// content-addressed DAG of derivations (topologystore) with their per-run
// execution state (nodestore).
//
// # Architecture: The Facade Pattern
//
//	┌─────────────────────────────────────┐
//	│           Graph Facade              │
//	│  (insertion for the authoring layer,│
//	│   queries for scheduler and runner) │
//	└──────────┬────────────┬─────────────┘
//	           │            │
//	           ▼            ▼
//	  ┌────────────┐  ┌────────────┐
//	  │  Topology  │  │ Node State │
//	  │   Store    │  │   Store    │
//	  │ (Structure)│  │  (Status)  │
//	  └────────────┘  └────────────┘
//
// # Insertion Protocol
//
// The authoring layer talks to the graph in two steps:
//
//	d, err := g.AddDerivation(ctx, attrs)     // parse, nothing inserted yet
//	values := evaluate(d.Placeholders())      // may finalize other derivations
//	id, err := g.Finalize(ctx, d, values)     // hash, then insert or dedupe
//
// Submit combines both steps around a Resolver callback.
//
// Because a derivation's ID covers its fully resolved script, and resolved
// scripts embed the IDs of everything they reference, two submissions with
// the same name and the same resolved text always collapse to one node.
package graph

package graph

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/xlab/treeprint"
)

// Display renders the graph as a tree rooted at every derivation nothing
// depends on. Shared dependencies appear under each of their dependents.
func Display(ctx context.Context, g Graph) string {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%d derivation(s)", g.Len(ctx)))

	for _, d := range g.AllNodes(ctx) {
		id, _ := d.ID()
		dependents, err := g.DependentsOf(ctx, id)
		if err != nil || len(dependents) > 0 {
			continue
		}
		addTreeNode(ctx, g, tree, id)
	}
	return tree.String()
}

func addTreeNode(ctx context.Context, g Graph, parent treeprint.Tree, id nodeid.ID) {
	deps, _ := g.DependenciesOf(ctx, id)
	if len(deps) == 0 {
		parent.AddNode(id.String())
		return
	}
	branch := parent.AddBranch(id.String())
	for _, dep := range deps {
		addTreeNode(ctx, g, branch, dep)
	}
}

// DOT renders the graph in Graphviz dot syntax. Edges point from a
// dependency to its dependent.
func DOT(ctx context.Context, g Graph) string {
	var b strings.Builder
	b.WriteString("digraph hashgrid {\n")
	b.WriteString("  rankdir=LR;\n")

	nodes := g.AllNodes(ctx)
	for _, d := range nodes {
		id, _ := d.ID()
		fmt.Fprintf(&b, "  %s [label=%s];\n", strconv.Quote(id.String()), strconv.Quote(d.Name()))
	}
	for _, d := range nodes {
		id, _ := d.ID()
		deps, _ := g.DependenciesOf(ctx, id)
		for _, dep := range deps {
			fmt.Fprintf(&b, "  %s -> %s;\n", strconv.Quote(dep.String()), strconv.Quote(id.String()))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

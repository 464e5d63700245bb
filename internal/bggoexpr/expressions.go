package bggoexpr

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// TraversalKey renders a traversal as source text, e.g. `derivation.a` or
// `derivation["with-dash"]`. Equal traversals have equal keys.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// scan collects the variables referenced and the functions called by exprs.
type scan struct {
	refs  map[string]hcl.Traversal
	calls map[string]struct{}
}

func scanExpressions(exprs ...hcl.Expression) ([]hcl.Traversal, []string) {
	s := scan{refs: map[string]hcl.Traversal{}, calls: map[string]struct{}{}}
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		for _, t := range expr.Variables() {
			s.refs[TraversalKey(t)] = t
		}
		if node, ok := expr.(hclsyntax.Node); ok {
			hclsyntax.VisitAll(node, s.visit)
		}
	}
	return s.references(), sortedKeys(s.calls)
}

func (s scan) visit(node hclsyntax.Node) hcl.Diagnostics {
	if call, ok := node.(*hclsyntax.FunctionCallExpr); ok {
		s.calls[call.Name] = struct{}{}
	}
	return nil
}

func (s scan) references() []hcl.Traversal {
	keys := make([]string, 0, len(s.refs))
	for k := range s.refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]hcl.Traversal, len(keys))
	for i, k := range keys {
		out[i] = s.refs[k]
	}
	return out
}

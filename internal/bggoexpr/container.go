// Package bggoexpr analyzes HCL expressions: which variables they reference
// and which functions they call.
package bggoexpr

import (
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Container gathers the expressions of one declaration and caches the
// analysis of them. It is safe for concurrent readers once all Adds are done.
type Container struct {
	analyzeOnce sync.Once

	mu          sync.RWMutex
	expressions []hcl.Expression

	references      []hcl.Traversal
	calledFunctions []string
}

// NewContainer creates a new, empty expression container.
func NewContainer(exprs ...hcl.Expression) *Container {
	c := &Container{}
	c.Add(exprs...)
	return c
}

// Add adds expressions to the container. Nil expressions are ignored. Adding
// invalidates earlier analysis, so Add must not race with the getters.
func (c *Container) Add(exprs ...hcl.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.analyzeOnce = sync.Once{}
	for _, expr := range exprs {
		if expr != nil {
			c.expressions = append(c.expressions, expr)
		}
	}
}

func (c *Container) analyze() {
	c.analyzeOnce.Do(func() {
		c.mu.RLock()
		refs, funcs := scanExpressions(c.expressions...)
		c.mu.RUnlock()

		c.mu.Lock()
		c.references = refs
		c.calledFunctions = funcs
		c.mu.Unlock()
	})
}

// References returns all unique variable traversals, sorted by TraversalKey.
func (c *Container) References() []hcl.Traversal {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.references
}

// CalledFunctions returns all unique function names, sorted.
func (c *Container) CalledFunctions() []string {
	c.analyze()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calledFunctions
}

// Roots returns the sorted, unique root variable names that are referenced.
func (c *Container) Roots() []string {
	set := make(map[string]struct{})
	for _, t := range c.References() {
		set[t.RootName()] = struct{}{}
	}
	return sortedKeys(set)
}

// AttributesOf returns the sorted, unique attribute names accessed directly
// on the root variable named root. For `derivation.a.b` and
// `derivation["c"]` under root "derivation" it returns [a c].
func (c *Container) AttributesOf(root string) []string {
	set := make(map[string]struct{})
	for _, t := range c.References() {
		if t.RootName() != root || len(t) < 2 {
			continue
		}
		switch step := t[1].(type) {
		case hcl.TraverseAttr:
			set[step.Name] = struct{}{}
		case hcl.TraverseIndex:
			if step.Key.Type().Equals(cty.String) && step.Key.IsKnown() && !step.Key.IsNull() {
				set[step.Key.AsString()] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

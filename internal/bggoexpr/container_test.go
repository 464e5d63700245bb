package bggoexpr_test

import (
	"sync"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/hashgrid/internal/bggoexpr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseExpr is a test helper to quickly get an hcl.Expression from a string.
func parseExpr(t *testing.T, exprStr string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(exprStr), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), "Expression parsing failed: %s", diags.Error())
	return expr
}

func keysOf(refs []hcl.Traversal) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = bggoexpr.TraversalKey(r)
	}
	return out
}

func TestContainer_AddAndExtract(t *testing.T) {
	c := bggoexpr.NewContainer(
		parseExpr(t, `upper(param.greeting)`),
		parseExpr(t, `derivation.build`),
		parseExpr(t, `join(" ", [derivation.a, lower(param.x)])`),
		parseExpr(t, `derivation.build`),
	)

	assert.Equal(t, []string{"join", "lower", "upper"}, c.CalledFunctions())
	assert.Equal(t,
		[]string{"derivation.a", "derivation.build", "param.greeting", "param.x"},
		keysOf(c.References()))
	assert.Equal(t, []string{"derivation", "param"}, c.Roots())
	assert.Equal(t, []string{"a", "build"}, c.AttributesOf("derivation"))
	assert.Empty(t, c.AttributesOf("out"))
}

func TestContainer_IndexedAttributes(t *testing.T) {
	c := bggoexpr.NewContainer(
		parseExpr(t, `derivation["with-dash"]`),
		parseExpr(t, `derivation`),
		parseExpr(t, `out`),
	)
	assert.Equal(t, []string{"with-dash"}, c.AttributesOf("derivation"))
	assert.Equal(t, []string{"derivation", "out"}, c.Roots())
}

func TestContainer_AddAfterExtract(t *testing.T) {
	c := bggoexpr.NewContainer(parseExpr(t, `param.first`))
	require.Equal(t, []string{"param.first"}, keysOf(c.References()))

	c.Add(parseExpr(t, `param.second`), parseExpr(t, `my_func()`))

	assert.Equal(t, []string{"my_func"}, c.CalledFunctions())
	assert.Equal(t, []string{"param.first", "param.second"}, keysOf(c.References()))
}

func TestContainer_ConcurrentAccess(t *testing.T) {
	c := bggoexpr.NewContainer(
		parseExpr(t, `derivation.a`),
		parseExpr(t, `derivation.b`),
		parseExpr(t, `upper("x")`),
	)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				assert.Len(t, c.References(), 2)
			} else {
				assert.Len(t, c.CalledFunctions(), 1)
			}
		}()
	}
	wg.Wait()
}

func TestContainer_EdgeCases(t *testing.T) {
	t.Run("Empty Container", func(t *testing.T) {
		c := bggoexpr.NewContainer()
		require.Empty(t, c.References())
		require.Empty(t, c.CalledFunctions())
	})

	t.Run("Adding Nil Expressions", func(t *testing.T) {
		c := bggoexpr.NewContainer()
		c.Add(nil, parseExpr(t, `param.a`), nil)
		require.Equal(t, []string{"param.a"}, keysOf(c.References()))
	})

	t.Run("Functions inside templates", func(t *testing.T) {
		c := bggoexpr.NewContainer(parseExpr(t, `"a-${upper(param.b)}"`))
		require.Equal(t, []string{"upper"}, c.CalledFunctions())
	})
}

func TestCheckFunctions(t *testing.T) {
	funcs := bggoexpr.Functions()
	require.NoError(t, bggoexpr.CheckFunctions(bggoexpr.NewContainer(parseExpr(t, `upper(trimspace(" a "))`)), funcs))

	err := bggoexpr.CheckFunctions(bggoexpr.NewContainer(parseExpr(t, `file("x") + md5("y")`)), funcs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file, md5")
	assert.Contains(t, err.Error(), "upper")
}

func TestContainer_NestedCalls(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"object key", `{(upper("k")) = 1}`, []string{"upper"}},
		{"template for directive", `"%{ for v in [lower("a")] }${trimspace(v)}%{ endfor }"`, []string{"lower", "trimspace"}},
		{"splat source", `tolist(param.xs)[*].name`, []string{"tolist"}},
		{"conditional", `param.x ? min(1, 2) : max(3, 4)`, []string{"max", "min"}},
		{"call argument", `join(",", split(" ", param.y))`, []string{"join", "split"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bggoexpr.NewContainer(parseExpr(t, tt.expr))
			assert.Equal(t, tt.want, c.CalledFunctions())
		})
	}
}

package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/hashgrid/internal/bggoexpr"
	"github.com/specialistvlad/hashgrid/internal/config"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/graph"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Variable roots available to grid expressions.
const (
	RootOut        = "out"
	RootDerivation = "derivation"
	RootParam      = "param"
)

// Builder finalizes declarations into a graph.
type Builder struct {
	graph  graph.Graph
	params map[string]string
	funcs  map[string]function.Function
}

// New creates a builder that submits into g. params are exposed to
// expressions as `param.<key>`.
func New(g graph.Graph, params map[string]string) *Builder {
	return &Builder{
		graph:  g,
		params: params,
		funcs:  bggoexpr.Functions(),
	}
}

// Result maps declaration labels to the IDs they were finalized as. Labels
// whose declarations are identical share an ID.
type Result map[string]nodeid.ID

// Labels returns the result's labels in sorted order.
func (r Result) Labels() []string {
	out := make([]string, 0, len(r))
	for l := range r {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Build finalizes every declaration of model. On error the graph keeps the
// derivations that were finalized before the failing one.
func (b *Builder) Build(ctx context.Context, model *config.Model) (Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "declarations", len(model.Derivations))

	run := &buildRun{
		Builder:  b,
		decls:    make(map[string]*config.Derivation, len(model.Derivations)),
		done:     make(Result, len(model.Derivations)),
		visiting: make(map[string]bool),
	}
	for _, d := range model.Derivations {
		run.decls[d.Label] = d
	}

	for _, d := range model.Derivations {
		if _, err := run.finalize(ctx, d.Label, nil); err != nil {
			return run.done, err
		}
	}

	logger.Info("Build: Graph construction successful.", "declarations", len(run.done), "nodes", b.graph.Len(ctx))
	return run.done, nil
}

type buildRun struct {
	*Builder
	decls    map[string]*config.Derivation
	done     Result
	visiting map[string]bool
}

func (r *buildRun) finalize(ctx context.Context, label string, chain []string) (nodeid.ID, error) {
	if id, ok := r.done[label]; ok {
		return id, nil
	}
	chain = append(chain, label)
	if r.visiting[label] {
		return nodeid.ID{}, fmt.Errorf("%w: %s", graph.ErrCycleDetected, strings.Join(chain, " -> "))
	}
	decl, ok := r.decls[label]
	if !ok {
		return nodeid.ID{}, fmt.Errorf("unknown derivation %q", label)
	}

	r.visiting[label] = true
	defer delete(r.visiting, label)

	exprs := bggoexpr.NewContainer(decl.Expressions()...)
	if err := r.analyze(decl, exprs); err != nil {
		return nodeid.ID{}, err
	}
	for _, dep := range exprs.AttributesOf(RootDerivation) {
		if _, err := r.finalize(ctx, dep, chain); err != nil {
			return nodeid.ID{}, err
		}
	}

	evalCtx := r.evalContext()
	attrs := map[string]cty.Value{
		derivation.AttrName:   cty.StringVal(decl.Label),
		derivation.AttrScript: cty.StringVal(decl.Script),
	}
	for name, expr := range decl.Attributes {
		v, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nodeid.ID{}, fmt.Errorf("%s: attribute %q: %w", decl, name, diags)
		}
		attrs[name] = v
	}

	id, err := r.graph.Submit(ctx, attrs, func(_ context.Context, d *derivation.Derivation) ([]cty.Value, error) {
		return r.resolve(decl, d.Placeholders(), evalCtx)
	})
	if err != nil {
		return nodeid.ID{}, fmt.Errorf("%s: %w", decl, err)
	}

	ctxlog.FromContext(ctx).Debug("Derivation finalized.", "label", label, "derivation", id.String())
	r.done[label] = id
	return id, nil
}

// analyze validates functions and references before evaluation.
func (r *buildRun) analyze(decl *config.Derivation, exprs *bggoexpr.Container) error {
	if err := bggoexpr.CheckFunctions(exprs, r.funcs); err != nil {
		return fmt.Errorf("%s: %w", decl, err)
	}
	for _, ref := range exprs.References() {
		switch ref.RootName() {
		case RootOut:
		case RootParam:
		case RootDerivation:
			if len(ref) < 2 {
				return fmt.Errorf("%s: %q must name a derivation, as in derivation.<label>", decl, bggoexpr.TraversalKey(ref))
			}
		default:
			return fmt.Errorf("%s: unknown variable %q; available: %s, %s.<label>, %s.<key>",
				decl, ref.RootName(), RootOut, RootDerivation, RootParam)
		}
	}
	for _, dep := range exprs.AttributesOf(RootDerivation) {
		if _, ok := r.decls[dep]; !ok {
			return fmt.Errorf("%s: unknown derivation %q", decl, dep)
		}
	}
	return nil
}

// resolve evaluates the placeholders of a derivation in order.
func (r *buildRun) resolve(decl *config.Derivation, placeholders []string, evalCtx *hcl.EvalContext) ([]cty.Value, error) {
	out := make([]cty.Value, 0, len(placeholders))
	for _, text := range placeholders {
		expr, ok := decl.Placeholders[text]
		if !ok {
			var diags hcl.Diagnostics
			expr, diags = hclsyntax.ParseExpression([]byte(text), decl.DefRange.Filename, decl.DefRange.Start)
			if diags.HasErrors() {
				return nil, fmt.Errorf("placeholder %q: %w", text, diags)
			}
		}
		v, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("placeholder %q: %w", text, diags)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *buildRun) evalContext() *hcl.EvalContext {
	refs := make(map[string]cty.Value, len(r.done))
	for label, id := range r.done {
		refs[label] = value.RefVal(id)
	}
	params := make(map[string]cty.Value, len(r.params))
	for k, v := range r.params {
		params[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			RootOut:        value.OutVal(),
			RootDerivation: objectOrEmpty(refs),
			RootParam:      objectOrEmpty(params),
		},
		Functions: r.funcs,
	}
}

func objectOrEmpty(m map[string]cty.Value) cty.Value {
	if len(m) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(m)
}

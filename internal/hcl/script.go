package hcl

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// rebuildScript turns a script template expression back into template text.
// Literal parts are copied with `${` escaped; every interpolation is written
// as `${<source text>}` and its expression is returned keyed by that text.
func rebuildScript(expr hcl.Expression, src []byte) (string, map[string]hcl.Expression, hcl.Diagnostics) {
	var parts []hclsyntax.Expression
	switch e := expr.(type) {
	case *hclsyntax.TemplateExpr:
		parts = e.Parts
	case *hclsyntax.TemplateWrapExpr:
		parts = []hclsyntax.Expression{e.Wrapped}
	case *hclsyntax.LiteralValueExpr:
		if !e.Val.Type().Equals(cty.String) {
			return "", nil, scriptDiag(expr, "The script must be a string template.")
		}
		parts = []hclsyntax.Expression{e}
	default:
		return "", nil, scriptDiag(expr, "The script must be a quoted string or heredoc template, not a computed expression.")
	}

	var b strings.Builder
	placeholders := make(map[string]hcl.Expression)
	for _, part := range parts {
		switch p := part.(type) {
		case *hclsyntax.LiteralValueExpr:
			if p.Val.IsNull() || !p.Val.Type().Equals(cty.String) {
				return "", nil, scriptDiag(part, "Unexpected non-string literal in script template.")
			}
			b.WriteString(strings.ReplaceAll(p.Val.AsString(), "${", "$${"))
		case *hclsyntax.TemplateJoinExpr:
			return "", nil, directiveDiag(part)
		default:
			text := strings.TrimSpace(string(part.Range().SliceBytes(src)))
			// An if directive parses to a conditional whose range starts at
			// the directive marker.
			if strings.HasPrefix(text, "%{") {
				return "", nil, directiveDiag(part)
			}
			if text == "" {
				return "", nil, scriptDiag(part, "Empty interpolation in script template.")
			}
			b.WriteString("${")
			b.WriteString(text)
			b.WriteString("}")
			placeholders[text] = part
		}
	}
	return b.String(), placeholders, nil
}

func directiveDiag(expr hcl.Expression) hcl.Diagnostics {
	return scriptDiag(expr, "Template directives (%{ ... }) are not supported in scripts. Escape a literal %{ as %%{.")
}

func scriptDiag(expr hcl.Expression, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Invalid script",
		Detail:   detail,
		Subject:  expr.Range().Ptr(),
	}}
}

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/hashgrid/internal/config"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/fsutil"
	"github.com/specialistvlad/hashgrid/internal/schema"
	"github.com/spf13/afero"
)

// FileExtension is the suffix of grid files.
const FileExtension = ".hcl"

// Loader implements config.Loader for HCL grid files.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a loader that reads from fsys.
func NewLoader(fsys afero.Fs) *Loader {
	return &Loader{fs: fsys}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every grid file found under paths. Each path may be a file or a
// directory, which is searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()
	model := &config.Model{}
	seen := make(map[string]*config.Derivation)

	for _, root := range paths {
		files, err := fsutil.FindFilesByExtension(l.fs, root, FileExtension)
		if err != nil {
			return nil, fmt.Errorf("failed to find grid files in %s: %w", root, err)
		}
		if len(files) == 0 {
			logger.Warn("No grid files found in path.", "path", root)
		}

		for _, path := range files {
			derivations, err := l.loadFile(ctx, parser, path)
			if err != nil {
				return nil, err
			}
			for _, d := range derivations {
				if prev, dup := seen[d.Label]; dup {
					return nil, fmt.Errorf("duplicate derivation label %q: declared at %s and %s", d.Label, prev.DefRange, d.DefRange)
				}
				seen[d.Label] = d
				model.Derivations = append(model.Derivations, d)
			}
		}
	}

	logger.Debug("Grid files loaded.", "derivations", len(model.Derivations))
	return model, nil
}

func (l *Loader) loadFile(ctx context.Context, parser *hclparse.Parser, path string) ([]*config.Derivation, error) {
	ctxlog.FromContext(ctx).Debug("Decoding grid file.", "path", path)

	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid file %s: %w", path, err)
	}
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var grid schema.GridConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &grid); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	if diags := rejectExtras(grid.Body); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	out := make([]*config.Derivation, 0, len(grid.Derivations))
	for _, block := range grid.Derivations {
		d, diags := translateDerivation(block, file.Bytes)
		if diags.HasErrors() {
			return nil, fmt.Errorf("error in derivation %q in file %s: %w", block.Label, path, diags)
		}
		out = append(out, d)
	}
	return out, nil
}

// translateDerivation converts a decoded block into the agnostic model.
func translateDerivation(block *schema.Derivation, src []byte) (*config.Derivation, hcl.Diagnostics) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	rng := block.Body.MissingItemRange()
	scriptAttr, ok := attrs[derivation.AttrScript]
	if !ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing script",
			Detail:   fmt.Sprintf("Derivation %q has no %q attribute.", block.Label, derivation.AttrScript),
			Subject:  &rng,
		}}
	}

	script, placeholders, diags := rebuildScript(scriptAttr.Expr, src)
	if diags.HasErrors() {
		return nil, diags
	}

	rest := make(map[string]hcl.Expression, len(attrs)-1)
	for name, attr := range attrs {
		if name != derivation.AttrScript {
			rest[name] = attr.Expr
		}
	}

	return &config.Derivation{
		Label:        block.Label,
		Script:       script,
		Placeholders: placeholders,
		Attributes:   rest,
		DefRange:     rng,
	}, nil
}

// rejectExtras reports top-level content other than derivation blocks.
func rejectExtras(body hcl.Body) hcl.Diagnostics {
	if body == nil {
		return nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	for _, attr := range attrs {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unexpected attribute",
			Detail:   fmt.Sprintf("Top-level attribute %q is not allowed; declare derivation blocks.", attr.Name),
			Subject:  &attr.NameRange,
		})
	}
	return diags
}

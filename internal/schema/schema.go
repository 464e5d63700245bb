// Package schema holds the gohcl decoding targets for grid files.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Derivation represents a `derivation` block. Its attributes are kept as a raw
// body because the set of hint attributes is open and the script attribute
// needs its template parts, not an evaluated value.
type Derivation struct {
	Label string   `hcl:"label,label"`
	Body  hcl.Body `hcl:",remain"`
}

// GridConfig represents the top-level structure of a grid file.
type GridConfig struct {
	Derivations []*Derivation `hcl:"derivation,block"`
	Body        hcl.Body      `hcl:",remain"`
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Loader reads grid definitions from files or directories.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is the unified representation of every grid file that was loaded.
type Model struct {
	// Derivations are kept in declaration order: files sorted by path, blocks
	// in source order.
	Derivations []*Derivation
}

// Lookup returns the derivation declared with label.
func (m *Model) Lookup(label string) (*Derivation, bool) {
	for _, d := range m.Derivations {
		if d.Label == label {
			return d, true
		}
	}
	return nil, false
}

// Derivation is the format-agnostic form of a `derivation` block.
type Derivation struct {
	// Label is the block label. Other derivations reference this one through
	// it, and it is the default derivation name.
	Label string
	// Script is the template text with every interpolation written back as
	// `${<source>}`. Literal `${` sequences are escaped as `$${`.
	Script string
	// Placeholders maps the trimmed source text of each interpolation to its
	// parsed expression.
	Placeholders map[string]hcl.Expression
	// Attributes holds every attribute other than the script, unevaluated.
	Attributes map[string]hcl.Expression
	// DefRange is where the block was declared, for diagnostics.
	DefRange hcl.Range
}

// Expressions returns every expression of the declaration, placeholders first.
func (d *Derivation) Expressions() []hcl.Expression {
	out := make([]hcl.Expression, 0, len(d.Placeholders)+len(d.Attributes))
	for _, e := range d.Placeholders {
		out = append(out, e)
	}
	for _, e := range d.Attributes {
		out = append(out, e)
	}
	return out
}

func (d *Derivation) String() string {
	return fmt.Sprintf("derivation %q (%s)", d.Label, d.DefRange)
}

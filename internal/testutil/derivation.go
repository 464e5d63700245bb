package testutil

import (
	"testing"

	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// NewDerivation builds a finalized derivation. values fill the script's
// placeholders in order.
func NewDerivation(t *testing.T, name, script string, values ...cty.Value) *derivation.Derivation {
	t.Helper()
	return NewDerivationWith(t, map[string]cty.Value{}, name, script, values...)
}

// NewDerivationWith is NewDerivation with extra attributes such as hints.
func NewDerivationWith(t *testing.T, extra map[string]cty.Value, name, script string, values ...cty.Value) *derivation.Derivation {
	t.Helper()

	attrs := map[string]cty.Value{
		derivation.AttrName:   cty.StringVal(name),
		derivation.AttrScript: cty.StringVal(script),
	}
	for k, v := range extra {
		attrs[k] = v
	}

	d, err := derivation.New(attrs)
	require.NoError(t, err)
	require.NoError(t, d.Resolve(values))
	_, err = d.WriteHash()
	require.NoError(t, err)
	return d
}

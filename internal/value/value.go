// Package value defines how derivation attribute values are represented and
// turned into script text.
//
// Attribute values are cty.Values. A reference to another derivation is a
// capsule of DerivationType wrapping the referenced derivation's ID, so it
// can sit anywhere inside lists, maps and objects and still be found by
// Dependencies.
package value

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

const (
	// OutToken stands for the current derivation's output path. It is part of
	// the hashed script text and is replaced only when the job is assembled.
	OutToken = "@@hashgrid:out@@"

	depTokenPrefix = "@@hashgrid:dep:"
	depTokenSuffix = "@@"
)

// ErrUnknown is returned when rendering a value that is not yet known.
var ErrUnknown = errors.New("value is not known")

// Ref is the Go value wrapped by a DerivationType capsule.
type Ref struct {
	ID nodeid.ID
}

// DerivationType is the cty type of a reference to a finalized derivation.
var DerivationType = cty.CapsuleWithOps("derivation", reflect.TypeOf(Ref{}), &cty.CapsuleOps{
	Equals: func(a, b any) cty.Value {
		return cty.BoolVal(a.(*Ref).ID == b.(*Ref).ID)
	},
	RawEquals: func(a, b any) bool {
		return a.(*Ref).ID == b.(*Ref).ID
	},
	HashKey: func(v any) string {
		return v.(*Ref).ID.String()
	},
})

// RefVal returns a reference to the derivation identified by id.
func RefVal(id nodeid.ID) cty.Value {
	return cty.CapsuleVal(DerivationType, &Ref{ID: id})
}

// AsRef extracts the referenced ID from v.
func AsRef(v cty.Value) (nodeid.ID, bool) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(DerivationType) {
		return nodeid.ID{}, false
	}
	return v.EncapsulatedValue().(*Ref).ID, true
}

// OutVal is the value bound to `out` while resolving placeholders.
func OutVal() cty.Value {
	return cty.StringVal(OutToken)
}

// DepToken is the script text a reference to id renders to.
func DepToken(id nodeid.ID) string {
	return depTokenPrefix + id.String() + depTokenSuffix
}

// Dependencies returns the IDs of every derivation referenced anywhere inside
// the given values, deduplicated and sorted by their canonical form.
func Dependencies(vals ...cty.Value) ([]nodeid.ID, error) {
	seen := make(map[nodeid.ID]struct{})
	for _, v := range vals {
		v, _ = v.UnmarkDeep()
		err := cty.Walk(v, func(_ cty.Path, el cty.Value) (bool, error) {
			if id, ok := AsRef(el); ok {
				seen[id] = struct{}{}
				return false, nil
			}
			return true, nil
		})
		if err != nil {
			return nil, err
		}
	}

	ids := make([]nodeid.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Render converts v into the text substituted for a placeholder.
// Collections render their elements separated by single spaces; maps and
// objects render their values in key order. Null renders as the empty string.
func Render(v cty.Value) (string, error) {
	v, _ = v.UnmarkDeep()
	if !v.IsKnown() {
		return "", ErrUnknown
	}
	if v.IsNull() {
		return "", nil
	}

	ty := v.Type()
	switch {
	case ty.Equals(DerivationType):
		id, _ := AsRef(v)
		return DepToken(id), nil
	case ty.Equals(cty.String):
		return v.AsString(), nil
	case ty.Equals(cty.Number):
		return v.AsBigFloat().Text('f', -1), nil
	case ty.Equals(cty.Bool):
		if v.True() {
			return "true", nil
		}
		return "false", nil
	case v.CanIterateElements():
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			s, err := Render(el)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	}
	return "", fmt.Errorf("cannot render value of type %s", ty.FriendlyName())
}

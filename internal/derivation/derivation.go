// Package derivation models a single unit of work: a named shell script whose
// placeholders resolve to values that may reference other derivations.
//
// A Derivation moves through a fixed lifecycle. It is constructed from its
// attributes (New), its placeholder values are supplied exactly once
// (Resolve), and its identity is computed (WriteHash). After WriteHash the
// derivation is read-only.
package derivation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
	"github.com/specialistvlad/hashgrid/internal/template"
	"github.com/specialistvlad/hashgrid/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Attribute keys with a meaning to the system. Any other key is carried
// along untouched.
const (
	AttrName      = "name"
	AttrScript    = "script"
	AttrContainer = "container"
	AttrTime      = "time"
	AttrMemory    = "memory"
	AttrShell     = "shell"
)

var (
	// ErrMissingAttribute is returned when name or script is absent.
	ErrMissingAttribute = errors.New("missing required attribute")
	// ErrInvalidAttribute is returned when an attribute has an unusable value.
	ErrInvalidAttribute = errors.New("invalid attribute")
	// ErrAlreadyResolved is returned by a second call to Resolve.
	ErrAlreadyResolved = errors.New("placeholders already resolved")
	// ErrNotResolved is returned by WriteHash before Resolve.
	ErrNotResolved = errors.New("placeholders not resolved")
)

// Derivation is a named script plus everything needed to identify and run it.
type Derivation struct {
	name       string
	attributes map[string]cty.Value
	script     *template.Template
	hints      Hints

	resolved     []cty.Value
	rendered     []string
	isResolved   bool
	scriptText   string
	dependencies []nodeid.ID
	id           nodeid.ID
	hashed       bool
}

// New builds an unhashed derivation from its attribute map. The map must hold
// string values for "name" and "script".
func New(attrs map[string]cty.Value) (*Derivation, error) {
	name, err := requiredString(attrs, AttrName)
	if err != nil {
		return nil, err
	}
	if err := nodeid.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAttribute, AttrName, err)
	}

	script, err := requiredString(attrs, AttrScript)
	if err != nil {
		return nil, err
	}
	tpl, err := template.Parse(script)
	if err != nil {
		return nil, fmt.Errorf("derivation %q: %w", name, err)
	}

	hints, err := decodeHints(attrs)
	if err != nil {
		return nil, fmt.Errorf("derivation %q: %w", name, err)
	}

	copied := make(map[string]cty.Value, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}

	return &Derivation{
		name:       name,
		attributes: copied,
		script:     tpl,
		hints:      hints,
	}, nil
}

func requiredString(attrs map[string]cty.Value, key string) (string, error) {
	v, ok := attrs[key]
	if !ok || v.IsNull() {
		return "", fmt.Errorf("%w %q", ErrMissingAttribute, key)
	}
	if !v.IsKnown() || !v.Type().Equals(cty.String) {
		return "", fmt.Errorf("%w %q: expected string, got %s", ErrInvalidAttribute, key, v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

// Name returns the human-readable name.
func (d *Derivation) Name() string { return d.name }

// Attribute returns a single attribute value.
func (d *Derivation) Attribute(key string) (cty.Value, bool) {
	v, ok := d.attributes[key]
	return v, ok
}

// Placeholders returns the unresolved placeholder expressions in script order.
func (d *Derivation) Placeholders() []string { return d.script.Placeholders }

// Hints returns the scheduling hints.
func (d *Derivation) Hints() Hints { return d.hints }

// Resolve supplies one value per placeholder, in placeholder order. It may be
// called only once unless Reset is called in between.
func (d *Derivation) Resolve(values []cty.Value) error {
	if d.isResolved {
		return ErrAlreadyResolved
	}
	if len(values) != len(d.script.Placeholders) {
		return fmt.Errorf("derivation %q: %w: %d placeholders, %d values",
			d.name, template.ErrValueCount, len(d.script.Placeholders), len(values))
	}

	rendered := make([]string, len(values))
	for i, v := range values {
		s, err := value.Render(v)
		if err != nil {
			return fmt.Errorf("derivation %q: placeholder %q: %w", d.name, d.script.Placeholders[i], err)
		}
		rendered[i] = s
	}

	d.resolved = values
	d.rendered = rendered
	d.isResolved = true
	return nil
}

// Resolved reports whether Resolve has succeeded.
func (d *Derivation) Resolved() bool { return d.isResolved }

// WriteHash extracts the dependencies from the resolved values, renders and
// dedents the final script, and computes the derivation's ID. Once it succeeds, later
// calls return the same ID.
func (d *Derivation) WriteHash() (nodeid.ID, error) {
	if d.hashed {
		return d.id, nil
	}
	if !d.isResolved {
		return nodeid.ID{}, fmt.Errorf("derivation %q: %w", d.name, ErrNotResolved)
	}

	deps, err := value.Dependencies(d.resolved...)
	if err != nil {
		return nodeid.ID{}, fmt.Errorf("derivation %q: extracting dependencies: %w", d.name, err)
	}
	text, err := d.script.Render(d.rendered)
	if err != nil {
		return nodeid.ID{}, fmt.Errorf("derivation %q: %w", d.name, err)
	}
	// Indentation is normalized on the rendered text so that lines spliced in
	// from multi-line values are stripped as well.
	if strings.Contains(text, "\n") {
		if text, err = template.Dedent(text); err != nil {
			return nodeid.ID{}, fmt.Errorf("derivation %q: %w", d.name, err)
		}
	}

	d.dependencies = deps
	d.scriptText = text
	d.id = nodeid.Compute(d.name, text)
	d.hashed = true
	return d.id, nil
}

// Reset discards resolved values and the computed ID so that Resolve may be
// called again.
func (d *Derivation) Reset() {
	d.resolved = nil
	d.rendered = nil
	d.isResolved = false
	d.scriptText = ""
	d.dependencies = nil
	d.id = nodeid.ID{}
	d.hashed = false
}

// ID returns the derivation's ID and whether it has been computed.
func (d *Derivation) ID() (nodeid.ID, bool) { return d.id, d.hashed }

// Dependencies returns the IDs this derivation references.
func (d *Derivation) Dependencies() []nodeid.ID {
	out := make([]nodeid.ID, len(d.dependencies))
	copy(out, d.dependencies)
	return out
}

// Script returns the resolved script text that was hashed.
func (d *Derivation) Script() string { return d.scriptText }

// Command returns the resolved script with the output token replaced by
// outPath and each dependency token replaced by linkPath(dep).
func (d *Derivation) Command(outPath string, linkPath func(nodeid.ID) string) string {
	pairs := []string{value.OutToken, outPath}
	for _, dep := range d.dependencies {
		pairs = append(pairs, value.DepToken(dep), linkPath(dep))
	}
	return strings.NewReplacer(pairs...).Replace(d.scriptText)
}

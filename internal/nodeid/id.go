// internal/nodeid/id.go
package nodeid

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ID identifies a derivation by the hash of its resolved definition.
// IDs are comparable and can be used as map keys.
type ID struct {
	Digest uint64
	Name   string
}

// Compute hashes a derivation's name together with its resolved script.
// Identical inputs always produce identical IDs, within and across runs.
func Compute(name, resolvedScript string) ID {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(resolvedScript)
	return ID{Digest: d.Sum64(), Name: name}
}

// String serializes the ID into its canonical `<digest>-<name>` form.
func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprintf("%016x-%s", id.Digest, id.Name)
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id.Digest == 0 && id.Name == ""
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// idRegex matches the canonical form: 16 hex digits, a dash, then the name.
var idRegex = regexp.MustCompile(`^([0-9a-f]{16})-(.+)$`)

// ValidateName checks that name can be used as a single path segment in the
// work root.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name cannot be empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid name: %q", name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("name %q must not contain path separators or NUL", name)
	}
	return nil
}

// Parse creates an ID from its canonical string representation.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("identifier cannot be empty")
	}

	matches := idRegex.FindStringSubmatch(raw)
	if matches == nil {
		return ID{}, fmt.Errorf("invalid identifier format: %q", raw)
	}

	digest, err := strconv.ParseUint(matches[1], 16, 64)
	if err != nil {
		// Unreachable due to regex.
		return ID{}, fmt.Errorf("internal error parsing digest: %w", err)
	}
	if err := ValidateName(matches[2]); err != nil {
		return ID{}, err
	}
	return ID{Digest: digest, Name: matches[2]}, nil
}

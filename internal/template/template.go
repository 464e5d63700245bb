package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyScript is returned when there is no script text to work with.
	ErrEmptyScript = errors.New("script is empty")
	// ErrUnterminated is returned when a "${" has no matching "}".
	ErrUnterminated = errors.New("unterminated placeholder")
	// ErrEmptyPlaceholder is returned for "${}".
	ErrEmptyPlaceholder = errors.New("empty placeholder")
	// ErrValueCount is returned when Render receives the wrong number of values.
	ErrValueCount = errors.New("placeholder value count mismatch")
)

// Template is a parsed script.
type Template struct {
	Fragments    []string
	Placeholders []string
}

// Parse scans script left to right and splits it at every ${...} region.
// Braces nested inside a placeholder and braces inside double-quoted strings
// do not terminate it.
func Parse(script string) (*Template, error) {
	t := &Template{}
	var lit strings.Builder

	for i := 0; i < len(script); {
		rest := script[i:]
		switch {
		case strings.HasPrefix(rest, "$${"):
			lit.WriteString("${")
			i += 3
		case strings.HasPrefix(rest, "${"):
			end, err := closingBrace(script, i+2)
			if err != nil {
				return nil, fmt.Errorf("%w starting at offset %d", err, i)
			}
			expr := strings.TrimSpace(script[i+2 : end])
			if expr == "" {
				return nil, fmt.Errorf("%w at offset %d", ErrEmptyPlaceholder, i)
			}
			t.Fragments = append(t.Fragments, lit.String())
			t.Placeholders = append(t.Placeholders, expr)
			lit.Reset()
			i = end + 1
		default:
			lit.WriteByte(script[i])
			i++
		}
	}
	t.Fragments = append(t.Fragments, lit.String())
	return t, nil
}

// closingBrace returns the index of the "}" that closes a placeholder whose
// body starts at start.
func closingBrace(s string, start int) (int, error) {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i, nil
			}
			depth--
		}
	}
	return -1, ErrUnterminated
}

// Render interleaves the template's fragments with values.
func (t *Template) Render(values []string) (string, error) {
	return Render(t.Fragments, values)
}

// Render joins fragments[0], values[0], fragments[1], and so on up to the
// last fragment.
func Render(fragments, values []string) (string, error) {
	if len(fragments) == 0 {
		return "", ErrEmptyScript
	}
	if len(values) != len(fragments)-1 {
		return "", fmt.Errorf("%w: %d fragments need %d values, got %d",
			ErrValueCount, len(fragments), len(fragments)-1, len(values))
	}

	var b strings.Builder
	for i, v := range values {
		b.WriteString(fragments[i])
		b.WriteString(v)
	}
	b.WriteString(fragments[len(fragments)-1])
	return b.String(), nil
}

package template

import "strings"

// Dedent normalizes the indentation of a multi-line script. The first line
// is reserved: it is kept as-is and never inspected. The leading whitespace
// of the first non-blank line after it becomes the prefix that is removed
// from every following line starting with it.
func Dedent(text string) (string, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return "", ErrEmptyScript
	}

	prefix := ""
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		prefix = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		break
	}
	if prefix == "" {
		return text, nil
	}

	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimPrefix(lines[i], prefix)
	}
	return strings.Join(lines, "\n"), nil
}

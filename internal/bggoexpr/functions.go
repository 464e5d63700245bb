package bggoexpr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Functions returns the functions available to grid expressions.
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"concat":    stdlib.ConcatFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"length":    stdlib.LengthFunc,
		"lower":     stdlib.LowerFunc,
		"replace":   stdlib.ReplaceFunc,
		"split":     stdlib.SplitFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"upper":     stdlib.UpperFunc,
	}
}

// CheckFunctions returns an error naming every called function that is not
// in funcs.
func CheckFunctions(c *Container, funcs map[string]function.Function) error {
	var unknown []string
	for _, name := range c.CalledFunctions() {
		if _, ok := funcs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	available := make([]string, 0, len(funcs))
	for name := range funcs {
		available = append(available, name)
	}
	sort.Strings(available)
	return fmt.Errorf("unknown function(s) %s; available: %s",
		strings.Join(unknown, ", "), strings.Join(available, ", "))
}

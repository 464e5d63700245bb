package derivation

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Hints are optional scheduling parameters. They do not take part in the
// derivation's identity.
type Hints struct {
	// Container is the image to run the job in.
	Container string
	// Time limits the job's wall-clock runtime. Zero means no limit.
	Time time.Duration
	// Memory is passed through to backends that can enforce it.
	Memory string
	// Shell replaces the backend's default shell for this job.
	Shell string
}

func decodeHints(attrs map[string]cty.Value) (Hints, error) {
	var h Hints
	var err error

	if h.Container, err = optionalString(attrs, AttrContainer); err != nil {
		return h, err
	}
	if h.Memory, err = optionalString(attrs, AttrMemory); err != nil {
		return h, err
	}
	if h.Shell, err = optionalString(attrs, AttrShell); err != nil {
		return h, err
	}
	if h.Time, err = optionalDuration(attrs, AttrTime); err != nil {
		return h, err
	}
	return h, nil
}

func optionalString(attrs map[string]cty.Value, key string) (string, error) {
	v, ok := attrs[key]
	if !ok || v.IsNull() {
		return "", nil
	}
	conv, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidAttribute, key, err)
	}
	var s string
	if err := gocty.FromCtyValue(conv, &s); err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidAttribute, key, err)
	}
	return s, nil
}

// optionalDuration accepts a number of seconds or a Go duration string.
func optionalDuration(attrs map[string]cty.Value, key string) (time.Duration, error) {
	v, ok := attrs[key]
	if !ok || v.IsNull() {
		return 0, nil
	}
	if !v.IsKnown() {
		return 0, fmt.Errorf("%w %q: value is not known", ErrInvalidAttribute, key)
	}

	if v.Type().Equals(cty.Number) {
		var secs float64
		if err := gocty.FromCtyValue(v, &secs); err != nil {
			return 0, fmt.Errorf("%w %q: %v", ErrInvalidAttribute, key, err)
		}
		if secs < 0 {
			return 0, fmt.Errorf("%w %q: must not be negative", ErrInvalidAttribute, key)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	s, err := optionalString(attrs, key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidAttribute, key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w %q: must not be negative", ErrInvalidAttribute, key)
	}
	return d, nil
}

package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name             string
		script           string
		wantFragments    []string
		wantPlaceholders []string
		wantErr          error
	}{
		{
			name:             "no placeholders",
			script:           "echo hi",
			wantFragments:    []string{"echo hi"},
			wantPlaceholders: nil,
		},
		{
			name:             "empty script",
			script:           "",
			wantFragments:    []string{""},
			wantPlaceholders: nil,
		},
		{
			name:             "output placeholder",
			script:           "echo hi > ${out}",
			wantFragments:    []string{"echo hi > ", ""},
			wantPlaceholders: []string{"out"},
		},
		{
			name:             "adjacent placeholders",
			script:           "${a}${b}",
			wantFragments:    []string{"", "", ""},
			wantPlaceholders: []string{"a", "b"},
		},
		{
			name:             "whitespace trimmed inside braces",
			script:           "cat ${ derivation.a } > ${out}",
			wantFragments:    []string{"cat ", " > ", ""},
			wantPlaceholders: []string{"derivation.a", "out"},
		},
		{
			name:             "nested braces",
			script:           "echo ${ {a = 1}.a } done",
			wantFragments:    []string{"echo ", " done"},
			wantPlaceholders: []string{"{a = 1}.a"},
		},
		{
			name:             "brace inside quoted string",
			script:           `echo ${format("%s}", param.x)}`,
			wantFragments:    []string{"echo ", ""},
			wantPlaceholders: []string{`format("%s}", param.x)`},
		},
		{
			name:             "escaped placeholder is literal",
			script:           "echo $${HOME} ${out}",
			wantFragments:    []string{"echo ${HOME} ", ""},
			wantPlaceholders: []string{"out"},
		},
		{
			name:    "unterminated",
			script:  "echo ${out",
			wantErr: ErrUnterminated,
		},
		{
			name:    "empty placeholder",
			script:  "echo ${ }",
			wantErr: ErrEmptyPlaceholder,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := Parse(tc.script)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantFragments, tpl.Fragments)
			assert.Equal(t, tc.wantPlaceholders, tpl.Placeholders)
			assert.Len(t, tpl.Fragments, len(tpl.Placeholders)+1)
		})
	}
}

func TestParseRenderRoundTrip(t *testing.T) {
	scripts := []string{
		"echo hi",
		"cat ${derivation.a} ${derivation.b} > ${out}",
		"${out}",
		"line one\n  line ${two}\nline three",
	}

	for _, script := range scripts {
		t.Run(script, func(t *testing.T) {
			tpl, err := Parse(script)
			require.NoError(t, err)

			wrapped := make([]string, len(tpl.Placeholders))
			for i, p := range tpl.Placeholders {
				wrapped[i] = "${" + p + "}"
			}
			rendered, err := tpl.Render(wrapped)
			require.NoError(t, err)
			assert.Equal(t, script, rendered)
		})
	}
}

func TestRender(t *testing.T) {
	t.Run("interleaves values", func(t *testing.T) {
		got, err := Render([]string{"cp ", " ", ""}, []string{"/a", "/b"})
		require.NoError(t, err)
		assert.Equal(t, "cp /a /b", got)
	})

	t.Run("no fragments", func(t *testing.T) {
		_, err := Render(nil, nil)
		require.ErrorIs(t, err, ErrEmptyScript)
	})

	t.Run("too few values", func(t *testing.T) {
		_, err := Render([]string{"a", "b", "c"}, []string{"x"})
		require.ErrorIs(t, err, ErrValueCount)
	})

	t.Run("too many values", func(t *testing.T) {
		_, err := Render([]string{"a"}, []string{"x"})
		require.ErrorIs(t, err, ErrValueCount)
	})
}

func TestDedent(t *testing.T) {
	testCases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "strips common prefix",
			in:   "#!header\n    echo a\n    echo b",
			want: "#!header\necho a\necho b",
		},
		{
			name: "first line is never analyzed",
			in:   "        first\n  a\n  b",
			want: "        first\na\nb",
		},
		{
			name: "deeper lines keep extra indentation",
			in:   "\n  if true; then\n    echo x\n  fi",
			want: "\nif true; then\n  echo x\nfi",
		},
		{
			name: "lines without the prefix are untouched",
			in:   "\n    a\n  b\n    c",
			want: "\na\n  b\nc",
		},
		{
			name: "blank lines before the first content line are skipped",
			in:   "\n\n   a\n   b",
			want: "\n\na\nb",
		},
		{
			name: "no indentation",
			in:   "\na\nb",
			want: "\na\nb",
		},
		{
			name:    "single line has nothing after the reserved line",
			in:      "echo hi",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Dedent(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrEmptyScript)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDedent_UniformIndentRoundTrip(t *testing.T) {
	block := []string{"set -e", "for f in *; do", "  echo $f", "done"}

	for _, indent := range []string{"  ", "    ", "\t", "\t\t"} {
		indented := make([]string, len(block))
		for i, line := range block {
			indented[i] = indent + line
		}
		got, err := Dedent("\n" + strings.Join(indented, "\n"))
		require.NoError(t, err)
		assert.Equal(t, "\n"+strings.Join(block, "\n"), got)
	}
}

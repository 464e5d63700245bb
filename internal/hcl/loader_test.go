package hcl

import (
	"context"
	"sort"
	"testing"

	"github.com/specialistvlad/hashgrid/internal/config"
	"github.com/specialistvlad/hashgrid/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, files map[string]string) (*config.Model, error) {
	t.Helper()
	ctx, _ := testutil.NewContext(t)
	return loadCtx(ctx, t, files)
}

func loadCtx(ctx context.Context, t *testing.T, files map[string]string) (*config.Model, error) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, "/grid/"+name, []byte(content), 0o644))
	}
	return NewLoader(fsys).Load(ctx, "/grid")
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestLoad_RebuildsScriptTemplate(t *testing.T) {
	model, err := load(t, map[string]string{"main.hcl": `
derivation "hello" {
  script = "echo hi > ${out}"
}

derivation "shout" {
  shell = "bash -eu"
  time  = 60
  script = <<-EOT
    #!reserved
    tr a-z A-Z < ${ derivation.hello } > ${out}
    echo "$${HOME}" ${upper(param.greeting)}
  EOT
}
`})
	require.NoError(t, err)
	require.Len(t, model.Derivations, 2)

	hello := model.Derivations[0]
	assert.Equal(t, "hello", hello.Label)
	assert.Equal(t, "echo hi > ${out}", hello.Script)
	assert.Equal(t, []string{"out"}, keys(hello.Placeholders))
	assert.Empty(t, hello.Attributes)

	shout, ok := model.Lookup("shout")
	require.True(t, ok)
	assert.Equal(t,
		"#!reserved\ntr a-z A-Z < ${derivation.hello} > ${out}\necho \"$${HOME}\" ${upper(param.greeting)}\n",
		shout.Script)
	assert.Equal(t, []string{"derivation.hello", "out", "upper(param.greeting)"}, keys(shout.Placeholders))
	assert.Equal(t, []string{"shell", "time"}, keys(shout.Attributes))
}

func TestLoad_SingleInterpolation(t *testing.T) {
	model, err := load(t, map[string]string{"main.hcl": `
derivation "only" {
  script = "${out}"
}
`})
	require.NoError(t, err)
	assert.Equal(t, "${out}", model.Derivations[0].Script)
}

func TestLoad_FilesInPathOrder(t *testing.T) {
	model, err := load(t, map[string]string{
		"b.hcl":        `derivation "second" { script = "true" }`,
		"a.hcl":        `derivation "first" { script = "true" }`,
		"nested/c.hcl": `derivation "third" { script = "true" }`,
	})
	require.NoError(t, err)

	var labels []string
	for _, d := range model.Derivations {
		labels = append(labels, d.Label)
	}
	assert.Equal(t, []string{"first", "second", "third"}, labels)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		files    map[string]string
		contains string
	}{
		{
			name:     "syntax error",
			files:    map[string]string{"main.hcl": `derivation "x" {`},
			contains: "failed to parse HCL file",
		},
		{
			name:     "missing script",
			files:    map[string]string{"main.hcl": `derivation "x" { name = "x" }`},
			contains: "Missing script",
		},
		{
			name:     "if directive",
			files:    map[string]string{"main.hcl": `derivation "x" { script = "%{ if true }yes%{ endif }" }`},
			contains: "directives",
		},
		{
			name:     "for directive",
			files:    map[string]string{"main.hcl": `derivation "x" { script = "%{ for v in [1] }${v}%{ endfor }" }`},
			contains: "directives",
		},
		{
			name:     "computed script",
			files:    map[string]string{"main.hcl": `derivation "x" { script = join(" ", ["a"]) }`},
			contains: "Invalid script",
		},
		{
			name: "duplicate label",
			files: map[string]string{
				"a.hcl": `derivation "x" { script = "true" }`,
				"b.hcl": `derivation "x" { script = "false" }`,
			},
			contains: "duplicate derivation label",
		},
		{
			name:     "unknown top-level attribute",
			files:    map[string]string{"main.hcl": `workers = 4`},
			contains: "Unexpected attribute",
		},
		{
			name:     "unknown top-level block",
			files:    map[string]string{"main.hcl": `step "x" "y" {}`},
			contains: "failed to decode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.files)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestLoad_EmptyDirectory(t *testing.T) {
	ctx, logs := testutil.NewContext(t)
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/grid", 0o755))

	model, err := NewLoader(fsys).Load(ctx, "/grid")
	require.NoError(t, err)
	assert.Empty(t, model.Derivations)
	assert.Contains(t, logs.String(), "No grid files found")
}

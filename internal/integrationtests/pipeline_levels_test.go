package integrationtests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/hashgrid/internal/apptest"
	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_DependentRunsAfterDependency(t *testing.T) {
	// --- Arrange ---
	h := apptest.NewHarness(t, map[string]string{
		"b.hcl": `
derivation "B" {
  script = "cat ${derivation.A} > ${out}; echo world >> ${out}"
}
`,
		"a.hcl": `
derivation "A" {
  script = "echo hello > ${out}"
}
`,
	})

	// --- Act ---
	result := h.Run(context.Background(), h.Config())

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "hello\nworld\n", apptest.RequireOutput(t, h.WorkDir, "B"))
	assert.Contains(t, result.LogOutput, "levels=2")

	// The dependency is linked into the dependent's run directory under its ID.
	aDir := apptest.DerivationDirs(t, h.WorkDir, "A")[0]
	bDir := apptest.DerivationDirs(t, h.WorkDir, "B")[0]
	link := filepath.Join(bDir, backend.RunDirName, filepath.Base(aDir))
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(aDir, backend.OutName), target)

	cmd, err := os.ReadFile(filepath.Join(bDir, backend.RunDirName, backend.CmdFile))
	require.NoError(t, err)
	assert.Contains(t, string(cmd), "cat "+link+" > "+filepath.Join(bDir, backend.OutName))
}

func TestPipeline_LevelMembersRunConcurrently(t *testing.T) {
	// --- Arrange ---
	// Each job announces itself and then waits for its sibling, so the run
	// only succeeds if both are in flight at the same time.
	gridHCL := `
derivation "left" {
  script = <<-EOT
    touch ${param.sync}/left
    i=0
    while [ ! -e ${param.sync}/right ] && [ $i -lt 100 ]; do sleep 0.05; i=$((i+1)); done
    test -e ${param.sync}/right && echo left > ${out}
  EOT
}
derivation "right" {
  script = <<-EOT
    touch ${param.sync}/right
    i=0
    while [ ! -e ${param.sync}/left ] && [ $i -lt 100 ]; do sleep 0.05; i=$((i+1)); done
    test -e ${param.sync}/left && echo right > ${out}
  EOT
}
derivation "join" {
  script = "cat ${derivation.left} ${derivation.right} > ${out}"
}
`
	h := apptest.NewHarness(t, map[string]string{"main.hcl": gridHCL})
	cfg := h.Config()
	cfg.Params = map[string]string{"sync": t.TempDir()}

	// --- Act ---
	result := h.Run(context.Background(), cfg)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "left\nright\n", apptest.RequireOutput(t, h.WorkDir, "join"))
}

func TestPipeline_SingleWorkerStillCompletes(t *testing.T) {
	// --- Arrange ---
	h := apptest.NewHarness(t, map[string]string{"main.hcl": `
derivation "one"   { script = "echo 1 > ${out}" }
derivation "two"   { script = "echo 2 > ${out}" }
derivation "three" { script = "echo 3 > ${out}" }
derivation "sum" {
  script = "cat ${[derivation.one, derivation.two, derivation.three]} | tr -d '\\n' > ${out}"
}
`})
	cfg := h.Config()
	cfg.Workers = 1

	// --- Act ---
	result := h.Run(context.Background(), cfg)

	// --- Assert ---
	require.NoError(t, result.Err)
	for _, name := range []string{"one", "two", "three"} {
		apptest.AssertEventLogged(t, result, "job.completed", name)
	}
	assert.Equal(t, "123", apptest.RequireOutput(t, h.WorkDir, "sum"))
}

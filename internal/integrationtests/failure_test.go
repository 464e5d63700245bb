package integrationtests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/hashgrid/internal/apptest"
	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/specialistvlad/hashgrid/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailure_AbortsAfterLevelBarrier(t *testing.T) {
	// --- Arrange ---
	gridTemplate := `
derivation "flaky" {
  script = "test -e ${param.fixed} && echo fixed > ${out}"
}
derivation "sibling" {
  script = "sleep 0.2; echo sibling > ${out}"
}
derivation "downstream" {
  script = "cat ${derivation.flaky} ${derivation.sibling} > ${out}"
}
`
	h := apptest.NewHarness(t, map[string]string{"main.hcl": gridTemplate})
	fixed := filepath.Join(t.TempDir(), "fixed")
	cfg := h.Config()
	cfg.Params = map[string]string{"fixed": fixed}

	// --- Act ---
	result := h.Run(context.Background(), cfg)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, executor.ErrAborted)
	var levelErr *executor.LevelError
	require.True(t, errors.As(result.Err, &levelErr))
	assert.Equal(t, 0, levelErr.Level)
	var jobErr *backend.JobError
	require.True(t, errors.As(result.Err, &jobErr))
	assert.Equal(t, 1, jobErr.ExitCode)

	// The sibling finished inside the failing level; nothing after it ran.
	assert.Equal(t, "sibling\n", apptest.RequireOutput(t, h.WorkDir, "sibling"))
	assert.Empty(t, apptest.DerivationDirs(t, h.WorkDir, "downstream"))
	apptest.AssertEventLogged(t, result, "job.failed", "flaky")

	flakyDir := apptest.DerivationDirs(t, h.WorkDir, "flaky")[0]
	_, err := os.Stat(filepath.Join(flakyDir, backend.RunDirName, backend.MarkerFile))
	assert.True(t, os.IsNotExist(err), "a failed job must not be marked finished")

	// --- Act again, with the cause fixed ---
	require.NoError(t, os.WriteFile(fixed, nil, 0o644))
	retry := h.Run(context.Background(), cfg)

	// --- Assert ---
	require.NoError(t, retry.Err)
	apptest.AssertEventLogged(t, retry, "job.cached", "sibling")
	apptest.AssertEventLogged(t, retry, "job.completed", "flaky")
	assert.Equal(t, "fixed\nsibling\n", apptest.RequireOutput(t, h.WorkDir, "downstream"))
}

func TestFailure_TimeHintKillsJob(t *testing.T) {
	// --- Arrange ---
	h := apptest.NewHarness(t, map[string]string{"main.hcl": `
derivation "slow" {
  time   = 1
  script = "sleep 30; echo late > ${out}"
}
`})

	// --- Act ---
	result := h.Run(context.Background(), h.Config())

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, backend.ErrTimeout)
}

func TestFailure_CancelledRunStops(t *testing.T) {
	// --- Arrange ---
	h := apptest.NewHarness(t, map[string]string{"main.hcl": `
derivation "forever" { script = "sleep 30" }
`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// --- Act ---
	result := h.Run(ctx, h.Config())

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

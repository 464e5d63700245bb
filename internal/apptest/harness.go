// Package apptest runs the whole application against grid files in a
// temporary directory.
package apptest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/hashgrid/internal/app"
	"github.com/specialistvlad/hashgrid/internal/hcl"
	"github.com/specialistvlad/hashgrid/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Harness is a temporary project directory holding grid files and a work
// root for end-to-end runs.
type Harness struct {
	t       *testing.T
	Root    string
	GridDir string
	WorkDir string
}

// HarnessResult holds the outcomes of one run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// NewHarness writes files, keyed by path relative to the grid directory, into
// a fresh temporary directory.
func NewHarness(t *testing.T, files map[string]string) *Harness {
	t.Helper()

	root := t.TempDir()
	h := &Harness{
		t:       t,
		Root:    root,
		GridDir: filepath.Join(root, "grid"),
		WorkDir: filepath.Join(root, "work"),
	}
	require.NoError(t, os.MkdirAll(h.GridDir, 0o755))
	for name, content := range files {
		h.WriteFile(filepath.Join("grid", name), content)
	}
	return h
}

// WriteFile writes content to a path relative to the harness root.
func (h *Harness) WriteFile(name, content string) string {
	h.t.Helper()
	path := filepath.Join(h.Root, name)
	require.NoError(h.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Config returns the default configuration pointed at the harness
// directories, with debug text logs.
func (h *Harness) Config() app.Config {
	cfg := app.DefaultConfig()
	cfg.GridPath = h.GridDir
	cfg.WorkDir = h.WorkDir
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	return cfg
}

// Run validates cfg, then loads and runs the app. Load and run errors are
// returned in the result; validation errors fail the test.
func (h *Harness) Run(ctx context.Context, cfg app.Config, opts ...app.Option) *HarnessResult {
	h.t.Helper()

	validated, err := app.NewConfig(cfg)
	require.NoError(h.t, err)

	var out bytes.Buffer
	logs := &testutil.SafeBuffer{}
	opts = append([]app.Option{app.WithLogWriter(logs)}, opts...)

	result := &HarnessResult{}
	result.App, result.Err = app.NewApp(&out, validated, hcl.NewLoader(afero.NewOsFs()), opts...)
	if result.Err == nil {
		result.Err = result.App.Run(ctx)
	}
	result.Output = out.String()
	result.LogOutput = logs.String()

	if os.Getenv("HASHGRID_TEST_LOGS") == "true" {
		h.t.Logf("--- Full Log Output for %s ---\n%s", h.t.Name(), result.LogOutput)
	}
	return result
}

package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/specialistvlad/hashgrid/internal/app"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, exit, err := parse(afero.NewMemMapFs(), []string{"pipelines"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	want := app.DefaultConfig()
	want.GridPath = "pipelines"
	assert.Equal(t, want, *cfg)
}

func TestParse_GridSources(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "long flag", args: []string{"-grid", "a", "b"}, want: "a"},
		{name: "shorthand", args: []string{"-g", "a"}, want: "a"},
		{name: "positional", args: []string{"b"}, want: "b"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, _, err := parse(afero.NewMemMapFs(), tc.args, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.GridPath)
		})
	}
}

func TestParse_Layering(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, app.DefaultConfigFile, []byte(`
grid      = "from-file"
work_dir  = "/file/work"
workers   = 3
log_level = "warn"

[params]
env    = "prod"
region = "eu"
`), 0o644))

	cfg, _, err := parse(fsys, []string{
		"-workers", "0",
		"-param", "region=us",
		"-param", "extra=a=b",
		"-job-timeout", "2m",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.GridPath)
	assert.Equal(t, "/file/work", cfg.WorkDir)
	assert.Equal(t, 0, cfg.Workers, "an explicit flag overrides the file even at its zero value")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
	assert.Equal(t, map[string]string{"env": "prod", "region": "us", "extra": "a=b"}, cfg.Params)
}

func TestParse_ExplicitConfigFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/etc/hg.toml", []byte(`shell = "bash -eu"`), 0o644))

	cfg, _, err := parse(fsys, []string{"-config", "/etc/hg.toml", "grid"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "bash -eu", cfg.Shell)

	_, _, err = parse(fsys, []string{"-config", "/etc/missing.toml", "grid"}, &bytes.Buffer{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParse_Modes(t *testing.T) {
	cfg, _, err := parse(afero.NewMemMapFs(), []string{"-target", "B", "-plan", "grid"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "B", cfg.Target)
	assert.True(t, cfg.Plan)

	cfg, _, err = parse(afero.NewMemMapFs(), []string{"-graph", "dot", "grid"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, app.GraphDOT, cfg.Graph)
}

func TestParse_ShouldExit(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}} {
		out := &bytes.Buffer{}
		cfg, exit, err := parse(afero.NewMemMapFs(), args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "unknown flag", args: []string{"-nope"}, contains: "flag provided but not defined"},
		{name: "bad param", args: []string{"-param", "novalue", "g"}, contains: "expected key=value"},
		{name: "bad log format", args: []string{"-log-format", "xml", "g"}, contains: "log-format"},
		{name: "bad log level", args: []string{"-log-level", "loud", "g"}, contains: "log-level"},
		{name: "negative workers", args: []string{"-workers", "-2", "g"}, contains: "invalid workers"},
		{name: "bad graph", args: []string{"-graph", "png", "g"}, contains: "graph format"},
		{name: "lsf backend", args: []string{"-backend", "lsf", "g"}, contains: "not implemented"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parse(afero.NewMemMapFs(), tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.contains)
		})
	}
}

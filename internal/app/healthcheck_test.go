package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/specialistvlad/hashgrid/internal/builder"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/hcl"
	"github.com/specialistvlad/hashgrid/internal/localsession"
	"github.com/specialistvlad/hashgrid/internal/nodestore"
	"github.com/specialistvlad/hashgrid/internal/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	a := &App{logger: slog.New(slog.NewTextHandler(io.Discard, nil)), runID: "r1"}
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := ctxlog.WithLogger(context.Background(), logger)
	a := &App{logger: logger, runID: "r1"}
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	getStatus := func() StatusReport {
		t.Helper()
		resp, err := http.Get(srv.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var report StatusReport
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		return report
	}

	before := getStatus()
	assert.Equal(t, "r1", before.RunID)
	assert.Empty(t, before.Derivations)

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/g/main.hcl", []byte(`derivation "a" { script = "true" }`), 0o644))
	model, err := hcl.NewLoader(fsys).Load(ctx, "/g")
	require.NoError(t, err)

	sess, err := (&localsession.SessionFactory{}).NewSession(ctx, session.Config{
		Backend: backend.Config{Root: t.TempDir()},
	})
	require.NoError(t, err)
	res, err := builder.New(sess.Graph(), nil).Build(ctx, model)
	require.NoError(t, err)
	require.NoError(t, sess.Graph().MarkRunning(ctx, res["a"]))
	a.setSession(sess)

	after := getStatus()
	require.Len(t, after.Derivations, 1)
	assert.Equal(t, res["a"], after.Derivations[0].ID)
	assert.Equal(t, nodestore.StatusRunning, after.Derivations[0].Status)
}

package apptest

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/stretchr/testify/require"
)

// DerivationDirs returns the hash directories under root whose derivation
// name is name.
func DerivationDirs(t *testing.T, root, name string) []string {
	t.Helper()
	dirs, err := filepath.Glob(filepath.Join(root, "*-"+name))
	require.NoError(t, err)
	return dirs
}

// RequireOutput asserts that exactly one derivation named name completed
// under root and returns the content of its output file.
func RequireOutput(t *testing.T, root, name string) string {
	t.Helper()

	dirs := DerivationDirs(t, root, name)
	require.Len(t, dirs, 1, "expected one derivation named %q under %s", name, root)

	_, err := os.Stat(filepath.Join(dirs[0], backend.RunDirName, backend.MarkerFile))
	require.NoError(t, err, "derivation %q has no completion marker", name)

	data, err := os.ReadFile(filepath.Join(dirs[0], backend.OutName))
	require.NoError(t, err)
	return string(data)
}

// AssertEventLogged checks that a log line records event for a derivation
// named name.
func AssertEventLogged(t *testing.T, result *HarnessResult, event, name string) {
	t.Helper()

	derivation := regexp.MustCompile(`derivation=[0-9a-f]{16}-` + regexp.QuoteMeta(name) + `(\s|$)`)
	for _, line := range strings.Split(result.LogOutput, "\n") {
		if strings.Contains(line, "event="+event) && derivation.MatchString(line) {
			return
		}
	}
	t.Errorf("no %s event logged for derivation %q", event, name)
}

package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

// File and directory names inside a derivation's directory.
const (
	RunDirName  = "run"
	OutName     = "out"
	CmdFile     = ".cmd"
	MarkerFile  = ".finished"
	LockFile    = ".lock"
	StdoutFile  = ".stdout"
	StderrFile  = ".stderr"
	dirPerm     = 0o755
	markerPerm  = 0o644
	cmdFilePerm = 0o644
)

// CacheState is the outcome of a cache check.
type CacheState int

const (
	// CacheMiss means no previous attempt exists.
	CacheMiss CacheState = iota
	// CacheValid means a previous attempt completed successfully.
	CacheValid
	// CacheInvalid means a previous attempt exists but did not complete.
	CacheInvalid
)

func (s CacheState) String() string {
	switch s {
	case CacheMiss:
		return "miss"
	case CacheValid:
		return "valid"
	case CacheInvalid:
		return "invalid"
	}
	return "unknown"
}

// Paths lists the locations belonging to one derivation.
type Paths struct {
	Dir    string
	Run    string
	Out    string
	Cmd    string
	Marker string
	Lock   string
	Stdout string
	Stderr string
}

// PathsFor returns the locations of id under root.
func PathsFor(root string, id nodeid.ID) Paths {
	dir := filepath.Join(root, id.String())
	run := filepath.Join(dir, RunDirName)
	return Paths{
		Dir:    dir,
		Run:    run,
		Out:    filepath.Join(dir, OutName),
		Cmd:    filepath.Join(run, CmdFile),
		Marker: filepath.Join(run, MarkerFile),
		Lock:   filepath.Join(dir, LockFile),
		Stdout: filepath.Join(run, StdoutFile),
		Stderr: filepath.Join(run, StderrFile),
	}
}

// claimRunDir performs the cache check by creating the run directory.
func claimRunDir(p Paths) (CacheState, error) {
	err := os.Mkdir(p.Run, dirPerm)
	switch {
	case err == nil:
		return CacheMiss, nil
	case errors.Is(err, fs.ErrExist):
		return markerState(p)
	case errors.Is(err, fs.ErrPermission):
		return 0, fmt.Errorf("%w: creating %s: %v", ErrPermission, p.Run, err)
	default:
		return 0, fmt.Errorf("creating %s: %w", p.Run, err)
	}
}

func markerState(p Paths) (CacheState, error) {
	_, err := os.Stat(p.Marker)
	switch {
	case err == nil:
		return CacheValid, nil
	case errors.Is(err, fs.ErrNotExist):
		return CacheInvalid, nil
	case errors.Is(err, fs.ErrPermission):
		return 0, fmt.Errorf("%w: checking %s: %v", ErrPermission, p.Marker, err)
	default:
		return 0, fmt.Errorf("checking %s: %w", p.Marker, err)
	}
}

// ensureDir creates the derivation's directory and the root above it.
func ensureDir(p Paths) error {
	if err := os.MkdirAll(p.Dir, dirPerm); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: creating %s: %v", ErrPermission, p.Dir, err)
		}
		return fmt.Errorf("creating %s: %w", p.Dir, err)
	}
	return nil
}

// linkDependencies points <run>/<dep-id> at each dependency's output. Links
// left behind by an earlier attempt are kept.
func linkDependencies(root string, p Paths, deps []nodeid.ID) error {
	for _, dep := range deps {
		target := PathsFor(root, dep).Out
		link := filepath.Join(p.Run, dep.String())
		if err := os.Symlink(target, link); err != nil && !errors.Is(err, fs.ErrExist) {
			if errors.Is(err, fs.ErrPermission) {
				return fmt.Errorf("%w: linking %s: %v", ErrPermission, link, err)
			}
			return fmt.Errorf("linking dependency %s: %w", dep, err)
		}
	}
	return nil
}

func writeMarker(p Paths) error {
	return os.WriteFile(p.Marker, nil, markerPerm)
}

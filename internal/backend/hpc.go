package backend

import (
	"context"
	"fmt"
	"strings"
)

// Kind names an HPCRuntime implementation.
type Kind string

const (
	// KindLocal runs jobs as subprocesses of this process.
	KindLocal Kind = "local"
	// KindLSF is reserved for IBM Spectrum LSF submission.
	KindLSF Kind = "lsf"
	// KindSlurm is reserved for Slurm submission.
	KindSlurm Kind = "slurm"
)

// ParseKind validates a runtime kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindLocal, "":
		return KindLocal, nil
	case KindLSF, KindSlurm:
		return k, fmt.Errorf("%w: %q is declared but not implemented", ErrUnsupportedBackend, s)
	default:
		return "", fmt.Errorf("%w: unknown runtime %q", ErrUnsupportedBackend, s)
	}
}

// JobSpec describes one assembled job.
type JobSpec struct {
	// WorkDir is the job's working directory. It contains the command file.
	WorkDir string
	// Shell is the interpreter argv; the command file name is appended.
	Shell []string
	// Env holds extra KEY=VALUE entries added to the job's environment.
	Env []string
	// Stdout and Stderr are files that receive the job's output streams.
	Stdout string
	Stderr string
}

// HPCRuntime launches a job and tracks it until it exits.
//
// A runtime value handles exactly one job. SubmitJob must not block until the
// job finishes; Wait does. Cancelling the context passed to SubmitJob must
// terminate the job.
type HPCRuntime interface {
	SubmitJob(ctx context.Context, spec JobSpec) error
	// Cmd returns the command line the runtime executes, for logging.
	Cmd() string
	// Wait blocks until the job exits and returns a non-nil error unless the
	// exit status was zero.
	Wait() error
	// Finished reports without blocking whether the job has exited.
	Finished() bool
}

// RuntimeFactory creates a fresh runtime for each job.
type RuntimeFactory func() HPCRuntime

// NewRuntimeFactory returns the factory for kind.
func NewRuntimeFactory(kind Kind) (RuntimeFactory, error) {
	switch kind {
	case KindLocal, "":
		return func() HPCRuntime { return &LocalRuntime{} }, nil
	default:
		_, err := ParseKind(string(kind))
		return nil, err
	}
}

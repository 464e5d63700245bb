package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mattn/go-shellwords"
	"github.com/specialistvlad/hashgrid/internal/ctxlog"
	"github.com/specialistvlad/hashgrid/internal/derivation"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

const (
	// DefaultShell interprets command files when nothing else is configured.
	DefaultShell = "sh"

	lockRetryDelay = 100 * time.Millisecond
)

// Config configures a Backend.
type Config struct {
	// Root is the work root. Relative paths are made absolute.
	Root string
	// Kind selects the HPCRuntime.
	Kind Kind
	// Container selects the engine used for derivations with a container hint.
	Container ContainerKind
	// Shell is the default interpreter command line, e.g. "bash -e".
	Shell string
	// Env holds extra KEY=VALUE entries for every job.
	Env []string
	// Timeout limits jobs that carry no time hint. Zero means no limit.
	Timeout time.Duration
}

// Backend turns finalized derivations into jobs under a shared work root.
type Backend struct {
	root       string
	container  ContainerKind
	shell      []string
	env        []string
	timeout    time.Duration
	newRuntime RuntimeFactory
}

// New validates cfg and returns a ready Backend.
func New(cfg Config) (*Backend, error) {
	if cfg.Root == "" {
		return nil, errors.New("work root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving work root: %w", err)
	}

	factory, err := NewRuntimeFactory(cfg.Kind)
	if err != nil {
		return nil, err
	}
	container, err := ParseContainerKind(string(cfg.Container))
	if err != nil {
		return nil, err
	}

	shellLine := cfg.Shell
	if shellLine == "" {
		shellLine = DefaultShell
	}
	shell, err := parseShell(shellLine)
	if err != nil {
		return nil, err
	}

	return &Backend{
		root:       root,
		container:  container,
		shell:      shell,
		env:        cfg.Env,
		timeout:    cfg.Timeout,
		newRuntime: factory,
	}, nil
}

// WithRuntime replaces the runtime factory. It is used by tests and by
// embedders that provide their own HPCRuntime.
func (b *Backend) WithRuntime(f RuntimeFactory) *Backend {
	b.newRuntime = f
	return b
}

// Root returns the absolute work root.
func (b *Backend) Root() string { return b.root }

// Paths returns the on-disk locations of id.
func (b *Backend) Paths(id nodeid.ID) Paths { return PathsFor(b.root, id) }

// Status inspects the cache state of id without modifying anything.
func (b *Backend) Status(id nodeid.ID) (CacheState, error) {
	p := b.Paths(id)
	if _, err := os.Stat(p.Run); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CacheMiss, nil
		}
		return 0, fmt.Errorf("checking %s: %w", p.Run, err)
	}
	return markerState(p)
}

// Result describes a finished job.
type Result struct {
	ID       nodeid.ID
	Cached   bool
	Output   string
	Duration time.Duration
}

// Job is a submitted derivation.
type Job interface {
	ID() nodeid.ID
	// Cached reports whether the job was satisfied from an earlier run.
	Cached() bool
	// Wait blocks until the job finishes. It may be called once.
	Wait() (Result, error)
}

// Submit performs the cache check for d and, on a miss, launches its job.
// A valid cache entry yields a Job that is already finished.
func (b *Backend) Submit(ctx context.Context, d *derivation.Derivation) (Job, error) {
	id, ok := d.ID()
	if !ok {
		return nil, fmt.Errorf("submitting %q: %w", d.Name(), derivation.ErrNotResolved)
	}
	ctx, logger := ctxlog.With(ctx, "derivation", id.String())
	p := b.Paths(id)

	if err := ensureDir(p); err != nil {
		return nil, err
	}

	lock := flock.New(p.Lock)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLocked, id, err)
	}

	job, err := b.launch(ctx, d, id, p)
	if err != nil || job.Cached() {
		if uerr := lock.Unlock(); uerr != nil {
			logger.Warn("Failed to release derivation lock.", "error", uerr)
		}
	} else {
		job.lock = lock
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (b *Backend) launch(ctx context.Context, d *derivation.Derivation, id nodeid.ID, p Paths) (*job, error) {
	logger := ctxlog.FromContext(ctx)

	state, err := claimRunDir(p)
	if err != nil {
		return nil, err
	}
	switch state {
	case CacheValid:
		logger.Debug("Cache hit.")
		return &job{id: id, cached: true, out: p.Out}, nil
	case CacheInvalid:
		logger.Info("Previous attempt did not finish, running again.")
		if err := os.RemoveAll(p.Out); err != nil {
			return nil, fmt.Errorf("removing stale output %s: %w", p.Out, err)
		}
	}

	if err := linkDependencies(b.root, p, d.Dependencies()); err != nil {
		return nil, err
	}

	hints := d.Hints()
	command := d.Command(p.Out, func(dep nodeid.ID) string {
		return filepath.Join(p.Run, dep.String())
	})
	command = b.containerFor(ctx, hints, p).Cmd(command)
	if err := os.WriteFile(p.Cmd, []byte(command+"\n"), cmdFilePerm); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: writing %s: %v", ErrPermission, p.Cmd, err)
		}
		return nil, fmt.Errorf("writing %s: %w", p.Cmd, err)
	}

	shell := b.shell
	if hints.Shell != "" {
		if shell, err = parseShell(hints.Shell); err != nil {
			return nil, &JobError{ID: id, ExitCode: -1, Err: err}
		}
	}

	timeout := b.timeout
	if hints.Time > 0 {
		timeout = hints.Time
	}
	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}

	rt := b.newRuntime()
	spec := JobSpec{
		WorkDir: p.Run,
		Shell:   shell,
		Env:     b.env,
		Stdout:  p.Stdout,
		Stderr:  p.Stderr,
	}
	start := time.Now()
	if err := rt.SubmitJob(jobCtx, spec); err != nil {
		cancel()
		return nil, &JobError{ID: id, ExitCode: -1, Err: err}
	}
	logger.Debug("Job submitted.", "cmd", rt.Cmd(), "timeout", timeout)

	return &job{
		id:      id,
		out:     p.Out,
		paths:   p,
		runtime: rt,
		ctx:     jobCtx,
		cancel:  cancel,
		start:   start,
		logger:  logger,
	}, nil
}

func (b *Backend) containerFor(ctx context.Context, h derivation.Hints, p Paths) ContainerRuntime {
	if h.Container == "" {
		return NoContainer{}
	}
	if b.container == ContainerNone {
		ctxlog.FromContext(ctx).Warn("Container hint ignored, no container runtime configured.", "image", h.Container)
		return NoContainer{}
	}
	return EngineContainer{
		Engine:  b.container,
		Image:   h.Container,
		Root:    b.root,
		WorkDir: p.Run,
		Memory:  h.Memory,
	}
}

func parseShell(line string) ([]string, error) {
	argv, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parsing shell %q: %w", line, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parsing shell %q: empty command", line)
	}
	return argv, nil
}

type job struct {
	id     nodeid.ID
	cached bool
	out    string

	paths   Paths
	runtime HPCRuntime
	lock    *flock.Flock
	ctx     context.Context
	cancel  context.CancelFunc
	start   time.Time
	logger  *slog.Logger
}

func (j *job) ID() nodeid.ID { return j.id }
func (j *job) Cached() bool  { return j.cached }

func (j *job) Wait() (Result, error) {
	res := Result{ID: j.id, Cached: j.cached, Output: j.out}
	if j.cached {
		return res, nil
	}
	defer j.release()

	waitErr := j.runtime.Wait()
	res.Duration = time.Since(j.start)

	if waitErr != nil {
		code := -1
		var coded interface{ ExitCode() int }
		if errors.As(waitErr, &coded) {
			code = coded.ExitCode()
		}
		if errors.Is(j.ctx.Err(), context.DeadlineExceeded) {
			return res, &JobError{ID: j.id, ExitCode: -1, Err: ErrTimeout}
		}
		if cerr := j.ctx.Err(); cerr != nil {
			return res, &JobError{ID: j.id, ExitCode: -1, Err: cerr}
		}
		return res, &JobError{ID: j.id, ExitCode: code, Err: waitErr}
	}

	if err := writeMarker(j.paths); err != nil {
		return res, fmt.Errorf("writing %s: %w", j.paths.Marker, err)
	}
	j.logger.Debug("Job finished.", "duration", res.Duration)
	return res, nil
}

func (j *job) release() {
	j.cancel()
	if j.lock == nil {
		return
	}
	if err := j.lock.Unlock(); err != nil {
		j.logger.Warn("Failed to release derivation lock.", "error", err)
	}
}

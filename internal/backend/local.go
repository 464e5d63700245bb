package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/apparentlymart/go-shquot/shquot"
)

// LocalRuntime runs a job as a child process in its working directory.
type LocalRuntime struct {
	cmd  *exec.Cmd
	line string
	done chan struct{}
	err  error
}

// SubmitJob starts `<shell...> .cmd` and returns once the process is running.
func (r *LocalRuntime) SubmitJob(ctx context.Context, spec JobSpec) error {
	if r.cmd != nil {
		return errors.New("local runtime already has a job")
	}
	if len(spec.Shell) == 0 {
		return errors.New("no shell configured")
	}

	argv := append(append([]string{}, spec.Shell...), CmdFile)
	stdout, err := os.Create(spec.Stdout)
	if err != nil {
		return fmt.Errorf("creating stdout file: %w", err)
	}
	stderr, err := os.Create(spec.Stderr)
	if err != nil {
		stdout.Close()
		return fmt.Errorf("creating stderr file: %w", err)
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = spec.WorkDir
	c.Env = append(os.Environ(), spec.Env...)
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = 5 * time.Second
	setProcessGroup(c)

	if err := c.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return fmt.Errorf("starting %s: %w", argv[0], err)
	}

	r.cmd = c
	r.line = shquot.POSIXShell(argv)
	r.done = make(chan struct{})
	go func() {
		r.err = c.Wait()
		stdout.Close()
		stderr.Close()
		close(r.done)
	}()
	return nil
}

// Cmd returns the quoted command line of the running job.
func (r *LocalRuntime) Cmd() string {
	return strings.TrimSpace(r.line)
}

// Wait blocks until the child process exits.
func (r *LocalRuntime) Wait() error {
	if r.done == nil {
		return errors.New("no job submitted")
	}
	<-r.done
	return r.err
}

// Finished reports whether the child process has exited.
func (r *LocalRuntime) Finished() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

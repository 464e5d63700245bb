package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/specialistvlad/hashgrid/internal/backend"
	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

// ExecutionRecord holds the start and end times of one job.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// ExitError is returned by RecordingRuntime jobs configured to fail.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode returns the simulated exit status.
func (e *ExitError) ExitCode() int { return e.Code }

// RecordingRuntime is an in-process HPC runtime for tests. Instead of running
// the command file it sleeps, writes the derivation's output file and records
// when each job ran, keyed by derivation name.
type RecordingRuntime struct {
	// Sleep is how long every job runs.
	Sleep time.Duration
	// Fail maps derivation names to the exit code their job reports.
	Fail map[string]int

	mu         sync.Mutex
	records    map[string]*ExecutionRecord
	order      []string
	running    int
	maxRunning int
}

// NewRecordingRuntime returns a runtime whose jobs each take sleep.
func NewRecordingRuntime(sleep time.Duration) *RecordingRuntime {
	return &RecordingRuntime{
		Sleep:   sleep,
		Fail:    map[string]int{},
		records: map[string]*ExecutionRecord{},
	}
}

// Factory plugs the runtime into a backend.
func (r *RecordingRuntime) Factory() backend.RuntimeFactory {
	return func() backend.HPCRuntime { return &recordingJob{parent: r} }
}

// Record returns the execution record for a derivation name.
func (r *RecordingRuntime) Record(name string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Order returns derivation names in the order their jobs started.
func (r *RecordingRuntime) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Count returns how many jobs were started.
func (r *RecordingRuntime) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// MaxConcurrent returns the highest number of jobs seen running at once.
func (r *RecordingRuntime) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxRunning
}

func (r *RecordingRuntime) start(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[name] = &ExecutionRecord{Start: time.Now()}
	r.order = append(r.order, name)
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
}

func (r *RecordingRuntime) finish(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[name].End = time.Now()
	r.running--
	return r.Fail[name]
}

type recordingJob struct {
	parent *RecordingRuntime
	line   string
	done   chan struct{}
	err    error
}

func (j *recordingJob) SubmitJob(ctx context.Context, spec backend.JobSpec) error {
	// WorkDir is <root>/<id>/run.
	dir := filepath.Dir(spec.WorkDir)
	id, err := nodeid.Parse(filepath.Base(dir))
	if err != nil {
		return err
	}
	j.line = filepath.Join(spec.WorkDir, backend.CmdFile)
	j.done = make(chan struct{})
	j.parent.start(id.Name)

	go func() {
		defer close(j.done)
		select {
		case <-time.After(j.parent.Sleep):
		case <-ctx.Done():
			j.parent.finish(id.Name)
			j.err = ctx.Err()
			return
		}
		if code := j.parent.finish(id.Name); code != 0 {
			j.err = &ExitError{Code: code}
			return
		}
		j.err = os.WriteFile(filepath.Join(dir, backend.OutName), []byte(id.Name+"\n"), 0o644)
	}()
	return nil
}

func (j *recordingJob) Cmd() string { return j.line }

func (j *recordingJob) Wait() error {
	<-j.done
	return j.err
}

func (j *recordingJob) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

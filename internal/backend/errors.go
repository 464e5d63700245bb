package backend

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/hashgrid/internal/nodeid"
)

var (
	// ErrPermission is returned when the work root cannot be written. It is
	// fatal for the whole run.
	ErrPermission = errors.New("permission denied in work root")
	// ErrUnsupportedBackend is returned for declared but unimplemented
	// runtime kinds.
	ErrUnsupportedBackend = errors.New("unsupported backend")
	// ErrTimeout is wrapped by a JobError when the job hit its time limit.
	ErrTimeout = errors.New("job timed out")
	// ErrLocked is returned when the derivation's lock could not be taken
	// before the context ended.
	ErrLocked = errors.New("derivation is locked by another process")
)

// JobError describes a derivation whose job could not be started or did not
// exit successfully.
type JobError struct {
	ID       nodeid.ID
	ExitCode int // -1 when the job never produced an exit status
	Err      error
}

func (e *JobError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("derivation %s (%s): exit status %d", e.ID, e.ID.Name, e.ExitCode)
	}
	return fmt.Sprintf("derivation %s (%s): %v", e.ID, e.ID.Name, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

// Package events reports run progress to observers such as the log or a
// socket.io dashboard.
package events

import (
	"context"
	"time"
)

// Type identifies what happened.
type Type string

const (
	RunStarted    Type = "run.started"
	RunFinished   Type = "run.finished"
	LevelStarted  Type = "level.started"
	LevelFinished Type = "level.finished"
	JobStarted    Type = "job.started"
	JobCached     Type = "job.cached"
	JobCompleted  Type = "job.completed"
	JobFailed     Type = "job.failed"
)

// Event is one progress notification. Fields that do not apply to the event's
// type are left empty.
type Event struct {
	Type     Type          `json:"type"`
	RunID    string        `json:"run_id,omitempty"`
	Time     time.Time     `json:"time"`
	Level    int           `json:"level"`
	Size     int           `json:"size,omitempty"`
	ID       string        `json:"id,omitempty"`
	Name     string        `json:"name,omitempty"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Fields flattens the event into a map suitable for emitting over the wire.
func (e Event) Fields() map[string]any {
	m := map[string]any{
		"type":  string(e.Type),
		"time":  e.Time.UTC().Format(time.RFC3339Nano),
		"level": e.Level,
	}
	if e.RunID != "" {
		m["run_id"] = e.RunID
	}
	if e.Size != 0 {
		m["size"] = e.Size
	}
	if e.ID != "" {
		m["id"] = e.ID
		m["name"] = e.Name
	}
	if e.Output != "" {
		m["output"] = e.Output
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	if e.Duration != 0 {
		m["duration_ms"] = e.Duration.Milliseconds()
	}
	return m
}

// Reporter receives events. Report must not block for long; reporters that
// talk to the network deliver asynchronously.
type Reporter interface {
	Report(ctx context.Context, e Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Report(context.Context, Event) {}

// Multi fans an event out to several reporters.
type Multi []Reporter

func (m Multi) Report(ctx context.Context, e Event) {
	for _, r := range m {
		r.Report(ctx, e)
	}
}

// WithRunID stamps every event with a run ID and the current time before
// passing it on.
func WithRunID(runID string, next Reporter) Reporter {
	return &stamped{runID: runID, next: next, now: time.Now}
}

type stamped struct {
	runID string
	next  Reporter
	now   func() time.Time
}

func (s *stamped) Report(ctx context.Context, e Event) {
	if e.RunID == "" {
		e.RunID = s.runID
	}
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	s.next.Report(ctx, e)
}

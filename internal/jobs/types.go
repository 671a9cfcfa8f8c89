// Package jobs implements the background job engine: a serial FIFO queue
// with cooperative cancellation, pause/resume, and progress reporting, plus
// the runners that execute scans and completeness analysis.
package jobs

import (
	"context"
	"time"
)

// Type identifies a kind of background job.
type Type string

const (
	TypeLibraryScan            Type = "library-scan"
	TypeMusicScan              Type = "music-scan"
	TypeSeriesCompleteness     Type = "series-completeness"
	TypeCollectionCompleteness Type = "collection-completeness"
	TypeMusicCompleteness      Type = "music-completeness"
)

// Spec describes a job to enqueue. SourceID and LibraryID narrow scan jobs;
// zero values mean "all enabled sources" and "all libraries". Full forces
// scan jobs to ignore incremental cursors.
type Spec struct {
	Type      Type   `json:"type"`
	SourceID  int64  `json:"sourceId,omitempty"`
	LibraryID string `json:"libraryId,omitempty"`
	Full      bool   `json:"full,omitempty"`
	Label     string `json:"label,omitempty"`
}

// State is a job's lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Job is one queued or running unit of work.
type Job struct {
	ID         string     `json:"id"`
	Spec       Spec       `json:"spec"`
	State      State      `json:"state"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
	Summary    string     `json:"summary,omitempty"`
}

// Progress is a point-in-time progress snapshot for the running job. Total
// zero means the extent is not yet known.
type Progress struct {
	JobID       string  `json:"jobId"`
	Current     int     `json:"current"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
	Phase       string  `json:"phase"`
	CurrentItem string  `json:"currentItem,omitempty"`
}

// QueueState is an immutable snapshot of the queue.
type QueueState struct {
	Current *Job  `json:"current,omitempty"`
	Queue   []Job `json:"queue"`
	Paused  bool  `json:"paused"`
}

// ReportFunc is called by runners to publish progress.
type ReportFunc func(current, total int, phase, item string)

// Runner executes jobs of one or more types.
type Runner interface {
	Run(ctx context.Context, job *Job, report ReportFunc) (summary string, err error)
}

// Notifier receives queue transitions and progress snapshots. Events for one
// job arrive in order.
type Notifier interface {
	QueueChanged(state QueueState)
	JobProgress(p Progress)
	JobFinished(job Job)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) QueueChanged(QueueState) {}
func (NopNotifier) JobProgress(Progress)    {}
func (NopNotifier) JobFinished(Job)         {}

package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/medley-app/medley/internal/config"
	"github.com/medley-app/medley/internal/jobs"
)

// Enqueuer is the slice of the job queue the scheduler needs.
type Enqueuer interface {
	Enqueue(spec jobs.Spec) (*jobs.Job, error)
}

// RegisterDefaultTasks wires the recurring scan and completeness tasks. Each
// tick enqueues jobs and returns; the queue decides when they actually run.
func RegisterDefaultTasks(s *Scheduler, queue Enqueuer, cfg config.SchedulerConfig) error {
	err := s.RegisterTask(TaskConfig{
		ID:          "library-scan",
		Name:        "Library Scan",
		Description: "Incremental scan of all enabled sources",
		Cron:        cfg.ScanCron,
		RunOnStart:  cfg.RunOnStart,
		Func: func(ctx context.Context) error {
			return enqueueAll(queue,
				jobs.Spec{Type: jobs.TypeLibraryScan, Label: "scheduled scan"},
				jobs.Spec{Type: jobs.TypeMusicScan, Label: "scheduled scan"},
			)
		},
	})
	if err != nil {
		return err
	}

	return s.RegisterTask(TaskConfig{
		ID:          "completeness-refresh",
		Name:        "Completeness Refresh",
		Description: "Re-analyze series, collection, and music completeness",
		Cron:        cfg.CompletenessCron,
		RunOnStart:  false,
		Func: func(ctx context.Context) error {
			return enqueueAll(queue,
				jobs.Spec{Type: jobs.TypeSeriesCompleteness, Label: "scheduled analysis"},
				jobs.Spec{Type: jobs.TypeCollectionCompleteness, Label: "scheduled analysis"},
				jobs.Spec{Type: jobs.TypeMusicCompleteness, Label: "scheduled analysis"},
			)
		},
	})
}

// enqueueAll tries every spec; one unavailable job type (a catalog without
// credentials has no runner) must not hold back the rest.
func enqueueAll(queue Enqueuer, specs ...jobs.Spec) error {
	var errs []error
	for _, spec := range specs {
		if _, err := queue.Enqueue(spec); err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", spec.Type, err))
		}
	}
	return errors.Join(errs...)
}

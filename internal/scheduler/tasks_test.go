package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/config"
	"github.com/medley-app/medley/internal/jobs"
)

type fakeEnqueuer struct {
	specs  []jobs.Spec
	errFor map[jobs.Type]error
}

func (f *fakeEnqueuer) Enqueue(spec jobs.Spec) (*jobs.Job, error) {
	if err := f.errFor[spec.Type]; err != nil {
		return nil, err
	}
	f.specs = append(f.specs, spec)
	return &jobs.Job{Spec: spec}, nil
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		ScanCron:         "0 3 * * *",
		CompletenessCron: "30 4 * * *",
	}
}

func TestRegisterDefaultTasks(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	queue := &fakeEnqueuer{}
	if err := RegisterDefaultTasks(s, queue, testSchedulerConfig()); err != nil {
		t.Fatalf("RegisterDefaultTasks: %v", err)
	}

	tasks := s.ListTasks()
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}

	ids := map[string]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	if !ids["library-scan"] || !ids["completeness-refresh"] {
		t.Errorf("task ids = %v, want library-scan and completeness-refresh", ids)
	}
}

func TestScanTaskEnqueuesBothScanTypes(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	queue := &fakeEnqueuer{}
	if err := RegisterDefaultTasks(s, queue, testSchedulerConfig()); err != nil {
		t.Fatalf("RegisterDefaultTasks: %v", err)
	}

	entry := s.tasks["library-scan"]
	if err := entry.config.Func(context.Background()); err != nil {
		t.Fatalf("scan task: %v", err)
	}

	if len(queue.specs) != 2 {
		t.Fatalf("enqueued %d jobs, want 2", len(queue.specs))
	}
	if queue.specs[0].Type != jobs.TypeLibraryScan || queue.specs[1].Type != jobs.TypeMusicScan {
		t.Errorf("enqueued types = %v", queue.specs)
	}
}

func TestCompletenessTaskSurvivesMissingRunner(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Series and collection analysis are unavailable without a configured
	// video catalog; the music job must still be enqueued.
	queue := &fakeEnqueuer{errFor: map[jobs.Type]error{
		jobs.TypeSeriesCompleteness:     jobs.ErrUnknownType,
		jobs.TypeCollectionCompleteness: jobs.ErrUnknownType,
	}}
	if err := RegisterDefaultTasks(s, queue, testSchedulerConfig()); err != nil {
		t.Fatalf("RegisterDefaultTasks: %v", err)
	}

	entry := s.tasks["completeness-refresh"]
	err = entry.config.Func(context.Background())
	if !errors.Is(err, jobs.ErrUnknownType) {
		t.Errorf("task err = %v, want the enqueue failures reported", err)
	}
	if len(queue.specs) != 1 || queue.specs[0].Type != jobs.TypeMusicCompleteness {
		t.Errorf("enqueued = %v, want only music-completeness", queue.specs)
	}
}

func TestDuplicateTaskRegistrationRejected(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg := TaskConfig{ID: "x", Name: "X", Cron: "* * * * *", Func: func(ctx context.Context) error { return nil }}
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := s.RegisterTask(cfg); err == nil {
		t.Error("duplicate id should be rejected")
	}
}

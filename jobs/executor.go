// Package jobs runs one task's upstream processing call per goroutine:
// the HTTP handler returns immediately once a job is accepted, and the
// goroutine itself carries the task through to a terminal state.
package jobs

import (
	"context"
	"fmt"
	"time"

	"standards-gateway/common"
	"standards-gateway/store"
	"standards-gateway/upstream"
)

// Status is the terminal/running state a single job run reports,
// trimmed to the subset a background job actually passes through.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result records one job run's outcome for logging purposes; it is not
// persisted directly, the task row and its TaskResult rows are the
// durable record. Grounded on executor.Result.
type Result struct {
	TaskID    string
	Status    Status
	Err       error
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// TaskStore is the subset of *store.Store the executor depends on,
// narrowed to an interface so tests can supply an in-memory fake.
type TaskStore interface {
	Transition(taskID string, from []string, to string) error
	ForceFail(taskID string) error
	CreateTaskResult(r *store.TaskResult) error
}

// Upstream is the subset of *upstream.Router the executor depends on.
type Upstream interface {
	ForwardStandardType(ctx context.Context, taskType string, body interface{}) (*upstream.Result, error)
}

// Extractor turns a raw upstream answer payload into the TaskResult row
// to persist; implemented by the result-extraction package so the job
// executor never parses LLM payload shapes itself.
type Extractor interface {
	Extract(taskID, userID, taskType string, body interface{}) (*store.TaskResult, error)
}

// ResultCache is consulted after a new TaskResult is persisted so stale
// paginated pages never outlive the data it invalidates; nil-safe on the
// concrete *extract.Cache when no redis backend is configured.
type ResultCache interface {
	Invalidate(ctx context.Context, taskID string)
}

// Executor launches one goroutine per accepted job and guarantees every
// task it accepts reaches a terminal status (completed or failed), per
// the concurrency model's terminal-state property.
type Executor struct {
	store      TaskStore
	upstream   Upstream
	extractor  Extractor
	cache      ResultCache
	jobTimeout time.Duration
}

func NewExecutor(store TaskStore, upstream Upstream, extractor Extractor, cache ResultCache) *Executor {
	return &Executor{store: store, upstream: upstream, extractor: extractor, cache: cache, jobTimeout: 55 * time.Minute}
}

// Launch transitions the task uploaded→processing synchronously (so the
// HTTP response can report the new status truthfully) then hands the
// blocking upstream call to a new goroutine. The transition itself is
// the terminal-state guarantee's anchor: once it succeeds the task is
// owned by exactly one in-flight goroutine, which a deferred recover
// ensures cannot leave the task stuck at processing. requestBody is the
// caller's opaque standard-processing payload, forwarded verbatim to the
// upstream call except for its task_id key, which is always stripped.
func (e *Executor) Launch(task *store.Task, requestBody map[string]interface{}) error {
	if err := e.store.Transition(task.ID, []string{store.StatusUploaded}, store.StatusProcessing); err != nil {
		return err
	}

	taskCopy := *task
	taskCopy.Status = store.StatusProcessing

	body := map[string]interface{}{}
	for k, v := range requestBody {
		body[k] = v
	}
	delete(body, "task_id")
	body["task_type"] = task.TaskType

	go e.run(&taskCopy, body)
	return nil
}

func (e *Executor) run(task *store.Task, body map[string]interface{}) {
	start := time.Now().UTC()

	defer func() {
		if rec := recover(); rec != nil {
			common.Logger.WithField("task_id", task.ID).WithField("panic", rec).Error("job panicked")
			e.fail(task.ID, fmt.Errorf("panic: %v", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.jobTimeout)
	defer cancel()

	err := e.process(ctx, task, body)
	duration := time.Now().UTC().Sub(start)

	if err != nil {
		common.Logger.WithField("task_id", task.ID).WithField("duration", duration).WithError(err).Error("job failed")
		e.fail(task.ID, err)
		return
	}

	common.Logger.WithField("task_id", task.ID).WithField("duration", duration).Info("job completed")
	if transErr := e.store.Transition(task.ID, []string{store.StatusProcessing}, store.StatusCompleted); transErr != nil {
		common.Logger.WithField("task_id", task.ID).WithError(transErr).Error("failed to mark task completed after successful extraction")
	}
	if e.cache != nil {
		e.cache.Invalidate(context.Background(), task.ID)
	}
}

// process makes the blocking upstream call, extracts the result, and
// persists it.
func (e *Executor) process(ctx context.Context, task *store.Task, body map[string]interface{}) error {
	res, err := e.upstream.ForwardStandardType(ctx, task.TaskType, body)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("upstream returned status %d", res.StatusCode)
	}

	extracted, err := e.extractor.Extract(task.ID, task.UserID, task.TaskType, res.Body)
	if err != nil {
		return fmt.Errorf("extract result: %w", err)
	}

	if err := e.store.CreateTaskResult(extracted); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	return nil
}

// fail transitions the task to failed from whatever state it is
// currently in, swallowing ErrIllegalTransition if another writer
// already moved it to a terminal state; the guarantee is "ends up
// terminal", not "this goroutine wins the race".
func (e *Executor) fail(taskID string, cause error) {
	if err := e.store.ForceFail(taskID); err != nil {
		common.Logger.WithField("task_id", taskID).WithError(err).WithField("cause", cause.Error()).Error("failed to force-fail task after job error")
	}
}

/*
jobs.go - Cancellable department-scoped recalculation jobs

PURPOSE:
  Runs bulk recomputation in the background when a limit changes.
  One job per department at a time: scheduling a job for a department
  that already has one running cancels the prior job first, so repeated
  limit edits supersede instead of stacking conflicting recomputations.
  A short debounce absorbs bursts of triggers for the same department.

  Each job writes a RecalcRun record (running -> completed / canceled /
  failed) that report collaborators can poll for progress.
*/
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timeclock-engine/timeclock"
)

// DefaultDebounce absorbs rapid re-triggers for the same department.
const DefaultDebounce = 200 * time.Millisecond

type JobManager struct {
	orch     *Orchestrator
	runs     timeclock.RunStore
	log      *slog.Logger
	debounce time.Duration

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

type job struct {
	runID  string
	cancel context.CancelFunc
}

func NewJobManager(orch *Orchestrator, runs timeclock.RunStore, logger *slog.Logger) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		orch:     orch,
		runs:     runs,
		log:      logger,
		debounce: DefaultDebounce,
		jobs:     make(map[string]*job),
	}
}

// SetDebounce overrides the trigger debounce (zero disables it).
func (jm *JobManager) SetDebounce(d time.Duration) { jm.debounce = d }

// Schedule starts a recalculation job for the department (empty string
// means all departments). A running job for the same department is
// canceled and superseded. Returns the new run ID.
func (jm *JobManager) Schedule(department string, period timeclock.Period) string {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if prior, ok := jm.jobs[department]; ok {
		prior.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{runID: uuid.NewString(), cancel: cancel}
	jm.jobs[department] = j

	jm.wg.Add(1)
	go jm.run(ctx, j, department, period)
	return j.runID
}

// Stop cancels every running job and waits for them to wind down.
func (jm *JobManager) Stop() {
	jm.mu.Lock()
	for _, j := range jm.jobs {
		j.cancel()
	}
	jm.mu.Unlock()
	jm.wg.Wait()
}

// Wait blocks until all currently scheduled jobs finish. Mostly for
// tests and graceful shutdown.
func (jm *JobManager) Wait() { jm.wg.Wait() }

func (jm *JobManager) run(ctx context.Context, j *job, department string, period timeclock.Period) {
	defer jm.wg.Done()
	defer jm.forget(department, j)

	if jm.debounce > 0 {
		timer := time.NewTimer(jm.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	run := timeclock.RecalcRun{
		ID:         j.runID,
		Department: department,
		Period:     period,
		Status:     "running",
		StartedAt:  time.Now().UTC(),
	}
	jm.saveRun(run)

	report, err := jm.orch.RecalculateAll(ctx, Scope{Department: department, Period: period})

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Recomputed = report.Recomputed
	run.Skipped = report.Skipped
	run.ErrorCount = len(report.Errors)

	switch {
	case errors.Is(err, context.Canceled):
		run.Status = "canceled"
	case err != nil:
		run.Status = "failed"
		run.Error = err.Error()
	default:
		run.Status = "completed"
	}
	jm.saveRun(run)

	jm.log.Info("recalculation job finished",
		"run", run.ID,
		"department", department,
		"status", run.Status,
		"recomputed", run.Recomputed,
		"skipped", run.Skipped,
		"errors", run.ErrorCount)
}

func (jm *JobManager) forget(department string, j *job) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	// Only forget ourselves: a superseding job may already own the slot.
	if current, ok := jm.jobs[department]; ok && current == j {
		delete(jm.jobs, department)
	}
}

func (jm *JobManager) saveRun(run timeclock.RecalcRun) {
	if jm.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultStoreTimeout)
	defer cancel()
	if err := jm.runs.SaveRun(ctx, run); err != nil {
		jm.log.Error("failed to save recalculation run", "run", run.ID, "error", err)
	}
}

// Runs lists recorded recalculation runs, newest-first.
func (jm *JobManager) Runs(ctx context.Context, department string) ([]timeclock.RecalcRun, error) {
	if jm.runs == nil {
		return nil, nil
	}
	sctx, cancel := context.WithTimeout(ctx, DefaultStoreTimeout)
	defer cancel()
	runs, err := jm.runs.ListRuns(sctx, department)
	if err != nil {
		return nil, &timeclock.PersistenceError{Op: "ListRuns", Err: err}
	}
	return runs, nil
}

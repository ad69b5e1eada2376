package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock-engine/engine"
	"github.com/warp/timeclock-engine/timeclock"
)

func newLimitsFixture(t *testing.T) (*engine.LimitsEngine, *fixture) {
	t.Helper()
	f := newFixture(t)
	limits := engine.NewLimitsEngine(engine.LimitsDeps{
		Limits:    f.mem,
		Calcs:     f.mem,
		Audit:     f.audit,
		Events:    f.events,
		Directory: f.directory,
	})
	return limits, f
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestSetLimit_PersistsAuditsAndPublishes(t *testing.T) {
	limits, f := newLimitsFixture(t)
	ctx := context.Background()

	// WHEN: Setting a 3h/50h limit on logistics
	limit, err := limits.SetLimit(ctx, "logistics",
		timeclock.HoursFromInt(3), timeclock.HoursFromInt(50),
		timeclock.Actor{ID: "admin-1", Name: "Dana"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", limit.UpdatedBy)

	// THEN: Persisted
	stored, err := f.mem.GetLimit(ctx, "logistics")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.DailyLimitHours.Equal(timeclock.HoursFromInt(3)))

	// AND: Audited with an after snapshot
	entries, err := f.audit.Query(ctx, timeclock.AuditFilter{Actions: []timeclock.AuditAction{timeclock.AuditLimitSet}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "logistics", entries[0].Department)
	assert.Equal(t, "3", entries[0].After["daily"])
	assert.Empty(t, entries[0].Before)

	// AND: A limits_changed event carries the new values
	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, timeclock.EventLimitsChanged, events[0].Type)
	assert.Equal(t, 3.0, events[0].Payload["daily"])
}

func TestSetLimit_SecondSetRecordsPreviousSnapshot(t *testing.T) {
	limits, f := newLimitsFixture(t)
	ctx := context.Background()
	actor := timeclock.Actor{ID: "admin-1"}

	_, err := limits.SetLimit(ctx, "logistics", timeclock.HoursFromInt(3), timeclock.HoursFromInt(50), actor)
	require.NoError(t, err)
	_, err = limits.SetLimit(ctx, "logistics", timeclock.HoursFromInt(4), timeclock.HoursFromInt(60), actor)
	require.NoError(t, err)

	entries, err := f.audit.Query(ctx, timeclock.AuditFilter{Actions: []timeclock.AuditAction{timeclock.AuditLimitSet}})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first: its before snapshot is the first set's values
	assert.Equal(t, "3", entries[0].Before["daily"])
	assert.Equal(t, "4", entries[0].After["daily"])
}

func TestSetLimit_OutOfBoundsRejected(t *testing.T) {
	limits, f := newLimitsFixture(t)
	ctx := context.Background()

	_, err := limits.SetLimit(ctx, "logistics",
		timeclock.HoursFromInt(30), timeclock.HoursFromInt(50), timeclock.Actor{ID: "admin"})

	require.Error(t, err)
	assert.True(t, timeclock.IsClientError(err))

	// Nothing persisted, nothing audited
	stored, err := f.mem.GetLimit(ctx, "logistics")
	require.NoError(t, err)
	assert.Nil(t, stored)
	entries, err := f.audit.Query(ctx, timeclock.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResetLimit_RestoresDefaults(t *testing.T) {
	limits, f := newLimitsFixture(t)
	ctx := context.Background()
	actor := timeclock.Actor{ID: "admin-1"}

	_, err := limits.SetLimit(ctx, "logistics", timeclock.HoursFromInt(4), timeclock.HoursFromInt(60), actor)
	require.NoError(t, err)

	// WHEN: Resetting
	limit, err := limits.ResetLimit(ctx, "logistics", actor)
	require.NoError(t, err)

	// THEN: Factory defaults, audited as a reset with the prior values
	assert.True(t, limit.DailyLimitHours.Equal(timeclock.HoursFromInt(2)))
	assert.True(t, limit.MonthlyLimitHours.Equal(timeclock.HoursFromInt(40)))

	entries, err := f.audit.Query(ctx, timeclock.AuditFilter{Actions: []timeclock.AuditAction{timeclock.AuditLimitReset}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "4", entries[0].Before["daily"])
	assert.Equal(t, "2", entries[0].After["daily"])
}

func TestResetLimit_UnconfiguredDepartment(t *testing.T) {
	limits, _ := newLimitsFixture(t)

	_, err := limits.ResetLimit(context.Background(), "never-configured", timeclock.Actor{ID: "admin"})

	require.Error(t, err)
	assert.True(t, timeclock.IsNotFound(err))
}

// =============================================================================
// READS AND EVALUATION
// =============================================================================

func TestLimitFor_DefaultWhenUnconfigured(t *testing.T) {
	limits, _ := newLimitsFixture(t)

	limit, err := limits.LimitFor(context.Background(), "warehouse")
	require.NoError(t, err)

	assert.True(t, limit.DailyLimitHours.Equal(timeclock.HoursFromInt(2)))
	assert.True(t, limit.MonthlyLimitHours.Equal(timeclock.HoursFromInt(40)))
}

func TestStatusFor_UsesDailyAndMonthlyBounds(t *testing.T) {
	limits, f := newLimitsFixture(t)
	ctx := context.Background()

	// GIVEN: A month whose cumulative overtime already sits at 39h
	for day := 1; day <= 13; day++ {
		calc := timeclock.HoursCalculation{
			CollaboratorID: "alice",
			Department:     "logistics",
			Date:           timeclock.NewDate(2025, time.March, day),
			WorkedHours:    timeclock.HoursFromInt(11),
		}
		calc.Overtime.Total = timeclock.HoursFromInt(3)
		require.NoError(t, f.mem.SaveCalculation(ctx, calc))
	}

	today := timeclock.HoursCalculation{
		CollaboratorID: "alice",
		Department:     "logistics",
		Date:           timeclock.NewDate(2025, time.March, 14),
	}
	today.Overtime.Total = timeclock.HoursFromInt(1)
	require.NoError(t, f.mem.SaveCalculation(ctx, today))

	// WHEN: Evaluating a day with only 1h of overtime (daily ok)
	status, err := limits.StatusFor(ctx, today)
	require.NoError(t, err)

	// THEN: The monthly bound (40h cumulative vs 40h limit) reports near
	assert.Equal(t, timeclock.StatusNear, status)
}

func TestDepartments_UnionOfLimitsAndDirectory(t *testing.T) {
	limits, _ := newLimitsFixture(t)
	ctx := context.Background()

	_, err := limits.SetLimit(ctx, "night-shift",
		timeclock.HoursFromInt(2), timeclock.HoursFromInt(40), timeclock.Actor{ID: "admin"})
	require.NoError(t, err)

	departments, err := limits.Departments(ctx)
	require.NoError(t, err)

	// Directory contributes logistics and warehouse; limits contribute night-shift
	assert.Equal(t, []string{"logistics", "night-shift", "warehouse"}, departments)
}

func TestHistory_OnlyLimitActions(t *testing.T) {
	limits, f := newLimitsFixture(t)
	ctx := context.Background()
	actor := timeclock.Actor{ID: "admin-1"}

	_, err := limits.SetLimit(ctx, "logistics", timeclock.HoursFromInt(3), timeclock.HoursFromInt(50), actor)
	require.NoError(t, err)
	require.NoError(t, f.audit.Append(ctx, timeclock.AuditEntry{
		ID: "x", Timestamp: time.Now(), Action: timeclock.AuditCorrection,
	}))

	history, err := limits.History(ctx)
	require.NoError(t, err)

	require.Len(t, history, 1)
	assert.Equal(t, timeclock.AuditLimitSet, history[0].Action)
}

// =============================================================================
// JOB SCHEDULING ON LIMIT CHANGES
// =============================================================================

func TestSetLimit_SchedulesDepartmentRecalculation(t *testing.T) {
	f := newFixture(t)
	f.recordShift(t, "alice", 10, 9, 18)

	jobs := engine.NewJobManager(f.orch, f.mem, nil)
	jobs.SetDebounce(0)
	defer jobs.Stop()

	limits := engine.NewLimitsEngine(engine.LimitsDeps{
		Limits:    f.mem,
		Calcs:     f.mem,
		Audit:     f.audit,
		Events:    f.events,
		Directory: f.directory,
		Jobs:      jobs,
	})

	// WHEN: A limit changes
	_, err := limits.SetLimit(context.Background(), "logistics",
		timeclock.HoursFromInt(3), timeclock.HoursFromInt(50), timeclock.Actor{ID: "admin"})
	require.NoError(t, err)
	jobs.Wait()

	// THEN: A run record was written for the department
	runs, err := jobs.Runs(context.Background(), "logistics")
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 1, runs[0].Recomputed)
}

// =============================================================================
// JOB MANAGER
// =============================================================================

func TestJobManager_SupersedingJobCancelsPrior(t *testing.T) {
	f := newFixture(t)
	for day := 1; day <= 20; day++ {
		f.recordShift(t, "alice", day, 9, 18)
	}

	jobs := engine.NewJobManager(f.orch, f.mem, nil)
	// A long debounce keeps the first job parked so the second
	// reliably supersedes it.
	jobs.SetDebounce(200 * time.Millisecond)
	defer jobs.Stop()

	firstID := jobs.Schedule("logistics", timeclock.Period{})
	jobs.SetDebounce(0)
	secondID := jobs.Schedule("logistics", timeclock.Period{})
	require.NotEqual(t, firstID, secondID)
	jobs.Wait()

	runs, err := jobs.Runs(context.Background(), "logistics")
	require.NoError(t, err)

	// The superseded job died in its debounce and never wrote a run;
	// the second ran to completion.
	byID := make(map[string]timeclock.RecalcRun)
	for _, run := range runs {
		byID[run.ID] = run
	}
	assert.NotContains(t, byID, firstID)
	require.Contains(t, byID, secondID)
	assert.Equal(t, "completed", byID[secondID].Status)
	assert.Equal(t, 20, byID[secondID].Recomputed)
}

func TestJobManager_NilRunStoreIsHarmless(t *testing.T) {
	f := newFixture(t)
	f.recordShift(t, "alice", 10, 9, 18)

	jobs := engine.NewJobManager(f.orch, nil, nil)
	jobs.SetDebounce(0)
	jobs.Schedule("logistics", timeclock.Period{})
	jobs.Wait()

	runs, err := jobs.Runs(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, runs)
}

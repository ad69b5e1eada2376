package timeclock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeclock-engine/timeclock"
)

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

func TestDefaultLimit(t *testing.T) {
	limit := timeclock.DefaultLimit("logistics")

	assert.Equal(t, "logistics", limit.Department)
	assert.True(t, limit.DailyLimitHours.Equal(timeclock.HoursFromInt(2)))
	assert.True(t, limit.MonthlyLimitHours.Equal(timeclock.HoursFromInt(40)))
	require.NoError(t, limit.Validate())
}

func TestLimitValidate_Bounds(t *testing.T) {
	cases := []struct {
		name    string
		daily   float64
		monthly float64
		ok      bool
	}{
		{"zero limits are allowed", 0, 0, true},
		{"upper bounds inclusive", 24, 720, true},
		{"negative daily", -1, 40, false},
		{"daily above 24", 25, 40, false},
		{"negative monthly", 2, -1, false},
		{"monthly above 720", 2, 721, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limit := timeclock.OvertimeLimit{
				Department:        "logistics",
				DailyLimitHours:   timeclock.HoursOf(tc.daily),
				MonthlyLimitHours: timeclock.HoursOf(tc.monthly),
			}
			err := limit.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, timeclock.IsClientError(err))
			}
		})
	}
}

func TestLimitValidate_DepartmentRequired(t *testing.T) {
	limit := timeclock.DefaultLimit("")
	limit.Department = ""
	assert.Error(t, limit.Validate())
}

// =============================================================================
// EVALUATION
// =============================================================================

func TestEvaluateLimit_Statuses(t *testing.T) {
	limit := timeclock.DefaultLimit("logistics") // 2h daily, 40h monthly

	cases := []struct {
		name    string
		daily   float64
		monthly float64
		want    timeclock.LimitStatus
	}{
		{"no overtime", 0, 0, timeclock.StatusOK},
		{"well under both bounds", 1, 10, timeclock.StatusOK},
		{"daily at 80 percent", 1.6, 10, timeclock.StatusNear},
		{"daily exactly at the limit", 2, 10, timeclock.StatusNear},
		{"daily strictly above", 2.01, 10, timeclock.StatusExceeded},
		{"monthly at 80 percent", 1, 32, timeclock.StatusNear},
		{"monthly exactly at the limit", 1, 40, timeclock.StatusNear},
		{"monthly strictly above", 1, 40.5, timeclock.StatusExceeded},
		{"worse bound wins", 2.5, 10, timeclock.StatusExceeded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := timeclock.EvaluateLimit(
				timeclock.HoursOf(tc.daily), timeclock.HoursOf(tc.monthly), limit)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateLimit_ZeroOvertimeAgainstZeroLimit(t *testing.T) {
	// GIVEN: A department configured with zero-hour ceilings
	limit := timeclock.OvertimeLimit{
		Department:        "logistics",
		DailyLimitHours:   timeclock.ZeroHours(),
		MonthlyLimitHours: timeclock.ZeroHours(),
	}

	// THEN: No overtime is ok, any overtime is exceeded
	assert.Equal(t, timeclock.StatusOK,
		timeclock.EvaluateLimit(timeclock.ZeroHours(), timeclock.ZeroHours(), limit))
	assert.Equal(t, timeclock.StatusExceeded,
		timeclock.EvaluateLimit(timeclock.HoursOf(0.25), timeclock.ZeroHours(), limit))
}

func TestWorseStatus(t *testing.T) {
	assert.Equal(t, timeclock.StatusExceeded,
		timeclock.WorseStatus(timeclock.StatusNear, timeclock.StatusExceeded))
	assert.Equal(t, timeclock.StatusNear,
		timeclock.WorseStatus(timeclock.StatusNear, timeclock.StatusOK))
	assert.Equal(t, timeclock.StatusOK,
		timeclock.WorseStatus(timeclock.StatusOK, timeclock.StatusOK))
}

package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// DAILY AGGREGATOR TESTS
// =============================================================================

func TestSummarizeDay_WorkMinusLunch(t *testing.T) {
	// GIVEN: 09:00-17:00 with a 12:00-12:30 meal
	// WHEN: Summarizing the day
	// THEN: 8.00 worked, 0.50 lunch, 7.50 payable

	events := []attendance.PunchEvent{
		punch("emp-1", attendance.ClockIn, 2024, time.March, 4, 9, 0),
		punch("emp-1", attendance.MealIn, 2024, time.March, 4, 12, 0),
		punch("emp-1", attendance.MealOut, 2024, time.March, 4, 12, 30),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 4, 17, 0),
	}

	ds := attendance.SummarizeDay("emp-1", day(2024, time.March, 4), events)

	assert.Equal(t, "8.00", ds.WorkHours.StringFixed(2))
	assert.Equal(t, "0.50", ds.LunchHours.StringFixed(2))
	assert.Equal(t, "7.50", ds.PayableHours.StringFixed(2))
	assert.Equal(t, time.Date(2024, time.March, 4, 9, 0, 0, 0, time.Local), ds.FirstIn)
	assert.Equal(t, time.Date(2024, time.March, 4, 17, 0, 0, 0, time.Local), ds.LastOut)
}

func TestSummarizeDay_RestIsPaid(t *testing.T) {
	// GIVEN: A day with a 15-minute rest break
	// WHEN: Summarizing
	// THEN: Rest hours are reported but not subtracted from payable

	events := []attendance.PunchEvent{
		punch("emp-1", attendance.ClockIn, 2024, time.March, 4, 9, 0),
		punch("emp-1", attendance.RestIn, 2024, time.March, 4, 15, 0),
		punch("emp-1", attendance.RestOut, 2024, time.March, 4, 15, 15),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 4, 17, 0),
	}

	ds := attendance.SummarizeDay("emp-1", day(2024, time.March, 4), events)

	assert.Equal(t, "0.25", ds.RestHours.StringFixed(2))
	assert.Equal(t, "8.00", ds.PayableHours.StringFixed(2))
}

func TestSummarizeDay_UnmatchedOpens_NoCredit(t *testing.T) {
	// GIVEN: A clock-in with no clock-out, a meal-in with no meal-out
	// WHEN: Summarizing
	// THEN: No partial credit, no negative time, last-out stays zero

	events := []attendance.PunchEvent{
		punch("emp-1", attendance.ClockIn, 2024, time.March, 4, 9, 0),
		punch("emp-1", attendance.MealIn, 2024, time.March, 4, 12, 0),
	}

	ds := attendance.SummarizeDay("emp-1", day(2024, time.March, 4), events)

	assert.True(t, ds.WorkHours.IsZero())
	assert.True(t, ds.LunchHours.IsZero())
	assert.True(t, ds.PayableHours.IsZero())
	assert.False(t, ds.FirstIn.IsZero())
	assert.True(t, ds.LastOut.IsZero())
}

func TestSummarizeDay_LunchExceedsWork_PayableFlooredAtZero(t *testing.T) {
	// GIVEN: A log where the only closed span is the meal
	// WHEN: Summarizing
	// THEN: Payable is 0, never negative

	events := []attendance.PunchEvent{
		punch("emp-1", attendance.MealIn, 2024, time.March, 4, 12, 0),
		punch("emp-1", attendance.MealOut, 2024, time.March, 4, 13, 0),
	}

	ds := attendance.SummarizeDay("emp-1", day(2024, time.March, 4), events)

	assert.True(t, ds.PayableHours.IsZero())
	assert.Equal(t, "1.00", ds.LunchHours.StringFixed(2))
}

func TestSummarizeDay_SplitShift_SpansAccumulate(t *testing.T) {
	// GIVEN: Two clock pairs in one day
	// WHEN: Summarizing
	// THEN: Work hours sum across both; last-out is the later one

	events := []attendance.PunchEvent{
		punch("emp-1", attendance.ClockIn, 2024, time.March, 4, 9, 0),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 4, 12, 0),
		punch("emp-1", attendance.ClockIn, 2024, time.March, 4, 13, 0),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 4, 17, 0),
	}

	ds := attendance.SummarizeDay("emp-1", day(2024, time.March, 4), events)

	assert.Equal(t, "7.00", ds.WorkHours.StringFixed(2))
	assert.Equal(t, time.Date(2024, time.March, 4, 17, 0, 0, 0, time.Local), ds.LastOut)
}

func TestSummarizeDay_OtherDaysIgnored(t *testing.T) {
	events := []attendance.PunchEvent{
		punch("emp-1", attendance.ClockIn, 2024, time.March, 4, 9, 0),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 4, 17, 0),
		punch("emp-1", attendance.ClockIn, 2024, time.March, 5, 9, 0),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 5, 13, 0),
	}

	ds := attendance.SummarizeDay("emp-1", day(2024, time.March, 4), events)

	assert.Equal(t, "8.00", ds.WorkHours.StringFixed(2))
}

func TestSummarizeDays_GroupedAndOrdered(t *testing.T) {
	// GIVEN: Punches across two days, delivered out of order
	// WHEN: Summarizing the lot
	// THEN: One summary per day, ordered by date

	events := []attendance.PunchEvent{
		punch("emp-1", attendance.ClockIn, 2024, time.March, 5, 9, 0),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 5, 13, 0),
		punch("emp-1", attendance.ClockIn, 2024, time.March, 4, 9, 0),
		punch("emp-1", attendance.ClockOut, 2024, time.March, 4, 17, 0),
	}

	summaries := attendance.SummarizeDays("emp-1", events)

	require.Len(t, summaries, 2)
	assert.Equal(t, day(2024, time.March, 4), summaries[0].Date)
	assert.Equal(t, day(2024, time.March, 5), summaries[1].Date)
	assert.Equal(t, "8.00", summaries[0].WorkHours.StringFixed(2))
	assert.Equal(t, "4.00", summaries[1].WorkHours.StringFixed(2))
}

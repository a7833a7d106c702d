/*
summary.go - Daily aggregator

PURPOSE:
  Folds one calendar day's punches into first-in/last-out times and
  work/lunch/rest/payable hour totals. Payable hours subtract lunch but
  never rest: rest breaks are paid.

PAIRING RULES:
  The aggregator tracks the open CLOCK_IN/MEAL_IN/REST_IN timestamp and
  credits elapsed time only when the matching *_OUT arrives. A span left
  open at day end simply stops contributing; there is no partial credit
  and no negative time.

CORRECTION OVERRIDES:
  When a day has an approved correction, the summary synthesized from
  the correction's time pairs replaces the raw-event summary wholesale.
  That substitution happens in service.go; this file only folds events.
*/
package attendance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DailySummary is the derived per-day aggregate. Hour figures are
// decimal hours rounded to 2 places.
type DailySummary struct {
	EmployeeID   EmployeeID
	Date         Date
	FirstIn      time.Time // zero when the day has no CLOCK_IN
	LastOut      time.Time // zero when no CLOCK_OUT closed a span
	WorkHours    decimal.Decimal
	LunchHours   decimal.Decimal
	RestHours    decimal.Decimal
	PayableHours decimal.Decimal
}

// SummarizeDay folds one employee's punches for a single calendar day.
// Events outside the day are ignored; the input need not be sorted.
func SummarizeDay(employeeID EmployeeID, day Date, events []PunchEvent) DailySummary {
	sorted := make([]PunchEvent, 0, len(events))
	for _, e := range events {
		if e.Day() == day {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var workDur, lunchDur, restDur time.Duration
	var openClock, openMeal, openRest *time.Time
	var firstIn, lastOut time.Time

	for i := range sorted {
		e := sorted[i]
		t := e.Timestamp
		switch e.Type {
		case ClockIn:
			openClock = &t
			if firstIn.IsZero() {
				firstIn = t
			}
		case ClockOut:
			if openClock != nil {
				workDur += t.Sub(*openClock)
				lastOut = t
				openClock = nil
			}
		case MealIn:
			openMeal = &t
		case MealOut:
			if openMeal != nil {
				lunchDur += t.Sub(*openMeal)
				openMeal = nil
			}
		case RestIn:
			openRest = &t
		case RestOut:
			if openRest != nil {
				restDur += t.Sub(*openRest)
				openRest = nil
			}
		}
	}

	work := Hours(workDur)
	lunch := Hours(lunchDur)

	// Rest is paid time; only lunch comes out of payable hours.
	payable := work.Sub(lunch)
	if payable.IsNegative() {
		payable = decimal.Zero
	}

	return DailySummary{
		EmployeeID:   employeeID,
		Date:         day,
		FirstIn:      firstIn,
		LastOut:      lastOut,
		WorkHours:    work,
		LunchHours:   lunch,
		RestHours:    Hours(restDur),
		PayableHours: payable.Round(2),
	}
}

// SummarizeDays groups an employee's punches by local calendar day and
// summarizes each, ordered by date.
func SummarizeDays(employeeID EmployeeID, events []PunchEvent) []DailySummary {
	byDay := make(map[Date][]PunchEvent)
	for _, e := range events {
		d := e.Day()
		byDay[d] = append(byDay[d], e)
	}

	days := make([]Date, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	summaries := make([]DailySummary, 0, len(days))
	for _, d := range days {
		summaries = append(summaries, SummarizeDay(employeeID, d, byDay[d]))
	}
	return summaries
}

/*
reconcile.go - Reconciliation applier

PURPOSE:
  Turns an approved correction request into canonical punch events and
  swaps them into the punch log in place of whatever the day held
  before. The swap is a full overwrite-and-replace for the employee+day,
  not an incremental patch, so applying can never leave a half-merged
  day behind and a repeated approval cannot duplicate events.

ATOMICITY:
  The read-partition-write runs inside the store's ReplaceDay, which is
  indivisible per employee. A direct punch landing on the same
  employee+day mid-approval either lands before the swap (and is
  replaced with the rest of the day) or after it (and survives); it is
  never silently dropped or duplicated.

FAILURE:
  Durations are re-derived and bounds-checked here even though submit
  already validated them. If that re-check fails, the approval is
  rejected and the log is untouched.
*/
package attendance

import (
	"context"

	"github.com/google/uuid"
)

// SynthesizeEvents builds the canonical punches implied by a correction:
// always the clock pair, plus the meal pair and rest pair when supplied.
// Every event is tagged provenance=correction with the request's ID.
func SynthesizeEvents(c *CorrectionRequest) []PunchEvent {
	event := func(t PunchType, at TimeOfDay) PunchEvent {
		return PunchEvent{
			ID:           PunchID(uuid.NewString()),
			EmployeeID:   c.EmployeeID,
			Type:         t,
			Timestamp:    at.At(c.Date),
			Provenance:   ProvenanceCorrection,
			CorrectionID: c.ID,
		}
	}

	events := []PunchEvent{
		event(ClockIn, c.ClockIn),
		event(ClockOut, c.ClockOut),
	}
	if c.MealIn != nil && c.MealOut != nil {
		events = append(events, event(MealIn, *c.MealIn), event(MealOut, *c.MealOut))
	}
	if c.RestIn != nil && c.RestOut != nil {
		events = append(events, event(RestIn, *c.RestIn), event(RestOut, *c.RestOut))
	}
	return events
}

// ApplyCorrection swaps the synthesized events into the punch log for
// the request's employee+day and returns the audit trail. On any error
// the log is left unmodified.
func ApplyCorrection(ctx context.Context, punches PunchStore, c *CorrectionRequest) (*CorrectionAudit, error) {
	spans, err := c.spans()
	if err != nil {
		return nil, err
	}

	inserted := SynthesizeEvents(c)
	removed, err := punches.ReplaceDay(ctx, c.EmployeeID, c.Date, inserted)
	if err != nil {
		return nil, err
	}

	return &CorrectionAudit{
		Removed:      removed,
		Inserted:     inserted,
		WorkHours:    Hours(spans.Work),
		LunchHours:   Hours(spans.Lunch),
		RestHours:    Hours(spans.Rest),
		PayableHours: spans.Payable(),
	}, nil
}

// Summary returns the daily summary a correction implies, computed the
// same way raw events are summarized. Used to override the raw-event
// summary for the day once the request is approved.
func (c *CorrectionRequest) Summary() DailySummary {
	return SummarizeDay(c.EmployeeID, c.Date, SynthesizeEvents(c))
}

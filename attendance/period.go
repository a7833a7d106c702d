package attendance

// =============================================================================
// PAY PERIOD - Fixed semimonthly window
// =============================================================================

// Period is an inclusive range of whole calendar days.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the day falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PayPeriodFor returns the semimonthly pay period containing the given
// day: the 1st through the 15th, or the 16th through month-end. Every
// feature that filters by pay period (summaries, exports, correction
// queries) goes through this one function so the boundary can never
// drift between them.
func PayPeriodFor(d Date) Period {
	if d.Day <= 15 {
		return Period{
			Start: NewDate(d.Year, d.Month, 1),
			End:   NewDate(d.Year, d.Month, 15),
		}
	}
	return Period{
		Start: NewDate(d.Year, d.Month, 16),
		End:   EndOfMonth(d.Year, d.Month),
	}
}

package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SUBMIT VALIDATION TESTS (internal: exercises the validation pipeline
// directly, without a store behind it)
// =============================================================================

func tod(hh, mm int) *TimeOfDay {
	t := TimeOfDay(hh*60 + mm)
	return &t
}

func validInput() CorrectionInput {
	return CorrectionInput{
		EmployeeID: "emp-1",
		Date:       NewDate(2024, time.March, 4),
		ClockIn:    tod(9, 0),
		ClockOut:   tod(17, 0),
		MealIn:     tod(12, 0),
		MealOut:    tod(12, 30),
		Note:       "forgot to punch out",
	}
}

func TestValidateCorrection_Valid(t *testing.T) {
	req, err := validateCorrectionInput(validInput(), GroupNonTherapist)

	require.NoError(t, err)
	assert.Equal(t, CorrectionPending, req.Status)
	assert.Equal(t, EmployeeID("emp-1"), req.EmployeeID)
	assert.Equal(t, *tod(9, 0), req.ClockIn)
	require.NotNil(t, req.MealIn)
}

func TestValidateCorrection_MissingEmployee(t *testing.T) {
	in := validInput()
	in.EmployeeID = ""

	_, err := validateCorrectionInput(in, GroupNonTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "employee", verr.Field)
}

func TestValidateCorrection_MissingDate(t *testing.T) {
	in := validInput()
	in.Date = Date{}

	_, err := validateCorrectionInput(in, GroupNonTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
}

func TestValidateCorrection_ClockPairRequired(t *testing.T) {
	in := validInput()
	in.ClockOut = nil

	_, err := validateCorrectionInput(in, GroupNonTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "clock_in", verr.Field)
}

func TestValidateCorrection_HalfMealPair(t *testing.T) {
	// GIVEN: Meal-in without meal-out
	// THEN: Rejected before any duration math runs

	in := validInput()
	in.MealOut = nil

	_, err := validateCorrectionInput(in, GroupNonTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "meal_in", verr.Field)
}

func TestValidateCorrection_HalfRestPair(t *testing.T) {
	in := validInput()
	in.RestIn = tod(15, 0)

	_, err := validateCorrectionInput(in, GroupNonTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rest_in", verr.Field)
}

func TestValidateCorrection_TherapistRest_Rejected(t *testing.T) {
	// GIVEN: A therapist's correction including a complete rest pair
	// THEN: Rejected; the ban holds for corrections too

	in := validInput()
	in.RestIn = tod(15, 0)
	in.RestOut = tod(15, 15)

	_, err := validateCorrectionInput(in, GroupTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "therapists")

	// Same input is fine for everyone else.
	_, err = validateCorrectionInput(in, GroupNonTherapist)
	assert.NoError(t, err)
}

func TestValidateCorrection_WorkSpanBounds(t *testing.T) {
	// Zero-length work span
	in := validInput()
	in.ClockOut = tod(9, 0)
	in.MealIn, in.MealOut = nil, nil

	_, err := validateCorrectionInput(in, GroupNonTherapist)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "clock_out", verr.Field)

	// 21h span via wrap: 23:00 -> 20:00 next day
	in.ClockIn = tod(23, 0)
	in.ClockOut = tod(20, 0)

	_, err = validateCorrectionInput(in, GroupNonTherapist)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "clock_out", verr.Field)
}

func TestValidateCorrection_MealSpanBounds(t *testing.T) {
	in := validInput()
	in.MealIn = tod(12, 0)
	in.MealOut = tod(12, 0)

	_, err := validateCorrectionInput(in, GroupNonTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "meal_out", verr.Field)
}

func TestValidateCorrection_RestSpanBounds(t *testing.T) {
	in := validInput()
	in.RestIn = tod(14, 0)
	in.RestOut = tod(18, 0) // 4h > 3h cap

	_, err := validateCorrectionInput(in, GroupNonTherapist)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rest_out", verr.Field)
}

// =============================================================================
// DURATION DERIVATION TESTS
// =============================================================================

func TestSpan_WrapsForward(t *testing.T) {
	// 22:00 -> 06:00 reads as 8h, not -16h
	assert.Equal(t, 8*time.Hour, span(TimeOfDay(22*60), TimeOfDay(6*60)))
	assert.Equal(t, 8*time.Hour, span(TimeOfDay(9*60), TimeOfDay(17*60)))
}

func TestSpans_Payable(t *testing.T) {
	s := correctionSpans{Work: 8 * time.Hour, Lunch: 30 * time.Minute}
	assert.Equal(t, "7.50", s.Payable().StringFixed(2))

	// Lunch exceeding work floors at zero
	s = correctionSpans{Work: 1 * time.Hour, Lunch: 2 * time.Hour}
	assert.True(t, s.Payable().IsZero())
}

func TestHours_RoundsToTwoPlaces(t *testing.T) {
	// 7h50m = 7.8333... -> 7.83
	assert.Equal(t, "7.83", Hours(7*time.Hour+50*time.Minute).StringFixed(2))
}

/*
export.go - Excel workbook export

PURPOSE:
  Builds an .xlsx workbook from the punch log and streams it to the
  caller. Two worksheets:

  Summary:  Per-day aggregates (corrections applied), one block per
            employee with a title row, styled header, data rows, and a
            bold subtotal row.
  Records:  The raw punch log, one row per event, sorted by employee
            then timestamp.

RANGE SELECTION:
  ?range=current  The semimonthly pay period containing today
  ?range=custom   ?start=YYYY-MM-DD&end=YYYY-MM-DD, inclusive
  ?range=all      Everything (default)

SCOPE:
  Reviewers export all employees (or ?employee= one); employees export
  only themselves.

SEE ALSO:
  - handlers.go: writeError and identity resolution
  - attendance/summary.go: The per-day aggregation exported here
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"
const recordsSheet = "Records"

var summaryHeaders = []string{
	"Date", "First In", "Last Out",
	"Work Hours", "Lunch Hours", "Rest Hours", "Payable Hours",
}

var recordHeaders = []string{
	"Name", "Employee ID", "Type", "Timestamp", "Local Date", "Local Time",
}

// ExportWorkbook streams an Excel workbook with summaries and raw
// records for the selected range.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	ident := h.identity(r)
	if ident.EmployeeID == "" {
		writeError(w, http.StatusForbidden, "Caller has no personal timesheet", nil)
		return
	}

	from, to, err := exportBounds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export range", err)
		return
	}

	// Scope: reviewers see everyone or ?employee=; employees see self.
	targets := []attendance.EmployeeID{ident.EmployeeID}
	if ident.CanReview() {
		if q := r.URL.Query().Get("employee"); q != "" {
			targets = []attendance.EmployeeID{attendance.EmployeeID(q)}
		} else {
			employees, err := h.Directory.ListEmployees(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
				return
			}
			targets = targets[:0]
			for _, e := range employees {
				targets = append(targets, e.ID)
			}
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newExportStyles(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	f.SetSheetName("Sheet1", summarySheet)
	if err := h.writeSummarySheet(r, f, styles, targets, from, to); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	if err := h.writeRecordsSheet(r, f, styles, targets, from, to); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	filename := "All_Employees_Summary.xlsx"
	if !ident.CanReview() {
		name := string(ident.EmployeeID)
		if emp, err := h.Directory.GetEmployee(r.Context(), ident.EmployeeID); err == nil && emp != nil {
			name = emp.Name
		}
		filename = name + "_Summary.xlsx"
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(w); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

// exportBounds resolves ?range= into inclusive date bounds. Zero dates
// mean unbounded.
func exportBounds(r *http.Request) (attendance.Date, attendance.Date, error) {
	switch r.URL.Query().Get("range") {
	case "current":
		p := attendance.PayPeriodFor(attendance.DateOf(time.Now()))
		return p.Start, p.End, nil
	case "custom":
		from, err := attendance.ParseDate(r.URL.Query().Get("start"))
		if err != nil {
			return attendance.Date{}, attendance.Date{}, err
		}
		to, err := attendance.ParseDate(r.URL.Query().Get("end"))
		if err != nil {
			return attendance.Date{}, attendance.Date{}, err
		}
		return from, to, nil
	default:
		return attendance.Date{}, attendance.Date{}, nil
	}
}

type exportStyles struct {
	title    int
	header   int
	body     int
	subtotal int
}

func newExportStyles(f *excelize.File) (exportStyles, error) {
	var s exportStyles
	var err error

	thin := func(color string) []excelize.Border {
		return []excelize.Border{
			{Type: "top", Style: 1, Color: color},
			{Type: "bottom", Style: 1, Color: color},
			{Type: "left", Style: 1, Color: color},
			{Type: "right", Style: 1, Color: color},
		}
	}

	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12, Color: "1E3A8A"},
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "1E293B"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"E8F1FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thin("CBD5E1"),
	}); err != nil {
		return s, err
	}
	if s.body, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thin("E2E8F0"),
	}); err != nil {
		return s, err
	}
	if s.subtotal, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "0F172A"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F8FAFC"}, Pattern: 1},
		Border: thin("CBD5E1"),
	}); err != nil {
		return s, err
	}
	return s, nil
}

// writeSummarySheet writes one block per employee: title, header, data
// rows, subtotal, spacer.
func (h *Handler) writeSummarySheet(r *http.Request, f *excelize.File, styles exportStyles, targets []attendance.EmployeeID, from, to attendance.Date) error {
	widths := []float64{12, 10, 10, 12, 12, 12, 14}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(summarySheet, col, col, w)
	}

	row := 1
	for _, id := range targets {
		summaries, err := h.Service.DailySummaries(r.Context(), id, from, to)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			continue
		}

		name := string(id)
		if emp, err := h.Directory.GetEmployee(r.Context(), id); err == nil && emp != nil {
			name = emp.Name
		}

		// Title row spanning the block
		cell, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(summaryHeaders), row)
		f.SetCellValue(summarySheet, cell, fmt.Sprintf("Employee: %s (%s)", name, id))
		f.MergeCell(summarySheet, cell, last)
		f.SetCellStyle(summarySheet, cell, last, styles.title)
		row++

		if err := writeRow(f, summarySheet, row, styles.header, toAny(summaryHeaders)); err != nil {
			return err
		}
		row++

		var sumWork, sumLunch, sumRest, sumPay float64
		for _, ds := range summaries {
			work, _ := ds.WorkHours.Float64()
			lunch, _ := ds.LunchHours.Float64()
			rest, _ := ds.RestHours.Float64()
			pay, _ := ds.PayableHours.Float64()
			sumWork += work
			sumLunch += lunch
			sumRest += rest
			sumPay += pay

			if err := writeRow(f, summarySheet, row, styles.body, []any{
				ds.Date.String(),
				clockLabel(ds.FirstIn),
				clockLabel(ds.LastOut),
				work, lunch, rest, pay,
			}); err != nil {
				return err
			}
			row++
		}

		if err := writeRow(f, summarySheet, row, styles.subtotal, []any{
			"", "", "Subtotal", sumWork, sumLunch, sumRest, sumPay,
		}); err != nil {
			return err
		}
		row += 2
	}
	return nil
}

// writeRecordsSheet writes the raw punch log sorted by employee then
// timestamp (the stores already return that order).
func (h *Handler) writeRecordsSheet(r *http.Request, f *excelize.File, styles exportStyles, targets []attendance.EmployeeID, from, to attendance.Date) error {
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return err
	}

	widths := []float64{18, 16, 14, 26, 12, 10}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(recordsSheet, col, col, w)
	}

	if err := writeRow(f, recordsSheet, 1, styles.header, toAny(recordHeaders)); err != nil {
		return err
	}

	names := make(map[attendance.EmployeeID]string)
	row := 2
	for _, id := range targets {
		events, err := h.loadRange(r, id, from, to)
		if err != nil {
			return err
		}
		for _, e := range events {
			name, ok := names[e.EmployeeID]
			if !ok {
				name = string(e.EmployeeID)
				if emp, err := h.Directory.GetEmployee(r.Context(), e.EmployeeID); err == nil && emp != nil {
					name = emp.Name
				}
				names[e.EmployeeID] = name
			}

			if err := writeRow(f, recordsSheet, row, styles.body, []any{
				name,
				string(e.EmployeeID),
				string(e.Type),
				e.Timestamp.Format(time.RFC3339),
				e.Day().String(),
				e.Timestamp.Format("15:04"),
			}); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (h *Handler) loadRange(r *http.Request, id attendance.EmployeeID, from, to attendance.Date) ([]attendance.PunchEvent, error) {
	if from.IsZero() && to.IsZero() {
		return h.Service.Punches.LoadByEmployee(r.Context(), id)
	}
	lo := time.Time{}
	hi := time.Date(9999, time.December, 31, 23, 59, 59, 0, time.Local)
	if !from.IsZero() {
		lo = from.Time()
	}
	if !to.IsZero() {
		hi = to.EndTime()
	}
	return h.Service.Punches.LoadRange(r.Context(), id, lo, hi)
}

func writeRow(f *excelize.File, sheet string, row int, style int, values []any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, start, &values); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(len(values), row)
	return f.SetCellStyle(sheet, start, end, style)
}

func clockLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("15:04")
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

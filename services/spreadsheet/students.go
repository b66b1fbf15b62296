// Package spreadsheet reads and writes students as XLSX workbooks.
package spreadsheet

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "Students"
)

var exportHeader = []interface{}{"ID", "Name", "Grade", "Created At", "Updated At"}

// WriteStudents writes students to w as a workbook with a single "Students" sheet.
func WriteStudents(w io.Writer, students []student.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(SheetName, "A1", &exportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	if err = f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}
	if err = f.SetColWidth(SheetName, "B", "B", 32); err != nil {
		return errors.Wrap(err, "sizing name column")
	}
	if err = f.SetColWidth(SheetName, "D", "E", 20); err != nil {
		return errors.Wrap(err, "sizing time columns")
	}

	for i, s := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{s.ID, s.Name, s.Grade, s.CreatedAt, s.UpdatedAt}
		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "writing student %d", s.ID)
		}
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

// ReadStudents reads the students of the first sheet of the workbook in r.
// The name & grade columns are located by a header row; without one, columns A & B are used.
// Blank rows are skipped. Rows are not validated.
func ReadStudents(r io.Reader) ([]student.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "not a valid xlsx file"})
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "no sheets found"})
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheets[0])
	}

	nameCol, gradeCol := 0, 1
	start := 0
	if len(rows) > 0 {
		if n, g, ok := findColumns(rows[0]); ok {
			nameCol, gradeCol = n, g
			start = 1
		}
	}

	var imported []student.ImportRow
	for i := start; i < len(rows); i++ {
		if isBlank(rows[i]) {
			continue
		}
		imported = append(imported, student.ImportRow{
			Row: i + 1,
			Student: student.NewStudent{
				Name:  cellAt(rows[i], nameCol),
				Grade: cellAt(rows[i], gradeCol),
			},
		})
	}
	return imported, nil
}

func findColumns(header []string) (nameCol, gradeCol int, ok bool) {
	nameCol, gradeCol = -1, -1
	for i, cell := range header {
		switch core.CleanString(cell, true /* lower */) {
		case "name":
			nameCol = i
		case "grade":
			gradeCol = i
		}
	}
	return nameCol, gradeCol, nameCol >= 0 && gradeCol >= 0
}

func cellAt(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

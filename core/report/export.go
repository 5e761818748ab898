package report

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/access"
)

const (
	reportSheet = "Reports"
	XLSXMime    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var reportHeaders = []string{"Roll Number", "Full Name", "Class", "Attendance (%)", "Average Marks (%)"}

// ExportFilename returns the attachment name of the teacher reports workbook.
func ExportFilename() string {
	return fmt.Sprintf("reports_%s.xlsx", core.Now().Format("20060102_150405"))
}

// ExportReports writes the teacher reports as an xlsx workbook to w.
func (svc *Service) ExportReports(ctx context.Context, id access.Identity, w io.Writer) error {
	reports, err := svc.TeacherReports(ctx, id)
	if err != nil {
		return err
	}
	f, err := reportsWorkbook(reports)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func reportsWorkbook(reports TeacherReports) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	for i, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(reportSheet, cell, header); err != nil {
			return nil, errors.Wrap(err, "writing headers")
		}
	}

	for i, r := range reports.Rows {
		values := []interface{}{r.Student.RollNumber, r.Student.FullName, r.Student.ClassName, r.Attendance, r.AvgMarks}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return nil, errors.Wrapf(err, "writing row %d", i+2)
			}
		}
	}
	return f, nil
}

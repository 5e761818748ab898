package report

import (
	"sort"

	"github.com/trezcool/attendtrack/core"
)

var rowLess = map[string]func(a, b ReportRow) bool{
	"roll_number": func(a, b ReportRow) bool { return a.Student.RollNumber < b.Student.RollNumber },
	"full_name":   func(a, b ReportRow) bool { return a.Student.FullName < b.Student.FullName },
	"attendance":  func(a, b ReportRow) bool { return a.Attendance < b.Attendance },
	"avg_marks":   func(a, b ReportRow) bool { return a.AvgMarks < b.AvgMarks },
}

// Sortable reports whether rows can be ordered by field.
func Sortable(field string) bool {
	_, ok := rowLess[field]
	return ok
}

// SortFields returns the fields rows can be ordered by, alphabetically.
func SortFields() []string {
	fields := make([]string, 0, len(rowLess))
	for f := range rowLess {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// SortRows orders rows by ordering; unknown fields are ignored.
// Rows comparing equal on every field keep their order.
func SortRows(rows []ReportRow, ordering []core.DBOrdering) {
	known := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := rowLess[ord.Field]; ok {
			known = append(known, ord)
		}
	}
	if len(known) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range known {
			less := rowLess[ord.Field]
			a, b := rows[i], rows[j]
			if !ord.Ascending {
				a, b = b, a
			}
			if less(a, b) {
				return true
			}
			if less(b, a) {
				return false
			}
		}
		return false
	})
}

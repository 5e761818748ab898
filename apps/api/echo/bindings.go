package echoapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/report"
)

const orderingParam = "ordering"

// bindReportOrdering reads the comma-separated `ordering` query param,
// e.g. "-avg_marks,roll_number". A "-" prefix sorts descending.
func bindReportOrdering(ctx echo.Context) ([]core.DBOrdering, error) {
	raw := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if raw == "" {
		return nil, nil
	}

	var (
		orderings []core.DBOrdering
		unknown   []string
	)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		name := strings.TrimPrefix(field, "-")
		if !report.Sortable(name) {
			unknown = append(unknown, field)
			continue
		}
		orderings = append(orderings, core.OrderBy(name, !strings.HasPrefix(field, "-")))
	}

	if len(unknown) > 0 {
		msg := fmt.Sprintf("cannot order by %s; allowed: %s",
			strings.Join(unknown, ", "), strings.Join(report.SortFields(), ", "))
		return nil, core.NewFieldValidationError(orderingParam, msg)
	}
	return orderings, nil
}

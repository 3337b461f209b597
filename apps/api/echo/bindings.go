package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jifunze/jifunze/core"
)

// bindOrdering reads the "ordering" query param into DB orderings.
// The value is a comma-separated field list; a "-" prefix flips a
// field to descending ("-created_at,name"). Fields outside the allowed
// set are dropped so callers cannot sort on arbitrary columns.
func bindOrdering(ctx echo.Context, allowed ...string) []core.DBOrdering {
	raw := ctx.QueryParam("ordering")
	if raw == "" {
		return nil
	}

	var ords []core.DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:]
		}
		if field == "" || !fieldAllowed(field, allowed) {
			continue
		}
		ords = append(ords, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}

func fieldAllowed(field string, allowed []string) bool {
	for _, a := range allowed {
		if field == a {
			return true
		}
	}
	return false
}

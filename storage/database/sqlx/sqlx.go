package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"

	"github.com/eduhive/backend/core"
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a psql unique constraint violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != pqUniqueViolation {
		return false
	}
	if len(constraint) > 0 {
		return pqErr.Constraint == constraint[0]
	}
	return true
}

func orderClause(orderings []core.DBOrdering, def string) string {
	if len(orderings) == 0 {
		if def == "" {
			return ""
		}
		return " ORDER BY " + def
	}
	orderList := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// Package sqlxrepos implements the domain repositories over sqlx.
// Queries are written with `?` placeholders and rebound for the connected driver.
package sqlxrepos

import (
	"strings"

	"github.com/trezcool/shule/core"
)

type repository struct {
	exec core.DBExecutor
}

// getExec returns the executor passed by a service (eg: a transaction) or the default one.
func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// orderBy builds the ORDER BY clause; fields are expected to be whitelisted by the caller.
// `id` is appended as a tie-breaker so that results are stable.
func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return " ORDER BY id ASC"
	}
	parts := make([]string, 0, len(ordering)+1)
	hasID := false
	for _, ord := range ordering {
		parts = append(parts, ord.String())
		hasID = hasID || ord.Field == "id"
	}
	if !hasID {
		parts = append(parts, "id ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

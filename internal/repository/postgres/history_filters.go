package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
)

// buildDateRangeClause constructs the order_date bounds for history queries.
// Unbounded sides add no clause.
func buildDateRangeClause(rng domain.DateRange, alias string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	normalized := normalizeAlias(alias)
	idx := startIndex

	if rng.Start != nil {
		clauses = append(clauses, fmt.Sprintf("%sorder_date >= $%d", normalized, idx))
		args = append(args, rng.StartParam())
		idx++
	}

	if rng.End != nil {
		clauses = append(clauses, fmt.Sprintf("%sorder_date <= $%d", normalized, idx))
		args = append(args, rng.EndParam())
		idx++
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

// buildProductSearchClause matches the search term against product name or code.
func buildProductSearchClause(search, alias string, startIndex int) (string, []interface{}) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}

	normalized := normalizeAlias(alias)
	pattern := "%" + escapeLike(search) + "%"
	return fmt.Sprintf(" WHERE (%[1]sname ILIKE $%[2]d OR %[1]scode ILIKE $%[2]d)", normalized, startIndex),
		[]interface{}{pattern}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}

// internal/store/filter_sql.go
package store

import (
	"fmt"
	"strings"
)

// placeholder builds positional bind markers; SQLite uses "?" and
// PostgreSQL uses "$1, $2, ...". Each backend's Query passes its own.
type placeholderFunc func(n int) string

func sqliteHolder(n int) string { return "?" }

func postgresHolder(n int) string { return fmt.Sprintf("$%d", n) }

// buildFilterWhere renders the dynamic WHERE clause shared by both
// backends' Query/Random implementations, keeping the filter logic in one
// place even though each backend executes it through its own *sql.DB.
func buildFilterWhere(f Filter, holder placeholderFunc) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	n := 0

	add := func(clause string, value interface{}) {
		n++
		clauses = append(clauses, fmt.Sprintf(clause, holder(n)))
		args = append(args, value)
	}

	if f.Protocol != "" {
		add("protocol = %s", string(f.Protocol))
	}
	if f.Country != "" {
		add("country = %s", f.Country)
	}
	if f.Anonymity != "" {
		add("anonymity = %s", string(f.Anonymity))
	}
	if f.IsActive != nil {
		add("is_active = %s", *f.IsActive)
	}
	if f.Source != "" {
		add("source = %s", f.Source)
	}
	if f.MinResponseTime > 0 {
		add("response_time_ms >= %s", f.MinResponseTime)
	}
	if f.MaxResponseTime > 0 {
		add("response_time_ms <= %s", f.MaxResponseTime)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func normalizePage(f Filter) (page, pageSize, offset int) {
	page = f.Page
	if page < 1 {
		page = 1
	}
	pageSize = f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 500 {
		pageSize = 500
	}
	offset = (page - 1) * pageSize
	return
}

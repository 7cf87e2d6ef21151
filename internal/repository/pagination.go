package repository

import "strings"

// NormalizePage clamps page and limit to sane values.
func NormalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = def
	}
	return page, limit
}

// lower is used with LOWER(col) LIKE so filters behave the same on
// PostgreSQL and SQLite (ILIKE is PostgreSQL-only).
func lower(s string) string { return strings.ToLower(s) }

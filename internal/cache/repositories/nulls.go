// Package repositories holds helpers shared by the cache repositories.
package repositories

import "database/sql"

// Nullable stores empty strings as NULL.
func Nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// String reads a nullable column back as a plain string.
func String(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

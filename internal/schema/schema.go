// Package schema is the registry of remote collection layouts. It aligns
// rows read from a remote header onto the declared columns and maps aligned
// rows to and from typed records.
package schema

import (
	"strings"
)

// Central collection names.
const (
	UsersCollection       = "users"
	ClientsCollection     = "clients"
	AssignmentsCollection = "collaborator_client"
)

// Column names shared by several mappings.
const (
	ColID             = "id"
	ColUsername       = "username"
	ColLastSyncAt     = "last_sync_at"
	ColName           = "name"
	ColCollaborator   = "collaborator_username"
	ColClientID       = "client_id"
	ColClientName     = "client_name"
	ColStatus         = "status"
	ColValidatedAt    = "validated_at"
	ColValidatedBy    = "validated_by"
	ColValidationNote = "validation_notes"
)

// blankMarkers are cell values that legacy sheets use for "no value".
var blankMarkers = map[string]struct{}{
	"":     {},
	"none": {},
	"nan":  {},
	"na":   {},
	"null": {},
}

// IsBlank reports whether a cell value means "absent".
func IsBlank(v string) bool {
	_, ok := blankMarkers[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// Row is a remote row aligned onto a declared column list. Declared columns
// missing from the remote header are present with an empty value.
type Row map[string]string

// Align keeps only the declared columns of a remote row. Headers are matched
// after trimming spaces. Ragged rows shorter than the header are padded and
// blank markers normalize to "".
func Align(header, values, columns []string) Row {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	row := make(Row, len(columns))
	for _, c := range columns {
		i, ok := pos[c]
		if !ok || i >= len(values) || IsBlank(values[i]) {
			row[c] = ""
			continue
		}
		row[c] = strings.TrimSpace(values[i])
	}
	return row
}

// ColumnIndex returns the 1-based position of column in header.
func ColumnIndex(header []string, column string) (int, bool) {
	for i, h := range header {
		if strings.TrimSpace(h) == column {
			return i + 1, true
		}
	}
	return 0, false
}

// Missing returns the declared columns absent from header.
func Missing(header, columns []string) []string {
	var out []string
	for _, c := range columns {
		if _, ok := ColumnIndex(header, c); !ok {
			out = append(out, c)
		}
	}
	return out
}

func trim(s string) string { return strings.TrimSpace(s) }

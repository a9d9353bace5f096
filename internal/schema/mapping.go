package schema

import (
	"strconv"

	"github.com/dmitrijs2005/docsync/internal/models"
)

// Field binds one column to a record field.
type Field[T any] struct {
	Column string
	Get    func(*T) string
	Set    func(*T, string)
}

// Mapping is the field-mapping table of one entity. The order of Fields is
// the canonical column order of the collection.
type Mapping[T any] struct {
	Fields []Field[T]
}

func (m Mapping[T]) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column
	}
	return cols
}

// Decode builds a record from a remote row laid out by header.
func (m Mapping[T]) Decode(header, values []string) T {
	return m.FromRow(Align(header, values, m.Columns()))
}

func (m Mapping[T]) FromRow(r Row) T {
	var v T
	for _, f := range m.Fields {
		f.Set(&v, r[f.Column])
	}
	return v
}

// Encode lays v out in header order. Header columns the mapping does not know
// are left empty, so rows stay aligned on legacy layouts.
func (m Mapping[T]) Encode(v T, header []string) []string {
	byCol := make(map[string]Field[T], len(m.Fields))
	for _, f := range m.Fields {
		byCol[f.Column] = f
	}
	out := make([]string, len(header))
	for i, h := range header {
		if f, ok := byCol[trim(h)]; ok {
			out[i] = f.Get(&v)
		}
	}
	return out
}

var Users = Mapping[models.User]{Fields: []Field[models.User]{
	{ColUsername, func(u *models.User) string { return u.Username }, func(u *models.User, s string) { u.Username = s }},
	{"password_hash", func(u *models.User) string { return u.PasswordHash }, func(u *models.User, s string) { u.PasswordHash = s }},
	{"display_name", func(u *models.User) string { return u.DisplayName }, func(u *models.User, s string) { u.DisplayName = s }},
	{"role", func(u *models.User) string { return string(u.Role) }, func(u *models.User, s string) { u.Role = models.ParseRole(s) }},
	{ColLastSyncAt, func(u *models.User) string { return u.LastSyncAt }, func(u *models.User, s string) { u.LastSyncAt = s }},
}}

var Clients = Mapping[models.Client]{Fields: []Field[models.Client]{
	{ColID, func(c *models.Client) string { return c.ID }, func(c *models.Client, s string) { c.ID = s }},
	{ColName, func(c *models.Client) string { return c.Name }, func(c *models.Client, s string) { c.Name = s }},
	{"type", func(c *models.Client) string { return c.Type }, func(c *models.Client, s string) { c.Type = s }},
}}

var Assignments = Mapping[models.Assignment]{Fields: []Field[models.Assignment]{
	{ColCollaborator, func(a *models.Assignment) string { return a.Collaborator }, func(a *models.Assignment, s string) { a.Collaborator = s }},
	{ColClientID, func(a *models.Assignment) string { return a.ClientID }, func(a *models.Assignment, s string) { a.ClientID = s }},
	{ColClientName, func(a *models.Assignment) string { return a.ClientName }, func(a *models.Assignment, s string) { a.ClientName = s }},
}}

// Documents is the layout of every per-collaborator document collection.
// SyncState is never written remotely.
var Documents = Mapping[models.Document]{Fields: []Field[models.Document]{
	{ColID, func(d *models.Document) string { return d.ID }, func(d *models.Document, s string) { d.ID = s }},
	{ColCollaborator, func(d *models.Document) string { return d.Owner }, func(d *models.Document, s string) { d.Owner = s }},
	{ColClientID, func(d *models.Document) string { return d.ClientID }, func(d *models.Document, s string) { d.ClientID = s }},
	{ColClientName, func(d *models.Document) string { return d.ClientName }, func(d *models.Document, s string) { d.ClientName = s }},
	{"registered_at", func(d *models.Document) string { return d.RegisteredAt }, func(d *models.Document, s string) { d.RegisteredAt = s }},
	{"criterion", func(d *models.Document) string { return string(d.Criterion) }, func(d *models.Document, s string) { d.Criterion = models.ParseCriterion(s) }},
	{"content", func(d *models.Document) string { return d.Content }, func(d *models.Document, s string) { d.Content = s }},
	{"quantity", func(d *models.Document) string { return strconv.Itoa(d.Quantity) }, func(d *models.Document, s string) { d.Quantity = parseQuantity(s) }},
	{ColStatus, func(d *models.Document) string { return string(d.Status) }, func(d *models.Document, s string) { d.Status = models.ParseStatus(s) }},
	{ColValidatedAt, func(d *models.Document) string { return d.ValidatedAt }, func(d *models.Document, s string) { d.ValidatedAt = s }},
	{ColValidatedBy, func(d *models.Document) string { return d.ValidatedBy }, func(d *models.Document, s string) { d.ValidatedBy = s }},
	{ColValidationNote, func(d *models.Document) string { return d.ValidationNotes }, func(d *models.Document, s string) { d.ValidationNotes = s }},
}}

// parseQuantity reads spreadsheet numbers such as "1" or "1.0". Anything
// unreadable counts as a single document.
func parseQuantity(s string) int {
	if s == "" {
		return 1
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 1
}

// Package models holds the typed records exchanged between the remote store,
// the local cache and the engine.
package models

import "strings"

// Layouts used for textual dates stored in the tabular stores.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleCollaborator Role = "Collaborator"
	RoleClient       Role = "Client"
)

// ParseRole normalizes a stored role, accepting the legacy spellings found in
// older users collections. Unknown values are returned as-is.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "collaborator", "usuario", "user":
		return RoleCollaborator
	case "client", "cliente":
		return RoleClient
	default:
		return Role(strings.TrimSpace(s))
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCollaborator || r == RoleClient
}

type Status string

const (
	StatusRegistered Status = "Registered"
	StatusValidated  Status = "Validated"
	StatusInvalid    Status = "Invalid"
)

var knownStatuses = []Status{StatusRegistered, StatusValidated, StatusInvalid}

// ParseStatus maps legacy status labels onto the current ones. Unknown
// values pass through unchanged so reports can still show them.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "registered", "enviado", "pendente", "pending":
		return StatusRegistered
	case "validated", "validado":
		return StatusValidated
	case "invalid", "inválido", "invalido":
		return StatusInvalid
	default:
		return Status(strings.TrimSpace(s))
	}
}

func IsKnownStatus(s Status) bool {
	for _, k := range knownStatuses {
		if k == s {
			return true
		}
	}
	return false
}

// KnownStatuses returns the statuses a validation may assign.
func KnownStatuses() []Status {
	out := make([]Status, len(knownStatuses))
	copy(out, knownStatuses)
	return out
}

// SyncState exists only in the local cache.
type SyncState string

const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
)

// Criterion names the evaluation dimension a document is filed under.
type Criterion string

const (
	CriterionEssential   Criterion = "Essential"
	CriterionMandatory   Criterion = "Mandatory"
	CriterionRecommended Criterion = "Recommended"
)

func Criteria() []Criterion {
	return []Criterion{CriterionEssential, CriterionMandatory, CriterionRecommended}
}

// ParseCriterion maps the singular, plural and legacy spellings found in
// older sheets onto the canonical criteria. Anything else passes through
// trimmed.
func ParseCriterion(s string) Criterion {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "essential", "essencial", "essenciais", "critérios essenciais", "criterios essenciais":
		return CriterionEssential
	case "mandatory", "obrigatório", "obrigatorio", "obrigatórios", "obrigatorios":
		return CriterionMandatory
	case "recommended", "recomendado", "recomendados":
		return CriterionRecommended
	default:
		return Criterion(strings.TrimSpace(s))
	}
}

// Document is one submission. Empty strings stand for absent values.
type Document struct {
	ID              string
	Owner           string
	ClientID        string
	ClientName      string
	RegisteredAt    string
	Criterion       Criterion
	Content         string
	Quantity        int
	Status          Status
	ValidatedAt     string
	ValidatedBy     string
	ValidationNotes string
	SyncState       SyncState
}

type Client struct {
	ID   string
	Name string
	Type string
}

type User struct {
	Username     string
	PasswordHash string
	DisplayName  string
	Role         Role
	LastSyncAt   string
}

// Assignment links a collaborator to a client they may file documents for.
type Assignment struct {
	Collaborator string
	ClientID     string
	ClientName   string
}

// Identity is the authenticated principal of a session.
type Identity struct {
	Username    string
	DisplayName string
	Role        Role
	// ClientName is set for Client-role users and equals their username.
	ClientName string
}

// NewIdentity derives the session identity from a user record.
func NewIdentity(u User) Identity {
	id := Identity{Username: u.Username, DisplayName: u.DisplayName, Role: u.Role}
	if id.DisplayName == "" {
		id.DisplayName = u.Username
	}
	if u.Role == RoleClient {
		id.ClientName = u.Username
	}
	return id
}

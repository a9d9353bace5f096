package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/docsync/internal/models"
)

func TestAlign_LegacyHeaderAndRaggedRow(t *testing.T) {
	header := []string{"name", " id ", "legacy_notes", "type"}
	values := []string{"Acme", "c-1", "ignored"}

	got := Align(header, values, Clients.Columns())

	assert.Equal(t, Row{"id": "c-1", "name": "Acme", "type": ""}, got)
}

func TestAlign_BlankMarkers(t *testing.T) {
	header := []string{"id", "name", "type"}
	for _, marker := range []string{"", "None", "nan", "NA", "null", "  "} {
		got := Align(header, []string{marker, "Acme", "Retail"}, Clients.Columns())
		assert.Empty(t, got["id"], "marker %q", marker)
	}
}

func TestAlign_DuplicateHeaderFirstWins(t *testing.T) {
	got := Align([]string{"id", "id"}, []string{"first", "second"}, []string{"id"})
	assert.Equal(t, "first", got["id"])
}

func TestColumnIndexAndMissing(t *testing.T) {
	header := []string{"id", "status", "validated_by"}

	i, ok := ColumnIndex(header, "status")
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = ColumnIndex(header, "validated_at")
	assert.False(t, ok)

	assert.Equal(t, []string{ColValidatedAt, ColValidationNote},
		Missing(header, []string{ColStatus, ColValidatedAt, ColValidatedBy, ColValidationNote}))
}

func TestDocuments_DecodeLegacyRow(t *testing.T) {
	header := []string{"collaborator_username", "client_name", "content", "status", "quantity"}
	values := []string{"alice", "Acme", "https://example.com/a.pdf", "Enviado", "1.0"}

	got := Documents.Decode(header, values)

	want := models.Document{
		Owner:      "alice",
		ClientName: "Acme",
		Content:    "https://example.com/a.pdf",
		Status:     models.StatusRegistered,
		Quantity:   1,
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestDocuments_QuantityFallbacks(t *testing.T) {
	header := []string{"quantity"}
	assert.Equal(t, 1, Documents.Decode(header, nil).Quantity)
	assert.Equal(t, 3, Documents.Decode(header, []string{"3"}).Quantity)
	assert.Equal(t, 1, Documents.Decode(header, []string{"many"}).Quantity)
}

func TestEncode_CanonicalAndLegacyHeaders(t *testing.T) {
	doc := models.Document{
		ID: "d-1", Owner: "alice", ClientID: "c-1", ClientName: "Acme",
		RegisteredAt: "2024-05-01", Criterion: models.CriterionEssential,
		Content: "doc", Quantity: 1, Status: models.StatusRegistered,
		SyncState: models.SyncPending,
	}

	canonical := Documents.Encode(doc, Documents.Columns())
	assert.Equal(t, []string{"d-1", "alice", "c-1", "Acme", "2024-05-01", "Essential", "doc", "1", "Registered", "", "", ""}, canonical)

	legacy := Documents.Encode(doc, []string{"content", "unknown", "id"})
	assert.Equal(t, []string{"doc", "", "d-1"}, legacy)
}

func TestUsers_RoundTripThroughHeader(t *testing.T) {
	u := models.User{Username: "bob", PasswordHash: "h", Role: models.RoleCollaborator}
	row := Users.Encode(u, Users.Columns())
	assert.Equal(t, u, Users.Decode(Users.Columns(), row))
}

func TestDocuments_DecodeNormalizesCriterion(t *testing.T) {
	header := []string{"criterion"}
	assert.Equal(t, models.CriterionEssential, Documents.Decode(header, []string{"Critérios Essenciais"}).Criterion)
	assert.Equal(t, models.CriterionMandatory, Documents.Decode(header, []string{"obrigatório"}).Criterion)
	assert.Equal(t, models.CriterionRecommended, Documents.Decode(header, []string{"Recomendados"}).Criterion)
	assert.Equal(t, models.Criterion("Outro"), Documents.Decode(header, []string{" Outro "}).Criterion)
}

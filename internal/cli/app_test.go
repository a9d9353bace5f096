package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docsync/internal/auth"
	"github.com/dmitrijs2005/docsync/internal/cache"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/config"
	"github.com/dmitrijs2005/docsync/internal/logging"
	"github.com/dmitrijs2005/docsync/internal/models"
	"github.com/dmitrijs2005/docsync/internal/remote/memstore"
	"github.com/dmitrijs2005/docsync/internal/schema"
)

const testPassword = "s3cret"

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	s := memstore.New()
	s.Seed(schema.UsersCollection, schema.Users.Columns(),
		[]string{"admin", hash, "Admin", "Admin", ""},
		[]string{"alice", hash, "Alice", "Collaborator", ""},
		[]string{"globex", hash, "Globex Corp", "Client", ""},
	)
	s.Seed(schema.ClientsCollection, schema.Clients.Columns(),
		[]string{"c1", "Acme Industry", "Industry"},
		[]string{"c2", "Globex", "Retail"},
	)
	s.Seed(schema.AssignmentsCollection, schema.Assignments.Columns(),
		[]string{"alice", "c1", "Acme Industry"},
	)
	cols := schema.Documents.Columns()
	s.Seed("docs_alice", cols,
		schema.Documents.Encode(models.Document{
			ID: "d1", Owner: "alice", ClientID: "c1", ClientName: "Acme Industry",
			Criterion: models.CriterionEssential, Content: "https://example.com/a",
			Quantity: 1, Status: models.StatusRegistered,
		}, cols),
		schema.Documents.Encode(models.Document{
			ID: "d2", Owner: "alice", ClientID: "c2", ClientName: "Globex",
			Criterion: models.CriterionMandatory, Content: "https://example.com/b",
			Quantity: 1, Status: models.StatusValidated,
		}, cols),
	)
	return s
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RemoteBackend = config.BackendMemory
	cfg.SessionFile = filepath.Join(t.TempDir(), "session")
	return cfg
}

// newTestApp builds an App over store that reads input and is signed in
// as username.
func newTestApp(t *testing.T, cfg *config.Config, store *memstore.Store, username, input string) (*App, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	stubPassword(t, testPassword)

	c, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	out := &bytes.Buffer{}
	a := newApp(cfg, logging.NewNop(), store, c, strings.NewReader(username+"\n"+input), out)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.ensureLogin(ctx))
	require.NoError(t, a.Pull(ctx))
	return a, out
}

func TestApp_AddAndPush(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	a, out := newTestApp(t, testConfig(t), store, "alice",
		"\nhttps://example.com/c\nhttps://example.com/d\n\n")

	require.NoError(t, a.Add(ctx, []string{"acme", "industry"}))
	assert.Contains(t, out.String(), "2 documents pending")

	out.Reset()
	require.NoError(t, a.Pending(ctx))
	assert.Contains(t, out.String(), "https://example.com/c")
	assert.False(t, a.confirmExit(ctx), "first exit warns about unsaved documents")

	out.Reset()
	require.NoError(t, a.Push(ctx, []string{"all"}))
	assert.Contains(t, out.String(), "Pushed 2 documents, 0 still pending")

	tbl, err := store.ReadAll(ctx, "docs_alice")
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 4)
	last := schema.Documents.Decode(tbl.Header, tbl.Rows[3])
	assert.Equal(t, "c1", last.ClientID)
	assert.Equal(t, models.CriterionEssential, last.Criterion)

	assert.True(t, a.confirmExit(ctx))
}

func TestApp_AddIsForCollaborators(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t), seededStore(t), "admin", "")
	err := a.Add(context.Background(), []string{"Acme Industry"})
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestApp_ConfirmExitWarnsOnce(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t, testConfig(t), seededStore(t), "alice", "\nhttps://example.com/z\n\n")
	require.NoError(t, a.Add(ctx, []string{"Acme Industry"}))

	assert.False(t, a.confirmExit(ctx))
	assert.Contains(t, out.String(), "exit again to discard")
	assert.True(t, a.confirmExit(ctx))
}

func TestApp_AddRejectsUnassignedClient(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t, testConfig(t), seededStore(t), "alice", "\nhttps://example.com/z\n\n")
	require.ErrorIs(t, a.Add(ctx, []string{"Globex"}), common.ErrReferenceResolution)

	has, err := a.engine.HasUnsaved(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestApp_ValidateNeedsAdmin(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	alice, _ := newTestApp(t, testConfig(t), store, "alice", "")
	require.ErrorIs(t, alice.Validate(ctx, []string{"d1", "Validated"}), common.ErrorUnauthorized)

	admin, out := newTestApp(t, testConfig(t), store, "admin", "")
	require.ErrorIs(t, admin.Validate(ctx, []string{"d1"}), common.ErrorValidation)
	require.NoError(t, admin.Validate(ctx, []string{"d1", "invalido", "broken", "link"}))
	assert.Contains(t, out.String(), "d1 marked Invalid")

	header, err := store.Header(ctx, "docs_alice")
	require.NoError(t, err)
	row, err := store.FindRow(ctx, "docs_alice", schema.ColID, "d1")
	require.NoError(t, err)
	d := schema.Documents.Decode(header, row.Values)
	assert.Equal(t, models.StatusInvalid, d.Status)
	assert.Equal(t, "admin", d.ValidatedBy)
	assert.Equal(t, "broken link", d.ValidationNotes)
}

func TestApp_DocsScopedByRole(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	client, out := newTestApp(t, testConfig(t), store, "globex", "")
	require.NoError(t, client.Docs(ctx, nil))
	assert.Contains(t, out.String(), "https://example.com/b")
	assert.NotContains(t, out.String(), "https://example.com/a")
	assert.Contains(t, out.String(), "1 documents")

	admin, out := newTestApp(t, testConfig(t), store, "admin", "")
	require.NoError(t, admin.Docs(ctx, []string{"status=validated"}))
	assert.Contains(t, out.String(), "https://example.com/b")
	assert.Contains(t, out.String(), "1 documents")

	require.ErrorIs(t, admin.Docs(ctx, []string{"colour=red"}), common.ErrorValidation)
}

func TestApp_KPIAndScores(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t, testConfig(t), seededStore(t), "admin", "")

	require.NoError(t, a.KPI(ctx, nil))
	assert.Regexp(t, `Validated\s+1\s+50\.0%`, out.String())
	assert.Regexp(t, `Total\s+2`, out.String())

	out.Reset()
	require.NoError(t, a.Scores(ctx))
	assert.Regexp(t, `1\s+Alice\s+1\s+10\s+100\.0%`, out.String())
}

func TestApp_ClientReports(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.PublicationTarget = 4
	store := seededStore(t)

	admin, out := newTestApp(t, cfg, store, "admin", "")
	require.NoError(t, admin.Periods(ctx, []string{"Globex", "m"}))
	assert.Regexp(t, `PERIOD\s+VALIDATED`, out.String())
	require.ErrorIs(t, admin.Periods(ctx, []string{"Globex", "Y"}), common.ErrorValidation)
	require.ErrorIs(t, admin.Criteria(ctx, nil), common.ErrorValidation)

	out.Reset()
	require.NoError(t, admin.Criteria(ctx, []string{"Acme", "Industry"}))
	assert.Regexp(t, `Essential\s+1\s+0`, out.String())
	assert.Regexp(t, `Mandatory\s+0\s+0`, out.String())

	client, out := newTestApp(t, cfg, store, "globex", "")
	require.NoError(t, client.Analysis(ctx, []string{"Acme Industry"}))
	assert.Contains(t, out.String(), "globex: 1 of 4 published, 3 to go")
	assert.Regexp(t, `Mandatory\s+1`, out.String())
}

func TestApp_KPISince(t *testing.T) {
	ctx := context.Background()
	orig := nowFn
	nowFn = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { nowFn = orig })

	store := seededStore(t)
	cols := schema.Documents.Columns()
	require.NoError(t, store.AppendRows(ctx, "docs_alice", [][]string{
		schema.Documents.Encode(models.Document{
			ID: "d3", Owner: "alice", ClientID: "c1", RegisteredAt: "2025-03-10",
			Content: "https://example.com/c", Quantity: 1, Status: models.StatusValidated,
		}, cols),
	}))

	a, out := newTestApp(t, testConfig(t), store, "admin", "")
	require.NoError(t, a.KPI(ctx, []string{"days=7"}))
	assert.Regexp(t, `Validated\s+1\s+100\.0%`, out.String())
	assert.Regexp(t, `Total\s+1`, out.String())
}

func TestApp_AssignAndClients(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	a, out := newTestApp(t, testConfig(t), store, "admin", "")

	require.NoError(t, a.Assign(ctx, []string{"alice", "c2"}))
	assert.Contains(t, out.String(), "1 assigned, 0 already assigned")

	alice, out := newTestApp(t, testConfig(t), store, "alice", "")
	require.NoError(t, alice.Clients(ctx, nil))
	assert.Contains(t, out.String(), "Globex")
	assert.Contains(t, out.String(), "Acme Industry")

	require.ErrorIs(t, alice.Assign(ctx, []string{"alice", "c2"}), common.ErrorUnauthorized)
}

func TestApp_AddClientAndUser(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	a, out := newTestApp(t, testConfig(t), store, "admin",
		"Initech\nSoftware\nbob\nBob B\n\n")

	require.NoError(t, a.AddClient(ctx))
	assert.Contains(t, out.String(), "client Initech added")
	require.NoError(t, a.AddUser(ctx))
	assert.Contains(t, out.String(), "user bob added as Collaborator")

	_, err := store.Header(ctx, "docs_bob")
	require.NoError(t, err, "collaborators get a documents collection")
}

func TestEnsureLogin_GivesUpAfterThreeFailures(t *testing.T) {
	ctx := context.Background()
	c, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)

	stubPassword(t, "wrong")
	out := &bytes.Buffer{}
	a := newApp(testConfig(t), logging.NewNop(), seededStore(t), c,
		strings.NewReader("alice\nalice\nalice\nalice\n"), out)
	defer a.Close()

	require.ErrorIs(t, a.ensureLogin(ctx), common.ErrorUnauthorized)
	assert.Equal(t, 3, strings.Count(out.String(), "Login failed"))
	assert.False(t, a.isLoggedIn())
}

func TestSession_SavedAndResumed(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	cfg := testConfig(t)
	cfg.SessionSecret = "test-secret"

	newTestApp(t, cfg, store, "alice", "")

	c, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	out := &bytes.Buffer{}
	b := newApp(cfg, logging.NewNop(), store, c, strings.NewReader(""), out)
	defer b.Close()

	require.NoError(t, b.ensureLogin(ctx))
	assert.Contains(t, out.String(), "Welcome back, Alice")
	assert.Equal(t, "(alice Collaborator)", b.getStatus())

	require.NoError(t, b.Logout(ctx))
	assert.False(t, b.isLoggedIn())
	assert.False(t, b.resume(ctx))
}

func TestParseFilter(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	f, err := parseFilter([]string{"owner=alice", "Client=Acme", "status=validado", "state=PENDING", "type=Retail", "client_id=c1"}, now)
	require.NoError(t, err)
	assert.Equal(t, "alice", f.Owner)
	assert.Equal(t, "Acme", f.ClientName)
	assert.Equal(t, "c1", f.ClientID)
	assert.Equal(t, "Retail", f.ClientType)
	assert.Equal(t, models.StatusValidated, f.Status)
	assert.Equal(t, models.SyncPending, f.SyncState)

	f, err = parseFilter([]string{"days=30"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-12", f.Since)

	f, err = parseFilter([]string{"since=2025-01-01"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", f.Since)

	for _, bad := range []string{"owner", "owner=", "colour=red", "days=0", "days=week", "since=01/02/2025"} {
		_, err := parseFilter([]string{bad}, now)
		assert.ErrorIs(t, err, common.ErrorValidation, bad)
	}
}

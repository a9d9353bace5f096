package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/docsync/internal/admin"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/engine"
	"github.com/dmitrijs2005/docsync/internal/models"
)

var errAdminOnly = fmt.Errorf("%w: admin only", common.ErrorUnauthorized)

// nowFn anchors relative date filters. Tests replace it.
var nowFn = time.Now

func (a *App) Pull(ctx context.Context) error {
	res, err := a.engine.Pull(ctx, *a.identity)
	if err != nil {
		return err
	}
	a.printf("Loaded %d documents from %d collections\n", res.Documents, res.Collections)
	if res.BackfilledIDs > 0 {
		a.printf("Assigned ids to %d legacy rows\n", res.BackfilledIDs)
	}
	for _, w := range res.Warnings {
		a.printf("warning: %s\n", w)
	}
	return nil
}

// Add stages documents for one client, one per content line.
func (a *App) Add(ctx context.Context, args []string) error {
	if a.identity.Role != models.RoleCollaborator {
		return fmt.Errorf("%w: only collaborators file documents", common.ErrorUnauthorized)
	}

	client := strings.Join(args, " ")
	if client == "" {
		var err error
		if client, err = getSimpleText(a.reader, "Client name", a.out); err != nil {
			return err
		}
	}
	criteria := models.Criteria()
	options := make([]string, len(criteria))
	for i, c := range criteria {
		options[i] = string(c)
	}
	criterion, err := GetChoice(a.reader, "Criterion", options, options[0], a.out)
	if err != nil {
		return err
	}
	lines, err := GetLines(a.reader, "Links or descriptions, one per line", a.out)
	if err != nil {
		return err
	}

	staged := 0
	for _, line := range lines {
		res, err := a.engine.CreateLocal(ctx, models.Document{
			Owner:      a.identity.Username,
			ClientName: client,
			Criterion:  models.Criterion(criterion),
			Content:    line,
		})
		if err != nil {
			return fmt.Errorf("staged %d of %d: %w", staged, len(lines), err)
		}
		staged++
		a.printf("staged %s\n", res.ID)
	}
	if staged > 0 {
		a.printf("%d documents pending, use push to save them\n", staged)
	}
	return nil
}

func (a *App) Pending(ctx context.Context) error {
	docs, err := a.engine.ListPending(ctx, a.identity.Username)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		a.printf("Nothing pending\n")
		return nil
	}
	a.printDocuments(docs)
	return nil
}

// Push saves the named pending documents, or all of them for "all" or no
// arguments.
func (a *App) Push(ctx context.Context, args []string) error {
	ids := args
	if len(ids) == 0 || (len(ids) == 1 && ids[0] == "all") {
		docs, err := a.engine.ListPending(ctx, a.identity.Username)
		if err != nil {
			return err
		}
		ids = make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
	}

	res, err := a.engine.PushSelected(ctx, a.identity.Username, ids)
	if err != nil {
		return err
	}
	a.printf("Pushed %d documents, %d still pending\n", len(res.Pushed), res.RemainingPending)
	for _, w := range res.Warnings {
		a.printf("warning: %s\n", w)
	}
	return nil
}

// Validate takes <id> <status> [notes...].
func (a *App) Validate(ctx context.Context, args []string) error {
	if !a.isAdmin() {
		return errAdminOnly
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: validate <id> <status> [notes]", common.ErrorValidation)
	}
	notes := strings.Join(args[2:], " ")
	if err := a.engine.Validate(ctx, args[0], models.Status(args[1]), a.identity.Username, notes); err != nil {
		return err
	}
	a.printf("%s marked %s\n", args[0], models.ParseStatus(args[1]))
	return nil
}

// scopedFilter parses key=value filters and narrows them to what the
// identity may see.
func (a *App) scopedFilter(args []string) (engine.DocumentFilter, error) {
	f, err := parseFilter(args, nowFn())
	if err != nil {
		return f, err
	}
	switch a.identity.Role {
	case models.RoleCollaborator:
		f.Owner = a.identity.Username
	case models.RoleClient:
		f.ClientName = a.identity.ClientName
	}
	return f, nil
}

// parseFilter reads key=value pairs. days=N is resolved against now.
func parseFilter(args []string, now time.Time) (engine.DocumentFilter, error) {
	var f engine.DocumentFilter
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || v == "" {
			return f, fmt.Errorf("%w: filter %q is not key=value", common.ErrorValidation, arg)
		}
		switch strings.ToLower(k) {
		case "owner":
			f.Owner = v
		case "client":
			f.ClientName = v
		case "client_id":
			f.ClientID = v
		case "type":
			f.ClientType = v
		case "status":
			f.Status = models.ParseStatus(v)
		case "state":
			f.SyncState = models.SyncState(strings.ToLower(v))
		case "since":
			if _, err := time.Parse(models.DateLayout, v); err != nil {
				return f, fmt.Errorf("%w: since wants YYYY-MM-DD, got %q", common.ErrorValidation, v)
			}
			f.Since = v
		case "days":
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return f, fmt.Errorf("%w: days wants a positive number, got %q", common.ErrorValidation, v)
			}
			f.Since = now.AddDate(0, 0, -n).Format(models.DateLayout)
		default:
			return f, fmt.Errorf("%w: unknown filter %q", common.ErrorValidation, k)
		}
	}
	return f, nil
}

func (a *App) Docs(ctx context.Context, args []string) error {
	f, err := a.scopedFilter(args)
	if err != nil {
		return err
	}
	docs, err := a.engine.ListDocuments(ctx, f)
	if err != nil {
		return err
	}
	a.printDocuments(docs)
	a.printf("%d documents\n", len(docs))
	return nil
}

func (a *App) KPI(ctx context.Context, args []string) error {
	f, err := a.scopedFilter(args)
	if err != nil {
		return err
	}
	counts, err := a.engine.StatusCounts(ctx, f)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCOUNT\tSHARE")
	for _, s := range models.KnownStatuses() {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s, counts[s], percent(counts[s], total))
	}
	fmt.Fprintf(tw, "Total\t%d\t\n", total)
	return tw.Flush()
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func (a *App) Scores(ctx context.Context) error {
	scores, err := a.engine.CollaboratorScores(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOLLABORATOR\tVALIDATED\tPOINTS\tSHARE")
	for i, s := range scores {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.1f%%\n", i+1, s.DisplayName, s.Validated, s.Points, s.Share)
	}
	return tw.Flush()
}

// clientScope picks the client a report is about and the collaborator it
// is narrowed to. Client users always get their own client.
func (a *App) clientScope(args []string) (client, collaborator string) {
	client = strings.Join(args, " ")
	switch a.identity.Role {
	case models.RoleClient:
		client = a.identity.ClientName
	case models.RoleCollaborator:
		collaborator = a.identity.Username
	}
	return client, collaborator
}

// Periods takes [client] [D|W|M] and prints validated documents per period.
func (a *App) Periods(ctx context.Context, args []string) error {
	grain := engine.GrainWeek
	if n := len(args); n > 0 && len(args[n-1]) == 1 {
		g, err := engine.ParseGrain(args[n-1])
		if err != nil {
			return err
		}
		grain, args = g, args[:n-1]
	}
	client, _ := a.clientScope(args)
	ps, err := a.engine.ValidatedByPeriod(ctx, client, grain)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tVALIDATED")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%d\n", p.Period, p.Count)
	}
	return tw.Flush()
}

func (a *App) Criteria(ctx context.Context, args []string) error {
	client, collaborator := a.clientScope(args)
	cs, err := a.engine.CriteriaForClient(ctx, client, collaborator)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CRITERION\tDOCUMENTS\tVALIDATED")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Criterion, c.Total, c.Validated)
	}
	return tw.Flush()
}

// Analysis prints a client's progress towards the publication target.
func (a *App) Analysis(ctx context.Context, args []string) error {
	client, collaborator := a.clientScope(args)
	r, err := a.engine.AnalyzeClient(ctx, client, collaborator)
	if err != nil {
		return err
	}
	a.printf("%s: %d of %d published, %d to go\n", r.Client, r.Published, r.Target, r.Pending)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, c := range models.Criteria() {
		fmt.Fprintf(tw, "%s\t%d\n", c, r.Criteria[c])
	}
	return tw.Flush()
}

// Clients lists clients, optionally of one type. Collaborators see their
// own clients only.
func (a *App) Clients(ctx context.Context, args []string) error {
	f := engine.ClientFilter{Type: strings.Join(args, " ")}
	if a.identity.Role == models.RoleCollaborator {
		f.Collaborator = a.identity.Username
	}
	cs, err := a.engine.ListClients(ctx, f)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, c := range cs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Type)
	}
	return tw.Flush()
}

// Assign takes <collaborator> <client-id>...
func (a *App) Assign(ctx context.Context, args []string) error {
	if !a.isAdmin() {
		return errAdminOnly
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: assign <collaborator> <client-id>...", common.ErrorValidation)
	}
	res, err := a.admin.Assign(ctx, args[0], args[1:])
	if res != nil {
		a.printf("%d assigned, %d already assigned\n", len(res.Added), res.AlreadyAssigned)
	}
	return err
}

func (a *App) Unassign(ctx context.Context, args []string) error {
	if !a.isAdmin() {
		return errAdminOnly
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: unassign <collaborator> <client-id>...", common.ErrorValidation)
	}
	res, err := a.admin.Unassign(ctx, args[0], args[1:])
	if res != nil {
		a.printf("%d removed locally, %d remote rows deleted\n", res.RemovedLocal, res.RemovedRemote)
	}
	return err
}

func (a *App) AddClient(ctx context.Context) error {
	if !a.isAdmin() {
		return errAdminOnly
	}
	name, err := getSimpleText(a.reader, "Client name", a.out)
	if err != nil {
		return err
	}
	typ, err := getSimpleText(a.reader, "Client type", a.out)
	if err != nil {
		return err
	}
	c, err := a.admin.AddClient(ctx, name, typ)
	if c != nil {
		a.printf("client %s added as %s\n", c.Name, c.ID)
	}
	return err
}

func (a *App) AddUser(ctx context.Context) error {
	if !a.isAdmin() {
		return errAdminOnly
	}
	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	display, err := getSimpleText(a.reader, "Display name", a.out)
	if err != nil {
		return err
	}
	role, err := GetChoice(a.reader, "Role",
		[]string{string(models.RoleCollaborator), string(models.RoleClient), string(models.RoleAdmin)},
		string(models.RoleCollaborator), a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.admin.AddUser(ctx, admin.NewUser{
		Username:    username,
		Password:    string(password),
		DisplayName: display,
		Role:        models.Role(role),
	})
	if u != nil {
		a.printf("user %s added as %s\n", u.Username, u.Role)
	}
	return err
}

func (a *App) WhoAmI(ctx context.Context) error {
	id := a.identity
	a.printf("%s (%s), role %s\n", id.DisplayName, id.Username, id.Role)
	if t, ok, err := a.engine.LastPull(ctx); err == nil && ok {
		a.printf("last pull %s\n", t.Local().Format(models.TimestampLayout))
	}
	return nil
}

// confirmExit warns once when unpushed documents would be lost.
func (a *App) confirmExit(ctx context.Context) bool {
	if a.identity == nil || a.exitWarned {
		return true
	}
	unsaved, err := a.engine.HasUnsaved(ctx, a.identity.Username)
	if err != nil || !unsaved {
		return true
	}
	a.exitWarned = true
	a.printf("You have documents that were never pushed. Run push, or exit again to discard them.\n")
	return false
}

func (a *App) printDocuments(docs []models.Document) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tCLIENT\tCRITERION\tSTATUS\tSTATE\tCONTENT")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Owner, d.ClientName, d.Criterion, d.Status, d.SyncState, d.Content)
	}
	_ = tw.Flush()
}

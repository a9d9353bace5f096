// Package sheets implements remote.Store on a Google spreadsheet: every
// collection is a worksheet whose first row is the header.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/dmitrijs2005/docsync/internal/remote"
)

// Values are written verbatim so ids and dates are not reinterpreted.
const valueInput = "RAW"

type Store struct {
	svc           *gsheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ remote.Store = (*Store)(nil)

func New(svc *gsheets.Service, spreadsheetID string) *Store {
	return &Store{svc: svc, spreadsheetID: spreadsheetID}
}

// Open builds a Store authenticated with a service-account JSON file, or with
// application default credentials when credentialsFile is empty.
func Open(ctx context.Context, spreadsheetID, credentialsFile string) (*Store, error) {
	var creds *google.Credentials
	var err error

	if credentialsFile != "" {
		data, rerr := os.ReadFile(credentialsFile)
		if rerr != nil {
			return nil, fmt.Errorf("read credentials: %w", rerr)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsScope)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, gsheets.SpreadsheetsScope)
	}
	if err != nil {
		return nil, fmt.Errorf("google credentials: %w", err)
	}

	svc, err := gsheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

// sheetID resolves a worksheet title, refreshing the title cache once on a miss.
func (s *Store) sheetID(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.sheetIDs[name]; ok {
		return id, nil
	}

	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("list worksheets: %w", err)
	}

	s.sheetIDs = make(map[string]int64, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}

	id, ok := s.sheetIDs[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, remote.ErrCollectionNotFound)
	}
	return id, nil
}

func (s *Store) values(ctx context.Context, rng string) ([][]string, error) {
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return fromValues(vr.Values), nil
}

func (s *Store) Header(ctx context.Context, collection string) ([]string, error) {
	if _, err := s.sheetID(ctx, collection); err != nil {
		return nil, err
	}
	rows, err := s.values(ctx, quote(collection)+"!1:1")
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", collection, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *Store) ReadAll(ctx context.Context, collection string) (*remote.Table, error) {
	if _, err := s.sheetID(ctx, collection); err != nil {
		return nil, err
	}
	rows, err := s.values(ctx, quote(collection))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	if len(rows) == 0 {
		return &remote.Table{}, nil
	}
	return &remote.Table{Header: rows[0], Rows: rows[1:]}, nil
}

func (s *Store) FindRow(ctx context.Context, collection, column, value string) (*remote.Row, error) {
	tbl, err := s.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return remote.FindInTable(tbl, column, value)
}

func (s *Store) AppendRows(ctx context.Context, collection string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := s.sheetID(ctx, collection); err != nil {
		return err
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, quote(collection)+"!A1",
		&gsheets.ValueRange{Values: toValues(rows)}).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", collection, err)
	}
	return nil
}

func (s *Store) BatchUpdateCells(ctx context.Context, collection string, cells []remote.CellUpdate) error {
	if len(cells) == 0 {
		return nil
	}
	if _, err := s.sheetID(ctx, collection); err != nil {
		return err
	}
	data := make([]*gsheets.ValueRange, 0, len(cells))
	for _, c := range cells {
		data = append(data, &gsheets.ValueRange{
			Range:  quote(collection) + "!" + A1(c.Row, c.Col),
			Values: [][]interface{}{{c.Value}},
		})
	}
	_, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInput,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update cells of %s: %w", collection, err)
	}
	return nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, header []string) error {
	if _, err := s.sheetID(ctx, name); err == nil {
		return fmt.Errorf("%s: %w", name, remote.ErrCollectionExists)
	}

	resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: name}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add worksheet %s: %w", name, err)
	}

	s.mu.Lock()
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		if s.sheetIDs == nil {
			s.sheetIDs = make(map[string]int64)
		}
		s.sheetIDs[name] = resp.Replies[0].AddSheet.Properties.SheetId
	}
	s.mu.Unlock()

	if len(header) == 0 {
		return nil
	}
	return s.updateHeader(ctx, name, header)
}

func (s *Store) WriteHeader(ctx context.Context, collection string, header []string) error {
	if _, err := s.sheetID(ctx, collection); err != nil {
		return err
	}
	return s.updateHeader(ctx, collection, header)
}

func (s *Store) updateHeader(ctx context.Context, name string, header []string) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, quote(name)+"!A1",
		&gsheets.ValueRange{Values: toValues([][]string{header})}).
		ValueInputOption(valueInput).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, collection string, index int) error {
	if index < remote.FirstDataRow {
		return fmt.Errorf("row %d: %w", index, remote.ErrRowNotFound)
	}
	sid, err := s.sheetID(ctx, collection)
	if err != nil {
		return err
	}
	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:         sid,
					Dimension:       "ROWS",
					StartIndex:      int64(index - 1),
					EndIndex:        int64(index),
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d of %s: %w", index, collection, err)
	}
	return nil
}

// quote wraps a worksheet title for use in A1 ranges.
func quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// A1 renders a 1-based row/column pair, e.g. (2, 28) -> "AB2".
func A1(row, col int) string {
	return ColumnLetters(col) + fmt.Sprint(row)
}

func ColumnLetters(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = make([]interface{}, len(r))
		for j, v := range r {
			out[i][j] = v
		}
	}
	return out
}

func fromValues(rows [][]interface{}) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = make([]string, len(r))
		for j, v := range r {
			switch t := v.(type) {
			case nil:
			case string:
				out[i][j] = t
			default:
				out[i][j] = fmt.Sprint(t)
			}
		}
	}
	return out
}

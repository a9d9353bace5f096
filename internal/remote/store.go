// Package remote defines the adapter contract of the authoritative tabular
// store. Collections are named tables with a header row; rows are addressed
// spreadsheet-style: the header is row 1 and the first data row is 2.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrRowNotFound        = errors.New("row not found")
	ErrColumnNotFound     = errors.New("column not found")
)

// FirstDataRow is the index of the first row after the header.
const FirstDataRow = 2

// Table is a full collection read.
type Table struct {
	Header []string
	Rows   [][]string
}

// RowIndex returns the remote index of Rows[i].
func (t *Table) RowIndex(i int) int { return i + FirstDataRow }

// Row is a single row located by FindRow.
type Row struct {
	Index  int
	Values []string
}

// CellUpdate addresses one cell by 1-based row and column.
type CellUpdate struct {
	Row   int
	Col   int
	Value string
}

// Store is the remote store adapter. Implementations return
// ErrCollectionNotFound for missing collections; every other error is a
// transport failure.
type Store interface {
	Header(ctx context.Context, collection string) ([]string, error)
	ReadAll(ctx context.Context, collection string) (*Table, error)
	FindRow(ctx context.Context, collection, column, value string) (*Row, error)
	AppendRows(ctx context.Context, collection string, rows [][]string) error
	BatchUpdateCells(ctx context.Context, collection string, cells []CellUpdate) error
	CreateCollection(ctx context.Context, name string, header []string) error
	// WriteHeader replaces the header row of an existing collection.
	WriteHeader(ctx context.Context, collection string, header []string) error
	DeleteRow(ctx context.Context, collection string, index int) error
}

// DocumentsCollection names the document collection owned by a collaborator.
func DocumentsCollection(prefix, owner string) string {
	return prefix + owner
}

// FindInTable is the shared FindRow implementation for backends that can
// only read whole collections. Values are compared after trimming spaces.
func FindInTable(t *Table, column, value string) (*Row, error) {
	col := -1
	for i, h := range t.Header {
		if strings.TrimSpace(h) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrColumnNotFound
	}
	for i, r := range t.Rows {
		if col < len(r) && strings.TrimSpace(r[col]) == value {
			return &Row{Index: t.RowIndex(i), Values: r}, nil
		}
	}
	return nil, ErrRowNotFound
}

// EnsureCollection returns the header of collection, creating the collection
// with header when it does not exist yet. A collection that exists without a
// header, such as a blank worksheet, gets header written as its first row.
func EnsureCollection(ctx context.Context, s Store, collection string, header []string) ([]string, error) {
	h, err := s.Header(ctx, collection)
	switch {
	case err == nil:
		return fillHeader(ctx, s, collection, h, header)
	case !errors.Is(err, ErrCollectionNotFound):
		return nil, err
	}

	if err := s.CreateCollection(ctx, collection, header); err != nil {
		if !errors.Is(err, ErrCollectionExists) {
			return nil, err
		}
		if h, err = s.Header(ctx, collection); err != nil {
			return nil, err
		}
		return fillHeader(ctx, s, collection, h, header)
	}
	return header, nil
}

func fillHeader(ctx context.Context, s Store, collection string, h, header []string) ([]string, error) {
	if !BlankHeader(h) {
		return h, nil
	}
	if err := s.WriteHeader(ctx, collection, header); err != nil {
		return nil, fmt.Errorf("write header of %s: %w", collection, err)
	}
	return header, nil
}

// BlankHeader reports whether h names no column at all.
func BlankHeader(h []string) bool {
	for _, c := range h {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

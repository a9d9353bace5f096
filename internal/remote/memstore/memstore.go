// Package memstore is an in-process remote.Store. It backs tests and the
// "memory" backend.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/docsync/internal/remote"
)

type table struct {
	header []string
	rows   [][]string
}

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

var _ remote.Store = (*Store)(nil)

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Seed replaces a collection wholesale. Test helper.
func (s *Store) Seed(name string, header []string, rows ...[]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = &table{header: clone(header), rows: cloneRows(rows)}
}

// Collections lists collection names, unordered.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	return out
}

func (s *Store) get(name string) (*table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, remote.ErrCollectionNotFound)
	}
	return t, nil
}

func (s *Store) Header(ctx context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.get(collection)
	if err != nil {
		return nil, err
	}
	return clone(t.header), nil
}

func (s *Store) ReadAll(ctx context.Context, collection string) (*remote.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.get(collection)
	if err != nil {
		return nil, err
	}
	return &remote.Table{Header: clone(t.header), Rows: cloneRows(t.rows)}, nil
}

func (s *Store) FindRow(ctx context.Context, collection, column, value string) (*remote.Row, error) {
	tbl, err := s.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	return remote.FindInTable(tbl, column, value)
}

func (s *Store) AppendRows(ctx context.Context, collection string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(collection)
	if err != nil {
		return err
	}
	t.rows = append(t.rows, cloneRows(rows)...)
	return nil
}

func (s *Store) BatchUpdateCells(ctx context.Context, collection string, cells []remote.CellUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(collection)
	if err != nil {
		return err
	}
	for _, c := range cells {
		i := c.Row - remote.FirstDataRow
		if i < 0 || i >= len(t.rows) || c.Col < 1 {
			return fmt.Errorf("cell %d:%d out of range: %w", c.Row, c.Col, remote.ErrRowNotFound)
		}
	}
	for _, c := range cells {
		i := c.Row - remote.FirstDataRow
		for len(t.rows[i]) < c.Col {
			t.rows[i] = append(t.rows[i], "")
		}
		t.rows[i][c.Col-1] = c.Value
	}
	return nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return fmt.Errorf("%s: %w", name, remote.ErrCollectionExists)
	}
	s.tables[name] = &table{header: clone(header)}
	return nil
}

func (s *Store) WriteHeader(ctx context.Context, collection string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(collection)
	if err != nil {
		return err
	}
	t.header = clone(header)
	return nil
}

func (s *Store) DeleteRow(ctx context.Context, collection string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.get(collection)
	if err != nil {
		return err
	}
	i := index - remote.FirstDataRow
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("row %d: %w", index, remote.ErrRowNotFound)
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = clone(r)
	}
	return out
}

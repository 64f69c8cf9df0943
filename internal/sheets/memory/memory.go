package memory

import (
	"context"
	"fmt"
	"sync"

	ports "smartexpense/internal/sheets"
)

var _ ports.TableWriter = (*Store)(nil)

// Store keeps the last written table in memory.
type Store struct {
	mu     sync.Mutex
	header []string
	rows   [][]string
	writes int
}

func New() *Store { return &Store{} }

func (s *Store) ReplaceTable(_ context.Context, header []string, rows [][]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = append([]string(nil), header...)
	s.rows = make([][]string, len(rows))
	for i, r := range rows {
		s.rows[i] = append([]string(nil), r...)
	}
	s.writes++
	return fmt.Sprintf("mem!A1:%d", len(rows)+1), nil
}

// Table returns a copy of the stored header and rows.
func (s *Store) Table() ([]string, [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([][]string, len(s.rows))
	for i, r := range s.rows {
		rows[i] = append([]string(nil), r...)
	}
	return append([]string(nil), s.header...), rows
}

func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Package memory provides an in-memory budget row source for tests and
// local development.
package memory

import (
	"context"
	"sync"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
)

type Source struct {
	mu     sync.Mutex
	rows   []core.BudgetRow
	err    error
	closed bool
}

func New(rows []core.BudgetRow) *Source {
	return &Source{rows: rows}
}

// NewFailing returns a source whose Rows call always fails, for exercising
// ingestion error paths.
func NewFailing(err error) *Source {
	return &Source{err: err}
}

func (s *Source) Rows(_ context.Context) ([]core.BudgetRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]core.BudgetRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

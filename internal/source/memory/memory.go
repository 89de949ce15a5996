// Package memory provides an in-memory row source for tests and demos.
package memory

import (
	"context"
	"sync"

	"mauzo/internal/core"
)

type Store struct {
	mu      sync.Mutex
	records []core.RawRecord
}

// New creates a store preloaded with the given rows.
func New(records []core.RawRecord) *Store {
	return &Store{records: append([]core.RawRecord(nil), records...)}
}

// Add appends rows to the store.
func (s *Store) Add(records ...core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Load implements source.RowSource.
func (s *Store) Load(_ context.Context) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord(nil), s.records...), nil
}

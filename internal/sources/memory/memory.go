// Package memory is an in-process record source used by tests and demos.
package memory

import (
	"context"
	"strconv"
	"sync"

	"wastedash/internal/core"
	"wastedash/internal/sources"
)

type Store struct {
	mu      sync.Mutex
	records []core.RawRecord
	rev     int
}

var _ sources.ImportableSource = (*Store)(nil)

func New(records ...core.RawRecord) *Store {
	return &Store{records: append([]core.RawRecord(nil), records...)}
}

func (s *Store) Name() string { return "memory" }

// Fingerprint is a revision counter bumped on every Replace.
func (s *Store) Fingerprint(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return "mem:" + strconv.Itoa(s.rev), nil
}

func (s *Store) ReadRecords(_ context.Context) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord(nil), s.records...), nil
}

// Replace swaps the stored records.
func (s *Store) Replace(records []core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]core.RawRecord(nil), records...)
	s.rev++
}

func (s *Store) ImportRecords(_ context.Context, records []core.RawRecord) (int, error) {
	s.Replace(records)
	return len(records), nil
}

// Package history keeps the list of completed calls.
package history

import (
	"context"
	"errors"
	"sync"

	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/service"
)

// DefaultLimit is the number of records kept in memory.
const DefaultLimit = 50

// Memory is a bounded, newest-first call history.
type Memory struct {
	records []model.CallRecord
	limit   int
	mu      sync.RWMutex
}

// NewMemory creates a history holding at most limit records.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Memory{limit: limit}
}

// Record prepends record, evicting the oldest beyond the limit.
func (m *Memory) Record(_ context.Context, record model.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append([]model.CallRecord{record}, m.records...)
	if len(m.records) > m.limit {
		m.records = m.records[:m.limit]
	}
	return nil
}

// List returns a copy of the records, newest first.
func (m *Memory) List() []model.CallRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.CallRecord(nil), m.records...)
}

// ListCallRecords implements service.HistoryReader.
func (m *Memory) ListCallRecords(_ context.Context, limit int) ([]model.CallRecord, error) {
	records := m.List()
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// Clear removes all records.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

type tee []service.HistorySink

// Tee records to every sink, continuing past failures.
func Tee(sinks ...service.HistorySink) service.HistorySink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t tee) Record(ctx context.Context, record model.CallRecord) error {
	var errs []error
	for _, sink := range t {
		if err := sink.Record(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
